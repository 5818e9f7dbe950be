package invoicing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Godswill9/sage200EvolutionApi/internal/domain/invoicing"
	"github.com/Godswill9/sage200EvolutionApi/internal/domain/shared"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/logger"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/telemetry"
)

// PostOptions tune one posting attempt
type PostOptions struct {
	// BatchID is stamped on every audit row the attempt writes
	BatchID *uuid.UUID
	// RecordVerificationFailures writes a failed audit row when the customer
	// lookup fails. The batch path sets it; the single-invoice path does not.
	RecordVerificationFailures bool
}

// Poster posts one invoice submission
type Poster interface {
	Post(ctx context.Context, sub invoicing.Submission, opts PostOptions) (invoicing.PostingOutcome, error)
}

// PostingService drives one invoice through verification, duplicate check,
// ledger posting, line materialization and audit logging.
type PostingService struct {
	ledger   invoicing.Ledger
	auditLog invoicing.AuditLogRepository
	lines    invoicing.InvoiceLineStore
	guard    *DuplicateGuard
	lock     shared.KeyLock
	lockTTL  time.Duration
	policy   invoicing.TaxPolicy
	logger   *zap.Logger
	metrics  *telemetry.PostingMetrics
	now      func() time.Time
}

// PostingServiceConfig holds the collaborators of a PostingService.
// Lines, Lock and Metrics are optional.
type PostingServiceConfig struct {
	Ledger    invoicing.Ledger
	AuditLog  invoicing.AuditLogRepository
	Lines     invoicing.InvoiceLineStore
	Lock      shared.KeyLock
	LockTTL   time.Duration
	TaxPolicy *invoicing.TaxPolicy
	Logger    *zap.Logger
	Metrics   *telemetry.PostingMetrics
	Now       func() time.Time
}

// NewPostingService creates a new PostingService
func NewPostingService(cfg PostingServiceConfig) *PostingService {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	policy := invoicing.DefaultTaxPolicy()
	if cfg.TaxPolicy != nil {
		policy = *cfg.TaxPolicy
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = shared.DefaultLockConfig().TTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &PostingService{
		ledger:   cfg.Ledger,
		auditLog: cfg.AuditLog,
		lines:    cfg.Lines,
		guard:    NewDuplicateGuard(cfg.AuditLog),
		lock:     cfg.Lock,
		lockTTL:  ttl,
		policy:   policy,
		logger:   log,
		metrics:  cfg.Metrics,
		now:      now,
	}
}

// Post runs the posting pipeline for sub.
//
// The returned outcome is always populated with the reference, customer code
// and totals. A non-nil error wraps one of the invoicing sentinels; the
// outcome status is then duplicate or failed. Materialization and audit
// write failures are logged and never turn a posted invoice into an error.
func (s *PostingService) Post(ctx context.Context, sub invoicing.Submission, opts PostOptions) (invoicing.PostingOutcome, error) {
	start := s.now()
	ctx = logger.WithCompanyID(ctx, sub.CompanyID)
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice_posting", "post",
		telemetry.SpanAttrCompanyID, sub.CompanyID,
		telemetry.SpanAttrCustomerCode, sub.Invoice.CustomerCode,
		telemetry.SpanAttrReference, sub.Invoice.Reference,
		telemetry.SpanAttrOperation, sub.Operation.String(),
	)
	defer span.End()

	outcome, err := s.post(ctx, sub, opts)

	telemetry.SetAttributes(span, telemetry.SpanAttrPostingStatus, outcome.Status.String())
	if outcome.AuditRef != "" {
		telemetry.SetAttributes(span, telemetry.SpanAttrAuditRef, outcome.AuditRef)
	}
	if err != nil {
		telemetry.RecordError(span, err)
	}
	s.metrics.RecordAttempt(ctx, sub.CompanyID, sub.Operation.String(), outcome.Status.String(),
		opts.BatchID != nil, s.now().Sub(start))

	return outcome, err
}

func (s *PostingService) post(ctx context.Context, sub invoicing.Submission, opts PostOptions) (invoicing.PostingOutcome, error) {
	outcome := invoicing.PostingOutcome{
		Status:       invoicing.PostingStatusFailed,
		Reference:    sub.Invoice.Reference,
		CustomerCode: sub.Invoice.CustomerCode,
	}

	if err := sub.Validate(); err != nil {
		return outcome, err
	}
	outcome.Totals = invoicing.CalculateTotals(sub.Invoice.Lines, s.policy)

	log := logger.Enrich(ctx, s.logger).With(
		zap.String("reference", sub.Invoice.Reference),
		zap.String("customer_code", sub.Invoice.CustomerCode),
	)

	// Verifying
	if _, err := s.ledger.FindCustomer(ctx, sub.Credentials, sub.Invoice.CustomerCode); err != nil {
		err = asLedgerError(err)
		log.Warn("Customer verification failed", zap.Error(err))
		if opts.RecordVerificationFailures {
			outcome.Response = errorPayload(verificationMessage(err))
			outcome.AuditLogID = s.appendAttempt(ctx, log, sub, outcome.Totals,
				invoicing.PostingStatusFailed, "", outcome.Response, opts.BatchID)
		}
		return outcome, err
	}

	if s.lock != nil {
		key := sub.Key()
		token, acquired, err := s.lock.TryLock(ctx, key, s.lockTTL)
		switch {
		case err != nil:
			// ux_invoice_logs_posted still rejects a second posted row
			log.Warn("Posting lock unavailable, continuing without it", zap.Error(err))
		case !acquired:
			outcome.Status = invoicing.PostingStatusDuplicate
			return outcome, fmt.Errorf("%w: %s for %s", invoicing.ErrPostingInProgress,
				sub.Invoice.Reference, sub.Invoice.CustomerCode)
		default:
			defer func() {
				if err := s.lock.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
					log.Warn("Failed to release posting lock", zap.Error(err))
				}
			}()
		}
	}

	// CheckingDuplicate
	posted, err := s.guard.IsAlreadyPosted(ctx, sub.Invoice.Reference, sub.Invoice.CustomerCode)
	if err != nil {
		log.Error("Duplicate check failed, invoice not posted", zap.Error(err))
		return outcome, err
	}
	if posted {
		outcome.Status = invoicing.PostingStatusDuplicate
		return outcome, fmt.Errorf("%w: %s already posted for %s", invoicing.ErrDuplicateInvoice,
			sub.Invoice.Reference, sub.Invoice.CustomerCode)
	}

	// Posting
	resp, err := s.ledger.PostInvoice(ctx, sub.Credentials, sub.Operation, sub.Invoice.Raw)
	if err == nil && resp == nil {
		err = fmt.Errorf("%w: empty ledger response", invoicing.ErrLedgerTransport)
	}
	if err != nil {
		err = asLedgerError(err)
		log.Error("Ledger post failed", zap.Error(err))
		outcome.Response = errorPayload(err.Error())
		outcome.AuditLogID = s.appendAttempt(ctx, log, sub, outcome.Totals,
			invoicing.PostingStatusFailed, "", outcome.Response, opts.BatchID)
		return outcome, err
	}

	success, ok := resp.(invoicing.PostSuccess)
	if !ok {
		outcome.Response = resp.Payload()
		outcome.AuditLogID = s.appendAttempt(ctx, log, sub, outcome.Totals,
			invoicing.PostingStatusFailed, "", outcome.Response, opts.BatchID)
		log.Warn("Ledger rejected invoice", zap.ByteString("response", outcome.Response))
		return outcome, fmt.Errorf("%w: %s", invoicing.ErrLedgerBusinessFault, faultKind(resp))
	}

	outcome.Status = invoicing.PostingStatusPosted
	outcome.AuditRef = success.AuditRef
	outcome.Response = success.Body

	// Materializing
	outcome.MaterializedLines = s.materialize(ctx, log, sub, success.AuditRef)

	// Logged
	outcome.AuditLogID = s.appendPosted(ctx, log, sub, outcome, opts.BatchID)

	log.Info("Invoice posted",
		zap.String("audit_ref", outcome.AuditRef),
		zap.Int("materialized_lines", outcome.MaterializedLines),
	)
	return outcome, nil
}

// materialize writes the invoice lines under the ledger invoice id found in
// auditRef. Nothing is written when no id can be determined.
func (s *PostingService) materialize(ctx context.Context, log *zap.Logger, sub invoicing.Submission, auditRef string) int {
	if s.lines == nil {
		return 0
	}
	ledgerID := invoicing.ExtractLedgerIdentifier(auditRef)
	if ledgerID.IsZero() {
		log.Debug("No ledger invoice id in response, skipping line materialization", zap.String("audit_ref", auditRef))
		return 0
	}
	if len(sub.Invoice.Lines) == 0 {
		log.Debug("Invoice has no lines to materialize")
		return 0
	}

	invoiceID := ledgerID.InvoiceID
	if invoiceID == 0 {
		resolved, err := s.lines.ResolveInvoiceID(ctx, ledgerID.Reference)
		if err != nil {
			if errors.Is(err, invoicing.ErrInvoiceNotFound) {
				log.Info("Ledger reference not found in company database, skipping line materialization",
					zap.String("ledger_reference", ledgerID.Reference))
			} else {
				log.Error("Failed to resolve ledger reference", zap.String("ledger_reference", ledgerID.Reference), zap.Error(err))
			}
			return 0
		}
		invoiceID = resolved
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "invoice_posting", "materialize",
		telemetry.SpanAttrInvoiceID, invoiceID)
	defer span.End()

	if err := s.lines.Materialize(ctx, invoiceID, sub.Invoice.Lines); err != nil {
		telemetry.RecordError(span, err)
		log.Error("Line materialization failed", zap.Int64("invoice_id", invoiceID), zap.Error(err))
		return 0
	}

	n := len(sub.Invoice.Lines)
	s.metrics.RecordMaterializedLines(ctx, sub.CompanyID, n)
	return n
}

// appendPosted writes the posted row. When the unique index reports another
// posted row for the pair, the ledger accepted a second posting; that is
// recorded as a duplicate row for reconciliation.
func (s *PostingService) appendPosted(ctx context.Context, log *zap.Logger, sub invoicing.Submission, outcome invoicing.PostingOutcome, batchID *uuid.UUID) int64 {
	rec := invoicing.NewAuditLogRecord(sub, outcome.Totals, invoicing.PostingStatusPosted,
		outcome.AuditRef, outcome.Response, batchID, s.now())

	err := s.auditLog.Append(ctx, rec)
	if err == nil {
		return rec.ID
	}
	if !errors.Is(err, invoicing.ErrDuplicateInvoice) {
		log.Error("Audit log write failed after successful post", zap.String("audit_ref", outcome.AuditRef), zap.Error(err))
		return 0
	}

	log.Error("Ledger accepted an invoice that was already posted", zap.String("audit_ref", outcome.AuditRef))
	return s.appendAttempt(ctx, log, sub, outcome.Totals, invoicing.PostingStatusDuplicate,
		outcome.AuditRef, outcome.Response, batchID)
}

// appendAttempt writes one non-posted row and returns its id, or 0 on failure
func (s *PostingService) appendAttempt(
	ctx context.Context,
	log *zap.Logger,
	sub invoicing.Submission,
	totals invoicing.Totals,
	status invoicing.PostingStatus,
	auditRef string,
	response json.RawMessage,
	batchID *uuid.UUID,
) int64 {
	rec := invoicing.NewAuditLogRecord(sub, totals, status, auditRef, response, batchID, s.now())
	if err := s.auditLog.Append(ctx, rec); err != nil {
		log.Error("Audit log write failed", zap.String("status", status.String()), zap.Error(err))
		return 0
	}
	return rec.ID
}

// asLedgerError keeps ledger sentinels and treats anything else as transport
func asLedgerError(err error) error {
	if errors.Is(err, invoicing.ErrCustomerNotFound) ||
		errors.Is(err, invoicing.ErrLedgerTransport) ||
		errors.Is(err, invoicing.ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %v", invoicing.ErrLedgerTransport, err)
}

func verificationMessage(err error) string {
	if errors.Is(err, invoicing.ErrCustomerNotFound) {
		return "Customer not found"
	}
	return "Customer lookup failed"
}

func faultKind(resp invoicing.LedgerResponse) string {
	if _, ok := resp.(invoicing.MalformedFault); ok {
		return "Sage fault response"
	}
	return "validation errors"
}

func errorPayload(msg string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return b
}

var _ Poster = (*PostingService)(nil)
