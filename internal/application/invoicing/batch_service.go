package invoicing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Godswill9/sage200EvolutionApi/internal/domain/invoicing"
	"github.com/Godswill9/sage200EvolutionApi/internal/domain/shared"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/logger"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/telemetry"
)

// BatchRequest is a list of invoices posted with one set of credentials
type BatchRequest struct {
	Invoices    []json.RawMessage
	Credentials invoicing.Credentials
	CompanyID   string
	Operation   invoicing.Operation
}

// BatchItemResult is the per-invoice entry of a batch report
type BatchItemResult struct {
	Reference    string `json:"reference"`
	CustomerCode string `json:"customerCode,omitempty"`
	Status       string `json:"status"`
	AuditID      string `json:"audit,omitempty"`
	Error        string `json:"error,omitempty"`
	Code         string `json:"code,omitempty"`
	Message      string `json:"message,omitempty"`
}

// BatchReport summarizes a batch. Results keep the input order.
type BatchReport struct {
	BatchID    uuid.UUID         `json:"batchId"`
	Total      int               `json:"total"`
	Posted     int               `json:"posted"`
	Duplicates int               `json:"duplicates"`
	Failed     int               `json:"failed"`
	Results    []BatchItemResult `json:"summary"`
}

// add folds one result into the report
func (r BatchReport) add(item BatchItemResult) BatchReport {
	switch item.Status {
	case invoicing.PostingStatusPosted.String():
		r.Posted++
	case invoicing.PostingStatusDuplicate.String():
		r.Duplicates++
	default:
		r.Failed++
	}
	r.Total++
	r.Results = append(r.Results, item)
	return r
}

// BatchService posts invoices sequentially and reports each result.
// One invoice failing never stops the rest.
type BatchService struct {
	poster Poster
	logger *zap.Logger
	newID  func() uuid.UUID
}

// BatchServiceConfig holds the collaborators of a BatchService
type BatchServiceConfig struct {
	Poster Poster
	Logger *zap.Logger
	NewID  func() uuid.UUID
}

// NewBatchService creates a new BatchService
func NewBatchService(cfg BatchServiceConfig) *BatchService {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.New
	}
	return &BatchService{poster: cfg.Poster, logger: log, newID: newID}
}

// PostBatch posts every invoice in order. Only a request-level validation
// failure is returned as an error; per-invoice failures are results.
func (s *BatchService) PostBatch(ctx context.Context, req BatchRequest) (*BatchReport, error) {
	if len(req.Invoices) == 0 {
		return nil, fmt.Errorf("%w: invoices must be a non-empty list", invoicing.ErrValidation)
	}
	if err := req.Credentials.Validate(); err != nil {
		return nil, err
	}

	batchID := s.newID()
	ctx = logger.WithCompanyID(ctx, req.CompanyID)
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice_batch", "post",
		telemetry.SpanAttrCompanyID, req.CompanyID,
		telemetry.SpanAttrBatchID, batchID.String(),
		telemetry.SpanAttrBatchSize, len(req.Invoices),
	)
	defer span.End()

	log := logger.Enrich(ctx, s.logger).With(zap.String("batch_id", batchID.String()))
	log.Info("Batch started", zap.Int("invoices", len(req.Invoices)))

	report := BatchReport{
		BatchID: batchID,
		Results: make([]BatchItemResult, 0, len(req.Invoices)),
	}
	for i, raw := range req.Invoices {
		if err := ctx.Err(); err != nil {
			report = report.add(BatchItemResult{Status: invoicing.PostingStatusFailed.String(), Error: err.Error()})
			continue
		}
		report = report.add(s.postOne(ctx, log, req, raw, i, batchID))
	}

	telemetry.SetAttributes(span,
		"batch.posted", report.Posted,
		"batch.duplicates", report.Duplicates,
		"batch.failed", report.Failed,
	)
	log.Info("Batch processing completed",
		zap.Int("total", report.Total),
		zap.Int("posted", report.Posted),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("failed", report.Failed),
	)
	return &report, nil
}

func (s *BatchService) postOne(
	ctx context.Context,
	log *zap.Logger,
	req BatchRequest,
	raw json.RawMessage,
	index int,
	batchID uuid.UUID,
) (result BatchItemResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while posting batch invoice", zap.Int("index", index), zap.Any("panic", r), zap.Stack("stack"))
			result.Status = invoicing.PostingStatusFailed.String()
			result.Error = fmt.Sprintf("internal error: %v", r)
		}
	}()

	inv, err := invoicing.ParseInvoice(raw)
	if err != nil {
		return failedResult("", "", err)
	}

	sub := invoicing.Submission{
		Invoice:     inv,
		Credentials: req.Credentials,
		CompanyID:   req.CompanyID,
		Operation:   req.Operation,
	}
	outcome, err := s.poster.Post(ctx, sub, PostOptions{BatchID: &batchID, RecordVerificationFailures: true})

	result = BatchItemResult{
		Reference:    inv.Reference,
		CustomerCode: inv.CustomerCode,
		Status:       outcome.Status.String(),
	}
	switch {
	case err == nil && outcome.Posted():
		result.AuditID = outcome.AuditRef
	case outcome.Status == invoicing.PostingStatusDuplicate:
		result.Message = "Invoice already posted"
		if errors.Is(err, invoicing.ErrPostingInProgress) {
			result.Message = "Invoice posting already in progress"
		}
		result.Code = errorCode(err)
	default:
		return failedResult(inv.Reference, inv.CustomerCode, err)
	}
	return result
}

func failedResult(reference, customerCode string, err error) BatchItemResult {
	return BatchItemResult{
		Reference:    reference,
		CustomerCode: customerCode,
		Status:       invoicing.PostingStatusFailed.String(),
		Error:        batchErrorMessage(err),
		Code:         errorCode(err),
	}
}

func batchErrorMessage(err error) string {
	switch {
	case err == nil:
		return "unknown error"
	case errors.Is(err, invoicing.ErrCustomerNotFound):
		return "Customer not found"
	default:
		return err.Error()
	}
}

func errorCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
