package invoicing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Godswill9/sage200EvolutionApi/internal/domain/invoicing"
	"github.com/Godswill9/sage200EvolutionApi/internal/domain/shared"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/logger"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/telemetry"
)

// Page sizes used against the ledger list endpoints
const (
	CustomerListPageSize = 5000
	CustomerScanPageSize = 3000
	TransactionPageSize  = 100
	DefaultMaxPages      = 500
)

// InvoiceSummary is one ledger transaction of the all-invoices listing
type InvoiceSummary struct {
	Account     string           `json:"account"`
	Reference   string           `json:"reference"`
	Description string           `json:"description"`
	Debit       string           `json:"debit"`
	Credit      string           `json:"credit"`
	Date        string           `json:"date"`
	Type        string           `json:"type"`
	Raw         invoicing.Record `json:"raw"`
}

// LookupService serves the read-only ledger and audit queries
type LookupService struct {
	ledger    invoicing.Ledger
	directory invoicing.LedgerDirectory
	lines     invoicing.InvoiceLineStore
	audit     invoicing.AuditLogReader
	maxPages  int
	logger    *zap.Logger
}

// LookupServiceConfig holds the collaborators of a LookupService.
// Lines is nil when no secondary store is configured.
type LookupServiceConfig struct {
	Ledger    invoicing.Ledger
	Directory invoicing.LedgerDirectory
	Lines     invoicing.InvoiceLineStore
	Audit     invoicing.AuditLogReader
	MaxPages  int
	Logger    *zap.Logger
}

// ErrSecondaryStoreDisabled is returned by line reads without a secondary store
var ErrSecondaryStoreDisabled = shared.NewDomainError("SECONDARY_STORE_DISABLED", "secondary store is not configured")

// NewLookupService creates a new LookupService
func NewLookupService(cfg LookupServiceConfig) *LookupService {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &LookupService{
		ledger:    cfg.Ledger,
		directory: cfg.Directory,
		lines:     cfg.Lines,
		audit:     cfg.Audit,
		maxPages:  maxPages,
		logger:    log,
	}
}

// ListCustomers returns the first page of customers ordered by account
func (s *LookupService) ListCustomers(ctx context.Context, creds invoicing.Credentials) ([]invoicing.Record, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_lookup", "list_customers",
		telemetry.SpanAttrCompanyID, creds.Company)
	defer span.End()

	customers, err := s.directory.ListCustomers(ctx, creds, 1, CustomerListPageSize)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return customers, nil
}

// FindCustomer looks up one customer by account code
func (s *LookupService) FindCustomer(ctx context.Context, creds invoicing.Credentials, code string) (*invoicing.Customer, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: missing customer code", invoicing.ErrValidation)
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_lookup", "find_customer",
		telemetry.SpanAttrCompanyID, creds.Company,
		telemetry.SpanAttrCustomerCode, code)
	defer span.End()

	customer, err := s.ledger.FindCustomer(ctx, creds, code)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return customer, nil
}

// CustomerTransactions returns every transaction of one customer
func (s *LookupService) CustomerTransactions(ctx context.Context, creds invoicing.Credentials, code string) ([]invoicing.Record, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: missing customer code", invoicing.ErrValidation)
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_lookup", "customer_transactions",
		telemetry.SpanAttrCompanyID, creds.Company,
		telemetry.SpanAttrCustomerCode, code)
	defer span.End()

	records, pages, err := s.collect(ctx, TransactionPageSize, func(ctx context.Context, page, size int) ([]invoicing.Record, error) {
		return s.directory.ListCustomerTransactions(ctx, creds, code, page, size)
	})
	telemetry.SetAttributes(span, telemetry.SpanAttrPages, pages)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return records, nil
}

// FetchInvoiceByReference pages through one customer's transactions and
// returns the first whose Reference matches. ErrInvoiceNotFound when the
// pages run out first.
func (s *LookupService) FetchInvoiceByReference(ctx context.Context, creds invoicing.Credentials, code, reference string) (invoicing.Record, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" || strings.TrimSpace(reference) == "" {
		return nil, fmt.Errorf("%w: customer code and reference are required", invoicing.ErrValidation)
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_lookup", "fetch_invoice_by_reference",
		telemetry.SpanAttrCompanyID, creds.Company,
		telemetry.SpanAttrCustomerCode, code,
		telemetry.SpanAttrReference, reference)
	defer span.End()

	var found invoicing.Record
	pages, err := s.walk(ctx, TransactionPageSize,
		func(ctx context.Context, page, size int) ([]invoicing.Record, error) {
			return s.directory.ListCustomerTransactions(ctx, creds, code, page, size)
		},
		func(records []invoicing.Record) bool {
			for _, rec := range records {
				if rec.String("Reference") == reference {
					found = rec
					return true
				}
			}
			return false
		})
	telemetry.SetAttributes(span, telemetry.SpanAttrPages, pages)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: reference %s for customer %s", invoicing.ErrInvoiceNotFound, reference, code)
	}
	return found, nil
}

// AllInvoices walks every customer and collects their transactions.
// A customer whose transactions cannot be read is logged and skipped.
func (s *LookupService) AllInvoices(ctx context.Context, creds invoicing.Credentials) ([]InvoiceSummary, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_lookup", "all_invoices",
		telemetry.SpanAttrCompanyID, creds.Company)
	defer span.End()
	log := logger.Enrich(ctx, s.logger)

	customers, _, err := s.collect(ctx, CustomerScanPageSize, func(ctx context.Context, page, size int) ([]invoicing.Record, error) {
		return s.directory.ListCustomers(ctx, creds, page, size)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	invoices := make([]InvoiceSummary, 0)
	for _, c := range customers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		account := c.String("Account")
		if account == "" {
			account = c.String("Code")
		}
		if account == "" {
			continue
		}

		txs, _, err := s.collect(ctx, TransactionPageSize, func(ctx context.Context, page, size int) ([]invoicing.Record, error) {
			return s.directory.ListCustomerTransactions(ctx, creds, account, page, size)
		})
		if err != nil {
			log.Warn("Skipping customer, transactions unavailable", zap.String("account", account), zap.Error(err))
			continue
		}
		for _, tx := range txs {
			invoices = append(invoices, InvoiceSummary{
				Account:     account,
				Reference:   tx.String("Reference"),
				Description: tx.String("Description"),
				Debit:       tx.String("Debit"),
				Credit:      tx.String("Credit"),
				Date:        tx.String("Date"),
				Type:        tx.String("Id"),
				Raw:         tx,
			})
		}
	}

	telemetry.SetAttributes(span, "customers", len(customers), "invoices", len(invoices))
	log.Info("Collected ledger invoices", zap.Int("customers", len(customers)), zap.Int("invoices", len(invoices)))
	return invoices, nil
}

// GetFullInvoice reads materialized lines from the secondary store
func (s *LookupService) GetFullInvoice(ctx context.Context, invoiceID int64) (*invoicing.FullInvoice, error) {
	if s.lines == nil {
		return nil, ErrSecondaryStoreDisabled
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice_lines", "get_full_invoice",
		telemetry.SpanAttrInvoiceID, invoiceID)
	defer span.End()

	full, err := s.lines.GetFullInvoice(ctx, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return full, nil
}

// AuditHistory returns every posting attempt of the pair, oldest first
func (s *LookupService) AuditHistory(ctx context.Context, reference, customerCode string) ([]*invoicing.AuditLogRecord, error) {
	if strings.TrimSpace(reference) == "" || strings.TrimSpace(customerCode) == "" {
		return nil, fmt.Errorf("%w: reference and customer code are required", invoicing.ErrValidation)
	}
	return s.audit.FindByReference(ctx, reference, customerCode)
}

type pageFetcher func(ctx context.Context, page, size int) ([]invoicing.Record, error)

// collect reads every page and concatenates the records
func (s *LookupService) collect(ctx context.Context, size int, fetch pageFetcher) ([]invoicing.Record, int, error) {
	var all []invoicing.Record
	pages, err := s.walk(ctx, size, fetch, func(records []invoicing.Record) bool {
		all = append(all, records...)
		return false
	})
	if err != nil {
		return nil, 0, err
	}
	return all, pages, nil
}

// walk hands pages to visit until visit returns true, a page comes back
// empty, the ledger answers a page with an error status or maxPages is
// reached. Any other error on the first page is returned; on a later page it
// ends the walk quietly. It returns the number of pages visited.
func (s *LookupService) walk(ctx context.Context, size int, fetch pageFetcher, visit func([]invoicing.Record) bool) (int, error) {
	for page := 1; page <= s.maxPages; page++ {
		records, err := fetch(ctx, page, size)
		if err != nil {
			if errors.Is(err, invoicing.ErrLedgerStatus) {
				logger.Enrich(ctx, s.logger).Info("Ledger ended pagination with an error status",
					zap.Int("page", page), zap.Error(err))
				return page - 1, nil
			}
			if page == 1 {
				return 0, err
			}
			logger.Enrich(ctx, s.logger).Warn("Stopping pagination after page error",
				zap.Int("page", page), zap.Error(err))
			return page - 1, nil
		}
		if len(records) == 0 {
			return page - 1, nil
		}
		if visit(records) {
			return page, nil
		}
	}
	logger.Enrich(ctx, s.logger).Warn("Pagination stopped at page limit", zap.Int("max_pages", s.maxPages))
	return s.maxPages, nil
}
