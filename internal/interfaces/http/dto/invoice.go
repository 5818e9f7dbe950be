package dto

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/Godswill9/sage200EvolutionApi/internal/domain/invoicing"
)

// FlexString accepts a JSON string or number. Ports arrive as either.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

// CredentialsRequest carries the ledger connection of one request.
// Credentials are never persisted.
type CredentialsRequest struct {
	Server   string     `json:"server" binding:"required"`
	Port     FlexString `json:"port" binding:"required"`
	Username string     `json:"username" binding:"required"`
	Password string     `json:"password" binding:"required"`
	// Company selects the ledger company; the configured one is used when empty
	Company string `json:"company"`
}

// ToDomain converts the request, falling back to defaultCompany
func (r CredentialsRequest) ToDomain(defaultCompany string) invoicing.Credentials {
	company := strings.TrimSpace(r.Company)
	if company == "" {
		company = defaultCompany
	}
	return invoicing.Credentials{
		Server:   strings.TrimSpace(r.Server),
		Port:     string(r.Port),
		Username: r.Username,
		Password: r.Password,
		Company:  company,
	}
}

// PostInvoiceRequest is the body of POST /api/invoice/create
type PostInvoiceRequest struct {
	CredentialsRequest
	Invoice   json.RawMessage `json:"invoice" binding:"required"`
	Operation string          `json:"operation" binding:"omitempty,ledger_operation"`
}

// PostBatchRequest is the body of POST /api/invoice/batch
type PostBatchRequest struct {
	CredentialsRequest
	Invoices  []json.RawMessage `json:"invoices" binding:"required,min=1"`
	Operation string            `json:"operation" binding:"omitempty,ledger_operation"`
}

// InvoiceByReferenceRequest is the body of POST /api/invoice/ref/get/:cuscode
type InvoiceByReferenceRequest struct {
	CredentialsRequest
	Reference string `json:"reference" binding:"required"`
	// Account overrides the path customer code when set
	Account string `json:"account"`
}

// PostingResult is the data of a single-invoice response
type PostingResult struct {
	Reference         string           `json:"reference"`
	CustomerCode      string           `json:"customerCode"`
	Totals            invoicing.Totals `json:"totals"`
	AuditRef          string           `json:"auditRef,omitempty"`
	AuditLogID        int64            `json:"auditLogId,omitempty"`
	MaterializedLines int              `json:"materializedLines"`
	LedgerResponse    json.RawMessage  `json:"ledgerResponse,omitempty"`
}

// NewPostingResult builds the response data of an outcome
func NewPostingResult(o invoicing.PostingOutcome) PostingResult {
	return PostingResult{
		Reference:         o.Reference,
		CustomerCode:      o.CustomerCode,
		Totals:            o.Totals,
		AuditRef:          o.AuditRef,
		AuditLogID:        o.AuditLogID,
		MaterializedLines: o.MaterializedLines,
		LedgerResponse:    validJSON(o.Response),
	}
}

// AuditLogEntry is one posting attempt in the audit history response
type AuditLogEntry struct {
	ID                int64            `json:"id"`
	CompanyID         string           `json:"companyId"`
	CustomerCode      string           `json:"customerCode"`
	Reference         string           `json:"reference"`
	Status            string           `json:"status"`
	Totals            invoicing.Totals `json:"totals"`
	LedgerAuditNumber *string          `json:"ledgerAuditNumber,omitempty"`
	LedgerResponse    json.RawMessage  `json:"ledgerResponse,omitempty"`
	BatchID           string           `json:"batchId,omitempty"`
	CreatedAt         string           `json:"createdAt"`
	PostedAt          *string          `json:"postedAt,omitempty"`
}

// NewAuditLogEntries converts audit records for the history response
func NewAuditLogEntries(records []*invoicing.AuditLogRecord) []AuditLogEntry {
	entries := make([]AuditLogEntry, len(records))
	for i, r := range records {
		e := AuditLogEntry{
			ID:                r.ID,
			CompanyID:         r.CompanyID,
			CustomerCode:      r.CustomerCode,
			Reference:         r.Reference,
			Status:            r.Status.String(),
			Totals:            r.Totals,
			LedgerAuditNumber: r.LedgerAuditNumber,
			LedgerResponse:    validJSON(r.LedgerResponse),
			CreatedAt:         r.CreatedAt.UTC().Format(timeLayout),
		}
		if r.BatchID != nil {
			e.BatchID = r.BatchID.String()
		}
		if r.PostedAt != nil {
			posted := r.PostedAt.UTC().Format(timeLayout)
			e.PostedAt = &posted
		}
		entries[i] = e
	}
	return entries
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

// validJSON drops payloads that would break the response encoding
func validJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || !json.Valid(raw) {
		return nil
	}
	return raw
}
