package invoicing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PostingStatus is the final state of one posting attempt
type PostingStatus string

const (
	PostingStatusPosted    PostingStatus = "posted"
	PostingStatusDuplicate PostingStatus = "duplicate"
	PostingStatusFailed    PostingStatus = "failed"
)

// IsValid returns true if the status is known
func (s PostingStatus) IsValid() bool {
	switch s {
	case PostingStatusPosted, PostingStatusDuplicate, PostingStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of PostingStatus
func (s PostingStatus) String() string {
	return string(s)
}

// AuditLogRecord is one row of the append-only posting log.
// Every attempt that reaches the ledger produces exactly one record; a
// resubmitted invoice produces another.
type AuditLogRecord struct {
	ID                int64
	CompanyID         string
	CustomerCode      string
	Reference         string
	Totals            Totals
	Status            PostingStatus
	LedgerAuditNumber *string
	Payload           json.RawMessage
	LedgerResponse    json.RawMessage
	BatchID           *uuid.UUID
	CreatedAt         time.Time
	PostedAt          *time.Time
}

// NewAuditLogRecord builds the record for an attempt of sub.
// PostedAt and LedgerAuditNumber are only set for posted attempts.
func NewAuditLogRecord(
	sub Submission,
	totals Totals,
	status PostingStatus,
	auditRef string,
	response json.RawMessage,
	batchID *uuid.UUID,
	now time.Time,
) *AuditLogRecord {
	rec := &AuditLogRecord{
		CompanyID:      sub.CompanyID,
		CustomerCode:   sub.Invoice.CustomerCode,
		Reference:      sub.Invoice.Reference,
		Totals:         totals,
		Status:         status,
		Payload:        sub.Invoice.Raw,
		LedgerResponse: response,
		BatchID:        batchID,
		CreatedAt:      now,
	}
	if status == PostingStatusPosted {
		posted := now
		rec.PostedAt = &posted
		if auditRef != "" {
			ref := auditRef
			rec.LedgerAuditNumber = &ref
		}
	}
	return rec
}

// AuditLogRepository is the append-only audit store.
// There is deliberately no update or delete.
type AuditLogRepository interface {
	// Append inserts rec and sets rec.ID
	Append(ctx context.Context, rec *AuditLogRecord) error

	// ExistsPosted reports whether a posted record exists for the pair
	ExistsPosted(ctx context.Context, reference, customerCode string) (bool, error)
}

// AuditLogReader reads posting history for manual reconciliation
type AuditLogReader interface {
	// FindByReference returns every attempt for the pair, oldest first
	FindByReference(ctx context.Context, reference, customerCode string) ([]*AuditLogRecord, error)
}
