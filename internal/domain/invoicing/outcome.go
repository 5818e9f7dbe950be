package invoicing

import "encoding/json"

// PostingOutcome is the transient result of one posting attempt
type PostingOutcome struct {
	Status       PostingStatus
	Reference    string
	CustomerCode string
	Totals       Totals

	// AuditRef is the ledger ID string of a successful post
	AuditRef string
	// Response is the raw ledger payload, when the ledger answered
	Response json.RawMessage
	// AuditLogID is the id of the audit row written for this attempt, 0 if none
	AuditLogID int64
	// MaterializedLines counts the secondary-store rows written
	MaterializedLines int
}

// Posted reports whether the ledger accepted the invoice
func (o PostingOutcome) Posted() bool {
	return o.Status == PostingStatusPosted
}
