package invoicing

import (
	"regexp"
	"strconv"
	"strings"
)

// LedgerIdentifier is what can be recovered from the ID string of a
// successful post. At most one of the fields is set.
type LedgerIdentifier struct {
	// InvoiceID is the ledger invoice id (SalesOrderProcessInvoice, "ID:482").
	InvoiceID int64
	// Reference is the transaction reference (CustomerTransactionPost,
	// "Reference:INV-2024-07|status:ok").
	Reference string
}

// IsZero reports whether nothing was extracted
func (id LedgerIdentifier) IsZero() bool {
	return id.InvoiceID == 0 && id.Reference == ""
}

var (
	invoiceIDPattern = regexp.MustCompile(`(?:^|[^A-Za-z0-9_])ID:\s*(\d+)`)
	referencePattern = regexp.MustCompile(`Reference:([^|]*)`)
)

// ExtractLedgerIdentifier parses the ID string returned by a successful post.
//
//	"ID:482"                          -> {InvoiceID: 482}
//	"ID: 482"                         -> {InvoiceID: 482}
//	"Reference:INV-2024-07|status:ok" -> {Reference: "INV-2024-07"}
//	"InvoiceID:482"                   -> {} (another field, not the ledger id)
//	"OK"                              -> {} (nothing to materialize)
//
// The ID marker must stand alone: a marker glued to a longer word names some
// other field. When both markers are present the earlier one wins. A numeric
// id must be positive and fit in int64.
func ExtractLedgerIdentifier(auditRef string) LedgerIdentifier {
	idLoc := invoiceIDPattern.FindStringSubmatchIndex(auditRef)
	refLoc := referencePattern.FindStringSubmatchIndex(auditRef)

	if idLoc != nil && (refLoc == nil || idLoc[0] < refLoc[0]) {
		if id, err := strconv.ParseInt(auditRef[idLoc[2]:idLoc[3]], 10, 64); err == nil && id > 0 {
			return LedgerIdentifier{InvoiceID: id}
		}
		return LedgerIdentifier{}
	}
	if refLoc != nil {
		if ref := strings.TrimSpace(auditRef[refLoc[2]:refLoc[3]]); ref != "" {
			return LedgerIdentifier{Reference: ref}
		}
	}
	return LedgerIdentifier{}
}
