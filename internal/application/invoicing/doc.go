// Package invoicing orchestrates invoice posting against the Sage 200
// Evolution ledger.
//
// PostingService runs one invoice through customer verification, the
// duplicate guard, the ledger post, line materialization into the company
// database and the audit log. BatchService folds a list of invoices through
// the same pipeline. LookupService serves the read-only ledger listings and
// audit history used for reconciliation.
package invoicing
