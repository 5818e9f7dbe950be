// Package invoicing contains the invoice posting bounded context.
// It reconciles locally submitted sales invoices with the Sage 200 Evolution
// ledger and the local audit trail.
//
// Key concepts:
//   - Submission: an invoice plus the ledger credentials it is posted with
//   - Totals: tax-exclusive, tax and tax-inclusive amounts computed from line items
//   - LedgerResponse: tagged union produced by ClassifyPostResponse
//   - AuditLogRecord: append-only row describing one posting attempt
//   - LedgerIdentifier: invoice id or reference extracted from a ledger audit string
//
// Design Pattern: Ports & Adapters
//   - Ports (Ledger, LedgerDirectory, AuditLogRepository, InvoiceLineStore) are defined here
//   - Adapters live in the infrastructure layer
package invoicing
