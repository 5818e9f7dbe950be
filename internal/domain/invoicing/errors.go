package invoicing

import (
	"errors"

	"github.com/Godswill9/sage200EvolutionApi/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Posting errors
// ---------------------------------------------------------------------------

var (
	// ErrValidation is returned before any I/O when required input is missing.
	ErrValidation = shared.NewDomainError("VALIDATION_ERROR", "invoice submission is invalid")

	ErrCustomerNotFound  = shared.NewDomainError("CUSTOMER_NOT_FOUND", "customer not found in Sage")
	ErrDuplicateInvoice  = shared.NewDomainError("DUPLICATE_INVOICE", "duplicate invoice detected")
	ErrPostingInProgress = shared.NewDomainError("POSTING_IN_PROGRESS", "invoice posting already in progress")

	// ErrDuplicateCheckFailed means the audit store could not answer whether
	// the invoice was already posted. The invoice is not posted.
	ErrDuplicateCheckFailed = shared.NewDomainError("DUPLICATE_CHECK_FAILED", "could not verify whether invoice was already posted")

	// ErrLedgerBusinessFault covers structured HasError bodies and <Fault> bodies.
	ErrLedgerBusinessFault = shared.NewDomainError("LEDGER_BUSINESS_FAULT", "Sage rejected the invoice")

	// ErrLedgerTransport covers network failures, timeouts and unusable responses.
	// Callers may retry; the ledger state is unknown.
	ErrLedgerTransport = shared.NewDomainError("LEDGER_UNAVAILABLE", "error communicating with Sage")

	// ErrLedgerStatus marks a list page the ledger answered with a non-2xx
	// status. It is wrapped alongside ErrLedgerTransport and ends pagination.
	ErrLedgerStatus = errors.New("ledger answered with an error status")

	ErrMaterialization = shared.NewDomainError("MATERIALIZATION_FAILED", "invoice lines could not be stored")
	ErrAuditWrite      = shared.NewDomainError("AUDIT_WRITE_FAILED", "invoice log could not be written")
)

// ---------------------------------------------------------------------------
// Secondary store errors
// ---------------------------------------------------------------------------

var (
	ErrInvalidInvoiceID = shared.NewDomainError("INVALID_INVOICE_ID", "invoice id must be a positive integer")
	ErrNoLineItems      = shared.NewDomainError("NO_LINE_ITEMS", "line items must be a non-empty list")
	ErrInvoiceNotFound  = shared.NewDomainError("INVOICE_NOT_FOUND", "invoice not found")
)
