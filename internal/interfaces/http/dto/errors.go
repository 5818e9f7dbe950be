package dto

import "net/http"

// Transport-level error codes. Domain errors keep the code of their
// shared.DomainError.
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeInvalidJSON  = "INVALID_JSON"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeTooLarge     = "REQUEST_TOO_LARGE"
	ErrCodeUnavailable  = "SERVICE_UNAVAILABLE"
	ErrCodeInvalidInput = "INVALID_INPUT"
)

// Domain error codes surfaced by the invoicing services
const (
	ErrCodeCustomerNotFound       = "CUSTOMER_NOT_FOUND"
	ErrCodeDuplicateInvoice       = "DUPLICATE_INVOICE"
	ErrCodePostingInProgress      = "POSTING_IN_PROGRESS"
	ErrCodeDuplicateCheckFailed   = "DUPLICATE_CHECK_FAILED"
	ErrCodeLedgerBusinessFault    = "LEDGER_BUSINESS_FAULT"
	ErrCodeLedgerUnavailable      = "LEDGER_UNAVAILABLE"
	ErrCodeMaterializationFailed  = "MATERIALIZATION_FAILED"
	ErrCodeAuditWriteFailed       = "AUDIT_WRITE_FAILED"
	ErrCodeInvalidInvoiceID       = "INVALID_INVOICE_ID"
	ErrCodeNoLineItems            = "NO_LINE_ITEMS"
	ErrCodeInvoiceNotFound        = "INVOICE_NOT_FOUND"
	ErrCodeSecondaryStoreDisabled = "SECONDARY_STORE_DISABLED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeTooLarge:     http.StatusRequestEntityTooLarge,
	ErrCodeUnavailable:  http.StatusServiceUnavailable,

	// 400: the caller has to change the invoice
	ErrCodeLedgerBusinessFault: http.StatusBadRequest,
	ErrCodeInvalidInvoiceID:    http.StatusBadRequest,
	ErrCodeNoLineItems:         http.StatusBadRequest,

	ErrCodeCustomerNotFound: http.StatusNotFound,
	ErrCodeInvoiceNotFound:  http.StatusNotFound,

	ErrCodeDuplicateInvoice:  http.StatusConflict,
	ErrCodePostingInProgress: http.StatusConflict,

	// 500: ledger or store state unknown, the caller may retry
	ErrCodeLedgerUnavailable:     http.StatusInternalServerError,
	ErrCodeDuplicateCheckFailed:  http.StatusInternalServerError,
	ErrCodeMaterializationFailed: http.StatusInternalServerError,
	ErrCodeAuditWriteFailed:      http.StatusInternalServerError,

	ErrCodeSecondaryStoreDisabled: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes are 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
