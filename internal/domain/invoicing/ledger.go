package invoicing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// ---------------------------------------------------------------------------
// LedgerResponse is the classified result of a posting call
// ---------------------------------------------------------------------------

// LedgerResponse is one of PostSuccess, BusinessFault or MalformedFault.
// Transport failures are not a LedgerResponse; they are returned as errors
// wrapping ErrLedgerTransport.
type LedgerResponse interface {
	// Payload renders the response as JSON for the audit log and API callers
	Payload() json.RawMessage
	isLedgerResponse()
}

// PostSuccess is a structured body with HasError false or absent
type PostSuccess struct {
	// AuditRef is the ledger's ID string, e.g. "ID:482"
	AuditRef string
	Body     json.RawMessage
}

// BusinessFault is a structured body with HasError true
type BusinessFault struct {
	Body json.RawMessage
}

// MalformedFault is a non-structured body carrying a <Fault> marker
type MalformedFault struct {
	Text string
}

// Payload implements LedgerResponse
func (r PostSuccess) Payload() json.RawMessage { return r.Body }

// Payload implements LedgerResponse
func (r BusinessFault) Payload() json.RawMessage { return r.Body }

// Payload implements LedgerResponse
func (r MalformedFault) Payload() json.RawMessage {
	b, _ := json.Marshal(r.Text)
	return b
}

func (PostSuccess) isLedgerResponse()    {}
func (BusinessFault) isLedgerResponse()  {}
func (MalformedFault) isLedgerResponse() {}

// faultMarker matches <Fault and namespaced forms such as <s:Fault
var faultMarker = regexp.MustCompile(`<(?:[A-Za-z][\w.-]*:)?Fault\b`)

type postResponseEnvelope struct {
	HasError json.RawMessage `json:"HasError"`
	ID       json.RawMessage `json:"ID"`
}

// ClassifyPostResponse turns the HTTP status and body of a posting call into a
// LedgerResponse.
//
// Fault markers are honoured regardless of status: a 200 response carrying
// "<Fault" is a MalformedFault, never a transport error. A 2xx body that is
// neither a JSON object nor a fault is accepted as a success without an
// audit reference. A non-2xx body that is not a recognizable fault is a
// transport error.
func ClassifyPostResponse(statusCode int, body []byte) (LedgerResponse, error) {
	trimmed := bytes.TrimSpace(body)
	ok := statusCode >= 200 && statusCode < 300

	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env postResponseEnvelope
		if err := json.Unmarshal(trimmed, &env); err == nil {
			if truthy(env.HasError) {
				return BusinessFault{Body: json.RawMessage(trimmed)}, nil
			}
			if ok {
				return PostSuccess{AuditRef: scalarString(env.ID), Body: json.RawMessage(trimmed)}, nil
			}
			return nil, fmt.Errorf("%w: HTTP %d", ErrLedgerTransport, statusCode)
		}
	}

	text := string(trimmed)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			text = s
		}
	}
	if faultMarker.MatchString(text) {
		return MalformedFault{Text: text}, nil
	}

	if !ok {
		return nil, fmt.Errorf("%w: HTTP %d", ErrLedgerTransport, statusCode)
	}

	if json.Valid(trimmed) {
		return PostSuccess{Body: json.RawMessage(trimmed)}, nil
	}
	b, _ := json.Marshal(text)
	return PostSuccess{Body: b}, nil
}

// truthy accepts true, "true" and non-zero numbers
func truthy(data json.RawMessage) bool {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		return b
	}
	s := scalarString(data)
	if parsed, err := strconv.ParseBool(s); err == nil {
		return parsed
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n != 0
	}
	return false
}

// ---------------------------------------------------------------------------
// Ledger ports
// ---------------------------------------------------------------------------

// Record is one element of a ledger list response with namespaces stripped.
// Values are strings, nested Records, []any for repeated elements, or nil.
type Record map[string]any

// String returns the text value of key, or "" when absent or not text
func (r Record) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Customer is a ledger customer as returned by CustomerFind
type Customer struct {
	Code string `json:"code"`
	// Detail is the CustomerDto object when present, else the whole body
	Detail json.RawMessage `json:"detail"`
}

// Ledger is the posting side of the ledger API.
type Ledger interface {
	// FindCustomer returns ErrCustomerNotFound when the ledger reports no such account.
	FindCustomer(ctx context.Context, creds Credentials, accountCode string) (*Customer, error)

	// PostInvoice posts the raw invoice wrapped in an envelope keyed by op.
	// It never retries.
	PostInvoice(ctx context.Context, creds Credentials, op Operation, invoice json.RawMessage) (LedgerResponse, error)
}

// LedgerDirectory is the read side of the ledger API. Pages are 1-based;
// an empty slice means the list is exhausted.
type LedgerDirectory interface {
	ListCustomers(ctx context.Context, creds Credentials, pageNumber, pageSize int) ([]Record, error)
	ListCustomerTransactions(ctx context.Context, creds Credentials, accountCode string, pageNumber, pageSize int) ([]Record, error)
}
