package invoicing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Operation is the ledger endpoint an invoice is posted to
// ---------------------------------------------------------------------------

// Operation names a ledger posting endpoint. The invoice is sent wrapped in an
// envelope keyed by the operation name.
type Operation string

const (
	// OperationCustomerTransactionPost posts an AR transaction. Its ID embeds "Reference:<value>|..."
	OperationCustomerTransactionPost Operation = "CustomerTransactionPost"
	// OperationSalesOrderProcessInvoice processes a sales order invoice. Its ID embeds "ID:<digits>"
	OperationSalesOrderProcessInvoice Operation = "SalesOrderProcessInvoice"
)

// IsValid returns true if the operation is supported
func (o Operation) IsValid() bool {
	switch o {
	case OperationCustomerTransactionPost, OperationSalesOrderProcessInvoice:
		return true
	default:
		return false
	}
}

// String returns the string representation of Operation
func (o Operation) String() string {
	return string(o)
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// Credentials addresses one ledger company. They travel with every request
// and are never persisted.
type Credentials struct {
	Server   string
	Port     string
	Username string
	Password string
	Company  string
}

// Validate reports every missing field at once
func (c Credentials) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Server) == "" {
		missing = append(missing, "server")
	}
	if strings.TrimSpace(c.Port) == "" {
		missing = append(missing, "port")
	}
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if strings.TrimSpace(c.Company) == "" {
		missing = append(missing, "company")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// ---------------------------------------------------------------------------
// LineItem
// ---------------------------------------------------------------------------

// LineItem is one invoice line as produced by the caller. It feeds both the
// totals and the secondary-store line rows.
type LineItem struct {
	Description             Text   `json:"Description,omitempty"`
	StockCodeID             Code   `json:"StockCodeId,omitempty"`
	WarehouseID             Code   `json:"WarehouseId,omitempty"`
	TaxCode                 Code   `json:"TaxCode,omitempty"`
	Quantity                Amount `json:"Quantity"`
	UnitPrice               Amount `json:"UnitPrice"`
	UnitPriceIncl           Amount `json:"UnitPriceIncl"`
	DiscountPercent         Amount `json:"DiscountPercent"`
	TaxRate                 Amount `json:"TaxRate"`
	TaxAmount               Amount `json:"TaxAmount"`
	UnitOfMeasureID         Code   `json:"UnitOfMeasureId,omitempty"`
	UnitOfMeasureCategoryID Code   `json:"UnitOfMeasureCategoryId,omitempty"`
	UnitOfMeasureStockingID Code   `json:"UnitOfMeasureStockingId,omitempty"`
	IsWarehouseItem         Flag   `json:"IsWarehouseItem,omitempty"`
	IsSerialItem            Flag   `json:"IsSerialItem,omitempty"`
	IsLotItem               Flag   `json:"IsLotItem,omitempty"`
	DeliveryDate            Text   `json:"DeliveryDate,omitempty"`

	// LineID is assigned by the secondary store when the line is materialized.
	LineID int64 `json:"-"`
}

// WithLineID returns a copy of the line carrying id
func (l LineItem) WithLineID(id int64) LineItem {
	l.LineID = id
	return l
}

// ---------------------------------------------------------------------------
// Invoice
// ---------------------------------------------------------------------------

// Invoice is the caller's invoice object. Raw holds the object exactly as
// received; it is what the ledger and the audit payload see.
type Invoice struct {
	CustomerCode string
	Reference    string
	Lines        []LineItem
	Raw          json.RawMessage
}

type invoiceFields struct {
	CustomerCode json.RawMessage `json:"CustomerCode"`
	Reference    json.RawMessage `json:"Reference"`
	Lines        json.RawMessage `json:"Lines"`
}

// ParseInvoice decodes the fields the pipeline needs and keeps the raw object.
// Codes and references may be JSON strings or numbers. Line items never fail
// the parse: a Lines value that is not an array yields no lines and elements
// that are not objects are skipped.
func ParseInvoice(raw json.RawMessage) (Invoice, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Invoice{}, fmt.Errorf("%w: invoice must be a JSON object", ErrValidation)
	}

	var fields invoiceFields
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Invoice{}, fmt.Errorf("%w: invoice is malformed: %v", ErrValidation, err)
	}

	return Invoice{
		CustomerCode: scalarString(fields.CustomerCode),
		Reference:    scalarString(fields.Reference),
		Lines:        parseLines(fields.Lines),
		Raw:          append(json.RawMessage(nil), trimmed...),
	}, nil
}

func parseLines(data json.RawMessage) []LineItem {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil
	}
	lines := make([]LineItem, 0, len(elems))
	for _, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			continue
		}
		var line LineItem
		if err := json.Unmarshal(elem, &line); err != nil {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// scalarString renders a JSON string or number as text; anything else is empty
func scalarString(data json.RawMessage) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ""
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return ""
	}
	return n.String()
}

// ---------------------------------------------------------------------------
// Submission
// ---------------------------------------------------------------------------

// Submission is the input of one posting attempt.
type Submission struct {
	Invoice     Invoice
	Credentials Credentials
	CompanyID   string
	Operation   Operation
}

// Validate checks everything the pipeline needs before any I/O
func (s Submission) Validate() error {
	if err := s.Credentials.Validate(); err != nil {
		return err
	}
	var missing []string
	if len(s.Invoice.Raw) == 0 {
		missing = append(missing, "invoice")
	}
	if s.Invoice.CustomerCode == "" {
		missing = append(missing, "CustomerCode")
	}
	if s.Invoice.Reference == "" {
		missing = append(missing, "Reference")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	if !s.Operation.IsValid() {
		return fmt.Errorf("%w: unsupported operation %q", ErrValidation, s.Operation)
	}
	return nil
}

// Key identifies the (reference, customer code) pair at most one posting may succeed for
func (s Submission) Key() string {
	return s.Invoice.CustomerCode + "|" + s.Invoice.Reference
}
