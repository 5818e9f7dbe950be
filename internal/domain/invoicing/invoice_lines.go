package invoicing

import (
	"context"
	"time"
)

// InvoiceLine is a materialized row of the secondary store's invoice line table
type InvoiceLine struct {
	ID              int64      `json:"id"`
	InvoiceID       int64      `json:"invoiceId"`
	LineID          int64      `json:"lineId"`
	Description     string     `json:"description"`
	StockCodeID     int64      `json:"stockCodeId"`
	WarehouseID     int64      `json:"warehouseId"`
	TaxTypeID       int64      `json:"taxTypeId"`
	Quantity        float64    `json:"quantity"`
	UnitPriceExcl   float64    `json:"unitPriceExcl"`
	UnitPriceIncl   float64    `json:"unitPriceIncl"`
	DiscountPercent float64    `json:"discountPercent"`
	TaxRate         float64    `json:"taxRate"`
	LineTotalExcl   float64    `json:"lineTotalExcl"`
	LineTotalIncl   float64    `json:"lineTotalIncl"`
	LineTaxAmount   float64    `json:"lineTaxAmount"`
	DeliveryDate    *time.Time `json:"deliveryDate,omitempty"`
	Details         []Record   `json:"details"`
}

// FullInvoice is an invoice's lines with their detail rows
type FullInvoice struct {
	InvoiceID int64         `json:"invoiceId"`
	Lines     []InvoiceLine `json:"lines"`
}

// InvoiceLineStore is the secondary store holding line detail keyed by the
// ledger invoice id.
type InvoiceLineStore interface {
	// Materialize inserts one row per line. It rejects invoiceID <= 0 and an
	// empty list. The first failing insert aborts the remaining lines.
	Materialize(ctx context.Context, invoiceID int64, lines []LineItem) error

	// ResolveInvoiceID finds the invoice id for a ledger reference.
	// Returns ErrInvoiceNotFound when no invoice carries the reference.
	ResolveInvoiceID(ctx context.Context, reference string) (int64, error)

	// GetFullInvoice returns lines ordered by row id with their details
	GetFullInvoice(ctx context.Context, invoiceID int64) (*FullInvoice, error)
}
