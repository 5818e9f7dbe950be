package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Godswill9/sage200EvolutionApi/internal/domain/invoicing"
)

// InvoiceLineModel maps the columns of _btblInvoiceLines written on
// materialization. The table belongs to the ledger vendor; the many
// "quantity x price" columns under different processing labels are part of
// its contract and are populated identically.
type InvoiceLineModel struct {
	ID          int64  `gorm:"column:idInvoiceLines;primaryKey;autoIncrement"`
	InvoiceID   int64  `gorm:"column:iInvoiceID;not null;index"`
	Description string `gorm:"column:cDescription"`
	StockCodeID int64  `gorm:"column:iStockCodeID"`
	WarehouseID int64  `gorm:"column:iWarehouseID"`
	TaxTypeID   int64  `gorm:"column:iTaxTypeID"`

	Quantity        float64 `gorm:"column:fQuantity"`
	QtyToProcess    float64 `gorm:"column:fQtyToProcess"`
	QtyLastProcess  float64 `gorm:"column:fQtyLastProcess"`
	QtyProcessed    float64 `gorm:"column:fQtyProcessed"`
	UnitPriceExcl   float64 `gorm:"column:fUnitPriceExcl"`
	UnitPriceIncl   float64 `gorm:"column:fUnitPriceIncl"`
	LineDiscount    float64 `gorm:"column:fLineDiscount"`
	QtyForDelivery  float64 `gorm:"column:fQtyForDelivery"`
	TaxRate         float64 `gorm:"column:fTaxRate"`
	UnitPriceExclFX float64 `gorm:"column:fUnitPriceExclForeign"`
	UnitPriceInclFX float64 `gorm:"column:fUnitPriceInclForeign"`
	UnitCost        float64 `gorm:"column:fUnitCost"`

	QuantityLineTotIncl         float64 `gorm:"column:fQuantityLineTotIncl"`
	QuantityLineTotExcl         float64 `gorm:"column:fQuantityLineTotExcl"`
	QuantityLineTotInclNoDisc   float64 `gorm:"column:fQuantityLineTotInclNoDisc"`
	QuantityLineTotExclNoDisc   float64 `gorm:"column:fQuantityLineTotExclNoDisc"`
	QuantityLineTaxAmount       float64 `gorm:"column:fQuantityLineTaxAmount"`
	QuantityLineTaxAmountNoDisc float64 `gorm:"column:fQuantityLineTaxAmountNoDisc"`

	QtyChangeLineTotIncl         float64 `gorm:"column:fQtyChangeLineTotIncl"`
	QtyChangeLineTotExcl         float64 `gorm:"column:fQtyChangeLineTotExcl"`
	QtyChangeLineTotInclNoDisc   float64 `gorm:"column:fQtyChangeLineTotInclNoDisc"`
	QtyChangeLineTotExclNoDisc   float64 `gorm:"column:fQtyChangeLineTotExclNoDisc"`
	QtyChangeLineTaxAmount       float64 `gorm:"column:fQtyChangeLineTaxAmount"`
	QtyChangeLineTaxAmountNoDisc float64 `gorm:"column:fQtyChangeLineTaxAmountNoDisc"`

	QtyToProcessLineTotIncl         float64 `gorm:"column:fQtyToProcessLineTotIncl"`
	QtyToProcessLineTotExcl         float64 `gorm:"column:fQtyToProcessLineTotExcl"`
	QtyToProcessLineTotInclNoDisc   float64 `gorm:"column:fQtyToProcessLineTotInclNoDisc"`
	QtyToProcessLineTotExclNoDisc   float64 `gorm:"column:fQtyToProcessLineTotExclNoDisc"`
	QtyToProcessLineTaxAmount       float64 `gorm:"column:fQtyToProcessLineTaxAmount"`
	QtyToProcessLineTaxAmountNoDisc float64 `gorm:"column:fQtyToProcessLineTaxAmountNoDisc"`

	QtyLastProcessLineTotIncl         float64 `gorm:"column:fQtyLastProcessLineTotIncl"`
	QtyLastProcessLineTotExcl         float64 `gorm:"column:fQtyLastProcessLineTotExcl"`
	QtyLastProcessLineTotInclNoDisc   float64 `gorm:"column:fQtyLastProcessLineTotInclNoDisc"`
	QtyLastProcessLineTotExclNoDisc   float64 `gorm:"column:fQtyLastProcessLineTotExclNoDisc"`
	QtyLastProcessLineTaxAmount       float64 `gorm:"column:fQtyLastProcessLineTaxAmount"`
	QtyLastProcessLineTaxAmountNoDisc float64 `gorm:"column:fQtyLastProcessLineTaxAmountNoDisc"`

	QtyProcessedLineTotIncl         float64 `gorm:"column:fQtyProcessedLineTotIncl"`
	QtyProcessedLineTotExcl         float64 `gorm:"column:fQtyProcessedLineTotExcl"`
	QtyProcessedLineTotInclNoDisc   float64 `gorm:"column:fQtyProcessedLineTotInclNoDisc"`
	QtyProcessedLineTotExclNoDisc   float64 `gorm:"column:fQtyProcessedLineTotExclNoDisc"`
	QtyProcessedLineTaxAmount       float64 `gorm:"column:fQtyProcessedLineTaxAmount"`
	QtyProcessedLineTaxAmountNoDisc float64 `gorm:"column:fQtyProcessedLineTaxAmountNoDisc"`

	UnitsOfMeasureID         int64 `gorm:"column:iUnitsOfMeasureID"`
	UnitsOfMeasureCategoryID int64 `gorm:"column:iUnitsOfMeasureCategoryID"`
	UnitsOfMeasureStockingID int64 `gorm:"column:iUnitsOfMeasureStockingID"`

	IsWhseItem   bool `gorm:"column:bIsWhseItem"`
	IsSerialItem bool `gorm:"column:bIsSerialItem"`
	IsLotItem    bool `gorm:"column:bIsLotItem"`

	DeliveryDate *time.Time `gorm:"column:dDeliveryDate"`
	LineNotes    string     `gorm:"column:cLineNotes"`

	QtyForDeliveryUR float64 `gorm:"column:fQtyForDeliveryUR"`
	QtyProcessedUR   float64 `gorm:"column:fQtyProcessedUR"`
	QtyLastProcessUR float64 `gorm:"column:fQtyLastProcessUR"`
	QuantityUR       float64 `gorm:"column:fQuantityUR"`
	LineID           int64   `gorm:"column:iLineID"`
}

// TableName returns the vendor table name
func (InvoiceLineModel) TableName() string {
	return "_btblInvoiceLines"
}

// InvoiceLineModelFromItem builds the row for one line of invoiceID.
// The line must already carry its LineID.
func InvoiceLineModelFromItem(invoiceID int64, item invoicing.LineItem) *InvoiceLineModel {
	qty := item.Quantity.Decimal
	lineExcl := f64(item.UnitPrice.Mul(qty))
	lineIncl := f64(item.UnitPriceIncl.Mul(qty))
	taxAmount := f64(item.TaxAmount.Decimal)
	quantity := f64(qty)

	return &InvoiceLineModel{
		InvoiceID:   invoiceID,
		Description: item.Description.String(),
		StockCodeID: item.StockCodeID.Int64(),
		WarehouseID: item.WarehouseID.Int64(),
		TaxTypeID:   item.TaxCode.Int64(),

		Quantity:       quantity,
		QtyToProcess:   0,
		QtyLastProcess: quantity,
		QtyProcessed:   quantity,
		UnitPriceExcl:  f64(item.UnitPrice.Decimal),
		UnitPriceIncl:  f64(item.UnitPriceIncl.Decimal),
		LineDiscount:   f64(item.DiscountPercent.Decimal),
		QtyForDelivery: quantity,
		TaxRate:        f64(item.TaxRate.Decimal),

		QuantityLineTotIncl:         lineIncl,
		QuantityLineTotExcl:         lineExcl,
		QuantityLineTotInclNoDisc:   lineIncl,
		QuantityLineTotExclNoDisc:   lineExcl,
		QuantityLineTaxAmount:       taxAmount,
		QuantityLineTaxAmountNoDisc: taxAmount,

		QtyLastProcessLineTotIncl:         lineIncl,
		QtyLastProcessLineTotExcl:         lineExcl,
		QtyLastProcessLineTotInclNoDisc:   lineIncl,
		QtyLastProcessLineTotExclNoDisc:   lineExcl,
		QtyLastProcessLineTaxAmount:       taxAmount,
		QtyLastProcessLineTaxAmountNoDisc: taxAmount,

		QtyProcessedLineTotIncl:         lineIncl,
		QtyProcessedLineTotExcl:         lineExcl,
		QtyProcessedLineTotInclNoDisc:   lineIncl,
		QtyProcessedLineTotExclNoDisc:   lineExcl,
		QtyProcessedLineTaxAmount:       taxAmount,
		QtyProcessedLineTaxAmountNoDisc: taxAmount,

		UnitsOfMeasureID:         item.UnitOfMeasureID.Int64(),
		UnitsOfMeasureCategoryID: item.UnitOfMeasureCategoryID.Int64(),
		UnitsOfMeasureStockingID: item.UnitOfMeasureStockingID.Int64(),

		IsWhseItem:   bool(item.IsWarehouseItem),
		IsSerialItem: bool(item.IsSerialItem),
		IsLotItem:    bool(item.IsLotItem),

		DeliveryDate: ParseDeliveryDate(item.DeliveryDate.String()),
		LineNotes:    "",

		QtyForDeliveryUR: quantity,
		QtyProcessedUR:   quantity,
		QtyLastProcessUR: quantity,
		QuantityUR:       quantity,
		LineID:           item.LineID,
	}
}

// ToDomain converts the row to the read model; details are attached by the caller
func (m *InvoiceLineModel) ToDomain() invoicing.InvoiceLine {
	return invoicing.InvoiceLine{
		ID:              m.ID,
		InvoiceID:       m.InvoiceID,
		LineID:          m.LineID,
		Description:     m.Description,
		StockCodeID:     m.StockCodeID,
		WarehouseID:     m.WarehouseID,
		TaxTypeID:       m.TaxTypeID,
		Quantity:        m.Quantity,
		UnitPriceExcl:   m.UnitPriceExcl,
		UnitPriceIncl:   m.UnitPriceIncl,
		DiscountPercent: m.LineDiscount,
		TaxRate:         m.TaxRate,
		LineTotalExcl:   m.QuantityLineTotExcl,
		LineTotalIncl:   m.QuantityLineTotIncl,
		LineTaxAmount:   m.QuantityLineTaxAmount,
		DeliveryDate:    m.DeliveryDate,
		Details:         []invoicing.Record{},
	}
}

// InvoiceLineDetailsTable holds per-line serial/lot detail rows. Only read here.
const InvoiceLineDetailsTable = "_btblInvoiceLineDetails"

// InvoiceHeaderTable is the vendor invoice header table
const InvoiceHeaderTable = "InvNum"

var deliveryDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// ParseDeliveryDate accepts the date forms callers send; anything else is NULL
func ParseDeliveryDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range deliveryDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func f64(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
