package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/Godswill9/sage200EvolutionApi/internal/domain/invoicing"
)

// InvoiceLogModel is the persistence model for one posting attempt.
// The unique partial index on posted rows is the store-level half of the
// at-most-once guarantee.
type InvoiceLogModel struct {
	ID                int64           `gorm:"primaryKey;autoIncrement"`
	CompanyID         string          `gorm:"type:varchar(64);not null"`
	CustomerCode      string          `gorm:"type:varchar(64);not null;index:idx_invoice_logs_reference_customer,priority:2;uniqueIndex:ux_invoice_logs_posted,priority:2,where:status = 'posted'"`
	Reference         string          `gorm:"type:varchar(128);not null;index:idx_invoice_logs_reference_customer,priority:1;uniqueIndex:ux_invoice_logs_posted,priority:1"`
	TotalTaxExclusive decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	TotalTax          decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	TotalTaxInclusive decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	Status            string          `gorm:"type:varchar(16);not null"`
	LedgerAuditNumber *string         `gorm:"type:varchar(128)"`
	Payload           datatypes.JSON  `gorm:"type:jsonb"`
	LedgerResponse    datatypes.JSON  `gorm:"type:jsonb"`
	BatchID           *uuid.UUID      `gorm:"type:uuid;index:idx_invoice_logs_batch_id"`
	CreatedAt         time.Time       `gorm:"not null"`
	PostedAt          *time.Time
}

// TableName returns the table name for GORM
func (InvoiceLogModel) TableName() string {
	return "invoice_logs"
}

// ToDomain converts the persistence model to a domain record
func (m *InvoiceLogModel) ToDomain() *invoicing.AuditLogRecord {
	return &invoicing.AuditLogRecord{
		ID:           m.ID,
		CompanyID:    m.CompanyID,
		CustomerCode: m.CustomerCode,
		Reference:    m.Reference,
		Totals: invoicing.Totals{
			TaxExclusive: m.TotalTaxExclusive,
			Tax:          m.TotalTax,
			TaxInclusive: m.TotalTaxInclusive,
		},
		Status:            invoicing.PostingStatus(m.Status),
		LedgerAuditNumber: m.LedgerAuditNumber,
		Payload:           []byte(m.Payload),
		LedgerResponse:    []byte(m.LedgerResponse),
		BatchID:           m.BatchID,
		CreatedAt:         m.CreatedAt,
		PostedAt:          m.PostedAt,
	}
}

// FromDomain populates the persistence model from a domain record
func (m *InvoiceLogModel) FromDomain(r *invoicing.AuditLogRecord) {
	m.ID = r.ID
	m.CompanyID = r.CompanyID
	m.CustomerCode = r.CustomerCode
	m.Reference = r.Reference
	m.TotalTaxExclusive = r.Totals.TaxExclusive
	m.TotalTax = r.Totals.Tax
	m.TotalTaxInclusive = r.Totals.TaxInclusive
	m.Status = r.Status.String()
	m.LedgerAuditNumber = r.LedgerAuditNumber
	m.Payload = jsonOrNil(r.Payload)
	m.LedgerResponse = jsonOrNil(r.LedgerResponse)
	m.BatchID = r.BatchID
	m.CreatedAt = r.CreatedAt
	m.PostedAt = r.PostedAt
}

// InvoiceLogModelFromDomain creates a new persistence model from a domain record
func InvoiceLogModelFromDomain(r *invoicing.AuditLogRecord) *InvoiceLogModel {
	m := &InvoiceLogModel{}
	m.FromDomain(r)
	return m
}

func jsonOrNil(raw []byte) datatypes.JSON {
	if len(raw) == 0 {
		return nil
	}
	return datatypes.JSON(raw)
}
