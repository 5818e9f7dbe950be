package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Godswill9/sage200EvolutionApi/internal/domain/invoicing"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/persistence/models"
)

// GormInvoiceLineRepository implements invoicing.InvoiceLineStore against the
// Sage company database. Rows are written one statement at a time without a
// transaction; the first failure stops the remaining lines.
type GormInvoiceLineRepository struct {
	db *gorm.DB
}

// NewGormInvoiceLineRepository creates a new GormInvoiceLineRepository
func NewGormInvoiceLineRepository(db *gorm.DB) *GormInvoiceLineRepository {
	return &GormInvoiceLineRepository{db: db}
}

// Materialize writes one _btblInvoiceLines row per line item.
// iLineID continues from the highest line id already stored for the invoice.
func (r *GormInvoiceLineRepository) Materialize(ctx context.Context, invoiceID int64, lines []invoicing.LineItem) error {
	if invoiceID <= 0 {
		return fmt.Errorf("%w: %d", invoicing.ErrInvalidInvoiceID, invoiceID)
	}
	if len(lines) == 0 {
		return invoicing.ErrNoLineItems
	}

	db := r.db.WithContext(ctx)

	lastLineID, err := r.maxLineID(db, invoiceID)
	if err != nil {
		return fmt.Errorf("%w: reading line ids of invoice %d: %v", invoicing.ErrMaterialization, invoiceID, err)
	}

	for i, line := range lines {
		row := models.InvoiceLineModelFromItem(invoiceID, line.WithLineID(lastLineID+int64(i)+1))
		if err := db.Create(row).Error; err != nil {
			return fmt.Errorf("%w: invoice %d line %d of %d: %v", invoicing.ErrMaterialization, invoiceID, i+1, len(lines), err)
		}
	}
	return nil
}

func (r *GormInvoiceLineRepository) maxLineID(db *gorm.DB, invoiceID int64) (int64, error) {
	var maxID int64
	err := db.Model(&models.InvoiceLineModel{}).
		Where(`iInvoiceID = ?`, invoiceID).
		Select("COALESCE(MAX(iLineID), 0)").
		Row().
		Scan(&maxID)
	if err != nil {
		return 0, err
	}
	return maxID, nil
}

// ResolveInvoiceID maps a ledger reference to InvNum.AutoIndex.
// The newest invoice wins when a reference was reused.
func (r *GormInvoiceLineRepository) ResolveInvoiceID(ctx context.Context, reference string) (int64, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return 0, fmt.Errorf("%w: empty reference", invoicing.ErrInvoiceNotFound)
	}

	var ids []int64
	err := r.db.WithContext(ctx).
		Table(models.InvoiceHeaderTable).
		Where(`InvNumber = ?`, reference).
		Order("AutoIndex DESC").
		Limit(1).
		Pluck("AutoIndex", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: reference %s", invoicing.ErrInvoiceNotFound, reference)
	}
	return ids[0], nil
}

// GetFullInvoice returns the invoice lines ordered by idInvoiceLines, each with
// its _btblInvoiceLineDetails rows.
func (r *GormInvoiceLineRepository) GetFullInvoice(ctx context.Context, invoiceID int64) (*invoicing.FullInvoice, error) {
	if invoiceID <= 0 {
		return nil, fmt.Errorf("%w: %d", invoicing.ErrInvalidInvoiceID, invoiceID)
	}

	db := r.db.WithContext(ctx)

	var rows []models.InvoiceLineModel
	if err := db.Where(`iInvoiceID = ?`, invoiceID).Order("idInvoiceLines").Find(&rows).Error; err != nil {
		return nil, err
	}

	full := &invoicing.FullInvoice{
		InvoiceID: invoiceID,
		Lines:     make([]invoicing.InvoiceLine, 0, len(rows)),
	}
	for i := range rows {
		line := rows[i].ToDomain()
		details, err := r.lineDetails(db, rows[i].ID)
		if err != nil {
			return nil, err
		}
		line.Details = details
		full.Lines = append(full.Lines, line)
	}
	return full, nil
}

func (r *GormInvoiceLineRepository) lineDetails(db *gorm.DB, lineID int64) ([]invoicing.Record, error) {
	var rows []map[string]any
	err := db.Table(models.InvoiceLineDetailsTable).
		Where(`iLDInvoiceLineID = ?`, lineID).
		Find(&rows).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []invoicing.Record{}, nil
		}
		return nil, fmt.Errorf("reading details of line %d: %w", lineID, err)
	}

	details := make([]invoicing.Record, len(rows))
	for i, row := range rows {
		details[i] = invoicing.Record(row)
	}
	return details, nil
}

var _ invoicing.InvoiceLineStore = (*GormInvoiceLineRepository)(nil)
