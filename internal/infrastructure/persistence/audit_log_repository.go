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

// GormAuditLogRepository implements invoicing.AuditLogRepository using GORM
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewGormAuditLogRepository creates a new GormAuditLogRepository
func NewGormAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Append inserts one attempt row. A second posted row for the same
// (reference, customer code) violates ux_invoice_logs_posted and is returned
// as ErrDuplicateInvoice.
func (r *GormAuditLogRepository) Append(ctx context.Context, rec *invoicing.AuditLogRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: nil audit record", invoicing.ErrAuditWrite)
	}

	model := models.InvoiceLogModelFromDomain(rec)
	model.ID = 0
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s already posted for %s", invoicing.ErrDuplicateInvoice, rec.Reference, rec.CustomerCode)
		}
		return fmt.Errorf("%w: %v", invoicing.ErrAuditWrite, err)
	}

	rec.ID = model.ID
	return nil
}

// ExistsPosted reports whether a posted row exists for the pair
func (r *GormAuditLogRepository) ExistsPosted(ctx context.Context, reference, customerCode string) (bool, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&models.InvoiceLogModel{}).
		Where("reference = ? AND customer_code = ? AND status = ?", reference, customerCode, invoicing.PostingStatusPosted.String()).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// FindByReference returns every attempt for the pair, oldest first
func (r *GormAuditLogRepository) FindByReference(ctx context.Context, reference, customerCode string) ([]*invoicing.AuditLogRecord, error) {
	var rows []models.InvoiceLogModel
	err := r.db.WithContext(ctx).
		Where("reference = ? AND customer_code = ?", reference, customerCode).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]*invoicing.AuditLogRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].ToDomain()
	}
	return records, nil
}

// isUniqueViolation matches the translated GORM error and the raw driver
// messages of PostgreSQL (23505) and SQLite.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

var (
	_ invoicing.AuditLogRepository = (*GormAuditLogRepository)(nil)
	_ invoicing.AuditLogReader     = (*GormAuditLogRepository)(nil)
)
