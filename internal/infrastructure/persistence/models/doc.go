// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain types to keep the domain layer free of
// ORM concerns.
//
// Structure:
//   - invoice_log.go: audit store rows (invoice_logs, PostgreSQL)
//   - invoice_line.go: Sage company database rows (_btblInvoiceLines and
//     _btblInvoiceLineDetails, SQL Server). Column names follow the vendor
//     schema exactly.
package models
