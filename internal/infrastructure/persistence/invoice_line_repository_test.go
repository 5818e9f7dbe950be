package persistence

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Godswill9/sage200EvolutionApi/internal/domain/invoicing"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/persistence/models"
)

func setupInvoiceLineTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.InvoiceLineModel{}))
	require.NoError(t, db.Exec(`CREATE TABLE InvNum (AutoIndex INTEGER PRIMARY KEY, InvNumber TEXT)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE _btblInvoiceLineDetails (
		idInvoiceLineDetails INTEGER PRIMARY KEY,
		iLDInvoiceLineID INTEGER,
		cSerialNumber TEXT
	)`).Error)

	return db
}

func parseLines(t *testing.T, raw string) []invoicing.LineItem {
	t.Helper()
	var lines []invoicing.LineItem
	require.NoError(t, json.Unmarshal([]byte(raw), &lines))
	return lines
}

func TestGormInvoiceLineRepository_Materialize(t *testing.T) {
	ctx := context.Background()

	t.Run("failed line keeps the lines written before it", func(t *testing.T) {
		db := setupInvoiceLineTestDB(t)
		require.NoError(t, db.Exec(`CREATE TRIGGER reject_line BEFORE INSERT ON _btblInvoiceLines
			WHEN NEW.cDescription = 'Broken'
			BEGIN SELECT RAISE(ABORT, 'line rejected'); END`).Error)
		repo := NewGormInvoiceLineRepository(db)

		lines := parseLines(t, `[
			{"Description": "First", "Quantity": 1, "UnitPrice": 10},
			{"Description": "Broken", "Quantity": 1, "UnitPrice": 10},
			{"Description": "Third", "Quantity": 1, "UnitPrice": 10}
		]`)

		err := repo.Materialize(ctx, 482, lines)
		assert.ErrorIs(t, err, invoicing.ErrMaterialization)
		assert.Contains(t, err.Error(), "line 2 of 3")

		var rows []models.InvoiceLineModel
		require.NoError(t, db.Find(&rows).Error)
		require.Len(t, rows, 1)
		assert.Equal(t, "First", rows[0].Description)
	})

	t.Run("writes projections field for field", func(t *testing.T) {
		db := setupInvoiceLineTestDB(t)
		repo := NewGormInvoiceLineRepository(db)

		lines := parseLines(t, `[{
			"Description": "Widget",
			"StockCodeId": 11,
			"WarehouseId": "2",
			"TaxCode": 1,
			"Quantity": 2,
			"UnitPrice": 100,
			"UnitPriceIncl": 114,
			"DiscountPercent": 0,
			"TaxRate": 14,
			"TaxAmount": 28,
			"UnitOfMeasureId": 3,
			"IsWarehouseItem": true,
			"DeliveryDate": "2024-07-15"
		}]`)

		require.NoError(t, repo.Materialize(ctx, 482, lines))

		var rows []models.InvoiceLineModel
		require.NoError(t, db.Find(&rows).Error)
		require.Len(t, rows, 1)

		row := rows[0]
		assert.Equal(t, int64(482), row.InvoiceID)
		assert.Equal(t, int64(1), row.LineID)
		assert.Equal(t, "Widget", row.Description)
		assert.Equal(t, int64(11), row.StockCodeID)
		assert.Equal(t, int64(2), row.WarehouseID)
		assert.Equal(t, int64(1), row.TaxTypeID)

		assert.Equal(t, 2.0, row.Quantity)
		assert.Equal(t, 0.0, row.QtyToProcess)
		assert.Equal(t, 2.0, row.QtyLastProcess)
		assert.Equal(t, 2.0, row.QtyProcessed)
		assert.Equal(t, 2.0, row.QtyForDelivery)
		assert.Equal(t, 2.0, row.QuantityUR)
		assert.Equal(t, 2.0, row.QtyForDeliveryUR)

		for _, v := range []float64{
			row.QuantityLineTotExcl, row.QuantityLineTotExclNoDisc,
			row.QtyLastProcessLineTotExcl, row.QtyLastProcessLineTotExclNoDisc,
			row.QtyProcessedLineTotExcl, row.QtyProcessedLineTotExclNoDisc,
		} {
			assert.Equal(t, 200.0, v)
		}
		for _, v := range []float64{
			row.QuantityLineTotIncl, row.QuantityLineTotInclNoDisc,
			row.QtyLastProcessLineTotIncl, row.QtyLastProcessLineTotInclNoDisc,
			row.QtyProcessedLineTotIncl, row.QtyProcessedLineTotInclNoDisc,
		} {
			assert.Equal(t, 228.0, v)
		}
		assert.Equal(t, 28.0, row.QtyProcessedLineTaxAmount)
		assert.Equal(t, 0.0, row.QtyChangeLineTotIncl)
		assert.Equal(t, 0.0, row.QtyToProcessLineTotExcl)
		assert.Equal(t, 0.0, row.UnitCost)
		assert.Equal(t, 14.0, row.TaxRate)
		assert.Equal(t, int64(3), row.UnitsOfMeasureID)
		assert.True(t, row.IsWhseItem)
		assert.False(t, row.IsSerialItem)
		assert.Equal(t, "", row.LineNotes)
		require.NotNil(t, row.DeliveryDate)
		assert.Equal(t, "2024-07-15", row.DeliveryDate.Format("2006-01-02"))
	})

	t.Run("line ids continue from existing lines", func(t *testing.T) {
		db := setupInvoiceLineTestDB(t)
		repo := NewGormInvoiceLineRepository(db)

		require.NoError(t, repo.Materialize(ctx, 7, parseLines(t, `[{"Quantity":1},{"Quantity":1}]`)))
		require.NoError(t, repo.Materialize(ctx, 7, parseLines(t, `[{"Quantity":1}]`)))
		require.NoError(t, repo.Materialize(ctx, 8, parseLines(t, `[{"Quantity":1}]`)))

		var ids []int64
		require.NoError(t, db.Model(&models.InvoiceLineModel{}).
			Where("iInvoiceID = ?", 7).Order("idInvoiceLines").Pluck("iLineID", &ids).Error)
		assert.Equal(t, []int64{1, 2, 3}, ids)

		var otherIDs []int64
		require.NoError(t, db.Model(&models.InvoiceLineModel{}).
			Where("iInvoiceID = ?", 8).Pluck("iLineID", &otherIDs).Error)
		assert.Equal(t, []int64{1}, otherIDs)
	})

	t.Run("rejects non-positive invoice id", func(t *testing.T) {
		repo := NewGormInvoiceLineRepository(setupInvoiceLineTestDB(t))
		assert.ErrorIs(t, repo.Materialize(ctx, 0, parseLines(t, `[{"Quantity":1}]`)), invoicing.ErrInvalidInvoiceID)
		assert.ErrorIs(t, repo.Materialize(ctx, -4, parseLines(t, `[{"Quantity":1}]`)), invoicing.ErrInvalidInvoiceID)
	})

	t.Run("rejects empty lines", func(t *testing.T) {
		repo := NewGormInvoiceLineRepository(setupInvoiceLineTestDB(t))
		assert.ErrorIs(t, repo.Materialize(ctx, 1, nil), invoicing.ErrNoLineItems)
	})

	t.Run("store failure is a materialization error", func(t *testing.T) {
		db := setupInvoiceLineTestDB(t)
		require.NoError(t, db.Migrator().DropTable(&models.InvoiceLineModel{}))

		err := NewGormInvoiceLineRepository(db).Materialize(ctx, 1, parseLines(t, `[{"Quantity":1}]`))
		assert.ErrorIs(t, err, invoicing.ErrMaterialization)
	})
}

func TestGormInvoiceLineRepository_ResolveInvoiceID(t *testing.T) {
	ctx := context.Background()
	db := setupInvoiceLineTestDB(t)
	repo := NewGormInvoiceLineRepository(db)

	require.NoError(t, db.Exec(`INSERT INTO InvNum (AutoIndex, InvNumber) VALUES (10, 'INV-2024-07'), (12, 'INV-2024-07'), (13, 'INV-2024-08')`).Error)

	id, err := repo.ResolveInvoiceID(ctx, "INV-2024-07")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	_, err = repo.ResolveInvoiceID(ctx, "INV-MISSING")
	assert.ErrorIs(t, err, invoicing.ErrInvoiceNotFound)

	_, err = repo.ResolveInvoiceID(ctx, "  ")
	assert.ErrorIs(t, err, invoicing.ErrInvoiceNotFound)
}

func TestGormInvoiceLineRepository_GetFullInvoice(t *testing.T) {
	ctx := context.Background()
	db := setupInvoiceLineTestDB(t)
	repo := NewGormInvoiceLineRepository(db)

	require.NoError(t, repo.Materialize(ctx, 5, parseLines(t, `[
		{"Description":"First","Quantity":1,"UnitPrice":10},
		{"Description":"Second","Quantity":3,"UnitPrice":5}
	]`)))

	var first models.InvoiceLineModel
	require.NoError(t, db.Where("iInvoiceID = ? AND iLineID = ?", 5, 1).First(&first).Error)
	require.NoError(t, db.Exec(`INSERT INTO _btblInvoiceLineDetails (iLDInvoiceLineID, cSerialNumber) VALUES (?, 'SN-1'), (?, 'SN-2')`, first.ID, first.ID).Error)

	full, err := repo.GetFullInvoice(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), full.InvoiceID)
	require.Len(t, full.Lines, 2)

	assert.Equal(t, "First", full.Lines[0].Description)
	assert.Equal(t, 10.0, full.Lines[0].LineTotalExcl)
	require.Len(t, full.Lines[0].Details, 2)
	assert.Equal(t, "SN-1", full.Lines[0].Details[0]["cSerialNumber"])

	assert.Equal(t, "Second", full.Lines[1].Description)
	assert.Equal(t, 15.0, full.Lines[1].LineTotalExcl)
	assert.Empty(t, full.Lines[1].Details)

	t.Run("unknown invoice has no lines", func(t *testing.T) {
		full, err := repo.GetFullInvoice(ctx, 999)
		require.NoError(t, err)
		assert.Empty(t, full.Lines)
	})

	t.Run("invalid id", func(t *testing.T) {
		_, err := repo.GetFullInvoice(ctx, 0)
		assert.ErrorIs(t, err, invoicing.ErrInvalidInvoiceID)
	})
}
