package integration

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Godswill9/sage200EvolutionApi/internal/domain/invoicing"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/persistence"
)

func auditRecord(reference, customer string, status invoicing.PostingStatus, auditRef string) *invoicing.AuditLogRecord {
	sub := invoicing.Submission{
		Invoice: invoicing.Invoice{
			CustomerCode: customer,
			Reference:    reference,
			Raw:          json.RawMessage(`{"CustomerCode":"` + customer + `","Reference":"` + reference + `"}`),
		},
		CompanyID: "acme",
	}
	totals := invoicing.Totals{
		TaxExclusive: decimal.RequireFromString("100.00"),
		Tax:          decimal.RequireFromString("14.00"),
		TaxInclusive: decimal.RequireFromString("114.00"),
	}
	return invoicing.NewAuditLogRecord(sub, totals, status, auditRef,
		json.RawMessage(`{"HasError":false}`), nil, time.Now().UTC())
}

func TestAuditLog_PostedUniqueIndex(t *testing.T) {
	tdb := NewTestDB(t)
	repo := persistence.NewGormAuditLogRepository(tdb.DB)
	ctx := context.Background()

	t.Run("concurrent posted rows for one pair", func(t *testing.T) {
		const writers = 8
		var (
			wg         sync.WaitGroup
			mu         sync.Mutex
			inserted   int
			duplicates int
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := repo.Append(ctx, auditRecord("INV-RACE", "C001", invoicing.PostingStatusPosted, "ID:1"))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					inserted++
				case errors.Is(err, invoicing.ErrDuplicateInvoice):
					duplicates++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, inserted)
		assert.Equal(t, writers-1, duplicates)

		rows, err := repo.FindByReference(ctx, "INV-RACE", "C001")
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("failed and duplicate rows are unconstrained", func(t *testing.T) {
		require.NoError(t, repo.Append(ctx, auditRecord("INV-F", "C001", invoicing.PostingStatusFailed, "")))
		require.NoError(t, repo.Append(ctx, auditRecord("INV-F", "C001", invoicing.PostingStatusFailed, "")))
		require.NoError(t, repo.Append(ctx, auditRecord("INV-F", "C001", invoicing.PostingStatusPosted, "ID:2")))

		exists, err := repo.ExistsPosted(ctx, "INV-F", "C001")
		require.NoError(t, err)
		assert.True(t, exists)

		rows, err := repo.FindByReference(ctx, "INV-F", "C001")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, invoicing.PostingStatusPosted, rows[2].Status)
		assert.True(t, rows[2].Totals.Tax.Equal(decimal.NewFromInt(14)))
	})

	t.Run("same reference for another customer", func(t *testing.T) {
		require.NoError(t, repo.Append(ctx, auditRecord("INV-S", "C001", invoicing.PostingStatusPosted, "ID:3")))
		require.NoError(t, repo.Append(ctx, auditRecord("INV-S", "C002", invoicing.PostingStatusPosted, "ID:4")))
	})
}
