package integration

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinvoicing "github.com/Godswill9/sage200EvolutionApi/internal/application/invoicing"
	"github.com/Godswill9/sage200EvolutionApi/internal/domain/invoicing"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/cache"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/ledger"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/persistence"
)

// fakeSage answers CustomerFind for C001 and accepts every invoice post
func fakeSage(t *testing.T, posts *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/CustomerFind"):
			if r.URL.Query().Get("code") != "C001" {
				_, _ = w.Write([]byte(`null`))
				return
			}
			_, _ = w.Write([]byte(`{"CustomerDto":{"Code":"C001","Description":"Acme Trading"}}`))
		case strings.HasSuffix(r.URL.Path, "/SalesOrderProcessInvoice"):
			posts.Add(1)
			time.Sleep(50 * time.Millisecond)
			_, _ = w.Write([]byte(`{"HasError":false,"ID":"482"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newPostingService(t *testing.T, tdb *TestDB) (*appinvoicing.PostingService, *persistence.GormAuditLogRepository) {
	t.Helper()

	client, err := ledger.NewClient(ledger.Config{BasePath: "freedom.core", Timeout: 5 * time.Second})
	require.NoError(t, err)

	lock := cache.NewInMemoryKeyLock()
	t.Cleanup(func() { _ = lock.Close() })

	policy := invoicing.DefaultTaxPolicy()
	audit := persistence.NewGormAuditLogRepository(tdb.DB)
	svc := appinvoicing.NewPostingService(appinvoicing.PostingServiceConfig{
		Ledger:    client,
		AuditLog:  audit,
		Lock:      lock,
		LockTTL:   time.Minute,
		TaxPolicy: &policy,
	})
	return svc, audit
}

func submission(t *testing.T, sageURL, customer, reference string) invoicing.Submission {
	t.Helper()
	u, err := url.Parse(sageURL)
	require.NoError(t, err)
	inv, err := invoicing.ParseInvoice([]byte(`{
		"CustomerCode": "` + customer + `",
		"Reference": "` + reference + `",
		"Lines": [{"Quantity": 2, "UnitPrice": 100, "TaxCode": 1}]
	}`))
	require.NoError(t, err)
	return invoicing.Submission{
		Invoice: inv,
		Credentials: invoicing.Credentials{
			Server:   u.Hostname(),
			Port:     u.Port(),
			Username: "api",
			Password: "secret",
			Company:  "Acme Ltd",
		},
		CompanyID: "acme",
		Operation: invoicing.OperationSalesOrderProcessInvoice,
	}
}

func TestPostingFlow(t *testing.T) {
	tdb := NewTestDB(t)
	ctx := context.Background()

	t.Run("posts once and logs the attempt", func(t *testing.T) {
		var posts atomic.Int32
		sage := fakeSage(t, &posts)
		svc, audit := newPostingService(t, tdb)

		outcome, err := svc.Post(ctx, submission(t, sage.URL, "C001", "INV-100"), appinvoicing.PostOptions{})
		require.NoError(t, err)
		assert.True(t, outcome.Posted())
		assert.Equal(t, "482", outcome.AuditRef)
		assert.True(t, outcome.Totals.TaxInclusive.Equal(decimal.NewFromInt(228)))
		assert.NotZero(t, outcome.AuditLogID)

		_, err = svc.Post(ctx, submission(t, sage.URL, "C001", "INV-100"), appinvoicing.PostOptions{})
		assert.ErrorIs(t, err, invoicing.ErrDuplicateInvoice)
		assert.Equal(t, int32(1), posts.Load())

		rows, err := audit.FindByReference(ctx, "INV-100", "C001")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, invoicing.PostingStatusPosted, rows[0].Status)
	})

	t.Run("concurrent submissions reach the ledger once", func(t *testing.T) {
		var posts atomic.Int32
		sage := fakeSage(t, &posts)
		svc, audit := newPostingService(t, tdb)

		sub := submission(t, sage.URL, "C001", "INV-200")
		const callers = 6
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			posted   int
			rejected int
		)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				outcome, err := svc.Post(ctx, sub, appinvoicing.PostOptions{})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil && outcome.Posted():
					posted++
				case errors.Is(err, invoicing.ErrPostingInProgress), errors.Is(err, invoicing.ErrDuplicateInvoice):
					rejected++
				default:
					t.Errorf("unexpected result: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, posted)
		assert.Equal(t, callers-1, rejected)
		assert.Equal(t, int32(1), posts.Load())

		exists, err := audit.ExistsPosted(ctx, "INV-200", "C001")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("unknown customer is never posted", func(t *testing.T) {
		var posts atomic.Int32
		sage := fakeSage(t, &posts)
		svc, audit := newPostingService(t, tdb)

		_, err := svc.Post(ctx, submission(t, sage.URL, "C404", "INV-300"), appinvoicing.PostOptions{RecordVerificationFailures: true})
		assert.ErrorIs(t, err, invoicing.ErrCustomerNotFound)
		assert.Zero(t, posts.Load())

		rows, err := audit.FindByReference(ctx, "INV-300", "C404")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, invoicing.PostingStatusFailed, rows[0].Status)
	})
}
