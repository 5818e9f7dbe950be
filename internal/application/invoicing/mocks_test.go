package invoicing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Godswill9/sage200EvolutionApi/internal/domain/invoicing"
)

// =============================================================================
// Ledger mocks
// =============================================================================

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) FindCustomer(ctx context.Context, creds invoicing.Credentials, accountCode string) (*invoicing.Customer, error) {
	args := m.Called(ctx, creds, accountCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Customer), args.Error(1)
}

func (m *MockLedger) PostInvoice(ctx context.Context, creds invoicing.Credentials, op invoicing.Operation, invoice json.RawMessage) (invoicing.LedgerResponse, error) {
	args := m.Called(ctx, creds, op, invoice)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(invoicing.LedgerResponse), args.Error(1)
}

type MockLedgerDirectory struct {
	mock.Mock
}

func (m *MockLedgerDirectory) ListCustomers(ctx context.Context, creds invoicing.Credentials, pageNumber, pageSize int) ([]invoicing.Record, error) {
	args := m.Called(ctx, creds, pageNumber, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoicing.Record), args.Error(1)
}

func (m *MockLedgerDirectory) ListCustomerTransactions(ctx context.Context, creds invoicing.Credentials, accountCode string, pageNumber, pageSize int) ([]invoicing.Record, error) {
	args := m.Called(ctx, creds, accountCode, pageNumber, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoicing.Record), args.Error(1)
}

// =============================================================================
// Store mocks
// =============================================================================

type MockAuditLogRepository struct {
	mock.Mock
}

func (m *MockAuditLogRepository) Append(ctx context.Context, rec *invoicing.AuditLogRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockAuditLogRepository) ExistsPosted(ctx context.Context, reference, customerCode string) (bool, error) {
	args := m.Called(ctx, reference, customerCode)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuditLogRepository) FindByReference(ctx context.Context, reference, customerCode string) ([]*invoicing.AuditLogRecord, error) {
	args := m.Called(ctx, reference, customerCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*invoicing.AuditLogRecord), args.Error(1)
}

type MockInvoiceLineStore struct {
	mock.Mock
}

func (m *MockInvoiceLineStore) Materialize(ctx context.Context, invoiceID int64, lines []invoicing.LineItem) error {
	args := m.Called(ctx, invoiceID, lines)
	return args.Error(0)
}

func (m *MockInvoiceLineStore) ResolveInvoiceID(ctx context.Context, reference string) (int64, error) {
	args := m.Called(ctx, reference)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceLineStore) GetFullInvoice(ctx context.Context, invoiceID int64) (*invoicing.FullInvoice, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.FullInvoice), args.Error(1)
}

type MockKeyLock struct {
	mock.Mock
}

func (m *MockKeyLock) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockKeyLock) Unlock(ctx context.Context, key, token string) error {
	args := m.Called(ctx, key, token)
	return args.Error(0)
}

func (m *MockKeyLock) Close() error {
	return m.Called().Error(0)
}

type MockPoster struct {
	mock.Mock
}

func (m *MockPoster) Post(ctx context.Context, sub invoicing.Submission, opts PostOptions) (invoicing.PostingOutcome, error) {
	args := m.Called(ctx, sub, opts)
	return args.Get(0).(invoicing.PostingOutcome), args.Error(1)
}

// =============================================================================
// Fixtures
// =============================================================================

var testCredentials = invoicing.Credentials{
	Server:   "sage.local",
	Port:     "5000",
	Username: "api",
	Password: "secret",
	Company:  "acme",
}

func mustInvoice(raw string) invoicing.Invoice {
	inv, err := invoicing.ParseInvoice(json.RawMessage(raw))
	if err != nil {
		panic(err)
	}
	return inv
}

func newSubmission(reference string) invoicing.Submission {
	return invoicing.Submission{
		Invoice: mustInvoice(`{"CustomerCode":"C001","Reference":"` + reference + `",` +
			`"Lines":[{"Description":"Widget","Quantity":2,"UnitPrice":100,"TaxCode":1}]}`),
		Credentials: testCredentials,
		CompanyID:   "acme",
		Operation:   invoicing.OperationSalesOrderProcessInvoice,
	}
}

func hasStatus(status invoicing.PostingStatus) any {
	return mock.MatchedBy(func(rec *invoicing.AuditLogRecord) bool {
		return rec.Status == status
	})
}
