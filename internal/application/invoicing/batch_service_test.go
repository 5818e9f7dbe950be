package invoicing

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Godswill9/sage200EvolutionApi/internal/domain/invoicing"
)

var fixedBatchID = uuid.MustParse("6f1c1d5e-8a43-4c21-9a0e-0d5c2f1b7a10")

func newBatchService(poster Poster) *BatchService {
	return NewBatchService(BatchServiceConfig{
		Poster: poster,
		NewID:  func() uuid.UUID { return fixedBatchID },
	})
}

func rawInvoice(reference string) json.RawMessage {
	return json.RawMessage(`{"CustomerCode":"C001","Reference":"` + reference + `","Lines":[]}`)
}

func forReference(reference string) any {
	return mock.MatchedBy(func(sub invoicing.Submission) bool {
		return sub.Invoice.Reference == reference
	})
}

func batchOptions() any {
	return mock.MatchedBy(func(opts PostOptions) bool {
		return opts.BatchID != nil && *opts.BatchID == fixedBatchID && opts.RecordVerificationFailures
	})
}

func TestBatchService_PostBatch(t *testing.T) {
	poster := new(MockPoster)
	svc := newBatchService(poster)

	poster.On("Post", mock.Anything, forReference("INV-1"), batchOptions()).
		Return(invoicing.PostingOutcome{Status: invoicing.PostingStatusPosted, Reference: "INV-1", CustomerCode: "C001", AuditRef: "ID:1"}, nil)
	poster.On("Post", mock.Anything, forReference("INV-2"), batchOptions()).
		Return(invoicing.PostingOutcome{Status: invoicing.PostingStatusFailed, Reference: "INV-2", CustomerCode: "C001"},
			fmt.Errorf("%w: validation errors", invoicing.ErrLedgerBusinessFault))
	poster.On("Post", mock.Anything, forReference("INV-3"), batchOptions()).
		Return(invoicing.PostingOutcome{Status: invoicing.PostingStatusPosted, Reference: "INV-3", CustomerCode: "C001", AuditRef: "ID:3"}, nil)

	report, err := svc.PostBatch(context.Background(), BatchRequest{
		Invoices:    []json.RawMessage{rawInvoice("INV-1"), rawInvoice("INV-2"), rawInvoice("INV-3")},
		Credentials: testCredentials,
		CompanyID:   "acme",
		Operation:   invoicing.OperationSalesOrderProcessInvoice,
	})
	require.NoError(t, err)

	assert.Equal(t, fixedBatchID, report.BatchID)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Posted)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Duplicates)
	require.Len(t, report.Results, 3)

	assert.Equal(t, BatchItemResult{Reference: "INV-1", CustomerCode: "C001", Status: "posted", AuditID: "ID:1"}, report.Results[0])
	assert.Equal(t, "INV-2", report.Results[1].Reference)
	assert.Equal(t, "failed", report.Results[1].Status)
	assert.Equal(t, "LEDGER_BUSINESS_FAULT", report.Results[1].Code)
	assert.NotEmpty(t, report.Results[1].Error)
	assert.Equal(t, "posted", report.Results[2].Status)

	poster.AssertNumberOfCalls(t, "Post", 3)
}

func TestBatchService_PostBatch_ItemOutcomes(t *testing.T) {
	poster := new(MockPoster)
	svc := newBatchService(poster)

	poster.On("Post", mock.Anything, forReference("DUP"), mock.Anything).
		Return(invoicing.PostingOutcome{Status: invoicing.PostingStatusDuplicate, Reference: "DUP"},
			fmt.Errorf("%w: DUP", invoicing.ErrDuplicateInvoice))
	poster.On("Post", mock.Anything, forReference("BUSY"), mock.Anything).
		Return(invoicing.PostingOutcome{Status: invoicing.PostingStatusDuplicate, Reference: "BUSY"},
			fmt.Errorf("%w: BUSY", invoicing.ErrPostingInProgress))
	poster.On("Post", mock.Anything, forReference("MISSING"), mock.Anything).
		Return(invoicing.PostingOutcome{Status: invoicing.PostingStatusFailed, Reference: "MISSING"},
			fmt.Errorf("%w: C001", invoicing.ErrCustomerNotFound))
	poster.On("Post", mock.Anything, forReference("PANIC"), mock.Anything).
		Run(func(mock.Arguments) { panic("nil map") }).
		Return(invoicing.PostingOutcome{}, nil)

	report, err := svc.PostBatch(context.Background(), BatchRequest{
		Invoices: []json.RawMessage{
			rawInvoice("DUP"),
			json.RawMessage(`"not an object"`),
			rawInvoice("BUSY"),
			rawInvoice("MISSING"),
			rawInvoice("PANIC"),
		},
		Credentials: testCredentials,
		CompanyID:   "acme",
		Operation:   invoicing.OperationCustomerTransactionPost,
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 5)

	assert.Equal(t, "duplicate", report.Results[0].Status)
	assert.Equal(t, "Invoice already posted", report.Results[0].Message)
	assert.Equal(t, "DUPLICATE_INVOICE", report.Results[0].Code)

	assert.Equal(t, "failed", report.Results[1].Status)
	assert.Equal(t, "VALIDATION_ERROR", report.Results[1].Code)

	assert.Equal(t, "duplicate", report.Results[2].Status)
	assert.Equal(t, "Invoice posting already in progress", report.Results[2].Message)

	assert.Equal(t, "failed", report.Results[3].Status)
	assert.Equal(t, "Customer not found", report.Results[3].Error)

	assert.Equal(t, "failed", report.Results[4].Status)
	assert.Contains(t, report.Results[4].Error, "nil map")

	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 2, report.Duplicates)
	assert.Equal(t, 3, report.Failed)
	assert.Equal(t, 0, report.Posted)

	poster.AssertNumberOfCalls(t, "Post", 4)
}

func TestBatchService_PostBatch_Validation(t *testing.T) {
	poster := new(MockPoster)
	svc := newBatchService(poster)

	_, err := svc.PostBatch(context.Background(), BatchRequest{Credentials: testCredentials})
	assert.ErrorIs(t, err, invoicing.ErrValidation)

	creds := testCredentials
	creds.Username = ""
	_, err = svc.PostBatch(context.Background(), BatchRequest{
		Invoices:    []json.RawMessage{rawInvoice("INV-1")},
		Credentials: creds,
	})
	assert.ErrorIs(t, err, invoicing.ErrValidation)

	poster.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)
}

func TestBatchService_PostBatch_CancelledContext(t *testing.T) {
	poster := new(MockPoster)
	svc := newBatchService(poster)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := svc.PostBatch(ctx, BatchRequest{
		Invoices:    []json.RawMessage{rawInvoice("INV-1"), rawInvoice("INV-2")},
		Credentials: testCredentials,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed)
	poster.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)
}
