package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appinvoicing "github.com/Godswill9/sage200EvolutionApi/internal/application/invoicing"
	"github.com/Godswill9/sage200EvolutionApi/internal/domain/invoicing"
)

const credentialsBody = `{` + credentialsJSON + `}`

func TestCustomerHandler_List(t *testing.T) {
	deps := newTestDeps()
	deps.directory.On("ListCustomers", mock.Anything, expectedCredentials, 1, appinvoicing.CustomerListPageSize).
		Return([]invoicing.Record{{"Account": "C001"}, {"Account": "C002"}}, nil)

	w := doRequest(deps.engine(false), http.MethodPost, "/api/customers/list", credentialsBody)

	require.Equal(t, http.StatusOK, w.Code)
	var customers []map[string]any
	decodeData(t, decodeResponse(t, w), &customers)
	assert.Len(t, customers, 2)
}

func TestCustomerHandler_ListLedgerDown(t *testing.T) {
	deps := newTestDeps()
	deps.directory.On("ListCustomers", mock.Anything, mock.Anything, 1, mock.Anything).
		Return(nil, fmt.Errorf("%w: connection refused", invoicing.ErrLedgerTransport))

	w := doRequest(deps.engine(false), http.MethodPost, "/api/customers/list", credentialsBody)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "LEDGER_UNAVAILABLE", decodeResponse(t, w).Error.Code)
}

func TestCustomerHandler_Find(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		deps := newTestDeps()
		deps.ledger.On("FindCustomer", mock.Anything, expectedCredentials, "C001").
			Return(&invoicing.Customer{Code: "C001", Detail: json.RawMessage(`{"Code":"C001","Description":"Acme"}`)}, nil)

		w := doRequest(deps.engine(false), http.MethodPost, "/api/customers/list/C001", credentialsBody)

		require.Equal(t, http.StatusOK, w.Code)
		var customer map[string]any
		decodeData(t, decodeResponse(t, w), &customer)
		assert.Equal(t, "C001", customer["code"])
	})

	t.Run("unknown", func(t *testing.T) {
		deps := newTestDeps()
		deps.ledger.On("FindCustomer", mock.Anything, expectedCredentials, "NOPE").Return(nil, invoicing.ErrCustomerNotFound)

		w := doRequest(deps.engine(false), http.MethodPost, "/api/customers/list/NOPE", credentialsBody)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "CUSTOMER_NOT_FOUND", decodeResponse(t, w).Error.Code)
	})
}

func TestCustomerHandler_Transactions(t *testing.T) {
	deps := newTestDeps()
	page := make([]invoicing.Record, appinvoicing.TransactionPageSize)
	for i := range page {
		page[i] = invoicing.Record{"Reference": fmt.Sprintf("INV-%d", i)}
	}
	deps.directory.On("ListCustomerTransactions", mock.Anything, expectedCredentials, "C001", 1, appinvoicing.TransactionPageSize).Return(page, nil)
	deps.directory.On("ListCustomerTransactions", mock.Anything, expectedCredentials, "C001", 2, appinvoicing.TransactionPageSize).
		Return([]invoicing.Record{{"Reference": "INV-LAST"}}, nil)
	deps.directory.On("ListCustomerTransactions", mock.Anything, expectedCredentials, "C001", 3, appinvoicing.TransactionPageSize).
		Return([]invoicing.Record{}, nil)

	w := doRequest(deps.engine(false), http.MethodPost, "/api/customer_invoices/list/C001", credentialsBody)

	require.Equal(t, http.StatusOK, w.Code)
	var records []map[string]any
	decodeData(t, decodeResponse(t, w), &records)
	assert.Len(t, records, appinvoicing.TransactionPageSize+1)
	assert.Equal(t, "INV-LAST", records[len(records)-1]["Reference"])
}

func TestCustomerHandler_AllInvoices(t *testing.T) {
	deps := newTestDeps()
	deps.directory.On("ListCustomers", mock.Anything, expectedCredentials, 1, appinvoicing.CustomerScanPageSize).
		Return([]invoicing.Record{{"Account": "C001"}}, nil)
	deps.directory.On("ListCustomers", mock.Anything, expectedCredentials, 2, appinvoicing.CustomerScanPageSize).
		Return([]invoicing.Record{}, nil)
	deps.directory.On("ListCustomerTransactions", mock.Anything, expectedCredentials, "C001", 1, appinvoicing.TransactionPageSize).
		Return([]invoicing.Record{{"Reference": "INV-1", "Debit": "228"}}, nil)
	deps.directory.On("ListCustomerTransactions", mock.Anything, expectedCredentials, "C001", 2, appinvoicing.TransactionPageSize).
		Return([]invoicing.Record{}, nil)

	w := doRequest(deps.engine(false), http.MethodPost, "/api/invoices/list", credentialsBody)

	require.Equal(t, http.StatusOK, w.Code)
	var invoices []map[string]any
	decodeData(t, decodeResponse(t, w), &invoices)
	require.Len(t, invoices, 1)
	assert.Equal(t, "C001", invoices[0]["account"])
	assert.Equal(t, "INV-1", invoices[0]["reference"])
}

func TestCustomerHandler_RequiresCredentials(t *testing.T) {
	deps := newTestDeps()
	for _, path := range []string{"/api/customers/list", "/api/customers/list/C001", "/api/customer_invoices/list/C001", "/api/invoices/list"} {
		w := doRequest(deps.engine(false), http.MethodPost, path, `{"server":"sage.local"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
	deps.directory.AssertNotCalled(t, "ListCustomers", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
