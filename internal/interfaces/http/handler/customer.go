package handler

import (
	"github.com/gin-gonic/gin"

	appinvoicing "github.com/Godswill9/sage200EvolutionApi/internal/application/invoicing"
	"github.com/Godswill9/sage200EvolutionApi/internal/interfaces/http/dto"
)

// CustomerHandler serves the read-only ledger passthroughs
type CustomerHandler struct {
	BaseHandler
	lookup *appinvoicing.LookupService
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(base BaseHandler, lookup *appinvoicing.LookupService) *CustomerHandler {
	return &CustomerHandler{BaseHandler: base, lookup: lookup}
}

// List returns the first page of ledger customers.
// POST /api/customers/list
func (h *CustomerHandler) List(c *gin.Context) {
	var req dto.CredentialsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	customers, err := h.lookup.ListCustomers(c.Request.Context(), h.credentials(c, req))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, customers)
}

// Find returns one customer by account code.
// POST /api/customers/list/:cuscode
func (h *CustomerHandler) Find(c *gin.Context) {
	var req dto.CredentialsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	customer, err := h.lookup.FindCustomer(c.Request.Context(), h.credentials(c, req), c.Param("cuscode"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, customer)
}

// Transactions returns every ledger transaction of one customer.
// POST /api/customer_invoices/list/:cuscode
func (h *CustomerHandler) Transactions(c *gin.Context) {
	var req dto.CredentialsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	records, err := h.lookup.CustomerTransactions(c.Request.Context(), h.credentials(c, req), c.Param("cuscode"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, records)
}

// AllInvoices returns the transactions of every customer.
// POST /api/invoices/list
func (h *CustomerHandler) AllInvoices(c *gin.Context) {
	var req dto.CredentialsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	invoices, err := h.lookup.AllInvoices(c.Request.Context(), h.credentials(c, req))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoices)
}
