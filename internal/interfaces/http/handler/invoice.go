package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appinvoicing "github.com/Godswill9/sage200EvolutionApi/internal/application/invoicing"
	"github.com/Godswill9/sage200EvolutionApi/internal/domain/invoicing"
	"github.com/Godswill9/sage200EvolutionApi/internal/interfaces/http/dto"
)

// InvoiceHandler serves invoice posting and invoice lookups
type InvoiceHandler struct {
	BaseHandler
	posting          appinvoicing.Poster
	batch            *appinvoicing.BatchService
	lookup           *appinvoicing.LookupService
	defaultOperation invoicing.Operation
}

// InvoiceHandlerConfig holds the collaborators of an InvoiceHandler
type InvoiceHandlerConfig struct {
	Base             BaseHandler
	Posting          appinvoicing.Poster
	Batch            *appinvoicing.BatchService
	Lookup           *appinvoicing.LookupService
	DefaultOperation invoicing.Operation
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(cfg InvoiceHandlerConfig) *InvoiceHandler {
	op := cfg.DefaultOperation
	if !op.IsValid() {
		op = invoicing.OperationSalesOrderProcessInvoice
	}
	return &InvoiceHandler{
		BaseHandler:      cfg.Base,
		posting:          cfg.Posting,
		batch:            cfg.Batch,
		lookup:           cfg.Lookup,
		defaultOperation: op,
	}
}

func (h *InvoiceHandler) operation(requested string) invoicing.Operation {
	if requested == "" {
		return h.defaultOperation
	}
	return invoicing.Operation(requested)
}

// Create posts one invoice.
// POST /api/invoice/create
//
// 200 posted, 400 validation or ledger fault, 404 unknown customer,
// 409 duplicate or in progress, 500 transport or store failure.
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req dto.PostInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	inv, err := invoicing.ParseInvoice(req.Invoice)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	sub := invoicing.Submission{
		Invoice:     inv,
		Credentials: h.credentials(c, req.CredentialsRequest),
		CompanyID:   h.companyID,
		Operation:   h.operation(req.Operation),
	}

	outcome, err := h.posting.Post(c.Request.Context(), sub, appinvoicing.PostOptions{})
	result := dto.NewPostingResult(outcome)
	if err != nil {
		resp := errorResponse(c, err)
		resp.Status = outcome.Status.String()
		resp.Data = result
		c.JSON(errorStatus(err), resp)
		return
	}

	c.JSON(http.StatusOK, dto.Response{
		Success: true,
		Status:  outcome.Status.String(),
		Message: "Invoice posted successfully",
		Data:    result,
	})
}

// Batch posts a list of invoices sequentially. Per-invoice failures are
// reported in the summary; the response is 200 unless the request itself
// is invalid.
// POST /api/invoice/batch
func (h *InvoiceHandler) Batch(c *gin.Context) {
	var req dto.PostBatchRequest
	if !h.bindJSON(c, &req) {
		return
	}

	report, err := h.batch.PostBatch(c.Request.Context(), appinvoicing.BatchRequest{
		Invoices:    req.Invoices,
		Credentials: h.credentials(c, req.CredentialsRequest),
		CompanyID:   h.companyID,
		Operation:   h.operation(req.Operation),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Response{
		Success: true,
		Message: "Batch processing completed",
		Data:    report,
	})
}

// ByReference finds one ledger transaction of a customer by reference.
// The body account, when set, overrides the path customer code.
// POST /api/invoice/ref/get/:cuscode
func (h *InvoiceHandler) ByReference(c *gin.Context) {
	var req dto.InvoiceByReferenceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	account := strings.TrimSpace(req.Account)
	if account == "" {
		account = strings.TrimSpace(c.Param("cuscode"))
	}

	record, err := h.lookup.FetchInvoiceByReference(c.Request.Context(),
		h.credentials(c, req.CredentialsRequest), account, strings.TrimSpace(req.Reference))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, record)
}

// Lines returns the materialized lines of a ledger invoice.
// GET /api/invoice/:id/lines
func (h *InvoiceHandler) Lines(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.HandleError(c, invoicing.ErrInvalidInvoiceID)
		return
	}

	full, err := h.lookup.GetFullInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, full)
}

// Logs returns every posting attempt recorded for a reference.
// GET /api/invoice/logs/:cuscode/:reference
func (h *InvoiceHandler) Logs(c *gin.Context) {
	records, err := h.lookup.AuditHistory(c.Request.Context(), c.Param("reference"), c.Param("cuscode"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewAuditLogEntries(records))
}
