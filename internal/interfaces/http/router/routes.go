package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Godswill9/sage200EvolutionApi/internal/interfaces/http/handler"
)

// Handlers are the handlers mounted by Mount
type Handlers struct {
	Invoice  *handler.InvoiceHandler
	Customer *handler.CustomerHandler
	Health   *handler.HealthHandler
}

// InvoiceRoutes posts invoices and reads them back
func InvoiceRoutes(h *handler.InvoiceHandler) *DomainGroup {
	g := NewDomainGroup("invoice", "/invoice")
	g.POST("/create", h.Create).
		POST("/batch", h.Batch).
		POST("/ref/get/:cuscode", h.ByReference).
		GET("/:id/lines", h.Lines).
		GET("/logs/:cuscode/:reference", h.Logs)
	return g
}

// LedgerRoutes are the read-only customer and transaction passthroughs
func LedgerRoutes(h *handler.CustomerHandler) *DomainGroup {
	g := NewDomainGroup("ledger", "")
	g.POST("/invoices/list", h.AllInvoices).
		POST("/customer_invoices/list/:cuscode", h.Transactions).
		POST("/customers/list", h.List).
		POST("/customers/list/:cuscode", h.Find)
	return g
}

// Mount registers every API route on engine plus GET /health outside the
// API prefix.
func Mount(engine *gin.Engine, h Handlers, opts ...RouterOption) *Router {
	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
	}

	r := NewRouter(engine, opts...)
	r.Register(InvoiceRoutes(h.Invoice)).
		Register(LedgerRoutes(h.Customer))
	r.Setup()
	return r
}
