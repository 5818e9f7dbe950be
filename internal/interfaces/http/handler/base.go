// Package handler holds the gin handlers of the invoice API.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Godswill9/sage200EvolutionApi/internal/domain/invoicing"
	"github.com/Godswill9/sage200EvolutionApi/internal/domain/shared"
	"github.com/Godswill9/sage200EvolutionApi/internal/interfaces/http/dto"
	"github.com/Godswill9/sage200EvolutionApi/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct {
	// defaultCompany is used when a request carries no company
	defaultCompany string
	// companyID scopes audit rows and metrics
	companyID string
}

// NewBaseHandler creates a BaseHandler for one configured company
func NewBaseHandler(companyID, defaultCompany string) BaseHandler {
	return BaseHandler{companyID: companyID, defaultCompany: defaultCompany}
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// HandleError maps a domain error to its status; anything else is a 500
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	c.JSON(errorStatus(err), errorResponse(c, err))
}

// bindJSON binds the body and writes the 400 itself on failure
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// credentials converts the request credentials and tags the request with
// the company it is scoped to
func (h *BaseHandler) credentials(c *gin.Context, req dto.CredentialsRequest) invoicing.Credentials {
	c.Set(middleware.CompanyIDKey, h.companyID)
	return req.ToDomain(h.defaultCompany)
}

func errorStatus(err error) int {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return dto.GetHTTPStatus(domainErr.Code)
	}
	return http.StatusInternalServerError
}

func errorResponse(c *gin.Context, err error) dto.Response {
	requestID := middleware.GetRequestID(c)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return dto.NewErrorResponseWithRequestID(domainErr.Code, err.Error(), requestID)
	}
	return dto.NewErrorResponseWithRequestID(dto.ErrCodeInternal, "An unexpected error occurred", requestID)
}
