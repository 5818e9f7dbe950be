package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Godswill9/sage200EvolutionApi/internal/domain/invoicing"
	"github.com/Godswill9/sage200EvolutionApi/internal/interfaces/http/dto"
	"github.com/Godswill9/sage200EvolutionApi/internal/interfaces/http/middleware"
)

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{"wrapped domain error keeps detail", fmt.Errorf("%w: missing Reference", invoicing.ErrValidation),
			http.StatusBadRequest, "VALIDATION_ERROR", "invoice submission is invalid: missing Reference"},
		{"not found", invoicing.ErrInvoiceNotFound, http.StatusNotFound, "INVOICE_NOT_FOUND", "invoice not found"},
		{"unknown error hides detail", errors.New("pq: password authentication failed"),
			http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testBase()
			engine := gin.New()
			engine.Use(middleware.RequestID())
			engine.GET("/test", func(c *gin.Context) { h.HandleError(c, tt.err) })

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(middleware.RequestIDHeader, "req-1")
			engine.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.wantMessage, resp.Error.Message)
			assert.Equal(t, "req-1", resp.RequestID)
		})
	}
}

func TestBaseHandler_CredentialsDefaultCompany(t *testing.T) {
	h := testBase()
	engine := gin.New()
	var company, override, scoped string
	engine.GET("/test", func(c *gin.Context) {
		company = h.credentials(c, dto.CredentialsRequest{Server: "sage.local"}).Company
		override = h.credentials(c, dto.CredentialsRequest{Company: " Other Co "}).Company
		scoped = c.GetString(middleware.CompanyIDKey)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, "Acme Ltd", company)
	assert.Equal(t, "Other Co", override)
	assert.Equal(t, "acme", scoped)
}
