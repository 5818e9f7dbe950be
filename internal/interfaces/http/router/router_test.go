package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.NotNil(t, r)
	assert.Equal(t, "/api", r.Prefix())
	assert.Empty(t, r.registrars)
}

func TestRouterOptions(t *testing.T) {
	assert.Equal(t, "/api/v2", NewRouter(gin.New(), WithAPIVersion("v2")).Prefix())
	assert.Equal(t, "/sage", NewRouter(gin.New(), WithBasePath("sage/")).Prefix())
	assert.Equal(t, "/sage/v1", NewRouter(gin.New(), WithBasePath("/sage"), WithAPIVersion("/v1/")).Prefix())
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	r.Register(group).Setup()

	w := serve(engine, http.MethodGet, "/api/test/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/test/ping").Code)
}

func TestDomainGroup(t *testing.T) {
	t.Run("creates group with name and prefix", func(t *testing.T) {
		g := NewDomainGroup("invoice", "/invoice")
		assert.Equal(t, "invoice", g.Name())
		assert.Equal(t, "/invoice", g.Prefix())
	})

	t.Run("registers GET and POST routes", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("invoice", "/invoice")
		g.GET("/:id/lines", func(c *gin.Context) {
			c.String(http.StatusOK, "lines "+c.Param("id"))
		}).POST("/create", func(c *gin.Context) {
			c.String(http.StatusOK, "created")
		})

		g.RegisterRoutes(engine.Group("/api"))

		w := serve(engine, http.MethodGet, "/api/invoice/482/lines")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "lines 482", w.Body.String())

		assert.Equal(t, http.StatusOK, serve(engine, http.MethodPost, "/api/invoice/create").Code)
		assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/invoice/create").Code)
	})

	t.Run("applies middleware", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("test", "/test")
		g.Use(func(c *gin.Context) {
			c.Header("X-Test-Middleware", "applied")
			c.Next()
		})
		g.GET("/items", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		g.RegisterRoutes(engine.Group("/api"))

		w := serve(engine, http.MethodGet, "/api/test/items")
		assert.Equal(t, "applied", w.Header().Get("X-Test-Middleware"))
	})

	t.Run("creates subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("ledger", "")

		customers := g.Group("customers", "/customers")
		customers.POST("/list", func(c *gin.Context) {
			c.String(http.StatusOK, "customers")
		})

		invoices := g.Group("invoices", "/invoices")
		invoices.POST("/list", func(c *gin.Context) {
			c.String(http.StatusOK, "invoices")
		})

		g.RegisterRoutes(engine.Group("/api"))

		w1 := serve(engine, http.MethodPost, "/api/customers/list")
		assert.Equal(t, http.StatusOK, w1.Code)
		assert.Equal(t, "customers", w1.Body.String())

		w2 := serve(engine, http.MethodPost, "/api/invoices/list")
		assert.Equal(t, http.StatusOK, w2.Code)
		assert.Equal(t, "invoices", w2.Body.String())
	})
}
