package api

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"time"

	"order-inventory-service/internal/service"
	"order-inventory-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// OrderService is the order use cases the API exposes
type OrderService interface {
	CreateOrder(ctx context.Context, req *service.CreateOrderRequest) (*service.OrderResponse, error)
	UpdateOrder(ctx context.Context, orderID int64, req *service.UpdateOrderRequest) (*service.OrderResponse, error)
	DeleteOrder(ctx context.Context, orderID int64) error
	GetOrder(ctx context.Context, orderID int64) (*service.OrderResponse, error)
}

// ProductService is the product use cases the API exposes
type ProductService interface {
	ListProducts(ctx context.Context) ([]*service.ProductResponse, error)
	GetProduct(ctx context.Context, id int64) (*service.ProductResponse, error)
	SearchProducts(ctx context.Context, name string) ([]*service.ProductResponse, error)
	CreateProduct(ctx context.Context, req *service.CreateProductRequest) (*service.ProductResponse, error)
	UpdateProduct(ctx context.Context, id int64, req *service.UpdateProductRequest) (*service.ProductResponse, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// SearchService answers order searches
type SearchService interface {
	SearchWithDB(ctx context.Context, criteria service.SearchCriteria) (*service.OrderPage, error)
	SearchWithEngine(ctx context.Context, criteria service.SearchCriteria) (*service.OrderPage, error)
}

// CacheService clears the read cache
type CacheService interface {
	Clear(ctx context.Context) error
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	orders   OrderService
	products ProductService
	search   SearchService
	cache    CacheService
	deps     map[string]Pinger
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler. /ready reports ready only while
// every dependency in deps answers its Ping.
func NewHandler(orders OrderService, products ProductService, search SearchService, cache CacheService, deps map[string]Pinger) *Handler {
	return &Handler{
		orders:   orders,
		products: products,
		search:   search,
		cache:    cache,
		deps:     deps,
		logger:   util.GetLogger().Named("api"),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(prometheusMiddleware())
	router.Use(h.loggingMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		products := v1.Group("/products")
		products.GET("", h.listProducts)
		products.GET("/search", h.searchProducts)
		products.GET("/:id", h.getProduct)
		products.POST("", h.createProduct)
		products.PUT("/:id", h.updateProduct)
		products.DELETE("/:id", h.deleteProduct)

		orders := v1.Group("/orders")
		orders.GET("/:id", h.getOrder)
		orders.POST("", h.createOrder)
		orders.PUT("/:id", h.updateOrder)
		orders.DELETE("/:id", h.deleteOrder)
		orders.POST("/search", h.searchOrders)
		orders.POST("/search/engine", h.searchOrdersWithEngine)

		cache := v1.Group("/cache")
		cache.POST("/clear", h.clearCache)
		cache.GET("/clearCache", h.clearCache)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once every dependency answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	for _, name := range slices.Sorted(maps.Keys(h.deps)) {
		if err := h.deps[name].Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not ready",
				"dependency": name,
				"details":    err.Error(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) clearCache(c *gin.Context) {
	if err := h.cache.Clear(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// pathID parses the :id parameter, answering 400 when it is not a positive integer
func pathID(c *gin.Context, what string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + what + " ID",
		})
		return 0, false
	}
	return id, true
}

const requestIDHeader = "X-Request-ID"

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (h *Handler) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		h.logger.Info("Request handled",
			zap.String("request_id", c.GetString(requestIDHeader)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
