package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"backoffice-service/internal/aggregate"
	"backoffice-service/internal/ledger"
	"backoffice-service/internal/models"
	"backoffice-service/internal/reconcile"
	"backoffice-service/internal/redisclient"
	"backoffice-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Handler contains HTTP handlers
type Handler struct {
	ledger         *ledger.Ledger
	aggregator     *aggregate.Aggregator
	reconciler     *reconcile.Reconciler
	redis          *redisclient.Client
	defaultStoreID string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	ledgerSvc *ledger.Ledger,
	aggregator *aggregate.Aggregator,
	reconciler *reconcile.Reconciler,
	redis *redisclient.Client,
	defaultStoreID string,
) *Handler {
	return &Handler{
		ledger:         ledgerSvc,
		aggregator:     aggregator,
		reconciler:     reconciler,
		redis:          redis,
		defaultStoreID: defaultStoreID,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/warehouse/stock-in", h.stockIn)
		v1.POST("/warehouse/stock-out", h.stockOut)
		v1.POST("/warehouse/products/:id/adjust", h.adjust)
		v1.GET("/warehouse/products", h.listProducts)
		v1.GET("/warehouse/products/:id", h.getProduct)
		v1.DELETE("/warehouse/products/:id", h.deleteProduct)
		v1.GET("/warehouse/categories", h.listCategories)
		v1.GET("/warehouse/transactions", h.listTransactions)
		v1.DELETE("/warehouse/transactions/:id", h.deleteTransaction)
		v1.GET("/warehouse/notifications", h.listNotifications)

		v1.GET("/orders", h.listOrders)
		v1.POST("/orders/retail", h.createRetailOrder)
		v1.POST("/orders/ecommerce", h.createEcommerceOrder)
		v1.POST("/orders/wholesale", h.createWholesaleOrder)
		v1.DELETE("/orders/wholesale/:id", h.deleteWholesaleOrder)
		v1.POST("/orders/wholesale/bulk-delete", h.bulkDeleteWholesaleOrders)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) stockIn(c *gin.Context) {
	var req ledger.StockInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	product, txn, err := h.ledger.StockIn(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"product": product, "transaction": txn})
}

type stockOutRequest struct {
	ProductID string          `json:"productId" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reason    string          `json:"reason"`
	Note      string          `json:"note,omitempty"`
}

func (h *Handler) stockOut(c *gin.Context) {
	var req stockOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	product, txn, err := h.ledger.StockOut(c.Request.Context(), req.ProductID, req.Quantity, req.Reason, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"product": product, "transaction": txn})
}

type adjustRequest struct {
	Fields ledger.AdjustFields `json:"fields" binding:"required"`
	Reason string              `json:"reason"`
	Note   string              `json:"note,omitempty"`
}

func (h *Handler) adjust(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	product, txn, err := h.ledger.Adjust(c.Request.Context(), c.Param("id"), req.Fields, req.Reason, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product, "transaction": txn})
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.ledger.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.ledger.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func (h *Handler) deleteProduct(c *gin.Context) {
	if err := h.ledger.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.ledger.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *Handler) listTransactions(c *gin.Context) {
	txns, err := h.ledger.ListTransactions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

func (h *Handler) deleteTransaction(c *gin.Context) {
	if err := h.ledger.DeleteTransaction(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) listNotifications(c *gin.Context) {
	notifications, err := h.redis.PeekLowStockNotifications(c.Request.Context(), 50)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (h *Handler) listOrders(c *gin.Context) {
	var filter aggregate.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters", "details": err.Error()})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	result, err := h.aggregator.Query(c.Request.Context(), h.activeStore(c), filter, page)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) createRetailOrder(c *gin.Context) {
	h.createOrder(c, h.reconciler.CreateRetailOrder)
}

func (h *Handler) createEcommerceOrder(c *gin.Context) {
	h.createOrder(c, h.reconciler.CreateEcommerceOrder)
}

func (h *Handler) createWholesaleOrder(c *gin.Context) {
	h.createOrder(c, h.reconciler.CreateWholesaleOrder)
}

func (h *Handler) createOrder(c *gin.Context, create func(ctx context.Context, storeID string, req *reconcile.OrderRequest) (*models.Order, error)) {
	var req reconcile.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := create(c.Request.Context(), h.activeStore(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": order})
}

func (h *Handler) deleteWholesaleOrder(c *gin.Context) {
	err := h.reconciler.DeleteWholesaleOrder(c.Request.Context(), h.activeStore(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type bulkDeleteRequest struct {
	OrderIDs []string `json:"orderIds" binding:"required,min=1"`
}

func (h *Handler) bulkDeleteWholesaleOrders(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	deleted, err := h.reconciler.DeleteWholesaleOrders(c.Request.Context(), h.activeStore(c), req.OrderIDs)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Bulk delete stopped on failure",
			"deleted": deleted,
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// activeStore resolves the acting store from the query, falling back to the
// configured default.
func (h *Handler) activeStore(c *gin.Context) string {
	if store := c.Query("store"); store != "" {
		return store
	}
	return h.defaultStoreID
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	var (
		validationErr   *models.ValidationError
		insufficientErr *models.InsufficientStockError
		notFoundErr     *models.NotFoundError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &insufficientErr):
		return http.StatusConflict
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
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
