package api

import (
	"net/http"
	"strconv"
	"time"

	"vending-service/internal/models"
	"vending-service/internal/service"
	"vending-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	vendingService *service.VendingService
}

// NewHandler creates a new HTTP handler
func NewHandler(vendingService *service.VendingService) *Handler {
	return &Handler{
		vendingService: vendingService,
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
		v1.GET("/coins", h.getCoins)
		v1.POST("/coins/insert", h.insertCoin)
		v1.GET("/items", h.getItems)
		v1.POST("/orders/buy", h.buyOrder)
		v1.POST("/orders/cancel", h.cancelOrder)
	}
}

// InsertCoinRequest carries a coin dropped into the machine
type InsertCoinRequest struct {
	Type string `json:"type" binding:"required"`
}

// BuyOrderRequest identifies the item the customer wants
type BuyOrderRequest struct {
	ItemID int64 `json:"item_id" binding:"required"`
}

// CoinResponse is one machine coin row
type CoinResponse struct {
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
}

// ItemResponse is one catalog item
type ItemResponse struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
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

// getCoins returns the machine's coin stock
func (h *Handler) getCoins(c *gin.Context) {
	coins, err := h.vendingService.ListCoins(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list coins",
		})
		return
	}

	resp := make([]CoinResponse, 0, len(coins))
	for _, coin := range coins {
		resp = append(resp, CoinResponse{
			Type:     coin.Value.String(),
			Quantity: coin.Quantity,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// insertCoin drops one coin into the customer's buffer
func (h *Handler) insertCoin(c *gin.Context) {
	var req InsertCoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	d, err := models.ParseDenomination(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Unknown coin type",
			"details": err.Error(),
		})
		return
	}

	if err := h.vendingService.InsertCoin(c.Request.Context(), d); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Unable to insert coins",
		})
		return
	}

	c.Status(http.StatusOK)
}

// getItems returns a page of the catalog
func (h *Handler) getItems(c *gin.Context) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid skip"})
		return
	}
	take, err := strconv.Atoi(c.DefaultQuery("take", "10"))
	if err != nil || take <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid take"})
		return
	}

	items, err := h.vendingService.ListItems(c.Request.Context(), skip, take)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list items",
		})
		return
	}

	resp := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		price, _ := item.Price.Float64()
		resp = append(resp, ItemResponse{
			ID:       item.ID,
			Name:     item.Name,
			Price:    price,
			Quantity: item.Quantity,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// buyOrder attempts a purchase against the buffered coins. Business
// rejections come back as a 200 with succeeded=false; only internal faults
// are a 500.
func (h *Handler) buyOrder(c *gin.Context) {
	var req BuyOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, err := h.vendingService.FulfillOrder(c.Request.Context(), req.ItemID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to process order",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// cancelOrder refunds the buffered coins
func (h *Handler) cancelOrder(c *gin.Context) {
	result, err := h.vendingService.CancelOrder(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to cancel order",
		})
		return
	}

	c.JSON(http.StatusOK, result)
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
