package api

import (
	"net/http"
	"strconv"
	"time"

	"dorbot/internal/bot"
	"dorbot/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	dispatcher *bot.Dispatcher
}

// NewHandler creates a new HTTP handler
func NewHandler(dispatcher *bot.Dispatcher) *Handler {
	return &Handler{
		dispatcher: dispatcher,
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
		v1.POST("/webhook/message", h.inboundMessage)
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
		"status":       "ready",
		"active_flows": h.dispatcher.States().Len(),
		"time":         time.Now().Unix(),
	})
}

// inboundMessageRequest is one message delivered by the chat provider.
type inboundMessageRequest struct {
	Sender string `json:"sender" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

// inboundMessage accepts a webhook delivery and hands it to the
// dispatcher. Replies go out through the messenger, not this response.
func (h *Handler) inboundMessage(c *gin.Context) {
	var req inboundMessageRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	sender := bot.NormalizeNumber(req.Sender)
	if sender == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid sender number",
		})
		return
	}

	h.dispatcher.HandleMessage(c.Request.Context(), sender, req.Text)
	c.JSON(http.StatusAccepted, gin.H{
		"status": "accepted",
	})
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
