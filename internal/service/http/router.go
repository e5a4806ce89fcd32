// Package httpapi — REST API сервиса заказов на gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/service/dto"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
)

// OrderService — операции, доступные через REST.
type OrderService interface {
	CreateCustomer(ctx context.Context, name, email string) (domain.Customer, error)
	CreateProduct(ctx context.Context, name string, price decimal.Decimal, quantity int32) (domain.Product, error)
	CreateOrder(ctx context.Context, req orders.CreateOrderRequest) (domain.Order, error)
	FindOrder(ctx context.Context, id string) (domain.Order, error)
}

// Options настраивает роутер.
type Options struct {
	// AllowedOrigins — список источников для CORS; пустой список или "*" разрешает все.
	AllowedOrigins []string
}

type handler struct {
	svc    OrderService
	logger *log.Entry
}

// NewRouter собирает gin.Engine с маршрутами /customers, /products и /orders.
func NewRouter(svc OrderService, logger *log.Entry, opts Options) *gin.Engine {
	if logger == nil {
		logger = log.New().WithField("component", "http")
	}
	logger = logger.WithField("layer", "http")

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger), cors.New(corsConfig(opts.AllowedOrigins)))

	h := &handler{svc: svc, logger: logger}
	router.POST("/customers", h.createCustomer)
	router.POST("/products", h.createProduct)
	router.POST("/orders", h.createOrder)
	router.GET("/orders/:id", h.getOrder)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	cfg.MaxAge = 12 * time.Hour

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// requestLogger пишет строку лога на каждый запрос.
func requestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(log.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("http request failed")
			return
		}
		entry.Debug("http request")
	}
}

func (h *handler) createCustomer(c *gin.Context) {
	var req dto.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	customer, err := h.svc.CreateCustomer(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromCustomer(customer))
}

func (h *handler) createProduct(c *gin.Context) {
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	product, err := h.svc.CreateProduct(c.Request.Context(), req.Name, req.Price, req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromProduct(product))
}

func (h *handler) createOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.svc.CreateOrder(c.Request.Context(), req.ToService())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromOrder(order))
}

func (h *handler) getOrder(c *gin.Context) {
	order, err := h.svc.FindOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromOrder(order))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.Error{
		Status:  "error",
		Message: "malformed request body: " + err.Error(),
		Kind:    domain.Kind(domain.ErrInvalidRequest),
	})
}

// writeError отдаёт 400 для бизнес-ошибок, 404 для неизвестного заказа и 500 для остального.
func (h *handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, dto.Error{Status: "error", Message: err.Error(), Kind: domain.Kind(err)})
	case domain.IsBusinessError(err):
		c.JSON(http.StatusBadRequest, dto.Error{Status: "error", Message: err.Error(), Kind: domain.Kind(err)})
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, dto.Error{Status: "error", Message: "internal server error"})
	}
}
