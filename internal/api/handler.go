package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fulfillment-service/internal/domain"
	"fulfillment-service/internal/models"
	"fulfillment-service/internal/service"
	"fulfillment-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Handler contains HTTP handlers
type Handler struct {
	orderService    *service.OrderService
	paymentService  *service.PaymentService
	deliveryService *service.DeliveryService
	catalogService  *service.CatalogService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orderService *service.OrderService,
	paymentService *service.PaymentService,
	deliveryService *service.DeliveryService,
	catalogService *service.CatalogService,
) *Handler {
	return &Handler{
		orderService:    orderService,
		paymentService:  paymentService,
		deliveryService: deliveryService,
		catalogService:  catalogService,
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
		v1.POST("/customers/:id/cart/items", h.addToCart)
		v1.DELETE("/customers/:id/cart/items/:productId", h.removeFromCart)
		v1.POST("/customers/:id/cart/promo", h.applyPromo)
		v1.GET("/customers/:id/cart", h.getCart)
		v1.POST("/customers/:id/orders", h.checkout)
		v1.GET("/customers/:id/orders", h.listCustomerOrders)

		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/place", h.placeOrder)
		v1.POST("/orders/:id/pay", h.payOrder)
		v1.POST("/orders/:id/cancel", h.cancelOrder)
		v1.GET("/orders/:id/payment", h.getPayment)
		v1.GET("/orders/:id/delivery", h.getOrderDelivery)

		v1.GET("/deliveries/:id", h.getDelivery)
		v1.POST("/deliveries/:id/ship", h.shipDelivery)
		v1.POST("/deliveries/:id/advance", h.advanceDelivery)
		v1.POST("/deliveries/:id/complete", h.completeDelivery)
		v1.GET("/routes/plan", h.planRoute)
		v1.POST("/couriers", h.registerCourier)

		v1.GET("/products", h.listProducts)
		v1.POST("/products", h.createProduct)
		v1.GET("/products/:id", h.getProduct)
		v1.GET("/products/:id/inventory", h.getInventory)
		v1.PATCH("/products/:id/discount", h.applyDiscount)
		v1.POST("/products/:id/restock", h.restock)
		v1.POST("/products/:id/reviews", h.leaveReview)
		v1.GET("/products/:id/reviews", h.getReviews)
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

// respondError maps service errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidPromo):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrAmountMismatch):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidPaymentState):
		status = http.StatusConflict
	case strings.Contains(err.Error(), "not found"):
		status = http.StatusNotFound
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

type addToCartRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

// addToCart stages a product in the customer's cart
func (h *Handler) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.orderService.AddToCart(c.Request.Context(), c.Param("id"), req.ProductID, req.Quantity); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// removeFromCart drops a product from the cart
func (h *Handler) removeFromCart(c *gin.Context) {
	if err := h.orderService.RemoveFromCart(c.Request.Context(), c.Param("id"), c.Param("productId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type applyPromoRequest struct {
	Code string `json:"code" binding:"required"`
}

// applyPromo attaches a promo code to the cart
func (h *Handler) applyPromo(c *gin.Context) {
	var req applyPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.orderService.ApplyPromo(c.Request.Context(), c.Param("id"), req.Code); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// getCart quotes the customer's cart
func (h *Handler) getCart(c *gin.Context) {
	view, err := h.orderService.GetCart(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// checkout converts the cart into an order
func (h *Handler) checkout(c *gin.Context) {
	req := &service.CheckoutRequest{
		CustomerID:     c.Param("id"),
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	}

	resp, err := h.orderService.Checkout(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// listCustomerOrders returns the customer's order history
func (h *Handler) listCustomerOrders(c *gin.Context) {
	orders, err := h.orderService.ListCustomerOrders(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	order, items, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"items": items,
	})
}

// placeOrder reserves stock and moves the order to PROCESSING
func (h *Handler) placeOrder(c *gin.Context) {
	if err := h.orderService.PlaceOrder(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": domain.OrderStatusProcessing})
}

// payOrder settles the order synchronously
func (h *Handler) payOrder(c *gin.Context) {
	var req service.PayOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	payment, err := h.paymentService.PayOrder(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		if payment != nil {
			// Declined attempt: report the failed payment alongside the error.
			c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error(), "payment": payment})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

type cancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

// cancelOrder cancels an order with compensation
func (h *Handler) cancelOrder(c *gin.Context) {
	var req cancelOrderRequest
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "customer_request"
	}

	if err := h.orderService.CancelOrder(c.Request.Context(), c.Param("id"), req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": domain.OrderStatusCancelled})
}

// getPayment returns the latest payment attempt for an order
func (h *Handler) getPayment(c *gin.Context) {
	payment, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// getOrderDelivery returns the delivery attached to an order
func (h *Handler) getOrderDelivery(c *gin.Context) {
	delivery, err := h.deliveryService.GetDeliveryForOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, delivery)
}

// getDelivery returns a delivery by ID
func (h *Handler) getDelivery(c *gin.Context) {
	delivery, err := h.deliveryService.GetDelivery(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, delivery)
}

type shipDeliveryRequest struct {
	CourierID string `json:"courier_id" binding:"required"`
}

// shipDelivery assigns a courier and ships the delivery
func (h *Handler) shipDelivery(c *gin.Context) {
	var req shipDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	delivery, err := h.deliveryService.ShipDelivery(c.Request.Context(), c.Param("id"), req.CourierID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, delivery)
}

// advanceDelivery moves a shipped delivery in transit
func (h *Handler) advanceDelivery(c *gin.Context) {
	if err := h.deliveryService.AdvanceDelivery(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": domain.DeliveryStatusInTransit})
}

// completeDelivery marks a delivery as delivered
func (h *Handler) completeDelivery(c *gin.Context) {
	if err := h.deliveryService.CompleteDelivery(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": domain.DeliveryStatusDelivered})
}

// planRoute plans a route over pending deliveries
func (h *Handler) planRoute(c *gin.Context) {
	plan, err := h.deliveryService.PlanRoute(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

type registerCourierRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone,omitempty"`
}

// registerCourier adds a courier to the roster
func (h *Handler) registerCourier(c *gin.Context) {
	var req registerCourierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	courier := &models.Courier{
		ID:    uuid.New().String(),
		Name:  req.Name,
		Phone: req.Phone,
	}
	if err := h.deliveryService.RegisterCourier(c.Request.Context(), courier); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, courier)
}

// listProducts lists the catalog
func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalogService.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// createProduct registers a product with opening stock
func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// getProduct returns a product by ID
func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalogService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// getInventory returns available and reserved counts
func (h *Handler) getInventory(c *gin.Context) {
	inv, err := h.catalogService.GetInventory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

type applyDiscountRequest struct {
	Discount decimal.Decimal `json:"discount" binding:"required"`
	AdminID  string          `json:"admin_id" binding:"required"`
}

// applyDiscount sets a flat discount on a product
func (h *Handler) applyDiscount(c *gin.Context) {
	var req applyDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.catalogService.ApplyDiscount(c.Request.Context(), c.Param("id"), req.AdminID, req.Discount); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type restockRequest struct {
	Quantity int    `json:"quantity" binding:"required"`
	AdminID  string `json:"admin_id" binding:"required"`
}

// restock adds stock to a product
func (h *Handler) restock(c *gin.Context) {
	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.catalogService.Restock(c.Request.Context(), c.Param("id"), req.AdminID, req.Quantity); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type leaveReviewRequest struct {
	CustomerID string `json:"customer_id" binding:"required"`
	Rating     int    `json:"rating" binding:"required"`
	Text       string `json:"text,omitempty"`
}

// leaveReview appends a review on a product
func (h *Handler) leaveReview(c *gin.Context) {
	var req leaveReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	review, err := h.catalogService.LeaveReview(c.Request.Context(), c.Param("id"), req.CustomerID, req.Rating, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// getReviews lists reviews for a product
func (h *Handler) getReviews(c *gin.Context) {
	reviews, err := h.catalogService.GetReviews(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
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
