package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"campuseats/internal/domain"
	"campuseats/internal/service"
)

type PaymentHandler struct {
	orders   *service.OrderService
	payments *service.PaymentService
	log      *slog.Logger
}

func NewPaymentHandler(orders *service.OrderService, payments *service.PaymentService, log *slog.Logger) *PaymentHandler {
	return &PaymentHandler{orders: orders, payments: payments, log: log}
}

type initiateRequest struct {
	OrderID       string `json:"orderId" binding:"required,uuid"`
	PaymentMethod string `json:"paymentMethod" binding:"required,oneof=stripe mpesa"`
	PhoneNumber   string `json:"phoneNumber"`
}

func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	res, err := h.orders.Initiate(c.Request.Context(), orderID,
		domain.PaymentMethod(req.PaymentMethod), req.PhoneNumber)
	if err != nil {
		status, msg := respondError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, paymentBody(res))
}

// Status serves the client poll loop. Reads are idempotent; clients bound
// their own retries and fall back to manual confirmation.
func (h *PaymentHandler) Status(c *gin.Context) {
	checkoutRequestID := c.Param("checkoutRequestId")

	status, err := h.payments.Status(c.Request.Context(), checkoutRequestID)
	if err != nil {
		code, msg := respondError(err)
		c.JSON(code, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":            status,
		"checkoutRequestId": checkoutRequestID,
	})
}

// StripeWebhook rejects unverifiable payloads with 400 before touching any
// order state.
func (h *PaymentHandler) StripeWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}

	if err := h.payments.HandleStripeWebhook(c.Request.Context(), payload,
		c.GetHeader("Stripe-Signature")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "webhook rejected"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// MpesaCallback always acknowledges: Daraja retries on anything but success
// and its retry storms are worse than a dropped mismatch, which is logged
// inside the service.
func (h *PaymentHandler) MpesaCallback(c *gin.Context) {
	payload, err := c.GetRawData()
	if err == nil {
		err = h.payments.HandleMpesaCallback(c.Request.Context(), payload)
	}
	if err != nil {
		h.log.Error("mpesa callback processing failed", "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}
