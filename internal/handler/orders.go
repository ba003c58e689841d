package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"campuseats/internal/domain"
	"campuseats/internal/gateway"
	"campuseats/internal/service"
)

type OrderHandler struct {
	orders   *service.OrderService
	status   *service.StatusService
	invoices *service.InvoiceService
}

func NewOrderHandler(orders *service.OrderService, status *service.StatusService, invoices *service.InvoiceService) *OrderHandler {
	return &OrderHandler{orders: orders, status: status, invoices: invoices}
}

type createOrderRequest struct {
	Items []struct {
		MenuID   string `json:"menuId" binding:"required,uuid"`
		Quantity int    `json:"quantity" binding:"required,min=1"`
	} `json:"items" binding:"required,min=1,dive"`
	Total         float64 `json:"total" binding:"required,gt=0"`
	PaymentMethod string  `json:"paymentMethod" binding:"required,oneof=stripe mpesa"`
	PhoneNumber   string  `json:"phoneNumber"`
}

func paymentBody(res *gateway.InitiationResult) gin.H {
	body := gin.H{}
	if res.ClientSecret != "" {
		body["clientSecret"] = res.ClientSecret
	}
	if res.CheckoutRequestID != "" {
		body["checkoutRequestId"] = res.CheckoutRequestID
		body["responseCode"] = res.ResponseCode
	}
	if res.CustomerMessage != "" {
		body["message"] = res.CustomerMessage
	}
	return body
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := service.CreateOrderInput{
		UserID:        userID(c),
		Total:         decimal.NewFromFloat(req.Total),
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		PhoneNumber:   req.PhoneNumber,
	}
	for _, it := range req.Items {
		id, err := uuid.Parse(it.MenuID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid menu item id"})
			return
		}
		in.Items = append(in.Items, service.CartItem{MenuItemID: id, Quantity: it.Quantity})
	}

	res, err := h.orders.Create(c.Request.Context(), in)
	if err != nil {
		status, msg := respondError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	body := gin.H{
		"orderId": res.Order.ID,
		"status":  res.Order.Status,
		"total":   res.Order.Total,
	}
	if res.Payment != nil {
		body["payment"] = paymentBody(res.Payment)
	} else if res.InitiationErr != nil {
		body["payment"] = gin.H{
			"message": "payment initiation failed, retry via POST /api/payments/initiate",
		}
	}
	c.JSON(http.StatusCreated, body)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, items, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		status, msg := respondError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	lines := make([]gin.H, 0, len(items))
	for _, it := range items {
		lines = append(lines, gin.H{
			"menuItemId": it.MenuItemID,
			"name":       it.Name,
			"quantity":   it.Quantity,
			"unitPrice":  it.UnitPrice,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"orderId":       order.ID,
		"status":        order.Status,
		"paymentStatus": order.PaymentStatus,
		"paymentMethod": order.PaymentMethod,
		"total":         order.Total,
		"items":         lines,
		"createdAt":     order.CreatedAt,
		"updatedAt":     order.UpdatedAt,
	})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=confirmed preparing ready delivered cancelled"`
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update, err := h.status.Transition(c.Request.Context(),
		adminID(c), adminCafeteria(c), id, domain.OrderStatus(req.Status))
	if err != nil {
		status, msg := respondError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	body := gin.H{
		"message":          "order status updated",
		"status":           update.Order.Status,
		"invoiceGenerated": update.InvoiceGenerated,
	}
	if update.Invoice != nil {
		body["invoice"] = gin.H{
			"number":  update.Invoice.Number,
			"total":   update.Invoice.Total,
			"dueDate": update.Invoice.DueDate,
		}
	}
	c.JSON(http.StatusOK, body)
}

func (h *OrderHandler) GetInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	inv, err := h.invoices.FindByOrder(c.Request.Context(), id)
	if err != nil {
		status, msg := respondError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"number":     inv.Number,
		"orderId":    inv.OrderID,
		"clientName": inv.ClientName,
		"items":      inv.Items,
		"subtotal":   inv.Subtotal,
		"taxAmount":  inv.TaxAmount,
		"discount":   inv.Discount,
		"total":      inv.Total,
		"status":     inv.Status,
		"dueDate":    inv.DueDate,
		"notes":      inv.Notes,
		"createdAt":  inv.CreatedAt,
	})
}
