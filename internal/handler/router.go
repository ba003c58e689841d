package handler

import (
	"database/sql"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"campuseats/internal/database"
)

// NewRouter assembles the gin engine.
func NewRouter(db *sql.DB, orders *OrderHandler, payments *PaymentHandler, events *EventHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, database.Health(db))
	})

	api := r.Group("/api")
	{
		api.POST("/orders", RequireUser(), orders.Create)
		api.GET("/orders/:id", orders.Get)
		api.GET("/orders/:id/invoice", orders.GetInvoice)
		api.PUT("/orders/:id/status", RequireAdmin(), orders.UpdateStatus)

		api.POST("/payments/initiate", payments.Initiate)
		api.GET("/payments/status/:checkoutRequestId", payments.Status)
		api.POST("/payments/webhook/stripe", payments.StripeWebhook)
		api.POST("/payments/webhook/mpesa", payments.MpesaCallback)

		api.GET("/events/:userId", events.Stream)
	}

	return r
}
