// Package notify is the outbound notification seam. Delivery transport
// (SMS/email/push) lives outside this service; settlement only fires the
// notification and moves on.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"campuseats/internal/domain"
)

type Notifier interface {
	OrderStatusChanged(ctx context.Context, userID, orderID uuid.UUID, status domain.OrderStatus)
}

// LogNotifier is the default sink until a delivery service is attached.
type LogNotifier struct {
	Log *slog.Logger
}

func (n *LogNotifier) OrderStatusChanged(ctx context.Context, userID, orderID uuid.UUID, status domain.OrderStatus) {
	n.Log.InfoContext(ctx, "order status notification",
		"user_id", userID, "order_id", orderID, "status", status)
}
