package worker

import (
	"context"
	"log/slog"
	"time"

	"campuseats/internal/domain"
	"campuseats/internal/repo"
	"campuseats/internal/service"
)

const sweepBatchSize = 50

// ReconciliationWorker sweeps M-Pesa attempts that never received a callback
// and asks the rail for the authoritative result. STK prompts regularly die on
// the phone without Daraja ever calling back, so pending rows older than the
// cutoff are treated as drifted until the rail says otherwise.
type ReconciliationWorker struct {
	orders   repo.OrderRepo
	txns     repo.TransactionRepo
	payments *service.PaymentService
	interval time.Duration
	cutoff   time.Duration
	log      *slog.Logger
}

func NewReconciliationWorker(
	orders repo.OrderRepo,
	txns repo.TransactionRepo,
	payments *service.PaymentService,
	interval, cutoff time.Duration,
	log *slog.Logger,
) *ReconciliationWorker {
	return &ReconciliationWorker{
		orders:   orders,
		txns:     txns,
		payments: payments,
		interval: interval,
		cutoff:   cutoff,
		log:      log,
	}
}

func (w *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("reconciliation worker started",
		"interval", w.interval, "cutoff", w.cutoff)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				w.log.Error("reconciliation sweep failed", "error", err)
			}
		}
	}
}

func (w *ReconciliationWorker) sweep(ctx context.Context) error {
	stale, err := w.txns.FindPendingBefore(ctx, time.Now().Add(-w.cutoff), sweepBatchSize)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	w.log.Info("reconciling stale mpesa attempts", "count", len(stale))

	for _, txn := range stale {
		order, err := w.orders.FindByID(ctx, txn.OrderID)
		if err != nil {
			w.log.Error("load order for reconciliation",
				"order_id", txn.OrderID, "error", err)
			continue
		}
		if order == nil || order.PaymentStatus != domain.PaymentPending {
			continue
		}

		status, err := w.payments.Reconcile(ctx, order)
		if err != nil {
			w.log.Error("reconcile order", "order_id", order.ID, "error", err)
			continue
		}
		if status != domain.PaymentPending {
			w.log.Info("reconciled drifted order",
				"order_id", order.ID, "status", status)
		}
	}
	return nil
}
