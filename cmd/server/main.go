package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campuseats/internal/config"
	"campuseats/internal/database"
	"campuseats/internal/gateway"
	"campuseats/internal/handler"
	"campuseats/internal/notify"
	"campuseats/internal/realtime"
	"campuseats/internal/repo"
	"campuseats/internal/service"
	"campuseats/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.DB)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Error("schema migration failed", "error", err)
		os.Exit(1)
	}

	orderRepo := repo.NewOrderRepo(db)
	invoiceRepo := repo.NewInvoiceRepo(db)
	txnRepo := repo.NewTransactionRepo(db)
	menuRepo := repo.NewMenuRepo(db)
	directoryRepo := repo.NewDirectoryRepo(db)

	card := gateway.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret, "kes")
	mobile := gateway.NewMpesaGateway(gateway.MpesaConfig{
		BaseURL:     cfg.MpesaBaseURL,
		ConsumerKey: cfg.MpesaConsumerKey,
		Secret:      cfg.MpesaSecret,
		Shortcode:   cfg.MpesaShortcode,
		Passkey:     cfg.MpesaPasskey,
		CallbackURL: cfg.MpesaCallbackURL,
	})

	hub := realtime.NewHub()
	notifier := &notify.LogNotifier{Log: log}

	invoiceSvc := service.NewInvoiceService(invoiceRepo, orderRepo, directoryRepo, log)
	orderSvc := service.NewOrderService(orderRepo, menuRepo, txnRepo, card, mobile, log)
	paymentSvc := service.NewPaymentService(orderRepo, txnRepo, card, mobile, hub, notifier, log)
	statusSvc := service.NewStatusService(orderRepo, invoiceSvc, hub, notifier, log)

	sweeper := worker.NewReconciliationWorker(orderRepo, txnRepo, paymentSvc,
		cfg.ReconcileInterval, cfg.ReconcileAfter, log)
	go sweeper.Run(ctx)

	router := handler.NewRouter(db,
		handler.NewOrderHandler(orderSvc, statusSvc, invoiceSvc),
		handler.NewPaymentHandler(orderSvc, paymentSvc, log),
		handler.NewEventHandler(hub),
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
