package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexbotov/alqaseh/internal/config"
	"github.com/alexbotov/alqaseh/internal/database"
	"github.com/alexbotov/alqaseh/internal/emulator"
	"github.com/alexbotov/alqaseh/internal/logging"
	"github.com/alexbotov/alqaseh/pkg/alqaseh"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	check := flag.Bool("check", false, "create a test payment against the configured gateway and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		ServiceName: "alqaseh-emulator",
		Env:         cfg.AppEnv,
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync(logger)

	if *check {
		if err := checkGateway(cfg, logger); err != nil {
			logger.Error("gateway check failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	if err := serve(cfg, logger); err != nil {
		logger.Error("emulator stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

// checkGateway creates one payment with the configured client and logs the
// token and payment URL the gateway returned.
func checkGateway(cfg *config.Config, logger *zap.Logger) error {
	client := alqaseh.NewClient(cfg.Gateway.ClientConfig(logger))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Gateway.Timeout)
	defer cancel()

	resp, err := client.CreatePayment(ctx, &alqaseh.CreatePaymentRequest{
		Amount:          1000,
		Currency:        "IQD",
		OrderID:         fmt.Sprintf("check-%d", time.Now().Unix()),
		Description:     "Connectivity check",
		RedirectURL:     "https://example.com/return",
		TransactionType: alqaseh.TransactionRetail,
	})
	if err != nil {
		return err
	}

	logger.Info("gateway check succeeded",
		zap.String("base_url", client.BaseURL()),
		zap.String("payment_id", resp.PaymentID()),
		zap.String("payment_url", resp.PaymentURL()),
	)
	return nil
}

func serve(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	var store emulator.Store
	switch cfg.Emulator.Store {
	case "postgres":
		db, err := database.New(ctx, cfg.Emulator.DBDriver, cfg.Emulator.DSN)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			return err
		}
		store = emulator.NewPostgresStore(db)
		logger.Info("using postgres payment store")
	default:
		store = emulator.NewMemoryStore()
		logger.Info("using in-memory payment store")
	}

	handler := emulator.New(emulator.Config{
		APIKey:     cfg.Emulator.APIKey,
		MerchantID: cfg.Emulator.MerchantID,
		PublicURL:  cfg.Emulator.PublicURL,
		PaymentTTL: cfg.Emulator.TokenTTL,
	}, store, emulator.NewTokenService(cfg.Emulator.TokenSecret, cfg.Emulator.TokenTTL),
		emulator.NewHub(logger), logger)

	srv := &http.Server{
		Addr:         cfg.Emulator.Addr,
		Handler:      handler.SetupRouter(),
		ReadTimeout:  cfg.Emulator.ReadTimeout,
		WriteTimeout: cfg.Emulator.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("emulator listening",
			zap.String("addr", cfg.Emulator.Addr),
			zap.String("client_base_url", cfg.Emulator.PublicURL+"/v1"),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down emulator")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
