package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/operator"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/ratecard"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/ratecard/repo"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-ratecard-go")

	// init db
	dbCfg := database.ConfigFromEnv()
	db, err := database.ConnectX(dbCfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	requests := repo.NewRequestRepo(db)
	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 10*time.Second)
	if err := requests.EnsureTable(setupCtx); err != nil {
		cancelSetup()
		sugar.Fatalf("ensure rate_card_requests: %v", err)
	}
	cancelSetup()

	rcCfg := ratecard.ConfigFromEnv()
	doc, err := ratecard.LoadDocument(rcCfg.DocumentPath)
	if err != nil {
		sugar.Fatalf("load rate card document: %v", err)
	}
	if doc == nil {
		sugar.Warn("RATE_CARD_DOCUMENT not set; redemption returns the greeting only")
	}

	m := metrics.NewWithProcessCollectors()
	svc := ratecard.NewService(requests, rcCfg, ratecard.WithLogger(sugar), ratecard.WithMetrics(m))

	opSvc := operator.NewService(operator.ConfigFromEnv(), nil, nil)

	handler := router.RegisterRoutes(sugar, router.Deps{
		RateCard:       ratecard.NewHandler(svc, doc, sugar),
		Operator:       operator.NewHandler(opSvc, sugar),
		Authorizer:     opSvc,
		Metrics:        m,
		DB:             db,
		AllowedOrigins: router.AllowedOriginsFromEnv(),
	})

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("service is running", "addr", addr, "driver", dbCfg.Driver, "token_window", rcCfg.TokenWindow.String())

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
