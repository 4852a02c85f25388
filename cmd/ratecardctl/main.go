// Command ratecardctl is the operator's command line for rate card access requests.
// It talks to the same database as the API service.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/ratecard"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/ratecard/repo"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/pkg/utilities"
)

func main() {
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	open := func(ctx context.Context) (*ratecard.Service, func(), error) {
		db, err := database.ConnectX(database.ConfigFromEnv())
		if err != nil {
			return nil, nil, err
		}
		requests := repo.NewRequestRepo(db)
		if err := requests.EnsureTable(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		svc := ratecard.NewService(requests, ratecard.ConfigFromEnv(), ratecard.WithLogger(sugar))
		return svc, func() { db.Close() }, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(open, os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var ec cli.ExitCoder
		if errors.As(err, &ec) {
			os.Exit(ec.ExitCode())
		}
		os.Exit(1)
	}
}
