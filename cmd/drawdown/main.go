package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/app"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/config"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/estoque-drawdown/backend-go/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
)

type ctxKey string

const appKey ctxKey = "app"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Database connection string for the audit log (optional)",
		EnvVars: []string{"DATABASE_URL"},
	}
}

// openDB opens the audit database through the pgx driver; nil when no url is given.
func openDB(c *cli.Context) (*postgres.DB, error) {
	url := c.String("db-url")
	if url == "" {
		return nil, nil
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(c.Context); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return postgres.Wrap(sqlx.NewDb(db, "pgx")), nil
}

func initApp(c *cli.Context) error {
	cfg := config.Load()
	logger.Setup(c.String("log-level"), cfg.Log.Format)

	db, err := openDB(c)
	if err != nil {
		return err
	}

	application, err := app.New(c.Context, cfg, app.Options{DB: db})
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return err
	}

	c.Context = context.WithValue(c.Context, appKey, application)
	return nil
}

func closeApp(c *cli.Context) error {
	if a, ok := c.Context.Value(appKey).(*app.App); ok && a != nil {
		a.Close()
	}
	return nil
}

func appFrom(c *cli.Context) *app.App {
	return c.Context.Value(appKey).(*app.App)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:  "drawdown",
		Usage: "Reconcile sales files against the SKU catalog and draw stock down",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			catalogCommand(),
			previewCommand(),
			submitCommand(),
			historyCommand(),
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("drawdown failed")
		stop()
		os.Exit(1)
	}
}
