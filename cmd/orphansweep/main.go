// Command orphansweep is an AWS Lambda that removes order items whose order
// was deleted without them.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jacentio/artcatalog/config"
	"github.com/jacentio/artcatalog/orders"
	"github.com/jacentio/artcatalog/store"
	"github.com/jacentio/artcatalog/sweep"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn, err := cfg.RDB.DataSourceName()
	if err != nil {
		logger.Error("invalid database settings", "error", err)
		os.Exit(1)
	}

	db, err := store.Open(context.Background(), cfg.RDB.Driver, dsn)
	if err != nil {
		logger.Error("failed to open database", "driver", cfg.RDB.Driver, "error", err)
		os.Exit(1)
	}

	svc := orders.NewService(
		store.New(db, logger),
		orders.Relationship{Schema: cfg.RDB.Schema},
		logger,
	)
	lambda.Start(sweep.NewHandler(svc, cfg.Sweep.Timeout, logger).HandleScheduledRepair)
}
