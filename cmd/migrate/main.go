package main

import (
	"context"
	"fmt"
	"os"

	"fire_bridge/internal/modules/postgres"
	"fire_bridge/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Standalone migration runner for environments where the service user has
// no DDL rights: ops run this with elevated credentials, the service then
// starts with migrations already applied.

func resolveDSN() (string, error) {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		return dsn, nil
	}

	configFileName := os.Getenv("CONFIG_FILE")
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}

	viper.SetConfigFile("configs/" + configFileName)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return "", errors.Wrap(err, "read config")
	}

	dsn := viper.GetString("db_dsn")
	if dsn == "" {
		return "", errors.New("has no db_dsn in config and DATABASE_DSN is empty")
	}
	return dsn, nil
}

func run() error {
	dsn, err := resolveDSN()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return errors.Wrap(err, "ping")
	}

	if err := postgres.Migrate(ctx, pool); err != nil {
		return errors.Wrap(err, "migrate")
	}
	return nil
}

func main() {
	logger.Init("fire_bridge_migrate")

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("done")
}
