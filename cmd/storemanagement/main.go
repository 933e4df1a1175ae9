package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/storemanagement/internal/catalog/config"
	"github.com/gartstein/storemanagement/internal/catalog/controller"
	"github.com/gartstein/storemanagement/internal/catalog/db"
	"github.com/gartstein/storemanagement/internal/catalog/events"
	"github.com/gartstein/storemanagement/internal/catalog/seed"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const usage = `usage: storemanagement [flags] <command> [args]

commands:
  migrate            create or update the catalog schema
  seed <file.yaml>   load companies, stores and products from a seed file
  list               print every company with its stores as JSON
  events             print catalog change events as they arrive

flags:
`

func main() {
	configPath := flag.String("config", envOr("STORE_CONFIG", "config.yaml"), "path to the YAML config file")
	envFile := flag.String("env", ".env", "optional .env file with overrides")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, flag.Arg(0), flag.Args()[1:]); err != nil {
		logger.Error("command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
		stop()
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, command string, args []string) error {
	if command == "events" {
		return runEvents(ctx, cfg, logger)
	}

	database, err := db.Open(cfg.Database.Connection(), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(database); err != nil {
			logger.Error("failed to close database", zap.Error(err))
		}
	}()

	switch command {
	case "migrate":
		if err := db.Migrate(database); err != nil {
			return err
		}
		logger.Info("schema migrated")
		return nil
	case "seed":
		if len(args) != 1 {
			return fmt.Errorf("seed expects exactly one file argument")
		}
		return runSeed(ctx, cfg, database, logger, args[0])
	case "list":
		return runList(ctx, database, logger)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func runSeed(ctx context.Context, cfg *config.Config, database *gorm.DB, logger *zap.Logger, path string) error {
	f, err := seed.LoadFile(path)
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}

	var producer controller.EventProducer
	if cfg.Kafka.Enabled() {
		p, err := events.NewProducer(cfg.Kafka.Brokers, logger, cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("failed to initialize Kafka producer: %w", err)
		}
		defer p.Close()
		producer = p
	}

	catalog := controller.NewCatalog(database, producer, logger)
	res, err := seed.NewSeeder(catalog, logger).Seed(ctx, f)
	if err != nil {
		return err
	}
	fmt.Printf("created %d, skipped %d\n", res.Created, res.Skipped)
	return nil
}

func runList(ctx context.Context, database *gorm.DB, logger *zap.Logger) error {
	session := controller.NewCatalog(database, nil, logger).Session()
	companies, err := session.Companies.GetAll(ctx)
	if err != nil {
		return err
	}
	for i := range companies {
		withStores, err := session.Companies.GetWithStores(ctx, companies[i].ID)
		if err != nil {
			return err
		}
		if withStores != nil {
			companies[i] = *withStores
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(companies)
}

func runEvents(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if !cfg.Kafka.Enabled() {
		return fmt.Errorf("no Kafka brokers configured")
	}
	consumer, err := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, logger)
	if err != nil {
		return err
	}
	defer consumer.Close()

	enc := json.NewEncoder(os.Stdout)
	return consumer.Run(ctx, func(_ context.Context, event events.Event) error {
		return enc.Encode(event)
	})
}

// initLogger builds a production logger, or a development one when asked.
func initLogger(cfg config.LogConfig) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
