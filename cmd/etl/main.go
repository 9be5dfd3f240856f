package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/raaihank/fieldmask/internal/config"
	"github.com/raaihank/fieldmask/internal/etl"
	"github.com/raaihank/fieldmask/internal/keystore"
	"github.com/raaihank/fieldmask/internal/logger"
	"github.com/raaihank/fieldmask/internal/masking"
	"github.com/raaihank/fieldmask/internal/policy"
	"github.com/raaihank/fieldmask/internal/strategy"
	"github.com/raaihank/fieldmask/internal/vault"
)

func main() {
	var (
		configPath = flag.String("config", "", "Configuration file path")
		inputFile  = flag.String("input", "", "Input dataset file (CSV, Parquet, or JSON lines)")
		outputFile = flag.String("output", "", "Output file path (default: <input>.masked.*)")
		entity     = flag.String("entity", "", "Entity name the records belong to")
		template   = flag.String("template", "", "Built-in policy template to use (overrides config)")
		policyFile = flag.String("policy", "", "Policy YAML file to use (overrides config)")
		batchSize  = flag.Int("batch-size", 1000, "Batch size for processing")
		workers    = flag.Int("workers", 4, "Number of worker goroutines")
		vaults     = flag.String("init-vaults", "", "Comma-separated vault namespaces to initialize before the run")
		genKeys    = flag.String("generate-keys", "", "Comma-separated key IDs to generate before the run")
	)
	flag.Parse()

	if *inputFile == "" || *entity == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s --input dataset.csv --entity Contact [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input contacts.csv --entity Contact --template pii-basic\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input claims.parquet --entity Claim --template hipaa --init-vaults hipaa-clinical\n", os.Args[0])
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *template != "" {
		cfg.Masking.PolicyTemplate = *template
		cfg.Masking.PolicyFile = ""
	}
	if *policyFile != "" {
		cfg.Masking.PolicyFile = *policyFile
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info("Shutdown signal received, aborting run")
		cancel()
	}()

	// Key store and vault for strategies that need them.
	keys := keystore.NewMemoryKeyStore()
	for _, id := range splitList(*genKeys) {
		if _, err := keys.GenerateKey(id); err != nil {
			log.Fatal("Failed to generate key", zap.String("key_id", id), zap.Error(err))
		}
		log.Info("Key generated", zap.String("key_id", id))
	}

	tokenVault, err := newVault(cfg, log)
	if err != nil {
		log.Fatal("Failed to create token vault", zap.Error(err))
	}
	for _, ns := range splitList(*vaults) {
		if err := tokenVault.Init(ctx, ns); err != nil {
			log.Fatal("Failed to initialize vault namespace", zap.String("namespace", ns), zap.Error(err))
		}
		log.Info("Vault namespace initialized", zap.String("namespace", ns))
	}

	applier := strategy.NewApplier(keys, tokenVault, log.WithComponent("strategy").Logger)

	// Load policy and build the engine.
	var p *policy.MaskingPolicy
	if cfg.Masking.PolicyFile != "" {
		p, err = policy.LoadFile(cfg.Masking.PolicyFile)
	} else {
		p, err = policy.Template(cfg.Masking.PolicyTemplate)
	}
	if err != nil {
		log.Fatal("Failed to load policy", zap.Error(err))
	}

	engine, err := masking.NewEngine(p, applier, log.WithComponent("masking").Logger)
	if err != nil {
		log.Fatal("Failed to build masking engine", zap.Error(err))
	}

	pipeline := etl.NewPipeline(engine, nil, &etl.Config{
		Entity:      *entity,
		BatchSize:   *batchSize,
		WorkerCount: *workers,
		OutputPath:  *outputFile,
	}, log.WithComponent("etl").Logger)

	result, err := pipeline.ProcessFile(ctx, *inputFile)
	if err != nil {
		log.Fatal("Masking run failed", zap.Error(err))
	}

	fmt.Printf("Masked %d records (%d fields) -> %s in %s\n",
		result.ProcessedOK, result.MaskedFieldCount, result.OutputPath, result.Duration)
}

func newVault(cfg *config.Config, log *logger.Logger) (vault.TokenVault, error) {
	switch cfg.Vault.Backend {
	case "redis":
		return vault.NewRedisVault(&cfg.Vault.Redis, log.WithComponent("vault").Logger)
	case "postgres":
		return vault.NewPostgresVault(&cfg.Vault.Postgres, log.WithComponent("vault").Logger)
	default:
		return vault.NewMemoryVault(), nil
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
