package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/fleetshop-backend/internal/imports"
	"github.com/angelmondragon/fleetshop-backend/internal/parts"
	"github.com/angelmondragon/fleetshop-backend/pkg/config"
	"github.com/angelmondragon/fleetshop-backend/pkg/db"
	"github.com/angelmondragon/fleetshop-backend/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "import-parts"})

	_ = godotenv.Load()

	file := flag.String("file", "", "path to the parts CSV (use - for stdin)")
	dryRun := flag.Bool("dry-run", false, "validate rows without writing")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "missing -file")
		os.Exit(1)
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "import-parts",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"file":    *file,
		"dry_run": *dryRun,
	})

	var input io.Reader = os.Stdin
	if *file != "-" {
		f, err := os.Open(*file)
		requireResource(ctx, logg, "csv file", err)
		defer f.Close()
		input = f
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	result, err := imports.ImportParts(ctx, input, parts.NewRepository(dbClient.DB()), *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"parsed":   result.Parsed,
		"created":  result.Created,
		"rejected": len(result.Rejected),
	}), "parts import finished")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "write summary: %v\n", err)
		os.Exit(1)
	}
	if len(result.Rejected) > 0 {
		os.Exit(2)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
