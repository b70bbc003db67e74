package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/fleetshop-backend/pkg/config"
	"github.com/angelmondragon/fleetshop-backend/pkg/db"
	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	"github.com/angelmondragon/fleetshop-backend/pkg/logger"
	"github.com/angelmondragon/fleetshop-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	dir := flag.String("dir", "", "migrations directory on disk; empty uses the embedded set (create/validate default to "+migrate.DefaultDir+")")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target YYYYMMDDHHMMSS for -cmd=version")
	flag.Parse()

	// create and validate work on source files and need no config.
	switch *cmd {
	case "create":
		if *name == "" {
			fail("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(orDefault(*dir), *name)
		if err != nil {
			fail("create migration: %v", err)
		}
		fmt.Println("created", path)
		return
	case "validate":
		if err := migrate.ValidateDir(orDefault(*dir)); err != nil {
			fail("invalid migrations:\n%v", err)
		}
		fmt.Println("migrations valid")
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fail("config: %v", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "migrate.db_unavailable", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := run(ctx, logg, dbClient, cfg.DB.Driver, *cmd, *dir, *version); err != nil {
		logg.Error(ctx, "migrate.failed", err)
		dbClient.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger, client *db.Client, driver, cmd, dir, version string) error {
	if driver == db.DriverSQLite {
		if cmd != "up" {
			return fmt.Errorf("sqlite supports only -cmd=up, got %q", cmd)
		}
		return client.DB().WithContext(ctx).AutoMigrate(models.All()...)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return err
	}
	fsys, err := migrate.Source(dir)
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, fsys, logg)
	if err != nil {
		return err
	}

	switch cmd {
	case "up":
		return runner.Up(ctx)
	case "down":
		return runner.Down(ctx)
	case "version":
		if version == "" {
			return fmt.Errorf("missing -version")
		}
		return runner.To(ctx, version)
	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
		for _, s := range statuses {
			applied := "-"
			if !s.AppliedAt.IsZero() {
				applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
		}
		return tw.Flush()
	}
	return fmt.Errorf("unknown -cmd %q", cmd)
}

func orDefault(dir string) string {
	if dir == "" {
		return migrate.DefaultDir
	}
	return dir
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
