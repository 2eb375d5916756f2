package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/storefront-api/pkg/app"
	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/migrate"
)

const usage = "up|up-by-one|down|redo|reset|status|version|create|validate"

func main() {
	_ = godotenv.Load()

	cmd := flag.String("cmd", migrate.CmdUp, "migration command: "+usage)
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target YYYYMMDDHHMMSS for -cmd=version")
	flag.Parse()

	if err := run(*cmd, *dir, *name, *version); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", *cmd, err)
		os.Exit(1)
	}
}

func run(cmd, dir, name, version string) error {
	// Offline commands work on files only and need no config.
	switch cmd {
	case "create":
		if name == "" {
			return errors.New("-name is required")
		}
		target := dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, name)
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	case "validate":
		fsys, err := migrate.Source(dir)
		if err != nil {
			return err
		}
		if err := migrate.ValidateFS(fsys); err != nil {
			return err
		}
		fmt.Println("migrations ok")
		return nil
	}

	var target int64
	if cmd == migrate.CmdVersion {
		v, err := migrate.ParseVersion(version)
		if err != nil {
			return err
		}
		target = v
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DB.IsSQLite() {
		return errors.New("goose migrations target postgres; sqlite databases are auto-migrated by the api")
	}
	logg := app.NewLogger("migrate", cfg)
	ctx := logg.WithField(context.Background(), "cmd", cmd)

	fsys, err := migrate.Source(dir)
	if err != nil {
		return err
	}
	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer client.Close()
	sqlDB, err := client.SQL()
	if err != nil {
		return err
	}

	if cmd == "status" {
		statuses, err := migrate.Status(ctx, sqlDB, fsys)
		if err != nil {
			return err
		}
		printStatus(os.Stdout, statuses)
		return nil
	}

	results, err := migrate.Apply(ctx, sqlDB, fsys, cmd, target)
	printResults(os.Stdout, results)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", len(results)), "migrations finished")
	return nil
}

func printResults(w io.Writer, results []*goose.MigrationResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "schema already at target")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		outcome := "ok"
		if r.Error != nil {
			outcome = r.Error.Error()
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", r.Direction, r.Source.Version, r.Source.Path, r.Duration.Round(time.Millisecond), outcome)
	}
	_ = tw.Flush()
}

func printStatus(w io.Writer, statuses []*goose.MigrationStatus) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, s := range statuses {
		applied := "-"
		if !s.AppliedAt.IsZero() {
			applied = s.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
	}
	_ = tw.Flush()
}
