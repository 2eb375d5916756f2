package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where `-cmd create` writes new files.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Commands accepted by Apply.
const (
	CmdUp      = "up"
	CmdUpByOne = "up-by-one"
	CmdDown    = "down"
	CmdRedo    = "redo"
	CmdReset   = "reset"
	CmdVersion = "version"
)

// Source picks the migration files: the copy compiled into the binary when
// dir is empty, the directory on disk otherwise.
func Source(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, "migrations")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("migrations dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations dir %q is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

func provider(db *sql.DB, fsys fs.FS) (*goose.Provider, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	p, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return p, nil
}

// Apply runs command against the schema. target is only read by CmdVersion,
// which migrates up or down until the database sits at that version.
func Apply(ctx context.Context, db *sql.DB, fsys fs.FS, command string, target int64) ([]*goose.MigrationResult, error) {
	p, err := provider(db, fsys)
	if err != nil {
		return nil, err
	}

	switch command {
	case CmdUp:
		return p.Up(ctx)
	case CmdUpByOne:
		return one(p.UpByOne(ctx))
	case CmdDown:
		return one(p.Down(ctx))
	case CmdRedo:
		down, err := p.Down(ctx)
		if err != nil {
			return nil, err
		}
		up, err := p.UpByOne(ctx)
		return []*goose.MigrationResult{down, up}, err
	case CmdReset:
		return p.DownTo(ctx, 0)
	case CmdVersion:
		current, err := p.GetDBVersion(ctx)
		if err != nil {
			return nil, fmt.Errorf("read schema version: %w", err)
		}
		switch {
		case target == current:
			return nil, nil
		case target > current:
			return p.UpTo(ctx, target)
		default:
			return p.DownTo(ctx, target)
		}
	default:
		return nil, fmt.Errorf("unknown migrate command %q", command)
	}
}

// Status lists every known migration with its applied state.
func Status(ctx context.Context, db *sql.DB, fsys fs.FS) ([]*goose.MigrationStatus, error) {
	p, err := provider(db, fsys)
	if err != nil {
		return nil, err
	}
	return p.Status(ctx)
}

// ParseVersion reads a YYYYMMDDHHMMSS migration version.
func ParseVersion(raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || len(raw) != 14 {
		return 0, fmt.Errorf("invalid version %q, expected YYYYMMDDHHMMSS", raw)
	}
	return v, nil
}

func one(r *goose.MigrationResult, err error) ([]*goose.MigrationResult, error) {
	if r == nil {
		return nil, err
	}
	return []*goose.MigrationResult{r}, err
}
