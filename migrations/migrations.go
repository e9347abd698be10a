// Package migrations embeds the SQL schema and applies it in version order.
package migrations

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/propertyhub/propertyhub/internal/platform/db"
)

//go:embed *.sql
var files embed.FS

const (
	upMarker   = "-- +up"
	downMarker = "-- +down"
)

// Migration is one versioned schema change.
type Migration struct {
	Version string
	Name    string
	Up      string
	Down    string
}

// Record is an applied migration.
type Record struct {
	Version   string
	Name      string
	AppliedAt time.Time
}

// Load returns the embedded migrations sorted by version.
func Load() ([]Migration, error) {
	return load(files)
}

func load(fsys fs.FS) ([]Migration, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	out := make([]Migration, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("migrations: read %s: %w", name, err)
		}
		m, err := parse(name, string(raw))
		if err != nil {
			return nil, err
		}
		if seen[m.Version] {
			return nil, fmt.Errorf("migrations: duplicate version %s", m.Version)
		}
		seen[m.Version] = true
		out = append(out, m)
	}
	return out, nil
}

// parse splits a file named <version>_<name>.sql into its up and down sections.
func parse(filename, body string) (Migration, error) {
	base := strings.TrimSuffix(filename, ".sql")
	version, name, ok := strings.Cut(base, "_")
	if !ok || version == "" || name == "" {
		return Migration{}, fmt.Errorf("migrations: %s: expected <version>_<name>.sql", filename)
	}
	upAt := strings.Index(body, upMarker)
	if upAt < 0 {
		return Migration{}, fmt.Errorf("migrations: %s: missing %q section", filename, upMarker)
	}
	rest := body[upAt+len(upMarker):]
	up, down := rest, ""
	if downAt := strings.Index(rest, downMarker); downAt >= 0 {
		up, down = rest[:downAt], rest[downAt+len(downMarker):]
	}
	up, down = strings.TrimSpace(up), strings.TrimSpace(down)
	if up == "" {
		return Migration{}, fmt.Errorf("migrations: %s: empty %q section", filename, upMarker)
	}
	return Migration{Version: version, Name: name, Up: up, Down: down}, nil
}

// Pending returns the migrations not present in applied, in order.
func Pending(all []Migration, applied []Record) []Migration {
	done := make(map[string]bool, len(applied))
	for _, r := range applied {
		done[r.Version] = true
	}
	var out []Migration
	for _, m := range all {
		if !done[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

// Migrator applies migrations against PostgreSQL, one transaction per file.
type Migrator struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewMigrator builds Migrator instance.
func NewMigrator(pool *pgxpool.Pool) *Migrator {
	return &Migrator{pool: pool, now: time.Now}
}

const createTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL
	)`

// Applied lists recorded migrations oldest first.
func (m *Migrator) Applied(ctx context.Context) ([]Record, error) {
	if _, err := m.pool.Exec(ctx, createTable); err != nil {
		return nil, fmt.Errorf("migrations: ensure table: %w", err)
	}
	rows, err := m.pool.Query(ctx, `SELECT version, name, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var r Record
		err := row.Scan(&r.Version, &r.Name, &r.AppliedAt)
		return r, err
	})
}

// Up applies every pending migration and returns what ran.
func (m *Migrator) Up(ctx context.Context) ([]Migration, error) {
	all, err := Load()
	if err != nil {
		return nil, err
	}
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	pending := Pending(all, applied)
	for _, mig := range pending {
		err := db.WithTx(ctx, m.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.Up); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name, applied_at) VALUES ($1, $2, $3)`,
				mig.Version, mig.Name, m.now().UTC())
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("migrations: apply %s_%s: %w", mig.Version, mig.Name, err)
		}
	}
	return pending, nil
}

// ErrNothingToRollBack is returned by Down on an empty history.
var ErrNothingToRollBack = errors.New("migrations: nothing to roll back")

// Down reverts the most recently applied migration.
func (m *Migrator) Down(ctx context.Context) (Migration, error) {
	all, err := Load()
	if err != nil {
		return Migration{}, err
	}
	applied, err := m.Applied(ctx)
	if err != nil {
		return Migration{}, err
	}
	if len(applied) == 0 {
		return Migration{}, ErrNothingToRollBack
	}
	last := applied[len(applied)-1]
	var target *Migration
	for i := range all {
		if all[i].Version == last.Version {
			target = &all[i]
			break
		}
	}
	if target == nil || target.Down == "" {
		return Migration{}, fmt.Errorf("migrations: no down section for %s", last.Version)
	}
	err = db.WithTx(ctx, m.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, target.Down); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, target.Version)
		return err
	})
	if err != nil {
		return Migration{}, fmt.Errorf("migrations: revert %s_%s: %w", target.Version, target.Name, err)
	}
	return *target, nil
}
