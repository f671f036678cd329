// Package migrations embeds the SQL schema of both storage backends and
// orders it into versioned steps.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Migration is one numbered schema step, e.g. 001_initial.sql.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Postgres returns the server schema.
func Postgres() ([]Migration, error) {
	return load("postgres")
}

// SQLite returns the CLI local-state schema.
func SQLite() ([]Migration, error) {
	return load("sqlite")
}

func load(dir string) ([]Migration, error) {
	sub, err := fs.Sub(files, dir)
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// Load reads every *.sql file at the root of fsys, ordered by version.
// Files without a numeric prefix are skipped.
func Load(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var out []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		version, err := ParseVersion(e.Name())
		if err != nil {
			slog.Warn("skipping non-migration file", "name", e.Name(), "error", err)
			continue
		}
		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		out = append(out, Migration{Version: version, Name: e.Name(), SQL: string(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Pending returns the migrations newer than current.
func Pending(all []Migration, current int) []Migration {
	for i, m := range all {
		if m.Version > current {
			return all[i:]
		}
	}
	return nil
}

// ParseVersion extracts the number of a migration file name.
func ParseVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("invalid migration filename: %s", name)
	}
	var version int
	if _, err := fmt.Sscanf(prefix, "%d", &version); err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return version, nil
}
