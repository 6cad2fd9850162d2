package application

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MigrationManager collects the schema files modules embed and applies them
// in registration order. Schema files are written to be idempotent
// (CREATE TABLE IF NOT EXISTS), so Apply is safe to run on every boot.
type MigrationManager struct {
	pool    *pgxpool.Pool
	schemas []*embed.FS
}

func NewMigrationManager(pool *pgxpool.Pool) *MigrationManager {
	return &MigrationManager{pool: pool}
}

func (m *MigrationManager) RegisterSchema(schemas ...*embed.FS) {
	m.schemas = append(m.schemas, schemas...)
}

func (m *MigrationManager) Apply(ctx context.Context) error {
	for _, schema := range m.schemas {
		files, err := listSQLFiles(schema)
		if err != nil {
			return err
		}
		for _, file := range files {
			contents, err := schema.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read schema %s: %w", file, err)
			}
			if _, err := m.pool.Exec(ctx, string(contents)); err != nil {
				return fmt.Errorf("failed to apply schema %s: %w", file, err)
			}
		}
	}
	return nil
}

func listSQLFiles(fsys fs.FS) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".sql") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error reading schema directory: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
