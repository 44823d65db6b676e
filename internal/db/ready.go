package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"dbcheck/migrations"
)

const createSchemaMigrations = `CREATE TABLE IF NOT EXISTS schema_migrations (
        version TEXT PRIMARY KEY,
        applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Ready validates database connectivity and ensures all embedded migrations are present.
func Ready(ctx context.Context, conn *sql.DB) error {
	if conn == nil {
		return fmt.Errorf("db connection is nil")
	}
	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return err
	}
	versions, err := embeddedVersions()
	if err != nil {
		return err
	}
	if missing := pendingVersions(versions, applied); len(missing) > 0 {
		return fmt.Errorf("pending migrations: %s", strings.Join(missing, ","))
	}
	return nil
}

func appliedVersions(ctx context.Context, conn DBTX) (map[string]struct{}, error) {
	if _, err := conn.ExecContext(ctx, createSchemaMigrations); err != nil {
		return nil, fmt.Errorf("ensure schema_migrations: %w", err)
	}
	rows, err := conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()
	applied := make(map[string]struct{})
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[version] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	return applied, nil
}

// embeddedVersions lists the embedded .sql files in apply order.
func embeddedVersions() ([]string, error) {
	entries, err := migrations.Files.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}
	versions := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		versions = append(versions, entry.Name())
	}
	sort.Strings(versions)
	return versions, nil
}

func readMigration(version string) (string, error) {
	body, err := migrations.Files.ReadFile(version)
	if err != nil {
		return "", fmt.Errorf("read migration %s: %w", version, err)
	}
	return string(body), nil
}

func pendingVersions(versions []string, applied map[string]struct{}) []string {
	var missing []string
	for _, v := range versions {
		if _, ok := applied[v]; !ok {
			missing = append(missing, v)
		}
	}
	return missing
}
