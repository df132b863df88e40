package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect creates a PostgreSQL connection pool and verifies connectivity.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// LoadPostgres reads the catalog from the assessments table the crawler
// maintains. Rows are ordered by id so ordinals are stable across loads
// as long as the table is not rewritten between the index build and the
// catalog load.
func LoadPostgres(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	query := `
		SELECT name, url, description, duration_minutes, adaptive, remote, test_types
		FROM assessments
		ORDER BY id
	`
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Name, &it.URL, &it.Description, &it.DurationMinutes,
			&it.Adaptive, &it.Remote, &it.TestTypes); err != nil {
			return nil, fmt.Errorf("failed to scan assessment row: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read assessment rows: %w", err)
	}

	return NewStore(items), nil
}
