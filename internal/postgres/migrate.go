package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Migrate applies the schema. Every statement is idempotent, so it is safe
// to run on each deploy.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	// without arguments pgx uses the simple protocol, which accepts several statements
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
