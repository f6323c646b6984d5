package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const schema = `
create table if not exists command_invocations (
  invocation_id uuid primary key,
  message_id    text,
  channel       text not null,
  username      text not null,
  trigger       text not null,
  args          jsonb not null,
  invoked_at    timestamptz not null
);`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EnsureSchema creates the journal table if it does not exist yet.
func EnsureSchema(ctx context.Context, db execer, timeout time.Duration) error {
	dbCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := db.Exec(dbCtx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
