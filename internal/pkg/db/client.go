package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the repositories use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const schema = `
create table if not exists users (
	chat_id       bigint primary key,
	name          text not null default '',
	username      text not null default '',
	town          text not null default '',
	phone         text not null default '',
	workplace     text not null default '',
	verifier_name text not null default '',
	verified      boolean not null default false,
	updated_at    timestamptz not null default now()
);

create table if not exists orders (
	chat_id        bigint not null,
	created_ms     bigint not null,
	quantity       integer not null,
	city           text not null,
	recipient_name text not null,
	branch         text not null,
	phone          text not null,
	payment_method text not null,
	payment_status text not null,
	status         text not null,
	ttn            text not null default '',
	operator_id    bigint,
	created_at     timestamptz not null,
	updated_at     timestamptz not null default now(),
	primary key (chat_id, created_ms)
);
`

func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return pool, nil
}
