package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/UltimateTournament/backoff/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ReliableExec runs fn against a pooled connection, retrying with exponential
// backoff until it succeeds, returns a permanent error, or timeout elapses.
func ReliableExec(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration, fn func(ctx context.Context, conn *pgxpool.Conn) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	return backoff.Retry(func() error {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("error acquiring pool connection: %w", err)
		}
		defer conn.Release()
		return fn(ctx, conn)
	}, bo)
}
