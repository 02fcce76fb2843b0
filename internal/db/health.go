package db

import (
	"context"
	"time"
)

// Ping runs a trivial query and reports its round-trip latency.
func (db *Postgres) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	var one int
	if err := db.Pool.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// ExtensionVersion returns the installed version of a Postgres extension, or
// pgx.ErrNoRows when it is not installed.
func (db *Postgres) ExtensionVersion(ctx context.Context, name string) (string, error) {
	var version string
	err := db.Pool.QueryRow(ctx, `SELECT extversion FROM pg_extension WHERE extname = $1`, name).Scan(&version)
	if err != nil {
		return "", err
	}
	return version, nil
}

// PoolStats reports total and in-use connections.
func (db *Postgres) PoolStats() (total, acquired int32) {
	stat := db.Pool.Stat()
	return stat.TotalConns(), stat.AcquiredConns()
}
