// Package testkit starts throwaway Postgres and Redis containers for
// integration tests. Tests are skipped under -short or when Docker is not
// reachable.
package testkit

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/apex/migrations"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func requireDocker(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}

	provider, err := dockerProvider()
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if provider != nil {
		_ = provider.Close() //nolint:errcheck // availability check only
	}
}

// dockerProvider checks the daemon. NewDockerProvider panics on some hosts
// without a socket, so the panic is turned into an error.
func dockerProvider() (provider *testcontainers.DockerProvider, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("docker provider initialization failed: %v", r)
		}
	}()

	return testcontainers.NewDockerProvider()
}

// Postgres starts postgres:16-alpine, applies the embedded migrations and
// returns a pool. Everything is torn down with t.Cleanup.
func Postgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	requireDocker(t)

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("apex"),
		tcpostgres.WithUsername("apex"),
		tcpostgres.WithPassword("apex"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}

	if err := migrations.Up(dsn); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("postgres pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool
}

// Redis starts redis:7-alpine and returns a connected client.
func Redis(t *testing.T) *redis.Client {
	t.Helper()
	requireDocker(t)

	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Skipf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("redis connection string: %v", err)
	}

	opts, err := redis.ParseURL(uri)
	if err != nil {
		t.Fatalf("redis url: %v", err)
	}

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	return client
}
