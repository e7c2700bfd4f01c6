// Package testutil starts throwaway cache stores in containers for integration tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const startupTimeout = 60 * time.Second

// cacheTables lists every table the migrations create, in truncation order.
var cacheTables = []string{"youtube_video_cache", "api_quota_usage"}

// Postgres is a migrated PostgreSQL instance owned by one test.
type Postgres struct {
	Pool    *pgxpool.Pool
	ConnStr string
}

// StartPostgres runs PostgreSQL in a container and applies every migration in
// migrationsDir, which is relative to the calling package
// (e.g. "../../../migrations"). The container stops when the test ends.
func StartPostgres(t *testing.T, migrationsDir string) *Postgres {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("youtube_cache_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupTimeout)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrationsPath, err := filepath.Abs(migrationsDir)
	require.NoError(t, err)

	m, err := migrate.New("file://"+migrationsPath, connStr)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	_, _ = m.Close()

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))

	return &Postgres{Pool: pool, ConnStr: connStr}
}

// Reset empties every cache table.
func (p *Postgres) Reset(t *testing.T) {
	t.Helper()

	for _, table := range cacheTables {
		_, err := p.Pool.Exec(context.Background(), "TRUNCATE TABLE "+table)
		require.NoError(t, err)
	}
}

// StartMongo runs MongoDB in a container and returns a connected client. The
// container stops when the test ends.
func StartMongo(t *testing.T) *mongo.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(startupTimeout),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "mongodb")
	require.NoError(t, err)

	client, err := mongo.Connect(options.Client().ApplyURI(endpoint))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	require.NoError(t, client.Ping(ctx, nil))

	return client
}
