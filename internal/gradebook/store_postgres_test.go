//go:build database

package gradebook

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Hansol916/OSSFinal/internal/db"
)

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)
	base := fmt.Sprintf("postgres://postgres@%s:%s", host, port.Port())

	admin, err := db.Connect(ctx, db.DriverPostgres, base+"/postgres?sslmode=disable")
	require.NoError(t, err)
	defer admin.Close()

	// one database per sub-test keeps the suite's id expectations independent
	var n int
	runStoreSuite(t, func(t *testing.T) Store {
		n++
		name := fmt.Sprintf("gradebook_%d", n)
		_, err := admin.ExecContext(ctx, "CREATE DATABASE "+name)
		require.NoError(t, err)
		dbh, err := db.Open(ctx, db.DriverPostgres, base+"/"+name+"?sslmode=disable")
		require.NoError(t, err)
		t.Cleanup(func() { _ = dbh.Close() })
		return NewSQLStore(dbh)
	})
}
