package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverFromDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost/db":    DriverPostgres,
		"PostgreSQL://localhost/db":      DriverPostgres,
		"host=localhost dbname=lexdraft": DriverPostgres,
		"file:/tmp/v.db":                 DriverSQLite,
		":memory:":                       DriverSQLite,
	}
	for dsn, want := range cases {
		assert.Equal(t, want, DriverFromDSN(dsn), dsn)
	}
}

func TestConnectSQLRejectsUnknownDriver(t *testing.T) {
	_, err := ConnectSQL(context.Background(), "mysql", "x", time.Second)
	assert.ErrorContains(t, err, "unsupported driver")
}

func TestMigrateUpAndDownSQLite(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "m.db")
	db, err := ConnectSQL(ctx, DriverSQLite, dsn, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	v, dirty, err := MigrationVersion(db, DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, uint(0), v)
	assert.False(t, dirty)

	require.NoError(t, Migrate(db, DriverSQLite))
	// applying twice is a no-op
	require.NoError(t, Migrate(db, DriverSQLite))
	v, _, err = MigrationVersion(db, DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	_, err = db.ExecContext(ctx, `SELECT id FROM document_versions LIMIT 1`)
	require.NoError(t, err)

	require.NoError(t, MigrateDown(db, DriverSQLite))
	_, err = db.ExecContext(ctx, `SELECT id FROM document_versions LIMIT 1`)
	assert.Error(t, err)
}
