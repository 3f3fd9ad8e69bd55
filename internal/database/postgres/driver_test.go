package postgres

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joacominatel/vizql/internal/database"
	"github.com/joacominatel/vizql/internal/testinfra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriver_NotConnected(t *testing.T) {
	d := New(Options{})
	ctx := context.Background()

	_, err := d.ListTables(ctx, "public")
	assert.ErrorIs(t, err, database.ErrNotConnected)

	_, err = d.GetColumns(ctx, "public", "t")
	assert.ErrorIs(t, err, database.ErrNotConnected)

	err = d.CreateTable(ctx, "public", "t", []database.Column{{Name: "id", Type: "INT"}})
	assert.ErrorIs(t, err, database.ErrNotConnected)

	assert.ErrorIs(t, d.Ping(ctx), database.ErrNotConnected)
	assert.NoError(t, d.Close())
}

func TestDriver_CreateTableValidatesBeforeAcquire(t *testing.T) {
	d := New(Options{})

	err := d.CreateTable(context.Background(), "public", "", []database.Column{{Name: "id"}})

	var verr *database.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "table name", verr.Field)
}

func TestDriver_ConnectInvalidDSN(t *testing.T) {
	d := New(Options{})

	err := d.Connect(context.Background(), "postgres://user@host:notaport/db")
	assert.ErrorIs(t, err, database.ErrInvalidDSN)
}

func TestDriver_ConnectUnreachableNamesTarget(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	d := New(Options{ConnectTimeout: 2 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = d.Connect(ctx, fmt.Sprintf("postgres://me:pw@%s/app?sslmode=disable", addr))
	require.Error(t, err)
	assert.NotErrorIs(t, err, database.ErrInvalidDSN)
	assert.Contains(t, err.Error(), addr)
	assert.Nil(t, d.pool, "a failed connect leaves no pool behind")
}

func TestNew_Defaults(t *testing.T) {
	d := New(Options{})
	assert.Equal(t, int32(DefaultMaxConns), d.opts.MaxConns)
	assert.Equal(t, DefaultConnectTimeout, d.opts.ConnectTimeout)
	assert.NotNil(t, d.logger)

	d = New(Options{MaxConns: 2, ConnectTimeout: time.Second})
	assert.Equal(t, int32(2), d.opts.MaxConns)
	assert.Equal(t, time.Second, d.opts.ConnectTimeout)
}

func TestDriver_Integration(t *testing.T) {
	connStr := testinfra.RequireDatabase(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	d := New(Options{MaxConns: 2})
	require.NoError(t, d.Connect(ctx, connStr))
	defer d.Close()

	schema := "vizql_driver_test"
	_, err := d.pool.Exec(ctx, "DROP SCHEMA IF EXISTS "+pgx.Identifier{schema}.Sanitize()+" CASCADE")
	require.NoError(t, err)
	_, err = d.pool.Exec(ctx, "CREATE SCHEMA "+pgx.Identifier{schema}.Sanitize())
	require.NoError(t, err)
	t.Cleanup(func() {
		d.pool.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+pgx.Identifier{schema}.Sanitize()+" CASCADE") //nolint:errcheck
	})

	t.Run("empty schema lists no tables", func(t *testing.T) {
		tables, err := d.ListTables(ctx, schema)
		require.NoError(t, err)
		assert.NotNil(t, tables)
		assert.Empty(t, tables)
	})

	t.Run("create then list", func(t *testing.T) {
		err := d.CreateTable(ctx, schema, "t", []database.Column{
			{Name: "id", Type: "SERIAL PRIMARY KEY"},
			{Name: "age", Type: "INT"},
		})
		require.NoError(t, err)

		tables, err := d.ListTables(ctx, schema)
		require.NoError(t, err)
		assert.Contains(t, tables, "t")
	})

	t.Run("columns in definition order", func(t *testing.T) {
		cols, err := d.GetColumns(ctx, schema, "t")
		require.NoError(t, err)
		require.Len(t, cols, 2)

		assert.Equal(t, "id", cols[0].Name)
		assert.Equal(t, "integer", cols[0].Type)
		assert.True(t, cols[0].IsPrimary)
		assert.False(t, cols[0].IsNullable)
		assert.Contains(t, cols[0].Default, "nextval")
		assert.Equal(t, 1, cols[0].OrdinalPos)

		assert.Equal(t, "age", cols[1].Name)
		assert.Equal(t, "integer", cols[1].Type)
		assert.False(t, cols[1].IsPrimary)
		assert.True(t, cols[1].IsNullable)
		assert.Equal(t, 2, cols[1].OrdinalPos)
	})

	t.Run("unknown table has no columns", func(t *testing.T) {
		cols, err := d.GetColumns(ctx, schema, "does_not_exist")
		require.NoError(t, err)
		assert.NotNil(t, cols)
		assert.Empty(t, cols)
	})

	t.Run("duplicate create fails", func(t *testing.T) {
		err := d.CreateTable(ctx, schema, "t", []database.Column{{Name: "id", Type: "INT"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("hostile names are stored literally", func(t *testing.T) {
		name := `Robert"); DROP TABLE t; --`
		require.NoError(t, d.CreateTable(ctx, schema, name, []database.Column{{Name: "MixedCase", Type: "TEXT"}}))

		tables, err := d.ListTables(ctx, schema)
		require.NoError(t, err)
		assert.Contains(t, tables, name)
		assert.Contains(t, tables, "t")

		cols, err := d.GetColumns(ctx, schema, name)
		require.NoError(t, err)
		require.Len(t, cols, 1)
		assert.Equal(t, "MixedCase", cols[0].Name)
	})

	t.Run("server version", func(t *testing.T) {
		v, err := d.ServerVersion(ctx)
		require.NoError(t, err)
		assert.Contains(t, v, "PostgreSQL")
	})

	assert.Equal(t, dbNameOf(connStr), d.DatabaseName())
}

// dbNameOf extracts the database name from a connection string.
func dbNameOf(connStr string) string {
	cfg, err := pgx.ParseConfig(connStr)
	if err != nil {
		return ""
	}
	return cfg.Database
}
