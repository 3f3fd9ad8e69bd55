// Package dbtest provides an in-memory database.Driver for tests.
package dbtest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/joacominatel/vizql/internal/database"
)

// Driver is a scriptable database.Driver. The Fn fields override the
// in-memory behaviour; counters record how often each method ran.
type Driver struct {
	ConnectFn       func(ctx context.Context, dsn string) error
	PingFn          func(ctx context.Context) error
	ListTablesFn    func(ctx context.Context, schema string) ([]string, error)
	GetColumnsFn    func(ctx context.Context, schema, table string) ([]database.Column, error)
	CreateTableFn   func(ctx context.Context, schema, table string, columns []database.Column) error
	ServerVersionFn func(ctx context.Context) (string, error)

	Name string

	ConnectCalls atomic.Int32
	DataCalls    atomic.Int32
	CloseCalls   atomic.Int32

	mu     sync.Mutex
	dsn    string
	tables map[string][]database.Column
	order  []string
}

var _ database.Driver = (*Driver)(nil)

// New returns a driver holding no tables.
func New() *Driver {
	return &Driver{Name: "testdb", tables: map[string][]database.Column{}}
}

// DSN returns the connection string of the last Connect call.
func (d *Driver) DSN() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dsn
}

func (d *Driver) Connect(ctx context.Context, dsn string) error {
	d.ConnectCalls.Add(1)
	d.mu.Lock()
	d.dsn = dsn
	d.mu.Unlock()
	if d.ConnectFn != nil {
		return d.ConnectFn(ctx, dsn)
	}
	return nil
}

func (d *Driver) Close() error {
	d.CloseCalls.Add(1)
	return nil
}

func (d *Driver) Ping(ctx context.Context) error {
	if d.PingFn != nil {
		return d.PingFn(ctx)
	}
	return nil
}

func (d *Driver) ListTables(ctx context.Context, schema string) ([]string, error) {
	d.DataCalls.Add(1)
	if d.ListTablesFn != nil {
		return d.ListTablesFn(ctx, schema)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := slices.Clone(d.order)
	slices.Sort(out)
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (d *Driver) GetColumns(ctx context.Context, schema, table string) ([]database.Column, error) {
	d.DataCalls.Add(1)
	if d.GetColumnsFn != nil {
		return d.GetColumnsFn(ctx, schema, table)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.tables[table]), nil
}

func (d *Driver) CreateTable(ctx context.Context, schema, table string, columns []database.Column) error {
	d.DataCalls.Add(1)
	if d.CreateTableFn != nil {
		return d.CreateTableFn(ctx, schema, table, columns)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tables[table]; ok {
		return fmt.Errorf("relation %q already exists", table)
	}
	cols := make([]database.Column, len(columns))
	for i, c := range columns {
		cols[i] = database.Column{Name: c.Name, Type: c.Type, IsNullable: true, OrdinalPos: i + 1}
	}
	d.tables[table] = cols
	d.order = append(d.order, table)
	return nil
}

func (d *Driver) ServerVersion(ctx context.Context) (string, error) {
	d.DataCalls.Add(1)
	if d.ServerVersionFn != nil {
		return d.ServerVersionFn(ctx)
	}
	return "PostgreSQL 17.0 (fake)", nil
}

func (d *Driver) DatabaseName() string {
	return d.Name
}
