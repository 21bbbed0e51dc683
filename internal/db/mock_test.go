package db

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// mockDBTX records calls made by ProjectionRepository. Expectations receive
// the query arguments as a single []any.
type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	ret := m.Called(ctx, sql, arguments)
	return ret.Get(0).(pgconn.CommandTag), ret.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	ret := m.Called(ctx, sql, arguments)
	rows, _ := ret.Get(0).(pgx.Rows)
	return rows, ret.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	return m.Called(ctx, sql, arguments).Get(0).(pgx.Row)
}

// mockRow is a single-row result. scanFn wins over scanErr when set.
type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

// mockRows serves an in-memory result set. errVal is reported by Err once
// iteration ends.
type mockRows struct {
	pgx.Rows

	data   [][]any
	pos    int
	closed bool
	errVal error
}

func newMockRows(data [][]any) *mockRows {
	return &mockRows{data: data}
}

func (r *mockRows) Next() bool {
	if r.closed || r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

// Scan copies the current row into dest by reflection, so any column type
// the repository reads can be fed from a test table.
func (r *mockRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		value := reflect.ValueOf(row[i])
		if !value.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("scan: column %d is %s, destination is %s", i, value.Type(), target.Type())
		}
		target.Set(value)
	}
	return nil
}

func (r *mockRows) Close()                        { r.closed = true }
func (r *mockRows) Err() error                    { return r.errVal }
func (r *mockRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
