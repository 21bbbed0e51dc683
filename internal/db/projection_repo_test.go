package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pitstop/internal/types"
)

func TestProjectionRepository_RegisterCustomer_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProjectionRepository(db)

	c := types.Customer{
		CustomerID:      "C1",
		Name:            "Ann",
		TelephoneNumber: "0612345678",
		EmailAddress:    "ann@example.com",
	}

	db.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "INSERT INTO customers", "ON CONFLICT (customer_id) DO UPDATE")
	}), []any{"C1", "Ann", "0612345678", "ann@example.com"}).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := repo.RegisterCustomer(context.Background(), c)
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestProjectionRepository_RegisterCustomer_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProjectionRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection refused"))

	err := repo.RegisterCustomer(context.Background(), types.Customer{CustomerID: "C1"})
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrCodeInternalDB))
	assert.Equal(t, types.KindStore, types.KindOf(err))
}

func TestProjectionRepository_GetCustomer_Found(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProjectionRepository(db)

	row := &mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*string) = "C1"
			*dest[1].(*string) = "Ann"
			*dest[2].(*string) = "0612345678"
			*dest[3].(*string) = "ann@example.com"
			return nil
		},
	}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"C1"}).Return(row)

	c, err := repo.GetCustomer(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", c.Name)
	assert.Equal(t, "ann@example.com", c.EmailAddress)
}

func TestProjectionRepository_GetCustomer_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProjectionRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.GetCustomer(context.Background(), "missing")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundCustomer, appErr.Code)
	assert.Equal(t, types.KindMissingEntity, types.KindOf(err))
}

func TestProjectionRepository_GetCustomer_ScanError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProjectionRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: errors.New("conn reset")})

	_, err := repo.GetCustomer(context.Background(), "C1")
	assert.True(t, types.HasCode(err, types.ErrCodeInternalDB))
}

func TestProjectionRepository_RegisterMaintenanceJob_StoresWallClock(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProjectionRepository(db)

	amsterdam := time.FixedZone("CET", 3600)
	job := types.MaintenanceJob{
		JobID:         "J1",
		CustomerID:    "C1",
		LicenseNumber: "AB-12-CD",
		StartTime:     time.Date(2026, 3, 14, 10, 30, 0, 0, amsterdam),
		Description:   "APK",
	}
	want := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"),
		[]any{"J1", "C1", "AB-12-CD", want, "APK"}).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	require.NoError(t, repo.RegisterMaintenanceJob(context.Background(), job))
	db.AssertExpectations(t)
}

func TestProjectionRepository_GetMaintenanceJobs(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProjectionRepository(db)

	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	rows := newMockRows([][]any{
		{"J1", "C1", "AB-12-CD", start, "APK"},
	})
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), []any{[]string{"J1", "J404"}}).
		Return(rows, nil)

	jobs, err := repo.GetMaintenanceJobs(context.Background(), []string{"J1", "J404"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "J1", jobs[0].JobID)
	assert.Equal(t, start, jobs[0].StartTime)
	assert.True(t, rows.closed)
}

func TestProjectionRepository_GetMaintenanceJobs_EmptyIDs(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProjectionRepository(db)

	jobs, err := repo.GetMaintenanceJobs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, jobs)
	db.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything)
}

func TestProjectionRepository_GetMaintenanceJobsDueOn_UsesDayRange(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProjectionRepository(db)

	day := time.Date(2026, 3, 14, 23, 15, 0, 0, time.FixedZone("CET", 3600))
	from := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	rows := newMockRows([][]any{
		{"J1", "C1", "AB-12-CD", from.Add(9 * time.Hour), "APK"},
		{"J2", "C2", "XY-99-ZZ", from.Add(14 * time.Hour), "Oil change"},
	})
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), []any{from, to}).Return(rows, nil)

	jobs, err := repo.GetMaintenanceJobsDueOn(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "C2", jobs[1].CustomerID)
	db.AssertExpectations(t)
}

func TestProjectionRepository_GetMaintenanceJobsDueOn_QueryError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProjectionRepository(db)

	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(nil, errors.New("timeout"))

	_, err := repo.GetMaintenanceJobsDueOn(context.Background(), time.Now())
	assert.True(t, types.HasCode(err, types.ErrCodeInternalDB))
}

func TestProjectionRepository_GetMaintenanceJobsDueOn_IterationError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProjectionRepository(db)

	rows := newMockRows(nil)
	rows.errVal = errors.New("stream broken")
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	_, err := repo.GetMaintenanceJobsDueOn(context.Background(), time.Now())
	assert.True(t, types.HasCode(err, types.ErrCodeInternalDB))
}

func TestProjectionRepository_RemoveMaintenanceJobs(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProjectionRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), []any{[]string{"J1", "J2"}}).
		Return(pgconn.NewCommandTag("DELETE 2"), nil)

	require.NoError(t, repo.RemoveMaintenanceJobs(context.Background(), []string{"J1", "J2"}))
	require.NoError(t, repo.RemoveMaintenanceJobs(context.Background(), nil))
	db.AssertNumberOfCalls(t, "Exec", 1)
}

func TestProjectionRepository_RemoveMaintenanceJobs_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProjectionRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("deadlock"))

	err := repo.RemoveMaintenanceJobs(context.Background(), []string{"J1"})
	assert.True(t, types.HasCode(err, types.ErrCodeInternalDB))
}

func TestEnsureSchema(t *testing.T) {
	db := new(mockDBTX)
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("CREATE TABLE"), nil)

	require.NoError(t, EnsureSchema(context.Background(), db))
	db.AssertNumberOfCalls(t, "Exec", len(schemaStatements))
}

func TestEnsureSchema_Error(t *testing.T) {
	db := new(mockDBTX)
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("permission denied"))

	err := EnsureSchema(context.Background(), db)
	assert.True(t, types.HasCode(err, types.ErrCodeInternalDB))
	db.AssertNumberOfCalls(t, "Exec", 1)
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
