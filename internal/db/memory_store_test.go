package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitstop/internal/types"
)

func TestMemoryProjectionStore_CustomerUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryProjectionStore()

	require.NoError(t, s.RegisterCustomer(ctx, types.Customer{CustomerID: "C1", Name: "Ann"}))
	require.NoError(t, s.RegisterCustomer(ctx, types.Customer{CustomerID: "C1", Name: "Anne"}))

	c, err := s.GetCustomer(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, "Anne", c.Name)

	customers, _ := s.Len()
	assert.Equal(t, 1, customers)
}

func TestMemoryProjectionStore_GetCustomer_NotFound(t *testing.T) {
	_, err := NewMemoryProjectionStore().GetCustomer(context.Background(), "nobody")
	assert.True(t, types.HasCode(err, types.ErrCodeNotFoundCustomer))
}

func TestMemoryProjectionStore_Jobs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryProjectionStore()
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	jobs := []types.MaintenanceJob{
		{JobID: "J1", CustomerID: "C2", StartTime: day.Add(15 * time.Hour)},
		{JobID: "J2", CustomerID: "C1", StartTime: day.Add(9 * time.Hour)},
		{JobID: "J3", CustomerID: "C1", StartTime: day.Add(-time.Minute)},
		{JobID: "J4", CustomerID: "C1", StartTime: day.Add(24 * time.Hour)},
		{JobID: "J5", CustomerID: "C1", StartTime: day.Add(8 * time.Hour)},
	}
	for _, j := range jobs {
		require.NoError(t, s.RegisterMaintenanceJob(ctx, j))
	}

	t.Run("lookup skips unknown ids", func(t *testing.T) {
		got, err := s.GetMaintenanceJobs(ctx, []string{"J2", "nope", "J2"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "J2", got[0].JobID)
	})

	t.Run("due on returns only the civil date", func(t *testing.T) {
		got, err := s.GetMaintenanceJobsDueOn(ctx, day.Add(17*time.Hour))
		require.NoError(t, err)
		ids := make([]string, len(got))
		for i, j := range got {
			ids[i] = j.JobID
		}
		assert.Equal(t, []string{"J5", "J2", "J1"}, ids)
	})

	t.Run("remove ignores unknown ids", func(t *testing.T) {
		require.NoError(t, s.RemoveMaintenanceJobs(ctx, []string{"J1", "unknown"}))
		got, err := s.GetMaintenanceJobs(ctx, []string{"J1"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestMemoryProjectionStore_NormalizesStartTime(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryProjectionStore()
	local := time.Date(2026, 3, 14, 23, 30, 0, 0, time.FixedZone("CET", 3600))

	require.NoError(t, s.RegisterMaintenanceJob(ctx, types.MaintenanceJob{JobID: "J1", StartTime: local}))

	got, err := s.GetMaintenanceJobsDueOn(ctx, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC), got[0].StartTime)
}

func TestMemoryProjectionStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryProjectionStore()
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			_ = s.RegisterMaintenanceJob(ctx, types.MaintenanceJob{JobID: id, CustomerID: "C1", StartTime: start})
			_, _ = s.GetMaintenanceJobsDueOn(ctx, start)
		}(i)
	}
	wg.Wait()

	_, jobs := s.Len()
	assert.Equal(t, 20, jobs)
}
