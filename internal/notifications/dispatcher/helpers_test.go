package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pitstop/internal/db"
	"pitstop/internal/notifications/core"
	"pitstop/internal/types"
)

// --- Logger ---

type logEntry struct {
	level  string
	msg    string
	fields map[string]any
}

// testLogger records entries; loggers derived with With share the record.
type testLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
	fields  []any
}

func newTestLogger() *testLogger {
	return &testLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (l *testLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *testLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *testLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *testLogger) With(args ...any) types.Logger {
	return &testLogger{
		mu:      l.mu,
		entries: l.entries,
		fields:  append(append([]any{}, l.fields...), args...),
	}
}

func (l *testLogger) add(level, msg string, args []any) {
	all := append(append([]any{}, l.fields...), args...)
	fields := make(map[string]any, len(all)/2)
	for i := 0; i+1 < len(all); i += 2 {
		if k, ok := all[i].(string); ok {
			fields[k] = all[i+1]
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, logEntry{level: level, msg: msg, fields: fields})
}

func (l *testLogger) byLevel(level string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, e := range *l.entries {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}

// --- Gateway ---

type sentEmail struct {
	To, From, Subject, Body string
}

// fakeGateway records every send. failFor makes sends to the listed
// recipients fail.
type fakeGateway struct {
	sent    []sentEmail
	failFor map[string]error
	panicOn string
}

func (g *fakeGateway) SendEmail(_ context.Context, to, from, subject, body string) error {
	if g.panicOn != "" && to == g.panicOn {
		panic("gateway exploded")
	}
	g.sent = append(g.sent, sentEmail{To: to, From: from, Subject: subject, Body: body})
	if err, ok := g.failFor[to]; ok {
		return err
	}
	return nil
}

// --- Store ---

// faultyStore wraps a MemoryProjectionStore and fails selected operations.
type faultyStore struct {
	*db.MemoryProjectionStore
	failRegisterCustomer bool
	failRegisterJob      bool
	failGetCustomer      bool
	failGetJobs          bool
	failDueOn            bool
	failRemove           bool

	removed [][]string
}

var errStoreDown = types.NewAppError(types.ErrCodeInternalDB, "store unavailable", errors.New("connection refused"))

func newFaultyStore() *faultyStore {
	return &faultyStore{MemoryProjectionStore: db.NewMemoryProjectionStore()}
}

func (s *faultyStore) RegisterCustomer(ctx context.Context, c types.Customer) error {
	if s.failRegisterCustomer {
		return errStoreDown
	}
	return s.MemoryProjectionStore.RegisterCustomer(ctx, c)
}

func (s *faultyStore) GetCustomer(ctx context.Context, id string) (*types.Customer, error) {
	if s.failGetCustomer {
		return nil, errStoreDown
	}
	return s.MemoryProjectionStore.GetCustomer(ctx, id)
}

func (s *faultyStore) RegisterMaintenanceJob(ctx context.Context, j types.MaintenanceJob) error {
	if s.failRegisterJob {
		return errStoreDown
	}
	return s.MemoryProjectionStore.RegisterMaintenanceJob(ctx, j)
}

func (s *faultyStore) GetMaintenanceJobs(ctx context.Context, ids []string) ([]types.MaintenanceJob, error) {
	if s.failGetJobs {
		return nil, errStoreDown
	}
	return s.MemoryProjectionStore.GetMaintenanceJobs(ctx, ids)
}

func (s *faultyStore) GetMaintenanceJobsDueOn(ctx context.Context, day time.Time) ([]types.MaintenanceJob, error) {
	if s.failDueOn {
		return nil, errStoreDown
	}
	return s.MemoryProjectionStore.GetMaintenanceJobsDueOn(ctx, day)
}

func (s *faultyStore) RemoveMaintenanceJobs(ctx context.Context, ids []string) error {
	s.removed = append(s.removed, ids)
	if s.failRemove {
		return errStoreDown
	}
	return s.MemoryProjectionStore.RemoveMaintenanceJobs(ctx, ids)
}

// --- Clock ---

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// --- Metrics ---

type recordingMetrics struct {
	core.NoopMetrics
	outcomes   []core.EventOutcome
	deliveries []core.MetricResult
	failures   []types.ErrorKind
}

func (m *recordingMetrics) RecordEvent(_ context.Context, _ string, o core.EventOutcome) {
	m.outcomes = append(m.outcomes, o)
}

func (m *recordingMetrics) RecordDelivery(_ context.Context, _ types.NotificationKind, r core.MetricResult) {
	m.deliveries = append(m.deliveries, r)
}

func (m *recordingMetrics) RecordContainedFailure(_ context.Context, _ string, k types.ErrorKind) {
	m.failures = append(m.failures, k)
}

// --- Fixture ---

var testNow = time.Date(2026, 3, 14, 7, 0, 0, 0, time.UTC)

type fixture struct {
	d       *EventDispatcher
	store   *faultyStore
	gateway *fakeGateway
	logger  *testLogger
	metrics *recordingMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   newFaultyStore(),
		gateway: &fakeGateway{},
		logger:  newTestLogger(),
		metrics: &recordingMetrics{},
	}
	d, err := New(Config{
		Store:   f.store,
		Gateway: f.gateway,
		Logger:  f.logger,
		Metrics: f.metrics,
		Clock:   fixedClock{now: testNow},
	})
	require.NoError(t, err)
	d.newEventID = func() string { return "evt-1" }
	f.d = d
	return f
}

func (f *fixture) seedCustomer(t *testing.T, id, name, addr string) {
	t.Helper()
	require.NoError(t, f.store.MemoryProjectionStore.RegisterCustomer(context.Background(), types.Customer{
		CustomerID:   id,
		Name:         name,
		EmailAddress: addr,
	}))
}

func (f *fixture) seedJob(t *testing.T, id, customer string, start time.Time, desc string) {
	t.Helper()
	require.NoError(t, f.store.MemoryProjectionStore.RegisterMaintenanceJob(context.Background(), types.MaintenanceJob{
		JobID:         id,
		CustomerID:    customer,
		LicenseNumber: "LN-" + id,
		StartTime:     start,
		Description:   desc,
	}))
}

func (f *fixture) jobExists(t *testing.T, id string) bool {
	t.Helper()
	jobs, err := f.store.MemoryProjectionStore.GetMaintenanceJobs(context.Background(), []string{id})
	require.NoError(t, err)
	return len(jobs) == 1
}
