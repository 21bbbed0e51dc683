package sqsconsumer

import (
	"context"
	"fmt"
	"sync"

	"pitstop/internal/types"
)

type testLogger struct {
	mu      *sync.Mutex
	entries *[]string
}

func newTestLogger() *testLogger {
	return &testLogger{mu: &sync.Mutex{}, entries: &[]string{}}
}

func (l *testLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, fmt.Sprintf("%s:%s", level, msg))
}

func (l *testLogger) Info(msg string, _ ...any)  { l.record("INFO", msg) }
func (l *testLogger) Warn(msg string, _ ...any)  { l.record("WARN", msg) }
func (l *testLogger) Error(msg string, _ ...any) { l.record("ERROR", msg) }
func (l *testLogger) With(_ ...any) types.Logger { return l }
func (l *testLogger) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), *l.entries...)
}

type handledEvent struct {
	eventType string
	payload   string
}

// recordingHandler keeps every event it sees. ctxErrs holds ctx.Err() as
// observed after onCall returned, one entry per event.
type recordingHandler struct {
	mu      sync.Mutex
	events  []handledEvent
	ctxErrs []error
	onCall  func(n int)
}

func (h *recordingHandler) HandleEvent(ctx context.Context, eventType string, payload []byte) bool {
	h.mu.Lock()
	h.events = append(h.events, handledEvent{eventType: eventType, payload: string(payload)})
	n := len(h.events)
	h.mu.Unlock()
	if h.onCall != nil {
		h.onCall(n)
	}
	h.mu.Lock()
	h.ctxErrs = append(h.ctxErrs, ctx.Err())
	h.mu.Unlock()
	return true
}
