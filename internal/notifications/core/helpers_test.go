package core

import (
	"fmt"
	"sync"

	"pitstop/internal/types"
)

// mockLogger captures log lines as "level:msg".
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) Info(msg string, args ...any)  { l.add("info", msg) }
func (l *mockLogger) Error(msg string, args ...any) { l.add("error", msg) }
func (l *mockLogger) Warn(msg string, args ...any)  { l.add("warn", msg) }
func (l *mockLogger) With(args ...any) types.Logger { return l }

func (l *mockLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("%s:%s", level, msg))
}
