package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrorGate is a persistent back-off gate for one class of archive errors.
// It stores the instant of the last observed error on disk; while less than
// the relaxation interval has elapsed, Check fails fast with the remaining
// wait instead of letting a request go out. The state survives restarts.
type ErrorGate struct {
	mu         sync.Mutex
	path       string
	class      string
	relaxation time.Duration
	lastError  time.Time

	now func() time.Time
}

// NewErrorGate opens (or creates) the gate backed by the given file. A
// missing or unreadable state file simply means no recorded error.
func NewErrorGate(path, class string, relaxation time.Duration) *ErrorGate {
	g := &ErrorGate{
		path:       path,
		class:      class,
		relaxation: relaxation,
		now:        time.Now,
	}
	if raw, err := os.ReadFile(path); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(string(raw))); err == nil {
			g.lastError = t
		}
	}
	return g
}

// Check returns a *RetryAfterError when the gate is still closed, nil when a
// request may proceed. It performs no I/O beyond the in-memory state.
func (g *ErrorGate) Check() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lastError.IsZero() {
		return nil
	}
	elapsed := g.now().Sub(g.lastError)
	if elapsed < g.relaxation {
		return &RetryAfterError{Class: g.class, Remaining: g.relaxation - elapsed}
	}
	return nil
}

// Record notes an error of this gate's class at instant t and persists it.
// Persistence is write-then-rename so a crash never leaves a torn file.
func (g *ErrorGate) Record(t time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.lastError = t
	tmp := fmt.Sprintf("%s.tmp", g.path)
	if err := os.MkdirAll(filepath.Dir(g.path), 0o750); err != nil {
		return fmt.Errorf("error gate %s: %w", g.class, err)
	}
	if err := os.WriteFile(tmp, []byte(t.Format(time.RFC3339Nano)+"\n"), 0o600); err != nil {
		return fmt.Errorf("error gate %s: %w", g.class, err)
	}
	if err := os.Rename(tmp, g.path); err != nil {
		return fmt.Errorf("error gate %s: %w", g.class, err)
	}
	return nil
}
