package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorGateOpenWithoutRecordedError(t *testing.T) {
	gate := NewErrorGate(filepath.Join(t.TempDir(), "last_error"), ErrorClassConnect, time.Minute)
	assert.NoError(t, gate.Check())
}

func TestErrorGateFailsFastWithinRelaxation(t *testing.T) {
	gate := NewErrorGate(filepath.Join(t.TempDir(), "last_error"), ErrorClassTooManyRequests, time.Minute)

	base := time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC)
	require.NoError(t, gate.Record(base))

	gate.now = func() time.Time { return base.Add(30 * time.Second) }
	err := gate.Check()
	require.Error(t, err)

	var retry *RetryAfterError
	require.ErrorAs(t, err, &retry)
	assert.Equal(t, ErrorClassTooManyRequests, retry.Class)
	assert.Equal(t, 30*time.Second, retry.Remaining)
}

func TestErrorGateReopensAfterRelaxation(t *testing.T) {
	gate := NewErrorGate(filepath.Join(t.TempDir(), "last_error"), ErrorClassConnect, time.Minute)

	base := time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC)
	require.NoError(t, gate.Record(base))

	gate.now = func() time.Time { return base.Add(time.Minute) }
	assert.NoError(t, gate.Check())
}

func TestErrorGateStateSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_error")
	base := time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC)

	gate := NewErrorGate(path, ErrorClassConnect, time.Minute)
	require.NoError(t, gate.Record(base))

	reopened := NewErrorGate(path, ErrorClassConnect, time.Minute)
	reopened.now = func() time.Time { return base.Add(10 * time.Second) }

	var retry *RetryAfterError
	require.ErrorAs(t, reopened.Check(), &retry)
	assert.Equal(t, 50*time.Second, retry.Remaining)
}

func TestErrorGateIgnoresCorruptStateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_error")
	require.NoError(t, os.WriteFile(path, []byte("not a timestamp\n"), 0o600))

	gate := NewErrorGate(path, ErrorClassConnect, time.Minute)
	assert.NoError(t, gate.Check())
}
