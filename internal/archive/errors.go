package archive

import (
	"errors"
	"fmt"
	"time"
)

// Error classes for the persistent back-off gates.
const (
	ErrorClassTooManyRequests = "http_429"
	ErrorClassConnect         = "connect"
)

// ErrNotYetAvailable signals that the archive holds no capture for the
// requested URL inside the search window. This is expected for recent
// instants and is not a failure of the client.
var ErrNotYetAvailable = errors.New("snapshot not yet available")

// RetryAfterError is returned without issuing any I/O when a previous error of
// the same class happened less than the relaxation interval ago.
type RetryAfterError struct {
	Class     string
	Remaining time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("backing off after %s error, retry in %s", e.Class, e.Remaining.Round(time.Second))
}

// TransientError wraps an archive-side failure (HTTP 429 or a connection
// level error) that updated a back-off gate. The job that hit it is dropped;
// the pipeline keeps running.
type TransientError struct {
	Class string
	Err   error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient archive error (%s): %v", e.Class, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}
