// Package archive implements the rate-limited client for the web archive's
// CDX search and snapshot-retrieval endpoints, including the persistent
// error back-off gates consulted before every outbound request.
package archive

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"media-observer/internal/observability/metrics"
)

const (
	// searchWindow bounds the CDX query around the target instant.
	searchWindow = 6 * time.Hour

	// searchLimit caps the number of CDX records requested per search.
	searchLimit = 100

	defaultBaseURL = "http://web.archive.org"
)

// Config carries the archive client knobs plus the request deadline.
type Config struct {
	BaseURL        string
	LimiterMaxRate int           // R outbound connections ...
	LimiterPeriod  time.Duration // ... per period P
	Relax429       time.Duration
	RelaxConnect   time.Duration
	RequestTimeout time.Duration
	GateDir        string // directory holding the two gate state files
}

// Client talks to the archive. It is shared by all pipeline workers; the
// limiter and the error gates serialise and shed load internally.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	gate429    *ErrorGate
	gateConn   *ErrorGate
	baseURL    string
	timeout    time.Duration
	logger     *slog.Logger

	now func() time.Time
}

// NewClient builds a Client from configuration. Redirects are followed (the
// archive redirects snapshot URLs to their canonical timestamp).
func NewClient(cfg Config, logger *slog.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	interval := cfg.LimiterPeriod / time.Duration(cfg.LimiterMaxRate)
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
		},
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		gate429:  NewErrorGate(filepath.Join(cfg.GateDir, "last_error_429"), ErrorClassTooManyRequests, cfg.Relax429),
		gateConn: NewErrorGate(filepath.Join(cfg.GateDir, "last_error_connect"), ErrorClassConnect, cfg.RelaxConnect),
		baseURL:  base,
		timeout:  cfg.RequestTimeout,
		logger:   logger,
		now:      time.Now,
	}
}

// FindClosest queries captures of pageURL within target +/- 6h, clamped so the
// upper bound never lies in the future, and returns the capture whose
// timestamp minimises the absolute distance to target. ErrNotYetAvailable is
// returned when no capture matches.
func (c *Client) FindClosest(ctx context.Context, pageURL string, target time.Time) (SnapshotID, error) {
	from := target.Add(-searchWindow)
	to := target.Add(searchWindow)
	if now := c.now(); to.After(now) {
		to = now
	}

	params := url.Values{}
	params.Set("url", pageURL)
	params.Set("filter", "statuscode:200")
	params.Set("from", FormatTimestamp(from))
	params.Set("to", FormatTimestamp(to))
	params.Set("limit", fmt.Sprintf("%d", searchLimit))

	body, err := c.get(ctx, c.baseURL+"/cdx/search/cdx", params, "cdx_search")
	if err != nil {
		return SnapshotID{}, err
	}

	var best SnapshotID
	var bestDelta time.Duration
	found := false
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := ParseCDXLine(line)
		if err != nil {
			return SnapshotID{}, err
		}
		ts, err := rec.Time()
		if err != nil {
			return SnapshotID{}, err
		}
		delta := target.Sub(ts)
		if delta < 0 {
			delta = -delta
		}
		if !found || delta < bestDelta {
			best = SnapshotIDFromRecord(rec)
			bestDelta = delta
			found = true
		}
	}
	if !found {
		return SnapshotID{}, fmt.Errorf("%w: %s @ %s", ErrNotYetAvailable, pageURL, target.Format(time.RFC3339))
	}
	return best, nil
}

// Fetch retrieves the archived body of a capture verbatim.
func (c *Client) Fetch(ctx context.Context, id SnapshotID) (Snapshot, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/web/%s/%s", c.baseURL, id.Timestamp, id.Original), nil, "snapshot")
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{ID: id, Text: body}, nil
}

// get performs one outbound request with gate checks, rate limiting, the
// configured deadline and error classification.
func (c *Client) get(ctx context.Context, rawURL string, params url.Values, endpoint string) (string, error) {
	for _, g := range []*ErrorGate{c.gate429, c.gateConn} {
		if err := g.Check(); err != nil {
			metrics.RecordArchiveRequest(endpoint, "gated")
			return "", err
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := rawURL
	if params != nil {
		u = rawURL + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("build archive request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		// DNS failures, refused connections and timeouts all close the
		// connect gate.
		if gateErr := c.gateConn.Record(c.now()); gateErr != nil {
			c.logger.Error("failed to persist connect gate", slog.Any("error", gateErr))
		}
		metrics.RecordArchiveRequest(endpoint, "connect_error")
		return "", &TransientError{Class: ErrorClassConnect, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		if gateErr := c.gate429.Record(c.now()); gateErr != nil {
			c.logger.Error("failed to persist 429 gate", slog.Any("error", gateErr))
		}
		metrics.RecordArchiveRequest(endpoint, "throttled")
		return "", &TransientError{Class: ErrorClassTooManyRequests, Err: fmt.Errorf("archive returned %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		metrics.RecordArchiveRequest(endpoint, "http_error")
		return "", fmt.Errorf("archive returned status %d for %s", resp.StatusCode, rawURL)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if gateErr := c.gateConn.Record(c.now()); gateErr != nil {
			c.logger.Error("failed to persist connect gate", slog.Any("error", gateErr))
		}
		metrics.RecordArchiveRequest(endpoint, "connect_error")
		return "", &TransientError{Class: ErrorClassConnect, Err: err}
	}
	metrics.RecordArchiveRequest(endpoint, "ok")
	return string(raw), nil
}
