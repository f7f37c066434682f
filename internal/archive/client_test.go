package archive

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-observer/internal/observability/logging"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(Config{
		BaseURL:        baseURL,
		LimiterMaxRate: 100,
		LimiterPeriod:  time.Second,
		Relax429:       time.Minute,
		RelaxConnect:   time.Minute,
		RequestTimeout: 5 * time.Second,
		GateDir:        t.TempDir(),
	}, logging.NewTextLogger())
}

func cdxLine(timestamp string) string {
	return "fr,lemonde)/ " + timestamp + " https://lemonde.fr/ text/html 200 DIGESTDIGESTDIGESTDIGESTDIGESTDI 1000\n"
}

func TestFindClosestPicksNearestCapture(t *testing.T) {
	var query atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/cdx/search/cdx", r.URL.Path)
		query.Store(r.URL.Query())
		_, _ = w.Write([]byte(cdxLine("20240610150000") + cdxLine("20240610175500") + cdxLine("20240610191000")))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	target := time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return target.Add(24 * time.Hour) }

	id, err := client.FindClosest(context.Background(), "https://lemonde.fr/", target)
	require.NoError(t, err)
	assert.Equal(t, "20240610175500", id.Timestamp)
	assert.Equal(t, "https://lemonde.fr/", id.Original)

	params := query.Load().(url.Values)
	assert.Equal(t, []string{"https://lemonde.fr/"}, params["url"])
	assert.Equal(t, []string{"statuscode:200"}, params["filter"])
	assert.Equal(t, []string{"20240610120000"}, params["from"])
	assert.Equal(t, []string{"20240611000000"}, params["to"])
}

func TestFindClosestClampsWindowToNow(t *testing.T) {
	var query atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query.Store(r.URL.Query())
		_, _ = w.Write([]byte(cdxLine("20240610175500")))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	target := time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC)
	// The upper bound would be 6h in the future; it must stop at now.
	client.now = func() time.Time { return target.Add(10 * time.Minute) }

	_, err := client.FindClosest(context.Background(), "https://lemonde.fr/", target)
	require.NoError(t, err)

	params := query.Load().(url.Values)
	assert.Equal(t, []string{"20240610181000"}, params["to"])
}

func TestFindClosestNoCaptures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("\n"))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.FindClosest(context.Background(), "https://lemonde.fr/",
		time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrNotYetAvailable)
}

func TestFindClosestRejectsMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not cdx\n"))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.FindClosest(context.Background(), "https://lemonde.fr/",
		time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC))
	assert.ErrorContains(t, err, "malformed CDX")
}

func TestTooManyRequestsClosesGate(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	target := time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC)

	_, err := client.FindClosest(context.Background(), "https://lemonde.fr/", target)
	var transient *TransientError
	require.ErrorAs(t, err, &transient)
	assert.Equal(t, ErrorClassTooManyRequests, transient.Class)

	// The next attempt fails fast without touching the network.
	_, err = client.FindClosest(context.Background(), "https://lemonde.fr/", target)
	var retry *RetryAfterError
	require.ErrorAs(t, err, &retry)
	assert.Equal(t, ErrorClassTooManyRequests, retry.Class)
	assert.Equal(t, int64(1), requests.Load())
}

func TestConnectionErrorClosesGate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := testClient(t, server.URL)
	target := time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC)

	_, err := client.FindClosest(context.Background(), "https://lemonde.fr/", target)
	var transient *TransientError
	require.ErrorAs(t, err, &transient)
	assert.Equal(t, ErrorClassConnect, transient.Class)

	var retry *RetryAfterError
	_, err = client.FindClosest(context.Background(), "https://lemonde.fr/", target)
	require.ErrorAs(t, err, &retry)
	assert.Equal(t, ErrorClassConnect, retry.Class)
}

func TestFetchReturnsArchivedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/web/20240610175500/https://lemonde.fr/", r.URL.Path)
		_, _ = w.Write([]byte("<html>front page</html>"))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	id := SnapshotID{Timestamp: "20240610175500", Original: "https://lemonde.fr/"}

	snap, err := client.Fetch(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, snap.ID)
	assert.Equal(t, "<html>front page</html>", snap.Text)
}

func TestFetchNonOKStatusIsNotTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.Fetch(context.Background(), SnapshotID{Timestamp: "20240610175500", Original: "https://lemonde.fr/"})
	require.Error(t, err)

	// A plain HTTP error must not close a gate.
	var transient *TransientError
	assert.False(t, errors.As(err, &transient))
	assert.NoError(t, client.gate429.Check())
	assert.NoError(t, client.gateConn.Check())
}
