package archive

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLine = "fr,lemonde)/ 20240610180104 https://lemonde.fr/ text/html 200 UK5WVYGV5Y3LHDWZ3BARYV6T6KRBWTCB 124838"

func TestParseCDXLine(t *testing.T) {
	rec, err := ParseCDXLine(sampleLine)
	require.NoError(t, err)

	assert.Equal(t, "fr,lemonde)/", rec.URLKey)
	assert.Equal(t, "20240610180104", rec.Timestamp)
	assert.Equal(t, "https://lemonde.fr/", rec.Original)
	assert.Equal(t, "text/html", rec.MimeType)
	assert.Equal(t, 200, rec.StatusCode)
	assert.Equal(t, "UK5WVYGV5Y3LHDWZ3BARYV6T6KRBWTCB", rec.Digest)
	assert.Equal(t, int64(124838), rec.Length)

	ts, err := rec.Time()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 10, 18, 1, 4, 0, time.UTC), ts)
}

func TestParseCDXLineFailsClosed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"six fields", "fr,lemonde)/ 20240610180104 https://lemonde.fr/ text/html 200 DIGEST"},
		{"eight fields", sampleLine + " extra"},
		{"bad status", "fr,lemonde)/ 20240610180104 https://lemonde.fr/ text/html OK DIGEST 1"},
		{"bad length", "fr,lemonde)/ 20240610180104 https://lemonde.fr/ text/html 200 DIGEST many"},
		{"bad timestamp", "fr,lemonde)/ 2024-06-10 https://lemonde.fr/ text/html 200 DIGEST 1"},
		{"month out of range", "fr,lemonde)/ 20241310180104 https://lemonde.fr/ text/html 200 DIGEST 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCDXLine(tt.line)
			assert.Error(t, err)
		})
	}
}

func TestCDXRecordStringRoundTrip(t *testing.T) {
	rec, err := ParseCDXLine(sampleLine)
	require.NoError(t, err)
	assert.Equal(t, sampleLine, rec.String())

	again, err := ParseCDXLine(rec.String())
	require.NoError(t, err)
	if diff := cmp.Diff(rec, again); diff != "" {
		t.Errorf("record changed across round trip (-before +after):\n%s", diff)
	}
}

func TestSnapshotID(t *testing.T) {
	rec, err := ParseCDXLine(sampleLine)
	require.NoError(t, err)

	id := SnapshotIDFromRecord(rec)
	assert.Equal(t, "http://web.archive.org/web/20240610180104/https://lemonde.fr/", id.URL())

	ts, err := id.Time()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 10, 18, 1, 4, 0, time.UTC), ts)
}

func TestFormatTimestamp(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	// Local instants are rendered in UTC.
	instant := time.Date(2024, 6, 10, 20, 0, 0, 0, paris)
	assert.Equal(t, "20240610180000", FormatTimestamp(instant))
	assert.Equal(t, "20240610", FormatDate(instant))
}
