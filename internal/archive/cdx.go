package archive

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timestampLayout is the archive's capture timestamp format (UTC).
const timestampLayout = "20060102150405"

// dateLayout is the date-only form accepted by the CDX from/to parameters.
const dateLayout = "20060102"

// CDXRecord is one line of a CDX search response. The archive's field
// ordering is historically stable but undocumented; parsing fails closed on
// anything that is not exactly the seven known fields.
type CDXRecord struct {
	URLKey     string
	Timestamp  string // raw YYYYMMDDhhmmss, kept verbatim for round-tripping
	Original   string
	MimeType   string
	StatusCode int
	Digest     string
	Length     int64
}

// ParseCDXLine parses a single whitespace-separated CDX record.
func ParseCDXLine(line string) (CDXRecord, error) {
	fields := strings.Fields(line)
	if len(fields) != 7 {
		return CDXRecord{}, fmt.Errorf("malformed CDX line: expected 7 fields, got %d in %q", len(fields), line)
	}
	status, err := strconv.Atoi(fields[4])
	if err != nil {
		return CDXRecord{}, fmt.Errorf("malformed CDX status code %q: %w", fields[4], err)
	}
	length, err := strconv.ParseInt(fields[6], 10, 64)
	if err != nil {
		return CDXRecord{}, fmt.Errorf("malformed CDX length %q: %w", fields[6], err)
	}
	if _, err := time.ParseInLocation(timestampLayout, fields[1], time.UTC); err != nil {
		return CDXRecord{}, fmt.Errorf("malformed CDX timestamp %q: %w", fields[1], err)
	}
	return CDXRecord{
		URLKey:     fields[0],
		Timestamp:  fields[1],
		Original:   fields[2],
		MimeType:   fields[3],
		StatusCode: status,
		Digest:     fields[5],
		Length:     length,
	}, nil
}

// String re-emits the record in the wire format; parsing then printing a
// valid line is a fixed point.
func (r CDXRecord) String() string {
	return strings.Join([]string{
		r.URLKey,
		r.Timestamp,
		r.Original,
		r.MimeType,
		strconv.Itoa(r.StatusCode),
		r.Digest,
		strconv.FormatInt(r.Length, 10),
	}, " ")
}

// Time parses the capture timestamp. Records constructed by ParseCDXLine
// always carry a valid one.
func (r CDXRecord) Time() (time.Time, error) {
	return time.ParseInLocation(timestampLayout, r.Timestamp, time.UTC)
}

// SnapshotID uniquely identifies an archived capture: the archive timestamp
// plus the original URL that was captured.
type SnapshotID struct {
	Timestamp string
	Original  string
}

// SnapshotIDFromRecord projects a CDX record onto its capture identity.
func SnapshotIDFromRecord(r CDXRecord) SnapshotID {
	return SnapshotID{Timestamp: r.Timestamp, Original: r.Original}
}

// Time parses the capture timestamp as UTC.
func (id SnapshotID) Time() (time.Time, error) {
	return time.ParseInLocation(timestampLayout, id.Timestamp, time.UTC)
}

// URL is the snapshot-retrieval endpoint for this capture.
func (id SnapshotID) URL() string {
	return fmt.Sprintf("http://web.archive.org/web/%s/%s", id.Timestamp, id.Original)
}

// FormatTimestamp renders an instant in the archive's date+time form (UTC).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// FormatDate renders an instant in the archive's date-only form (UTC).
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// Snapshot is a fetched capture: its identity plus the archived body.
type Snapshot struct {
	ID   SnapshotID
	Text string
}
