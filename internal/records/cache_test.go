package records

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/fadea/fadeclient/internal/fadeapi"
)

func vals(values ...float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		v := values[i]
		out[i] = &v
	}
	return out
}

func rec(ts string, values ...float64) fadeapi.Record {
	return fadeapi.Record{Timestamp: ts, SensorValues: vals(values...)}
}

func timestamps(recs []fadeapi.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Timestamp
	}
	return out
}

func TestCache_MergeAppendsWithoutPadding(t *testing.T) {
	var c Cache
	c.Merge([]fadeapi.Record{rec("2024-01-01T00:00:00Z", 1, 2)})
	res := c.Merge([]fadeapi.Record{rec("2024-01-01T00:00:01Z", 3)})

	if res.Added != 1 || res.Duplicates != 0 || res.Invalid != 0 {
		t.Fatalf("MergeResult = %#v, want Added=1", res)
	}
	got := c.Records()
	if len(got) != 2 {
		t.Fatalf("Len = %d, want 2", len(got))
	}
	if got[0].Timestamp != "2024-01-01T00:00:00Z" || got[1].Timestamp != "2024-01-01T00:00:01Z" {
		t.Fatalf("order = %v, want ascending", timestamps(got))
	}
	if len(got[1].SensorValues) != 1 || *got[1].SensorValues[0] != 3 {
		t.Fatalf("second sensor values = %v, want [3]", got[1].SensorValues)
	}
	if c.Width() != 2 {
		t.Fatalf("Width = %d, want 2", c.Width())
	}
}

func TestCache_NextCursorAddsOneMicrosecond(t *testing.T) {
	var c Cache
	if _, ok := c.NextCursor(); ok {
		t.Fatalf("NextCursor on empty cache ok = true")
	}

	c.Merge([]fadeapi.Record{rec("2024-01-01T00:00:00Z", 1, 2), rec("2024-01-01T00:00:01Z", 3)})
	cursor, ok := c.NextCursor()
	if !ok || cursor != "2024-01-01T00:00:01.000001+00:00" {
		t.Fatalf("NextCursor = %q, %v; want 2024-01-01T00:00:01.000001+00:00", cursor, ok)
	}

	c.Clear()
	if _, ok := c.NextCursor(); ok {
		t.Fatalf("NextCursor after Clear ok = true")
	}
	if c.Len() != 0 || c.Records() != nil {
		t.Fatalf("cache not empty after Clear: %v", c.Records())
	}
}

func TestCache_NextCursorEdgeCases(t *testing.T) {
	tests := []struct {
		name string
		ts   string
		want string
	}{
		{"naive assumed utc", "2024-03-05T10:00:00", "2024-03-05T10:00:00.000001+00:00"},
		{"keeps source offset", "2024-03-05T10:00:00-03:00", "2024-03-05T10:00:00.000001-03:00"},
		{"rolls into next second", "2024-03-05T10:00:00.999999+00:00", "2024-03-05T10:00:01+00:00"},
		{"sub-microsecond truncated", "2024-03-05T10:00:00.1234567Z", "2024-03-05T10:00:00.123457+00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Cache
			c.Merge([]fadeapi.Record{{Timestamp: tt.ts}})
			got, ok := c.NextCursor()
			if !ok || got != tt.want {
				t.Fatalf("NextCursor = %q, %v; want %q", got, ok, tt.want)
			}
		})
	}
}

func TestCache_CursorIsStrictlyOneMicrosecondAfterMax(t *testing.T) {
	var c Cache
	c.Merge([]fadeapi.Record{
		rec("2024-05-01T12:00:00.5Z"),
		rec("2024-05-01T09:00:00+02:00"),
		rec("2024-04-30T23:59:59Z"),
	})
	cursor, _ := c.NextCursor()
	got, err := ParseTimestamp(cursor)
	if err != nil {
		t.Fatalf("ParseTimestamp(%q): %v", cursor, err)
	}
	want := time.Date(2024, 5, 1, 12, 0, 0, 500001000, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("cursor = %v, want %v", got, want)
	}
}

func TestCache_MergeIsIdempotent(t *testing.T) {
	batch := []fadeapi.Record{
		rec("2024-01-01T00:00:02Z", 2),
		rec("2024-01-01T00:00:00Z", 0),
		rec("2024-01-01T00:00:01Z", 1),
	}

	var once Cache
	once.Merge(batch)

	var twice Cache
	twice.Merge(batch)
	res := twice.Merge(batch)

	if res.Added != 0 || res.Duplicates != 3 {
		t.Fatalf("second MergeResult = %#v, want 3 duplicates", res)
	}
	if !reflect.DeepEqual(once.Records(), twice.Records()) {
		t.Fatalf("merge not idempotent: %v vs %v", timestamps(once.Records()), timestamps(twice.Records()))
	}
}

func TestCache_FirstSeenWins(t *testing.T) {
	var c Cache
	c.Merge([]fadeapi.Record{rec("2024-01-01T00:00:00Z", 1), rec("2024-01-01T00:00:01Z", 2)})
	c.Merge([]fadeapi.Record{rec("2024-01-01T00:00:01Z", 99), rec("2024-01-01T00:00:02Z", 3)})

	got := c.Records()
	if len(got) != 3 {
		t.Fatalf("Len = %d, want 3", len(got))
	}
	if *got[1].SensorValues[0] != 2 {
		t.Fatalf("shared timestamp value = %v, want first-seen 2", *got[1].SensorValues[0])
	}
}

func TestCache_DuplicatesWithinOneBatch(t *testing.T) {
	var c Cache
	res := c.Merge([]fadeapi.Record{rec("2024-01-01T00:00:00Z", 1), rec("2024-01-01T00:00:00Z", 2)})
	if res.Added != 1 || res.Duplicates != 1 {
		t.Fatalf("MergeResult = %#v, want 1 added 1 duplicate", res)
	}
	if got := c.Records(); *got[0].SensorValues[0] != 1 {
		t.Fatalf("value = %v, want first 1", *got[0].SensorValues[0])
	}
}

func TestCache_DistinctStringsForSameInstantAreKept(t *testing.T) {
	var c Cache
	c.Merge([]fadeapi.Record{rec("2024-01-01T00:00:00Z", 1)})
	res := c.Merge([]fadeapi.Record{rec("2024-01-01T00:00:00+00:00", 2)})
	if res.Added != 1 {
		t.Fatalf("MergeResult = %#v, want the alternate spelling added", res)
	}
	got := c.Records()
	if len(got) != 2 || got[0].Timestamp != "2024-01-01T00:00:00Z" {
		t.Fatalf("records = %v, want earlier-seen first on equal instants", timestamps(got))
	}
}

func TestCache_InvalidTimestampsAreDropped(t *testing.T) {
	var c Cache
	res := c.Merge([]fadeapi.Record{{Timestamp: "yesterday"}, {Timestamp: ""}, rec("2024-01-01T00:00:00Z")})
	if res.Added != 1 || res.Invalid != 2 {
		t.Fatalf("MergeResult = %#v, want 1 added 2 invalid", res)
	}
}

func TestCache_SortedAfterInterleavedMerges(t *testing.T) {
	var c Cache
	batches := [][]fadeapi.Record{
		{rec("2024-01-01T00:00:05Z"), rec("2024-01-01T00:00:01Z")},
		{rec("2024-01-01T00:00:03Z"), rec("2024-01-01T00:00:09Z")},
		{rec("2024-01-01T00:00:00Z"), rec("2024-01-01T02:00:04+02:00")},
		{rec("2024-01-01T00:00:07")},
	}
	for _, b := range batches {
		c.Merge(b)
	}

	got := c.Records()
	if len(got) != 7 {
		t.Fatalf("Len = %d, want 7", len(got))
	}
	var prev time.Time
	for i, r := range got {
		at, err := ParseTimestamp(r.Timestamp)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", r.Timestamp, err)
		}
		if i > 0 && at.Before(prev) {
			t.Fatalf("records not ascending: %v", timestamps(got))
		}
		prev = at
	}
}

func TestCache_RecordsReturnsCopies(t *testing.T) {
	var c Cache
	c.Merge([]fadeapi.Record{rec("2024-01-01T00:00:00Z", 1)})
	got := c.Records()
	*got[0].SensorValues[0] = 42
	got[0].Timestamp = "mutated"

	again := c.Records()
	if again[0].Timestamp != "2024-01-01T00:00:00Z" || *again[0].SensorValues[0] != 1 {
		t.Fatalf("Records should return copies, got %#v", again[0])
	}
	latest, ok := c.Latest()
	if !ok || latest.Timestamp != "2024-01-01T00:00:00Z" {
		t.Fatalf("Latest = %#v, %v", latest, ok)
	}
}

func TestCache_VersionChangesOnlyOnContentChange(t *testing.T) {
	var c Cache
	v0 := c.Version()
	c.Merge(nil)
	if c.Version() != v0 {
		t.Fatalf("Version changed on empty merge")
	}
	c.Merge([]fadeapi.Record{rec("2024-01-01T00:00:00Z")})
	v1 := c.Version()
	if v1 == v0 {
		t.Fatalf("Version unchanged after add")
	}
	c.Merge([]fadeapi.Record{rec("2024-01-01T00:00:00Z")})
	if c.Version() != v1 {
		t.Fatalf("Version changed on duplicate-only merge")
	}
	c.Clear()
	if c.Version() == v1 {
		t.Fatalf("Version unchanged after Clear")
	}
}

func TestCache_ConcurrentMerges(t *testing.T) {
	var c Cache
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				ts := fmt.Sprintf("2024-01-01T00:%02d:%02dZ", i%60, w)
				c.Merge([]fadeapi.Record{rec(ts, float64(w))})
				_, _ = c.NextCursor()
			}
		}(w)
	}
	wg.Wait()

	if c.Len() != 400 {
		t.Fatalf("Len = %d, want 400", c.Len())
	}
	got := c.Records()
	seen := make(map[string]bool)
	for _, r := range got {
		if seen[r.Timestamp] {
			t.Fatalf("duplicate timestamp %q", r.Timestamp)
		}
		seen[r.Timestamp] = true
	}
}
