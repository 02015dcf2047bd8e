package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/fadea/fadeclient/internal/fadeapi"
)

func TestRecordColumns(t *testing.T) {
	cols := recordColumns(3)
	if len(cols) != 4 {
		t.Fatalf("len(cols) = %d, want 4", len(cols))
	}
	want := []string{"ts", "s1", "s2", "s3"}
	for i, c := range cols {
		if c.Title != want[i] {
			t.Errorf("cols[%d].Title = %q, want %q", i, c.Title, want[i])
		}
	}
}

func TestRecordRows_PadsAndOrdersNewestFirst(t *testing.T) {
	recs := []fadeapi.Record{
		{Timestamp: "2024-01-01T00:00:00Z", SensorValues: []*float64{fp(1)}},
		{Timestamp: "2024-01-01T00:00:01Z", SensorValues: []*float64{fp(2), nil, fp(3.5)}},
	}
	rows := recordRows(recs, 3)
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d", len(rows))
	}
	for i, row := range rows {
		if len(row) != 4 {
			t.Fatalf("len(rows[%d]) = %d, want 4", i, len(row))
		}
	}
	if rows[0][0] != "2024-01-01T00:00:01Z" || rows[0][1] != "2" || rows[0][2] != "" || rows[0][3] != "3.5" {
		t.Fatalf("rows[0] = %v", rows[0])
	}
	if rows[1][1] != "1" || rows[1][2] != "" || rows[1][3] != "" {
		t.Fatalf("rows[1] = %v, want blank padding", rows[1])
	}
}

func TestSensorSeries(t *testing.T) {
	recs := []fadeapi.Record{
		{SensorValues: []*float64{fp(1), fp(10)}},
		{SensorValues: []*float64{fp(2)}},
	}
	got := sensorSeries(recs, 1)
	if len(got) != 2 || got[0] == nil || *got[0] != 10 || got[1] != nil {
		t.Fatalf("sensorSeries = %v", got)
	}
}

func TestParseFilter(t *testing.T) {
	q, err := parseFilter(" 200 ", " 2024-01-31T23:59:59Z ")
	if err != nil {
		t.Fatalf("parseFilter returned error: %v", err)
	}
	if q.Limit != 200 || q.Until != "2024-01-31T23:59:59Z" {
		t.Fatalf("parseFilter = %+v", q)
	}

	for _, tc := range []struct{ limit, until, want string }{
		{"0", "", "limit"},
		{"abc", "", "limit"},
		{"10", "yesterday", "until"},
	} {
		if _, err := parseFilter(tc.limit, tc.until); err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("parseFilter(%q, %q) error = %v, want %s error", tc.limit, tc.until, err, tc.want)
		}
	}
}

func TestDefaultExportName(t *testing.T) {
	got := defaultExportName(time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC))
	if got != "fadeapi_records_20240309_140506.csv" {
		t.Fatalf("defaultExportName = %q", got)
	}
}

func TestInfoSuffix(t *testing.T) {
	if got := infoSuffix(fadeapi.Info{"deleted": 12}); got != " (deleted: 12)" {
		t.Fatalf("infoSuffix = %q", got)
	}
	if got := infoSuffix(nil); got != "" {
		t.Fatalf("infoSuffix(nil) = %q", got)
	}
}
