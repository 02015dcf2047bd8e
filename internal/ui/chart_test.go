package ui

import (
	"math"
	"testing"
)

func fp(v float64) *float64 { return &v }

func TestSparkline(t *testing.T) {
	tests := []struct {
		name   string
		values []*float64
		width  int
		want   string
	}{
		{"empty", nil, 10, ""},
		{"zero width", []*float64{fp(1)}, 0, ""},
		{"ramp", []*float64{fp(0), fp(7), fp(14)}, 10, "▁▅█"},
		{"flat", []*float64{fp(3), fp(3)}, 10, "▁▁"},
		{"gaps", []*float64{fp(0), nil, fp(1)}, 10, "▁ █"},
		{"keeps newest", []*float64{fp(100), fp(0), fp(1)}, 2, "▁█"},
		{"nan skipped", []*float64{fp(math.NaN()), fp(1), fp(2)}, 10, " ▁█"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sparkline(tt.values, tt.width); got != tt.want {
				t.Errorf("sparkline() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSeriesStats(t *testing.T) {
	st := seriesStats([]*float64{nil, fp(4), fp(-2), fp(3)})
	if st.Count != 3 || st.Min != -2 || st.Max != 4 || st.Last != 3 {
		t.Fatalf("seriesStats = %+v", st)
	}
	if got := (stats{}).String(); got != "no values" {
		t.Fatalf("empty stats = %q", got)
	}
	if got := st.String(); got != "min -2  max 4  last 3  (3 points)" {
		t.Fatalf("stats.String() = %q", got)
	}
}
