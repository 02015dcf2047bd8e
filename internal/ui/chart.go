package ui

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// sparkline renders the newest width values as block characters scaled
// between the series min and max. Missing values render as spaces.
func sparkline(values []*float64, width int) string {
	if width <= 0 || len(values) == 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	st := seriesStats(values)

	var b strings.Builder
	for _, v := range values {
		if !usable(v) {
			b.WriteRune(' ')
			continue
		}
		idx := 0
		if st.Max > st.Min {
			idx = int(math.Round((*v - st.Min) / (st.Max - st.Min) * float64(len(sparkBlocks)-1)))
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}

type stats struct {
	Count int
	Min   float64
	Max   float64
	Last  float64
}

func seriesStats(values []*float64) stats {
	var st stats
	for _, v := range values {
		if !usable(v) {
			continue
		}
		if st.Count == 0 {
			st.Min, st.Max = *v, *v
		}
		st.Min = math.Min(st.Min, *v)
		st.Max = math.Max(st.Max, *v)
		st.Last = *v
		st.Count++
	}
	return st
}

func (s stats) String() string {
	if s.Count == 0 {
		return "no values"
	}
	return fmt.Sprintf("min %s  max %s  last %s  (%d points)", num(s.Min), num(s.Max), num(s.Last), s.Count)
}

func usable(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}
