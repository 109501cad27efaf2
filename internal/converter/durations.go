package converter

import (
	"math"
	"strconv"
	"strings"

	"github.com/nconklindev/utilrep/internal/types"
)

const secondsPerHour = 3600

// SecondsToHours converts seconds to hours rounded to two decimals,
// halves rounding away from zero.
func SecondsToHours(seconds float64) float64 {
	// scale before dividing so whole seconds land exactly on .5 boundaries
	hours := math.Round(seconds*100/secondsPerHour) / 100
	if hours == 0 {
		return 0 // drop negative zero
	}
	return hours
}

// FormatHours renders h with at least one decimal place: 2.0, 1.5, 0.03.
func FormatHours(h float64) string {
	s := strconv.FormatFloat(h, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ConvertDurations rewrites the hour columns from seconds to hours.
// Blank cells stay blank rather than becoming zero.
func ConvertDurations(rs *types.RecordSet) (*types.RecordSet, error) {
	out := rs.Clone()
	for _, col := range HourColumns {
		idx := out.Column(col)
		if idx == -1 {
			continue
		}
		for r, row := range out.Rows {
			raw := strings.TrimSpace(row[idx])
			if raw == "" {
				row[idx] = ""
				continue
			}
			seconds, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
				return nil, &ConversionError{Row: r + 1, Column: col, Value: row[idx]}
			}
			row[idx] = FormatHours(SecondsToHours(seconds))
		}
	}
	return out, nil
}
