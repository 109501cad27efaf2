package converter

import (
	"strconv"
	"strings"
	"time"

	"github.com/nconklindev/utilrep/internal/types"
)

// Layouts tried in order. Numeric forms are day-first; single-digit day and
// month are accepted by every numeric layout.
var dayFirstLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"2/1/2006 3:04 PM",
	"2/1/2006 3:04 pm",
	"2-1-2006 15:04",
	"2-1-2006 15:04:05",
	"2.1.2006 15:04",
	"2/1/06",
	"2-1-06",
	"2.1.06",
	"2/Jan/06",
	"2/Jan/06 3:04 PM",
	"2/Jan/06 3:04 pm",
	"2/Jan/06 15:04",
	"2/Jan/2006",
	"2/Jan/2006 3:04 PM",
	"2/Jan/2006 3:04 pm",
	"2-Jan-06",
	"2-Jan-2006",
	"2 Jan 2006",
	"2 January 2006",
	"2 Jan 06",
	"2006-1-2",
	"2006/1/2",
	"2006-1-2 15:04",
	"2006-1-2 15:04:05",
	"2006-1-2T15:04:05",
	"2006-1-2T15:04:05Z07:00",
	"2006-1-2T15:04:05.000Z0700",
	"2006-1-2T15:04:05.999999999Z07:00",
	"Jan 2, 2006",
	"January 2, 2006",
}

// Tried only when no day-first layout matches, so an ambiguous value such as
// 01/02/2024 is always read day-first while 12/25/2024 still parses.
var monthFirstLayouts = []string{
	"1/2/2006",
	"1-2-2006",
	"1/2/2006 15:04",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04 pm",
}

// ParseDate interprets s as a calendar date, day-first, trying each
// accepted layout in turn. Any time-of-day component is discarded.
func ParseDate(s string) (time.Time, error) {
	s = strings.Join(strings.Fields(s), " ")
	for _, layouts := range [][]string{dayFirstLayouts, monthFirstLayouts} {
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
			}
		}
	}
	return time.Time{}, ErrInvalidDate
}

// FormatDate renders t as D/M/YYYY without zero padding.
func FormatDate(t time.Time) string {
	return strconv.Itoa(t.Day()) + "/" + strconv.Itoa(int(t.Month())) + "/" + strconv.Itoa(t.Year())
}

// NormalizeDates rewrites every date column as D/M/YYYY and re-derives End
// Date from the normalized Due Date. Blank cells stay blank.
func NormalizeDates(rs *types.RecordSet) (*types.RecordSet, error) {
	out := rs.Clone()
	for _, col := range DateColumns {
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
			t, err := ParseDate(raw)
			if err != nil {
				return nil, &DateParseError{Row: r + 1, Column: col, Value: row[idx]}
			}
			row[idx] = FormatDate(t)
		}
	}

	due, end := out.Column(ColDueDate), out.Column(ColEndDate)
	if due != -1 && end != -1 {
		for _, row := range out.Rows {
			row[end] = row[due]
		}
	}
	return out, nil
}
