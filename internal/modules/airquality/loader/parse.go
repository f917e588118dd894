package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp layouts found in exported datasets.
// Values without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

type dateParts struct {
	year, month, day, hour int
}

func (p dateParts) time() time.Time {
	return time.Date(p.year, time.Month(p.month), p.day, p.hour, 0, 0, 0, time.UTC)
}

// parseParts validates year/month/day/hour as a real calendar hour.
func parseParts(year, month, day, hour string) (dateParts, bool) {
	y, ok1 := parseInt(year)
	m, ok2 := parseInt(month)
	d, ok3 := parseInt(day)
	h, ok4 := parseInt(hour)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return dateParts{}, false
	}
	if m < 1 || m > 12 || h < 0 || h > 23 || d < 1 {
		return dateParts{}, false
	}
	// day 0 of the next month is the last day of this one
	if d > time.Date(y, time.Month(m)+1, 0, 0, 0, 0, 0, time.UTC).Day() {
		return dateParts{}, false
	}
	return dateParts{year: y, month: m, day: d, hour: h}, true
}

// parseInt accepts integers and integral floats such as "2013.0".
func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// nullFloat decodes a measurement cell; missing markers decode to nil.
type nullFloat struct {
	v *float64
}

func (n *nullFloat) UnmarshalCSV(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch strings.ToLower(s) {
	case "", "na", "nan", "null", "n/a", "none":
		n.v = nil
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", s)
	}
	n.v = &f
	return nil
}
