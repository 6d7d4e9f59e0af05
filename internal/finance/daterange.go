package finance

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DateLayout is the backend's date format
const DateLayout = "2006-01-02"

// Range presets
const (
	PresetThisMonth  = "this-month"
	PresetLast30Days = "last-30-days"
)

// DateRange is an inclusive range of calendar days; zero bounds are open
type DateRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether neither bound is set
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// ParseDateRange accepts "START..END" with either side optional, a single
// day, or a preset. now anchors the presets.
func ParseDateRange(s string, now time.Time) (DateRange, error) {
	s = strings.TrimSpace(s)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch s {
	case "":
		return DateRange{}, nil
	case PresetThisMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return DateRange{Start: start, End: start.AddDate(0, 1, -1)}, nil
	case PresetLast30Days:
		return DateRange{Start: today.AddDate(0, 0, -29), End: today}, nil
	}

	startText, endText, isRange := strings.Cut(s, "..")
	if !isRange {
		day, err := time.ParseInLocation(DateLayout, s, now.Location())
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD, START..END, %s or %s", s, PresetThisMonth, PresetLast30Days)
		}
		return DateRange{Start: day, End: day}, nil
	}

	var r DateRange
	var err error
	if startText != "" {
		if r.Start, err = time.ParseInLocation(DateLayout, startText, now.Location()); err != nil {
			return DateRange{}, fmt.Errorf("invalid start date %q", startText)
		}
	}
	if endText != "" {
		if r.End, err = time.ParseInLocation(DateLayout, endText, now.Location()); err != nil {
			return DateRange{}, fmt.Errorf("invalid end date %q", endText)
		}
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("end date %s is before start date %s", endText, startText)
	}
	return r, nil
}

// Query encodes the range as startDate/endDate parameters
func (r DateRange) Query() url.Values {
	q := url.Values{}
	if !r.Start.IsZero() {
		q.Set("startDate", r.Start.Format(DateLayout))
	}
	if !r.End.IsZero() {
		q.Set("endDate", r.End.Format(DateLayout))
	}
	return q
}

// String renders the range in the form ParseDateRange accepts
func (r DateRange) String() string {
	if r.IsZero() {
		return ""
	}
	var start, end string
	if !r.Start.IsZero() {
		start = r.Start.Format(DateLayout)
	}
	if !r.End.IsZero() {
		end = r.End.Format(DateLayout)
	}
	return start + ".." + end
}
