package marketdata

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the accepted layout for explicit start and end dates
const DateLayout = "2006-01-02"

var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// ResolvePeriod turns a relative period such as 5d, 2wk, 6mo, 10y, ytd or max
// into a [start, end] day range ending today
func ResolvePeriod(spec string, now time.Time) (time.Time, time.Time, error) {
	end := now.UTC().Truncate(24 * time.Hour)
	spec = strings.ToLower(strings.TrimSpace(spec))

	switch spec {
	case "max":
		return epoch, end, nil
	case "ytd":
		return time.Date(end.Year(), 1, 1, 0, 0, 0, 0, time.UTC), end, nil
	}

	unitAt := strings.IndexFunc(spec, func(r rune) bool { return r < '0' || r > '9' })
	if unitAt <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, spec)
	}
	n, err := strconv.Atoi(spec[:unitAt])
	if err != nil || n < 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, spec)
	}

	var start time.Time
	switch spec[unitAt:] {
	case "d":
		start = end.AddDate(0, 0, -n)
	case "wk":
		start = end.AddDate(0, 0, -7*n)
	case "mo":
		start = end.AddDate(0, -n, 0)
	case "y":
		start = end.AddDate(-n, 0, 0)
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, spec)
	}
	if start.Before(epoch) {
		start = epoch
	}
	return start, end, nil
}

// ResolveRange turns request parameters into a day range. With an empty
// endDate, startDate is either a YYYY-MM-DD date (range ends today) or a
// period spec.
func ResolveRange(startDate, endDate string, now time.Time) (time.Time, time.Time, error) {
	if endDate == "" {
		if start, err := time.Parse(DateLayout, startDate); err == nil {
			end := now.UTC().Truncate(24 * time.Hour)
			if end.Before(start) {
				return time.Time{}, time.Time{}, fmt.Errorf("%w: start date %s is in the future", ErrInvalidPeriod, startDate)
			}
			return start, end, nil
		}
		return ResolvePeriod(startDate, now)
	}

	start, err := time.Parse(DateLayout, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start date %q: %v", ErrInvalidPeriod, startDate, err)
	}
	end, err := time.Parse(DateLayout, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end date %q: %v", ErrInvalidPeriod, endDate, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidPeriod, endDate, startDate)
	}
	return start, end, nil
}
