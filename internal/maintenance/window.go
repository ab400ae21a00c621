package maintenance

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidWindow is returned when the window ends before it starts.
var ErrInvalidWindow = errors.New("end time must be after start time")

// Input layouts
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "03:04 PM"

	// ISOLayout matches the API's timestamp format (UTC with +00:00 offset)
	ISOLayout = "2006-01-02T15:04:05-07:00"
)

// Window is a maintenance time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Validate checks that the window ends after it starts.
func (w Window) Validate() error {
	if !w.End.After(w.Start) {
		return fmt.Errorf("%w: %s is not after %s", ErrInvalidWindow, w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
	}
	return nil
}

// StartISO returns the start in UTC ISO-8601.
func (w Window) StartISO() string { return w.Start.UTC().Format(ISOLayout) }

// EndISO returns the end in UTC ISO-8601.
func (w Window) EndISO() string { return w.End.UTC().Format(ISOLayout) }

// NextSunday returns the date of the coming Sunday in loc, today when
// now already is a Sunday there.
func NextSunday(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	days := (7 - int(local.Weekday())) % 7
	y, m, d := local.AddDate(0, 0, days).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DefaultWindow is next Sunday between the start and end clock times.
func DefaultWindow(now time.Time, loc *time.Location, startClock, endClock string) (Window, error) {
	date := NextSunday(now, loc).Format(DateLayout)
	return ParseWindow(date, startClock, date, endClock, loc)
}

// ParseWindow builds a window from dates (2006-01-02) and 12-hour
// clock times (06:00 AM) entered in loc.
func ParseWindow(startDate, startClock, endDate, endClock string, loc *time.Location) (Window, error) {
	start, err := parseLocal(startDate, startClock, loc)
	if err != nil {
		return Window{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseLocal(endDate, endClock, loc)
	if err != nil {
		return Window{}, fmt.Errorf("end: %w", err)
	}
	return Window{Start: start, End: end}, nil
}

func parseLocal(date, clock string, loc *time.Location) (time.Time, error) {
	value := strings.TrimSpace(date) + " " + strings.ToUpper(strings.TrimSpace(clock))
	// 3:04 accepts both "6:00" and "06:00"
	t, err := time.ParseInLocation(DateLayout+" 3:04 PM", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q, want YYYY-MM-DD HH:MM AM/PM", value)
	}
	return t, nil
}
