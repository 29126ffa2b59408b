package parser

import (
	"fmt"
	"strings"
	"time"
)

// FieldCount is the number of time fields in a schedule.
const FieldCount = 5

// Schedule specifies when a job runs, to the minute, based on a traditional
// five-field crontab schedule. Each field is either unconstrained or an
// allow-list of values.
type Schedule struct {
	Minute, Hour, Dom, Month, Dow Field
}

// Parse parses a five-field cron expression such as "*/15 2 * * 1-5".
func Parse(spec string) (Schedule, error) {
	return ParseFields(strings.Fields(spec))
}

// ParseFields parses exactly five field tokens in the order minute, hour,
// day-of-month, month, day-of-week.
func ParseFields(fields []string) (Schedule, error) {
	if len(fields) != FieldCount {
		return Schedule{}, fmt.Errorf("%w: expected %d, got %d", ErrFieldCount, FieldCount, len(fields))
	}

	var (
		s   Schedule
		err error
	)
	if s.Minute, err = ParseField(fields[0], Minutes); err != nil {
		return Schedule{}, fmt.Errorf("minute field: %w", err)
	}
	if s.Hour, err = ParseField(fields[1], Hours); err != nil {
		return Schedule{}, fmt.Errorf("hour field: %w", err)
	}
	if s.Dom, err = ParseField(fields[2], DaysOfMonth); err != nil {
		return Schedule{}, fmt.Errorf("day-of-month field: %w", err)
	}
	if s.Month, err = ParseField(fields[3], Months); err != nil {
		return Schedule{}, fmt.Errorf("month field: %w", err)
	}
	if s.Dow, err = ParseDayOfWeek(fields[4]); err != nil {
		return Schedule{}, fmt.Errorf("day-of-week field: %w", err)
	}
	return s, nil
}

// Matches reports whether t satisfies every constrained field. Day of week
// is taken as Monday=1 through Sunday=7.
func (s Schedule) Matches(t time.Time) bool {
	return s.Month.Contains(int(t.Month())) &&
		s.Dom.Contains(t.Day()) &&
		s.Dow.Contains(weekday(t)) &&
		s.Hour.Contains(t.Hour()) &&
		s.Minute.Contains(t.Minute())
}

// Equal reports whether both schedules constrain every field identically.
func (s Schedule) Equal(other Schedule) bool {
	return s.Minute.Equal(other.Minute) &&
		s.Hour.Equal(other.Hour) &&
		s.Dom.Equal(other.Dom) &&
		s.Month.Equal(other.Month) &&
		s.Dow.Equal(other.Dow)
}

func (s Schedule) String() string {
	return strings.Join([]string{
		s.Minute.String(), s.Hour.String(), s.Dom.String(), s.Month.String(), s.Dow.String(),
	}, " ")
}

// Next returns the earliest minute strictly after t that matches the
// schedule, in t's location. It gives up after four years, which covers
// impossible schedules such as February 31.
func (s Schedule) Next(t time.Time) (time.Time, error) {
	t = t.Truncate(time.Minute).Add(time.Minute)
	loc := t.Location()
	limit := t.AddDate(4, 0, 0)

	for t.Before(limit) {
		if !s.Month.Contains(int(t.Month())) {
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, loc)
			continue
		}
		if !s.Dom.Contains(t.Day()) || !s.Dow.Contains(weekday(t)) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
			continue
		}
		if !s.Hour.Contains(t.Hour()) {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, loc)
			continue
		}
		if !s.Minute.Contains(t.Minute()) {
			t = t.Add(time.Minute)
			continue
		}
		return t, nil
	}

	return time.Time{}, fmt.Errorf("%w: within 4 years of %s", ErrNoMatch, limit.AddDate(-4, 0, 0).Format(time.RFC3339))
}

// weekday maps time.Weekday onto Monday=1 ... Sunday=7.
func weekday(t time.Time) int {
	if wd := int(t.Weekday()); wd != 0 {
		return wd
	}
	return sundayAlias
}
