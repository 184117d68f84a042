// Package calendar answers trading-day questions for the Indian market.
package calendar

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// NSE holidays falling on weekdays. Extend with MARKET_HOLIDAYS for years not listed.
var defaultHolidays = []string{
	"2025-02-26", "2025-03-14", "2025-03-31", "2025-04-10", "2025-04-14",
	"2025-04-18", "2025-05-01", "2025-08-15", "2025-08-27", "2025-10-02",
	"2025-10-21", "2025-10-22", "2025-11-05", "2025-12-25",
	"2026-01-26", "2026-03-03", "2026-03-26", "2026-03-31", "2026-04-03",
	"2026-04-14", "2026-05-01", "2026-05-28", "2026-06-26", "2026-09-14",
	"2026-10-02", "2026-10-20", "2026-11-10", "2026-11-24", "2026-12-25",
}

// Calendar knows the market timezone and its holidays.
type Calendar struct {
	loc      *time.Location
	holidays map[string]struct{}
}

// New creates a Calendar for Asia/Kolkata with the default holidays plus
// extra ones given as YYYY-MM-DD. Malformed dates are reported.
func New(extraHolidays []string) (*Calendar, error) {
	c := &Calendar{loc: marketLocation(), holidays: make(map[string]struct{})}
	for _, d := range append(append([]string{}, defaultHolidays...), extraHolidays...) {
		if _, err := time.Parse(dateLayout, d); err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", d, err)
		}
		c.holidays[d] = struct{}{}
	}
	return c, nil
}

// Location returns the market timezone.
func (c *Calendar) Location() *time.Location { return c.loc }

// IsTradingDay reports whether the market-local calendar date of t is a weekday
// that is not a holiday.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	local := t.In(c.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := c.holidays[local.Format(dateLayout)]
	return !holiday
}

// PreviousTradingDay returns the last completed trading session before now,
// as a UTC midnight date. NAVs for a session are published after it closes,
// so today is never returned.
func (c *Calendar) PreviousTradingDay(now time.Time) time.Time {
	local := now.In(c.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, c.loc).AddDate(0, 0, -1)
	for !c.IsTradingDay(day) {
		day = day.AddDate(0, 0, -1)
	}
	return DateOnly(day)
}

// DateOnly strips the clock from t, keeping its calendar date in t's location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func marketLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.FixedZone("IST", 5*60*60+30*60)
	}
	return loc
}
