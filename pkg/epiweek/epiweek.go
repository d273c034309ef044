// Package epiweek implements the Sunday-first week numbering convention
// used by Brazilian epidemiological surveillance. It is distinct from the
// ISO 8601 week: weeks run Sunday through Saturday, and the days of a new
// civil year that precede its first Sunday form week 0, which is reassigned
// to the final week of the previous year.
package epiweek

import "time"

// Week returns the Sunday-first week-of-year number for d, in [0, 53].
// Days before the first Sunday of the year fall in week 0. Matches
// strftime's %U directive.
func Week(d time.Time) int {
	yday := d.YearDay() - 1
	wday := int(d.Weekday())
	return (yday + 7 - wday) / 7
}

// LastWeek returns the week number of December 31st of year, i.e. the
// highest week number that year reaches (52 or 53).
func LastWeek(year int) int {
	return Week(time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC))
}

// Epidemiological returns the epidemiological year and week for d.
// A day whose natural week is 0 belongs to the final epidemiological week
// of the previous civil year. Only the start-of-year boundary is adjusted:
// late-December days are never rolled forward into the next year's week 1.
func Epidemiological(d time.Time) (year, week int) {
	w := Week(d)
	if w == 0 {
		prev := d.Year() - 1
		return prev, LastWeek(prev)
	}
	return d.Year(), w
}
