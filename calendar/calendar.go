/*
Package calendar answers one question: is a given date a premium day?

PURPOSE:

	Under CP 302 (Belgian hospitality sector), hours worked on a Sunday or
	on a Belgian public holiday earn an hourly premium. The cost engine and
	the shift planner both need this answer, so it lives in one place.

PREMIUM DAYS:
  - Any Sunday.
  - The 10 Belgian legal holidays: 7 fixed dates plus three that move
    with Easter (Easter Monday, Ascension, Whit Monday).

EASTER:

	Easter Sunday is computed with the Meeus/Jones/Butcher Gregorian
	algorithm, which is exact for all Gregorian years.

MEMOIZATION:

	The holiday set for a year never changes, so it is computed once per
	year and cached behind a mutex.

SEE ALSO:
  - payroll/cost.go: consumes IsPremiumDay for the premium line
*/
package calendar

import (
	"sync"
	"time"
)

// Oracle resolves premium days. The zero value is not usable; call New.
type Oracle struct {
	mu    sync.Mutex
	years map[int]map[string]bool
}

// New creates an Oracle with an empty year cache.
func New() *Oracle {
	return &Oracle{years: make(map[int]map[string]bool)}
}

// IsPremiumDay reports whether the date is a Sunday or a Belgian public
// holiday. Only the calendar date matters; the time of day is ignored.
func (o *Oracle) IsPremiumDay(date time.Time) bool {
	if date.Weekday() == time.Sunday {
		return true
	}
	return o.IsPublicHoliday(date)
}

// IsPublicHoliday reports whether the date is one of the 10 Belgian
// legal holidays for its year.
func (o *Oracle) IsPublicHoliday(date time.Time) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	year := date.Year()
	set, ok := o.years[year]
	if !ok {
		set = holidaySet(year)
		o.years[year] = set
	}
	return set[dayKey(date)]
}

// Holidays returns the 10 Belgian legal holidays for a year, in
// chronological order.
func Holidays(year int) []time.Time {
	easter := easterSunday(year)

	days := []time.Time{
		date(year, time.January, 1),   // Nieuwjaar / Jour de l'an
		easter.AddDate(0, 0, 1),       // Easter Monday
		date(year, time.May, 1),       // Labour Day
		easter.AddDate(0, 0, 39),      // Ascension
		easter.AddDate(0, 0, 50),      // Whit Monday
		date(year, time.July, 21),     // National Day
		date(year, time.August, 15),   // Assumption
		date(year, time.November, 1),  // All Saints
		date(year, time.November, 11), // Armistice
		date(year, time.December, 25), // Christmas
	}

	// Easter-relative days can land before or after fixed ones; sort by
	// simple insertion since the slice is tiny.
	for i := 1; i < len(days); i++ {
		for j := i; j > 0 && days[j].Before(days[j-1]); j-- {
			days[j], days[j-1] = days[j-1], days[j]
		}
	}
	return days
}

// EasterSunday returns Easter Sunday for a Gregorian year.
func EasterSunday(year int) time.Time { return easterSunday(year) }

// easterSunday implements the Meeus/Jones/Butcher algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return date(year, time.Month(month), day)
}

func holidaySet(year int) map[string]bool {
	set := make(map[string]bool, 10)
	for _, d := range Holidays(year) {
		set[dayKey(d)] = true
	}
	return set
}

func dayKey(t time.Time) string { return t.Format("2006-01-02") }

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
