// Package clock supplies the current time to the rest of the bot.
package clock

import "time"

// Clock returns the current time
type Clock interface {
	Now() time.Time
}

// System is the wall clock expressed in a fixed location
type System struct {
	Location *time.Location
}

// NewSystem creates a wall clock for the given location, falling back to UTC
func NewSystem(loc *time.Location) System {
	if loc == nil {
		loc = time.UTC
	}
	return System{Location: loc}
}

// Now implements Clock
func (s System) Now() time.Time {
	return time.Now().In(s.Location)
}

// Fixed always returns the same instant until moved
type Fixed struct {
	T time.Time
}

// Now implements Clock
func (f *Fixed) Now() time.Time {
	return f.T
}

// Advance moves the fixed clock forward by d
func (f *Fixed) Advance(d time.Duration) {
	f.T = f.T.Add(d)
}

// Date truncates t to midnight in t's own location
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the number of calendar days from a to b, evaluated in loc
func DaysBetween(a, b time.Time, loc *time.Location) int {
	da := Date(a.In(loc))
	db := Date(b.In(loc))
	// Calendar arithmetic avoids DST-length days skewing the result.
	ua := time.Date(da.Year(), da.Month(), da.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(db.Year(), db.Month(), db.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
