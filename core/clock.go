package core

import "time"

// Clock supplies "now" to the engine. Services take a Clock so tests can
// pin time; production wiring passes UTCNow.
type Clock func() time.Time

// UTCNow is the production clock.
func UTCNow() time.Time { return time.Now().UTC() }

// Today truncates the clock's time to a UTC calendar date. Membership
// validity and rate effectiveness are date-granular.
func Today(c Clock) time.Time {
	return DateOf(c())
}

// DateOf truncates t to midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
