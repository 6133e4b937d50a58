package core

import "time"

// Clock supplies the current time for defaults such as registration
// timestamps and expense dates.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// TimePrecision is the resolution date-times are persisted with.
const TimePrecision = time.Microsecond

// Timestamp returns t in UTC truncated to TimePrecision, so a value
// compares the same before and after a round trip through storage. The
// zero time stays zero.
func Timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(TimePrecision)
}
