package model

import (
	"fmt"
	"time"
)

// DateLayout is the day-granularity format used for check-in and check-out
// dates on the wire and in the database.
const DateLayout = "2006-01-02"

// Interval is a half-open stay range [CheckIn, CheckOut).  Both ends are
// calendar days normalised to midnight UTC.  A guest occupies the room on
// the night of CheckIn and leaves on the morning of CheckOut, so a stay that
// ends on a given day never collides with one that starts on it.
type Interval struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

// Day truncates t to its calendar date at midnight UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewInterval builds an Interval from two instants, keeping only their dates.
func NewInterval(checkIn, checkOut time.Time) Interval {
	return Interval{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
}

// ParseInterval parses two YYYY-MM-DD strings.  It does not check ordering;
// callers use Valid for that so the two failure modes stay distinct.
func ParseInterval(checkIn, checkOut string) (Interval, error) {
	in, err := time.Parse(DateLayout, checkIn)
	if err != nil {
		return Interval{}, fmt.Errorf("invalid check_in %q: %w", checkIn, err)
	}
	out, err := time.Parse(DateLayout, checkOut)
	if err != nil {
		return Interval{}, fmt.Errorf("invalid check_out %q: %w", checkOut, err)
	}
	return NewInterval(in, out), nil
}

// Valid reports whether the interval covers at least one night.
func (i Interval) Valid() bool {
	return i.CheckIn.Before(i.CheckOut)
}

// Nights returns the number of nights in the stay; zero or negative for an
// invalid interval.  Both ends sit on UTC midnight, so the division is
// exact for any span, including ones too long for a time.Duration.
func (i Interval) Nights() int {
	return int((i.CheckOut.Unix() - i.CheckIn.Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

// Overlaps applies the half-open rule: a.in < b.out AND b.in < a.out.
func (i Interval) Overlaps(o Interval) bool {
	return i.CheckIn.Before(o.CheckOut) && o.CheckIn.Before(i.CheckOut)
}

// Contains reports whether day d falls inside the interval.
func (i Interval) Contains(d time.Time) bool {
	d = Day(d)
	return !d.Before(i.CheckIn) && d.Before(i.CheckOut)
}

func (i Interval) String() string {
	return "[" + i.CheckIn.Format(DateLayout) + ", " + i.CheckOut.Format(DateLayout) + ")"
}

// Span is an active reservation reduced to what the overlap check needs.
type Span struct {
	ReservationID uint64
	Interval      Interval
}
