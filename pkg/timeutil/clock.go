package timeutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Clock is a wall-clock time of day expressed in minutes since midnight.
// 24:00 is accepted as the end of the day.
type Clock int

const minutesPerDay = 24 * 60

// NewClock builds a Clock from hours and minutes. Out-of-range values are a
// programmer error and panic.
func NewClock(hour, minute int) Clock {
	c := Clock(hour*60 + minute)
	if hour < 0 || minute < 0 || minute > 59 || !c.Valid() {
		panic(fmt.Sprintf("timeutil: invalid clock %02d:%02d", hour, minute))
	}
	return c
}

// ParseClock parses "HH:MM" (or "H:MM").
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[1]) != 2 {
		return 0, errors.Errorf("invalid clock %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, errors.Wrapf(err, "invalid clock %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, errors.Wrapf(err, "invalid clock %q", s)
	}
	if h < 0 || m < 0 || m > 59 {
		return 0, errors.Errorf("invalid clock %q: out of range", s)
	}
	c := Clock(h*60 + m)
	if !c.Valid() {
		return 0, errors.Errorf("invalid clock %q: out of range", s)
	}
	return c, nil
}

// MustParseClock is ParseClock for literals; it panics on malformed input.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Valid reports whether c lies within [00:00, 24:00].
func (c Clock) Valid() bool {
	return c >= 0 && c <= minutesPerDay
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

// Minutes returns the offset from midnight.
func (c Clock) Minutes() int { return int(c) }

// Add returns c shifted by the given number of minutes.
func (c Clock) Add(minutes int) Clock {
	return c + Clock(minutes)
}

// Before reports whether c is strictly earlier than o.
func (c Clock) Before(o Clock) bool { return c < o }

// After reports whether c is strictly later than o.
func (c Clock) After(o Clock) bool { return c > o }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// MarshalText renders the clock as "HH:MM"; encoding/json uses it too.
func (c Clock) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, errors.Errorf("invalid clock value %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ClockPtr parses an optional "HH:MM" string. Empty or malformed input yields
// nil, which downstream code treats as "no time given".
func ClockPtr(s *string) *Clock {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	c, err := ParseClock(*s)
	if err != nil {
		return nil
	}
	return &c
}

// StringPtr is the inverse of ClockPtr.
func StringPtr(c *Clock) *string {
	if c == nil {
		return nil
	}
	s := c.String()
	return &s
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd Clock) bool {
	return aStart < bEnd && bStart < aEnd
}

// Duration returns the length of [start, end) in minutes, never negative.
func Duration(start, end Clock) int {
	if end < start {
		return 0
	}
	return int(end - start)
}
