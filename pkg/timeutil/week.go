package timeutil

import (
	"fmt"
	"time"
)

// Weekday indexes the school week: 0 is Monday, 4 is Friday.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
)

// DaysPerWeek is the number of school days covered by a week schedule.
const DaysPerWeek = 5

var weekdayNames = [DaysPerWeek]string{"Måndag", "Tisdag", "Onsdag", "Torsdag", "Fredag"}

// Valid reports whether d is a school day.
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Friday
}

// MustWeekday converts an index to a Weekday, panicking outside 0–4. An invalid
// weekday here means the data layer handed over a broken record.
func MustWeekday(i int) Weekday {
	d := Weekday(i)
	if !d.Valid() {
		panic(fmt.Sprintf("timeutil: weekday %d out of range 0-4", i))
	}
	return d
}

// String returns the Swedish day name.
func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// Weekdays lists Monday through Friday.
func Weekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}
}

// Follows reports whether d is the school day directly after prev. Friday is
// never followed by Monday: the weekend breaks the sequence.
func (d Weekday) Follows(prev Weekday) bool {
	return prev.Valid() && d.Valid() && d == prev+1
}

// FromTime maps a date to its school weekday; ok is false on weekends.
func FromTime(t time.Time) (Weekday, bool) {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return 0, false
	default:
		return Weekday(int(t.Weekday()) - 1), true
	}
}

// DateOf returns midnight UTC of the given weekday in ISO week (year, week).
func DateOf(year, week int, d Weekday) time.Time {
	// January 4th is always in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := int(jan4.Weekday()+6) % 7
	monday := jan4.AddDate(0, 0, -offset)
	return monday.AddDate(0, 0, (week-1)*7+int(d))
}

// WeekOf returns the ISO year and week number containing t.
func WeekOf(t time.Time) (year, week int) {
	return t.ISOWeek()
}

// ValidISOWeek reports whether week exists in the given ISO year.
func ValidISOWeek(year, week int) bool {
	if week < 1 {
		return false
	}
	_, last := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return week <= last
}
