package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekdayNames(t *testing.T) {
	assert.Equal(t, "Måndag", Monday.String())
	assert.Equal(t, "Fredag", Friday.String())
	assert.Equal(t, "Weekday(5)", Weekday(5).String())
	assert.Len(t, Weekdays(), DaysPerWeek)
}

func TestMustWeekday(t *testing.T) {
	assert.Equal(t, Wednesday, MustWeekday(2))
	assert.Panics(t, func() { MustWeekday(-1) })
	assert.Panics(t, func() { MustWeekday(5) })
}

func TestFollows(t *testing.T) {
	assert.True(t, Tuesday.Follows(Monday))
	assert.True(t, Friday.Follows(Thursday))
	assert.False(t, Wednesday.Follows(Monday))
	assert.False(t, Monday.Follows(Friday), "the weekend breaks a streak")
	assert.False(t, Monday.Follows(Monday))
}

func TestFromTime(t *testing.T) {
	wd, ok := FromTime(time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)) // Friday
	assert.True(t, ok)
	assert.Equal(t, Friday, wd)

	_, ok = FromTime(time.Date(2024, time.March, 16, 10, 0, 0, 0, time.UTC)) // Saturday
	assert.False(t, ok)
}

func TestDateOf(t *testing.T) {
	tests := []struct {
		year, week int
		day        Weekday
		want       time.Time
	}{
		{2024, 1, Monday, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{2024, 11, Friday, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)},
		// ISO week 1 of 2021 starts in January; Jan 1-3 belong to 2020-W53
		{2021, 1, Monday, time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC)},
		{2020, 53, Thursday, time.Date(2020, time.December, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got := DateOf(tt.year, tt.week, tt.day)
		assert.Equal(t, tt.want, got)

		y, w := WeekOf(got)
		assert.Equal(t, tt.year, y)
		assert.Equal(t, tt.week, w)
	}
}

func TestValidISOWeek(t *testing.T) {
	assert.True(t, ValidISOWeek(2020, 53))
	assert.False(t, ValidISOWeek(2021, 53))
	assert.True(t, ValidISOWeek(2021, 52))
	assert.False(t, ValidISOWeek(2024, 0))
}
