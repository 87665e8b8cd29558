package timeutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{"08:30", NewClock(8, 30), false},
		{"8:05", NewClock(8, 5), false},
		{" 13:30 ", NewClock(13, 30), false},
		{"00:00", 0, false},
		{"24:00", Clock(24 * 60), false},
		{"24:01", 0, true},
		{"12:60", 0, true},
		{"-1:00", 0, true},
		{"1230", 0, true},
		{"12:3", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewClockPanicsOutOfRange(t *testing.T) {
	assert.Panics(t, func() { NewClock(-1, 0) })
	assert.Panics(t, func() { NewClock(25, 0) })
	assert.Panics(t, func() { NewClock(10, 60) })
	assert.NotPanics(t, func() { NewClock(23, 59) })
}

func TestClockStringAndJSON(t *testing.T) {
	c := NewClock(7, 5)
	assert.Equal(t, "07:05", c.String())
	assert.Equal(t, 7, c.Hour())
	assert.Equal(t, 5, c.Minute())
	assert.Equal(t, 425, c.Minutes())

	b, err := json.Marshal(struct {
		At  Clock  `json:"at"`
		Opt *Clock `json:"opt,omitempty"`
	}{At: c})
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"07:05"}`, string(b))

	var out struct {
		At Clock `json:"at"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"at":"16:45"}`), &out))
	assert.Equal(t, NewClock(16, 45), out.At)

	assert.Error(t, json.Unmarshal([]byte(`{"at":"noon"}`), &out))
}

func TestClockPtr(t *testing.T) {
	s := func(v string) *string { return &v }

	assert.Nil(t, ClockPtr(nil))
	assert.Nil(t, ClockPtr(s("")))
	assert.Nil(t, ClockPtr(s("late")))

	got := ClockPtr(s("08:15"))
	require.NotNil(t, got)
	assert.Equal(t, NewClock(8, 15), *got)
	assert.Equal(t, "08:15", *StringPtr(got))
	assert.Nil(t, StringPtr(nil))
}

func TestOverlapsAndDuration(t *testing.T) {
	a, b := NewClock(8, 0), NewClock(9, 0)

	assert.True(t, Overlaps(a, b, NewClock(8, 30), NewClock(10, 0)))
	assert.False(t, Overlaps(a, b, b, NewClock(10, 0)), "half-open intervals touching at 09:00")
	assert.False(t, Overlaps(a, b, NewClock(6, 0), a))

	assert.Equal(t, 60, Duration(a, b))
	assert.Equal(t, 0, Duration(b, a))
	assert.Equal(t, b, a.Add(60))
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
}
