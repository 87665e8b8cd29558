package staffing

import (
	"github.com/pkg/errors"

	"github.com/arnavshah/care-coverage-api/pkg/timeutil"
)

// Config holds every threshold and time boundary the engine uses.
type Config struct {
	DayStart    timeutil.Clock
	DayEnd      timeutil.Clock
	SlotMinutes int

	// Arrival strictly before FMCutoff needs morning care; departure strictly
	// after EMCutoff needs afternoon care.
	FMCutoff timeutil.Clock
	EMCutoff timeutil.Clock
	// Midday splits am/pm student absences on the timeline.
	Midday timeutil.Clock

	// Presence assumed on the timeline when a day slot has no times.
	DefaultArrival   timeutil.Clock
	DefaultDeparture timeutil.Clock
	ExcludeBreaks    bool

	MaxPeriodAssignments     int
	MaxDailyAssignments      int
	CriticalDailyAssignments int
	MaxWeekAssignments       int
	CriticalWeekAssignments  int
	ConsecutiveCareDays      int

	StudentsPerStaff float64
	MaxCandidates    int
}

// DefaultConfig returns the boundaries of a standard Swedish fritids day.
func DefaultConfig() Config {
	return Config{
		DayStart:                 timeutil.NewClock(6, 0),
		DayEnd:                   timeutil.NewClock(18, 0),
		SlotMinutes:              30,
		FMCutoff:                 timeutil.NewClock(8, 30),
		EMCutoff:                 timeutil.NewClock(13, 30),
		Midday:                   timeutil.NewClock(12, 0),
		DefaultArrival:           timeutil.NewClock(8, 0),
		DefaultDeparture:         timeutil.NewClock(16, 0),
		ExcludeBreaks:            true,
		MaxPeriodAssignments:     4,
		MaxDailyAssignments:      7,
		CriticalDailyAssignments: 10,
		MaxWeekAssignments:       29,
		CriticalWeekAssignments:  39,
		ConsecutiveCareDays:      3,
		StudentsPerStaff:         5,
		MaxCandidates:            10,
	}
}

// Validate rejects configurations the engine cannot work with.
func (c Config) Validate() error {
	if c.SlotMinutes <= 0 {
		return errors.Errorf("slot_minutes must be positive, got %d", c.SlotMinutes)
	}
	if !c.DayStart.Valid() || !c.DayEnd.Valid() || !c.DayStart.Before(c.DayEnd) {
		return errors.Errorf("invalid day window %s-%s", c.DayStart, c.DayEnd)
	}
	if c.DayEnd.Minutes()-c.DayStart.Minutes() < c.SlotMinutes {
		return errors.New("day window shorter than one slot")
	}
	if !c.FMCutoff.Valid() || !c.EMCutoff.Valid() || !c.Midday.Valid() {
		return errors.New("cutoff times out of range")
	}
	if !c.DefaultArrival.Before(c.DefaultDeparture) {
		return errors.Errorf("default arrival %s not before departure %s", c.DefaultArrival, c.DefaultDeparture)
	}
	if c.MaxPeriodAssignments <= 0 || c.MaxDailyAssignments <= 0 || c.MaxWeekAssignments <= 0 {
		return errors.New("assignment limits must be positive")
	}
	if c.CriticalDailyAssignments < c.MaxDailyAssignments || c.CriticalWeekAssignments < c.MaxWeekAssignments {
		return errors.New("critical limits must not be below warning limits")
	}
	if c.ConsecutiveCareDays < 2 || c.ConsecutiveCareDays > timeutil.DaysPerWeek {
		return errors.Errorf("consecutive_care_days must be 2-%d, got %d", timeutil.DaysPerWeek, c.ConsecutiveCareDays)
	}
	if c.StudentsPerStaff <= 0 {
		return errors.New("students_per_staff must be positive")
	}
	if c.MaxCandidates < 0 {
		return errors.New("max_candidates must not be negative")
	}
	return nil
}
