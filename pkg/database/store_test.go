package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/care-coverage-api/pkg/config"
	"github.com/arnavshah/care-coverage-api/pkg/models"
	"github.com/arnavshah/care-coverage-api/pkg/timeutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(&config.Config{DataPath: "file::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewStore(db)
}

func clockAt(s string) *timeutil.Clock {
	c := timeutil.MustParseClock(s)
	return &c
}

func testCatalog() models.Catalog {
	low := models.GradeGroupLow
	class := "c1"
	return models.Catalog{
		Classes: []models.SchoolClass{{ID: "c1", Name: "1A", Grade: 1}},
		Students: []models.Student{{
			ID: "s1", FirstName: "Ebba", LastName: "Ström", Grade: 1, ClassID: &class,
			HasCareNeeds: true, CareRequirements: []string{"epilepsi"}, PreferredStaff: []string{"a"},
		}},
		Staff: []models.StaffMember{
			{ID: "a", FirstName: "Anna", LastName: "Lind", Role: models.RoleAssistant, GradeGroup: &low, Certifications: []string{"epilepsi"}, Active: true},
			{ID: "x", FirstName: "Xerxes", LastName: "Ny", Role: models.RoleTeacher, Active: false},
		},
	}
}

func testWeek() models.WeekData {
	fm := "a"
	w := models.WeekData{Year: 2024, Week: 11}
	w.Days[2] = models.DayData{
		StudentDays: []models.DaySlot{{
			StudentID: "s1", Arrival: clockAt("07:15"), Departure: clockAt("16:00"),
			FMStaffID: &fm, AbsentType: models.AbsentPM,
		}},
		StaffShifts: []models.Shift{{StaffID: "a", Start: timeutil.NewClock(7, 0), End: timeutil.NewClock(15, 0), BreakMinutes: 30}},
		DayAssignments: []models.SpecialNeedsAssignment{{
			StudentID: "s1", StaffID: "a", Start: timeutil.NewClock(9, 0), End: timeutil.NewClock(10, 0), Role: models.RoleExtraCare,
		}},
		Warnings: []models.Warning{{Type: models.WarningGap, Severity: models.SeverityInfo, Message: "från schemaläggaren"}},
	}
	return w
}

func TestImportAndLoadWeek(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ws, err := s.ImportWeek(ctx, testCatalog(), testWeek())
	require.NoError(t, err)
	assert.NotEmpty(t, ws.ID)

	cat, err := s.LoadCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, cat.Students, 1)
	assert.Equal(t, []string{"epilepsi"}, cat.Students[0].CareRequirements)
	assert.Equal(t, []string{"a"}, cat.Students[0].PreferredStaff)
	require.Len(t, cat.Staff, 2, "inactive staff are loaded too")
	assert.True(t, cat.Staff[0].Active)
	require.NotNil(t, cat.Staff[0].GradeGroup)
	assert.Equal(t, models.GradeGroupLow, *cat.Staff[0].GradeGroup)
	assert.False(t, cat.Staff[1].Active)

	week, err := s.LoadWeek(ctx, 2024, 11)
	require.NoError(t, err)
	assert.Equal(t, 2024, week.Year)
	for i, d := range week.Days {
		assert.Equal(t, timeutil.Weekday(i), d.Weekday)
		assert.NotNil(t, d.StudentDays)
	}

	wed := week.Days[2]
	require.Len(t, wed.StudentDays, 1)
	sd := wed.StudentDays[0]
	assert.Equal(t, timeutil.Wednesday, sd.Weekday)
	require.NotNil(t, sd.Arrival)
	assert.Equal(t, "07:15", sd.Arrival.String())
	assert.Equal(t, models.AbsentPM, sd.AbsentType)
	assert.Equal(t, "a", sd.StaffFor(models.PeriodFM))
	assert.Equal(t, "", sd.StaffFor(models.PeriodEM))

	require.Len(t, wed.StaffShifts, 1)
	assert.Equal(t, 30, wed.StaffShifts[0].BreakMinutes)
	require.Len(t, wed.DayAssignments, 1)
	assert.Equal(t, models.RoleExtraCare, wed.DayAssignments[0].Role)
	require.Len(t, wed.Warnings, 1)
	assert.Equal(t, timeutil.Wednesday, wed.Warnings[0].Weekday)
	assert.Empty(t, week.Days[0].Warnings)
}

func TestLoadWeekNotFound(t *testing.T) {
	_, err := newTestStore(t).LoadWeek(context.Background(), 2024, 12)
	assert.Equal(t, ErrNotFound, err)
}

func TestImportWeekRejectsInvalidWeek(t *testing.T) {
	w := testWeek()
	w.Week = 53
	w.Year = 2023
	_, err := newTestStore(t).ImportWeek(context.Background(), testCatalog(), w)
	assert.Error(t, err)
}

func TestAbsencesMatchByDate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Reported before the schedule exists.
	wed := time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.ReportAbsence(ctx, "a", wed, models.ReasonSick, nil))
	// Next week, must not leak in.
	require.NoError(t, s.ReportAbsence(ctx, "a", wed.AddDate(0, 0, 7), models.ReasonTraining, nil))

	_, err := s.ImportWeek(ctx, testCatalog(), testWeek())
	require.NoError(t, err)

	sub := "x"
	require.NoError(t, s.ReportAbsence(ctx, "a", wed, models.ReasonVacation, &sub))

	week, err := s.LoadWeek(ctx, 2024, 11)
	require.NoError(t, err)
	for i, d := range week.Days {
		if i != 2 {
			assert.Empty(t, d.Absences)
		}
	}
	require.Len(t, week.Days[2].Absences, 1, "a second report replaces the first")
	a := week.Days[2].Absences[0]
	assert.Equal(t, models.ReasonVacation, a.Reason)
	require.NotNil(t, a.SubstituteID)
	assert.Equal(t, "x", *a.SubstituteID)
	assert.True(t, week.Days[2].AbsentSet()["a"])
}

func TestApplyReassignment(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.ImportWeek(ctx, testCatalog(), testWeek())
	require.NoError(t, err)

	require.NoError(t, s.ApplyReassignment(ctx, 2024, 11, timeutil.Wednesday, "s1", models.PeriodEM, "a"))
	week, err := s.LoadWeek(ctx, 2024, 11)
	require.NoError(t, err)
	assert.Equal(t, "a", week.Days[2].StudentDays[0].StaffFor(models.PeriodEM))

	err = s.ApplyReassignment(ctx, 2024, 11, timeutil.Monday, "s1", models.PeriodEM, "a")
	assert.Equal(t, ErrNotFound, err)
	err = s.ApplyReassignment(ctx, 2024, 10, timeutil.Wednesday, "s1", models.PeriodEM, "a")
	assert.Equal(t, ErrNotFound, err)
}
