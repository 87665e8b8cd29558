package staffing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/care-coverage-api/pkg/models"
	"github.com/arnavshah/care-coverage-api/pkg/timeutil"
)

func countWarnings(ws []models.Warning, typ models.WarningType) int {
	n := 0
	for _, w := range ws {
		if w.Type == typ {
			n++
		}
	}
	return n
}

func TestClassifyDayWarnings(t *testing.T) {
	cat := models.Catalog{
		Students: []models.Student{
			student("s1", "Alma", 1, ""),
			student("s2", "Bo", 1, ""),
		},
		Staff: []models.StaffMember{
			member("a", "Anna", models.RoleAssistant),
			member("b", "Berit", models.RoleAssistant),
		},
	}
	info := models.Warning{Type: models.WarningGap, Severity: models.SeverityInfo, Message: "importerad"}
	day := models.DayData{
		Weekday: timeutil.Tuesday,
		StudentDays: []models.DaySlot{
			attend("s1", "07:00", "12:00", "a", ""),
			attend("s2", "07:00", "15:00", "", "b"),
		},
		Absences: []models.Absence{{StaffID: "a", Reason: models.ReasonSick}},
		Warnings: []models.Warning{info, info},
	}

	ws := newTestEngine().ClassifyDay(cat, day)

	require.NotEmpty(t, ws)
	for i := 1; i < len(ws); i++ {
		assert.LessOrEqual(t, ws[i-1].Severity.Rank(), ws[i].Severity.Rank(), "warnings are ordered by severity")
	}
	assert.Equal(t, 1, countWarnings(ws, models.WarningConflict), "absent staff still assigned")
	assert.Equal(t, 2, countWarnings(ws, models.WarningGap), "s2 lacks FM staff, plus the imported one")
	assert.Equal(t, 1, countWarnings(ws, models.WarningAbsence))

	last := ws[len(ws)-1]
	assert.Equal(t, models.SeverityInfo, last.Severity)
	assert.Equal(t, "importerad", last.Message)
	infos := 0
	for _, w := range ws {
		if w.Severity == models.SeverityInfo {
			infos++
		}
		assert.Equal(t, timeutil.Tuesday, w.Weekday)
	}
	assert.Equal(t, 1, infos, "exact duplicates are dropped")
}

func TestClassifyDaySubstituteSilencesAbsence(t *testing.T) {
	day := models.DayData{
		Absences: []models.Absence{{StaffID: "a", Reason: models.ReasonSick, SubstituteID: ref("b")}},
	}
	ws := newTestEngine().ClassifyDay(models.Catalog{}, day)
	assert.Zero(t, countWarnings(ws, models.WarningAbsence))
}

func TestClassifyDayWorkload(t *testing.T) {
	day := models.DayData{}
	for _, id := range []string{"s1", "s2", "s3", "s4", "s5"} {
		day.StudentDays = append(day.StudentDays, attend(id, "07:00", "12:00", "a", ""))
	}
	ws := newTestEngine().ClassifyDay(models.Catalog{}, day)
	require.Equal(t, 1, countWarnings(ws, models.WarningWorkload))

	day.StudentDays = day.StudentDays[:4]
	ws = newTestEngine().ClassifyDay(models.Catalog{}, day)
	assert.Zero(t, countWarnings(ws, models.WarningWorkload), "four students per period is allowed")
}

func TestClassifyDaySpecialNeedsOverlap(t *testing.T) {
	day := models.DayData{
		DayAssignments: []models.SpecialNeedsAssignment{
			{StudentID: "s1", StaffID: "a", Start: timeutil.NewClock(9, 0), End: timeutil.NewClock(11, 0)},
			{StudentID: "s2", StaffID: "a", Start: timeutil.NewClock(10, 0), End: timeutil.NewClock(12, 0)},
			{StudentID: "s3", StaffID: "a", Start: timeutil.NewClock(12, 0), End: timeutil.NewClock(13, 0)},
		},
	}
	ws := newTestEngine().ClassifyDay(models.Catalog{}, day)
	assert.Equal(t, 1, countWarnings(ws, models.WarningConflict), "touching intervals do not overlap")
}

func TestBlackBeatsYellow(t *testing.T) {
	cat := models.Catalog{
		Students: []models.Student{careStudent("s", "Sam", 2, "adhd", "diabetes")},
		Staff: []models.StaffMember{
			member("a", "Anna", models.RoleAssistant, "adhd"),
			member("b", "Berit", models.RoleAssistant, "adhd"),
			member("c", "Carl", models.RoleAssistant, "adhd"),
		},
	}
	day := models.DayData{StudentDays: []models.DaySlot{attend("s", "07:00", "12:00", "", "")}}

	cell := newTestEngine().StudentDayRisk(cat, "s", day)
	assert.Equal(t, models.RiskBlack, cell.Risk)
	assert.Len(t, cell.Reasons, 2, "missing diabetes holder and missing FM staff")
}

func TestStudentDayRiskLevels(t *testing.T) {
	e := newTestEngine()
	cat := models.Catalog{
		Students: []models.Student{
			careStudent("s", "Sam", 2, "adhd"),
			student("plain", "Per", 2, ""),
		},
		Staff: []models.StaffMember{
			member("a", "Anna", models.RoleAssistant, "adhd"),
			member("b", "Berit", models.RoleAssistant, "adhd"),
			member("c", "Carl", models.RoleAssistant),
		},
	}

	day := models.DayData{StudentDays: []models.DaySlot{attend("s", "07:00", "12:00", "a", "")}}
	assert.Equal(t, models.RiskGreen, e.StudentDayRisk(cat, "s", day).Risk)

	day.StudentDays[0].FMStaffID = ref("c")
	assert.Equal(t, models.RiskYellow, e.StudentDayRisk(cat, "s", day).Risk, "assigned staff lacks the certification")

	day.StudentDays[0].FMStaffID = ref("a")
	day.AbsentStaff = []string{"b"}
	assert.Equal(t, models.RiskRed, e.StudentDayRisk(cat, "s", day).Risk)

	day.StudentDays[0].AbsentType = models.AbsentFullDay
	assert.Equal(t, models.RiskNone, e.StudentDayRisk(cat, "s", day).Risk)

	assert.Equal(t, models.RiskNone, e.StudentDayRisk(cat, "plain", day).Risk)
	assert.Equal(t, models.RiskNone, e.StudentDayRisk(cat, "unknown", day).Risk)
}

func TestDoubleStaffingWithoutAssignment(t *testing.T) {
	st := careStudent("s", "Sam", 2)
	st.RequiresDoubleStaffing = true
	cat := models.Catalog{Students: []models.Student{st}}
	day := models.DayData{StudentDays: []models.DaySlot{attend("s", "09:00", "12:00", "", "")}}

	e := newTestEngine()
	assert.Equal(t, models.RiskYellow, e.StudentDayRisk(cat, "s", day).Risk)

	day.DayAssignments = []models.SpecialNeedsAssignment{{StudentID: "s", StaffID: "a", Role: models.RoleDoubleStaffing}}
	assert.Equal(t, models.RiskGreen, e.StudentDayRisk(cat, "s", day).Risk)
}

func TestVulnerabilityMapZeroQualified(t *testing.T) {
	cat := models.Catalog{
		Students: []models.Student{
			careStudent("s", "Sam", 2, "diabetes"),
			student("p", "Per", 2, ""),
		},
		Staff: []models.StaffMember{member("a", "Anna", models.RoleAssistant)},
	}
	week := everyDay(models.DayData{StudentDays: []models.DaySlot{
		attend("s", "07:00", "15:00", "a", "a"),
		attend("p", "07:00", "15:00", "a", "a"),
	}})
	week.Days[3].StudentDays[0].AbsentType = models.AbsentFullDay

	vm := newTestEngine().VulnerabilityMap(cat, week)
	require.Len(t, vm.Rows, 1, "only care-need students are listed")
	row := vm.Rows[0]
	for i, cell := range row.Days {
		if i == 3 {
			assert.Equal(t, models.RiskNone, cell.Risk)
			continue
		}
		assert.Equal(t, models.RiskBlack, cell.Risk)
	}
	assert.Equal(t, models.RiskBlack, row.Worst)
	assert.Equal(t, 4, vm.Summary.Black)
	assert.Equal(t, 1, vm.Summary.StudentsAtRisk)
	assert.Equal(t, 1, vm.Summary.CareNeedStudents)
}

func TestVulnerabilityMapOrdering(t *testing.T) {
	cat := models.Catalog{
		Students: []models.Student{
			careStudent("g", "Gustav", 1),
			careStudent("r", "Rut", 1, "adhd"),
			careStudent("o", "Öjvind", 1),
			careStudent("a", "Åke", 1),
		},
		Staff: []models.StaffMember{member("x", "Xena", models.RoleAssistant, "adhd")},
	}
	week := everyDay(models.DayData{StudentDays: []models.DaySlot{
		attend("g", "09:00", "12:00", "", ""),
		attend("r", "09:00", "12:00", "", ""),
		attend("o", "09:00", "12:00", "", ""),
		attend("a", "09:00", "12:00", "", ""),
	}})

	vm := newTestEngine().VulnerabilityMap(cat, week)
	var ids []string
	for _, r := range vm.Rows {
		ids = append(ids, r.StudentID)
	}
	assert.Equal(t, []string{"r", "g", "a", "o"}, ids)
}

func TestSortWarningsStable(t *testing.T) {
	ws := []models.Warning{
		{Severity: models.SeverityInfo, Message: "1"},
		{Severity: models.SeverityWarning, Message: "2"},
		{Severity: models.SeverityError, Message: "3"},
		{Severity: models.SeverityWarning, Message: "4"},
	}
	var got []string
	for _, w := range SortWarnings(ws) {
		got = append(got, w.Message)
	}
	assert.Equal(t, []string{"3", "2", "4", "1"}, got)
}
