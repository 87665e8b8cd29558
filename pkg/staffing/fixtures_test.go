package staffing

import (
	"github.com/arnavshah/care-coverage-api/pkg/models"
	"github.com/arnavshah/care-coverage-api/pkg/timeutil"
)

func newTestEngine() *Engine {
	return New(DefaultConfig())
}

func at(s string) *timeutil.Clock {
	c := timeutil.MustParseClock(s)
	return &c
}

func ref(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func student(id, name string, grade int, classID string) models.Student {
	return models.Student{ID: id, FirstName: name, Grade: grade, ClassID: ref(classID)}
}

func careStudent(id, name string, grade int, certs ...string) models.Student {
	st := student(id, name, grade, "")
	st.HasCareNeeds = true
	st.CareRequirements = certs
	return st
}

func member(id, name string, role models.StaffRole, certs ...string) models.StaffMember {
	return models.StaffMember{ID: id, FirstName: name, Role: role, Certifications: certs, Active: true}
}

func inGroup(s models.StaffMember, g models.GradeGroup) models.StaffMember {
	s.GradeGroup = &g
	return s
}

// attend builds a day slot; empty times and staff ids stay unset.
func attend(studentID, arrival, departure, fm, em string) models.DaySlot {
	sd := models.DaySlot{StudentID: studentID, FMStaffID: ref(fm), EMStaffID: ref(em)}
	if arrival != "" {
		sd.Arrival = at(arrival)
	}
	if departure != "" {
		sd.Departure = at(departure)
	}
	return sd
}

func shift(staffID, start, end string) models.Shift {
	return models.Shift{
		StaffID: staffID,
		Start:   timeutil.MustParseClock(start),
		End:     timeutil.MustParseClock(end),
	}
}

// everyDay repeats a day across the week; each day gets its own slot slice.
func everyDay(day models.DayData) models.WeekData {
	var w models.WeekData
	for i := range w.Days {
		w.Days[i] = day
		w.Days[i].Weekday = timeutil.Weekday(i)
		w.Days[i].StudentDays = append([]models.DaySlot(nil), day.StudentDays...)
	}
	return w
}
