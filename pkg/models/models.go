package models

import (
	"strings"

	"github.com/arnavshah/care-coverage-api/pkg/timeutil"
)

// GradeGroup is the coarse split of grades used to match staff with students.
type GradeGroup string

const (
	GradeGroupLow  GradeGroup = "low"  // grades 1-3
	GradeGroupHigh GradeGroup = "high" // grades 4-6
)

func (g GradeGroup) Valid() bool {
	return g == GradeGroupLow || g == GradeGroupHigh
}

// GradeGroupOf maps a grade (1-6) to its group.
func GradeGroupOf(grade int) GradeGroup {
	if grade <= 3 {
		return GradeGroupLow
	}
	return GradeGroupHigh
}

// StaffRole is the employment role of a staff member.
type StaffRole string

const (
	RoleAssistant       StaffRole = "elevassistent"
	RoleTeacher         StaffRole = "pedagog"
	RoleLeisureEducator StaffRole = "fritidspedagog"
)

func (r StaffRole) Valid() bool {
	switch r {
	case RoleAssistant, RoleTeacher, RoleLeisureEducator:
		return true
	}
	return false
}

// AbsentType is the attendance state of a student on one day.
type AbsentType string

const (
	AbsentNone    AbsentType = "none"
	AbsentFullDay AbsentType = "full_day"
	AbsentAM      AbsentType = "am"
	AbsentPM      AbsentType = "pm"
)

func (a AbsentType) Valid() bool {
	switch a {
	case "", AbsentNone, AbsentFullDay, AbsentAM, AbsentPM:
		return true
	}
	return false
}

// MissesMorning reports whether the student is away for the FM period.
func (a AbsentType) MissesMorning() bool {
	return a == AbsentFullDay || a == AbsentAM
}

// MissesAfternoon reports whether the student is away for the EM period.
func (a AbsentType) MissesAfternoon() bool {
	return a == AbsentFullDay || a == AbsentPM
}

// Period is one of the two daily care windows.
type Period string

const (
	PeriodFM Period = "fm"
	PeriodEM Period = "em"
)

func (p Period) Valid() bool {
	return p == PeriodFM || p == PeriodEM
}

// Student is a child enrolled in the care program.
type Student struct {
	ID                     string   `json:"id" binding:"required"`
	FirstName              string   `json:"first_name"`
	LastName               string   `json:"last_name"`
	Grade                  int      `json:"grade" binding:"min=1,max=6"`
	ClassID                *string  `json:"class_id,omitempty"`
	HasCareNeeds           bool     `json:"has_care_needs"`
	CareRequirements       []string `json:"care_requirements"`
	PreferredStaff         []string `json:"preferred_staff"`
	RequiresDoubleStaffing bool     `json:"requires_double_staffing"`
}

func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// NeedsCare reports whether the student is a care-need student.
func (s Student) NeedsCare() bool {
	return s.HasCareNeeds || len(s.CareRequirements) > 0
}

// StaffMember is an employee who can be assigned to students.
type StaffMember struct {
	ID             string      `json:"id" binding:"required"`
	FirstName      string      `json:"first_name"`
	LastName       string      `json:"last_name"`
	Role           StaffRole   `json:"role"`
	GradeGroup     *GradeGroup `json:"grade_group,omitempty"`
	Certifications []string    `json:"care_certifications"`
	Active         bool        `json:"active"`
}

func (s StaffMember) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// HasCertification reports whether the staff member holds cert.
func (s StaffMember) HasCertification(cert string) bool {
	for _, c := range s.Certifications {
		if c == cert {
			return true
		}
	}
	return false
}

// HasAllCertifications reports whether every required certification is held.
// An empty requirement list is always satisfied.
func (s StaffMember) HasAllCertifications(required []string) bool {
	for _, r := range required {
		if !s.HasCertification(r) {
			return false
		}
	}
	return true
}

// MatchesGradeGroup reports whether the staff member works with the group.
// A staff member without affinity works with both.
func (s StaffMember) MatchesGradeGroup(g GradeGroup) bool {
	return s.GradeGroup == nil || *s.GradeGroup == g
}

// SchoolClass is a class the students belong to.
type SchoolClass struct {
	ID    string `json:"id" binding:"required"`
	Name  string `json:"name"`
	Grade int    `json:"grade"`
}

// DaySlot is one student's attendance and FM/EM assignment on one weekday.
type DaySlot struct {
	StudentID  string           `json:"student_id" binding:"required"`
	Weekday    timeutil.Weekday `json:"weekday" binding:"weekday"`
	Arrival    *timeutil.Clock  `json:"arrival_time,omitempty"`
	Departure  *timeutil.Clock  `json:"departure_time,omitempty"`
	FMStaffID  *string          `json:"fm_staff_id,omitempty"`
	EMStaffID  *string          `json:"em_staff_id,omitempty"`
	AbsentType AbsentType       `json:"absent_type"`
}

// StaffFor returns the staff id assigned for a period, or "" if none.
func (d DaySlot) StaffFor(p Period) string {
	var id *string
	if p == PeriodFM {
		id = d.FMStaffID
	} else {
		id = d.EMStaffID
	}
	if id == nil {
		return ""
	}
	return *id
}

// PresentFor reports whether the student attends the given period.
func (d DaySlot) PresentFor(p Period) bool {
	if p == PeriodFM {
		return !d.AbsentType.MissesMorning()
	}
	return !d.AbsentType.MissesAfternoon()
}

// Shift is a staff member's working window on one weekday.
type Shift struct {
	StaffID      string           `json:"staff_id" binding:"required"`
	Weekday      timeutil.Weekday `json:"weekday" binding:"weekday"`
	Start        timeutil.Clock   `json:"start_time"`
	End          timeutil.Clock   `json:"end_time"`
	BreakMinutes int              `json:"break_minutes" binding:"min=0,max=120"`
}

// AbsenceReason classifies why a staff member is away.
type AbsenceReason string

const (
	ReasonSick          AbsenceReason = "sick"
	ReasonVacation      AbsenceReason = "vacation"
	ReasonParentalLeave AbsenceReason = "parental_leave"
	ReasonTraining      AbsenceReason = "training"
	ReasonOther         AbsenceReason = "other"
)

func (r AbsenceReason) Valid() bool {
	switch r {
	case ReasonSick, ReasonVacation, ReasonParentalLeave, ReasonTraining, ReasonOther:
		return true
	}
	return false
}

// Absence is a reported staff absence for one weekday.
type Absence struct {
	StaffID      string           `json:"staff_id" binding:"required"`
	Weekday      timeutil.Weekday `json:"weekday" binding:"weekday"`
	Reason       AbsenceReason    `json:"reason"`
	SubstituteID *string          `json:"substitute_id,omitempty"`
}

// AssignmentRole is the kind of special-needs assignment.
type AssignmentRole string

const (
	RoleSchoolSupport  AssignmentRole = "school_support"
	RoleDoubleStaffing AssignmentRole = "double_staffing"
	RoleExtraCare      AssignmentRole = "extra_care"
)

// SpecialNeedsAssignment is an extra one-to-one or double-staffing assignment
// outside the FM/EM model.
type SpecialNeedsAssignment struct {
	StudentID string           `json:"student_id" binding:"required"`
	StaffID   string           `json:"staff_id" binding:"required"`
	Weekday   timeutil.Weekday `json:"weekday" binding:"weekday"`
	Start     timeutil.Clock   `json:"start_time"`
	End       timeutil.Clock   `json:"end_time"`
	Role      AssignmentRole   `json:"role"`
}

// Catalog is the flat list of students, staff and classes.
type Catalog struct {
	Students []Student     `json:"students" binding:"dive"`
	Staff    []StaffMember `json:"staff" binding:"dive"`
	Classes  []SchoolClass `json:"classes" binding:"dive"`
}

// DayData is everything the data layer knows about one weekday.
type DayData struct {
	Weekday        timeutil.Weekday         `json:"weekday" binding:"weekday"`
	StudentDays    []DaySlot                `json:"student_days" binding:"dive"`
	StaffShifts    []Shift                  `json:"staff_shifts" binding:"dive"`
	DayAssignments []SpecialNeedsAssignment `json:"day_assignments" binding:"dive"`
	Absences       []Absence                `json:"absences" binding:"dive"`
	// AbsentStaff lists staff ids reported absent without an absence record.
	AbsentStaff []string  `json:"absent_staff"`
	Warnings    []Warning `json:"warnings"`
}

// AbsentSet returns the ids of staff absent that day.
func (d DayData) AbsentSet() map[string]bool {
	set := make(map[string]bool, len(d.Absences)+len(d.AbsentStaff))
	for _, a := range d.Absences {
		set[a.StaffID] = true
	}
	for _, id := range d.AbsentStaff {
		set[id] = true
	}
	return set
}

// WeekData holds the five school days, indexed by weekday.
type WeekData struct {
	Year int                           `json:"year"`
	Week int                           `json:"week_number"`
	Days [timeutil.DaysPerWeek]DayData `json:"days" binding:"dive"`
}
