package models

import "github.com/arnavshah/care-coverage-api/pkg/timeutil"

// Severity ranks warnings for display: error before warning before info.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Rank orders severities; lower is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	}
	return 3
}

func (s Severity) Valid() bool { return s.Rank() < 3 }

// WarningType is the taxonomy of schedule warnings.
type WarningType string

const (
	WarningConflict      WarningType = "conflict"
	WarningGap           WarningType = "gap"
	WarningWorkload      WarningType = "workload"
	WarningAbsence       WarningType = "absence"
	WarningVulnerability WarningType = "vulnerability"
)

func (t WarningType) Valid() bool {
	switch t {
	case WarningConflict, WarningGap, WarningWorkload, WarningAbsence, WarningVulnerability:
		return true
	}
	return false
}

// Warning is a single finding about a day's schedule.
type Warning struct {
	Type      WarningType      `json:"type"`
	Severity  Severity         `json:"severity"`
	Message   string           `json:"message"`
	StaffID   *string          `json:"staff_id,omitempty"`
	StudentID *string          `json:"student_id,omitempty"`
	Weekday   timeutil.Weekday `json:"weekday"`
	Time      *string          `json:"time,omitempty"`
}

// CoverageStatus labels a coverage slot by the sign of its surplus.
type CoverageStatus string

const (
	StatusDeficit  CoverageStatus = "deficit"
	StatusBalanced CoverageStatus = "balanced"
	StatusSurplus  CoverageStatus = "surplus"
)

// StatusFor derives the status from a surplus value.
func StatusFor(surplus int) CoverageStatus {
	switch {
	case surplus < 0:
		return StatusDeficit
	case surplus == 0:
		return StatusBalanced
	default:
		return StatusSurplus
	}
}

// CoverageSlot counts presence in one fixed-width interval.
type CoverageSlot struct {
	Start           timeutil.Clock `json:"time_start"`
	End             timeutil.Clock `json:"time_end"`
	StudentsPresent int            `json:"students_present"`
	StaffPresent    int            `json:"staff_present"`
	Surplus         int            `json:"surplus"`
	Status          CoverageStatus `json:"status"`
}

// Risk is a student-day vulnerability level.
type Risk string

const (
	RiskBlack  Risk = "black"
	RiskRed    Risk = "red"
	RiskYellow Risk = "yellow"
	RiskGreen  Risk = "green"
	RiskNone   Risk = "none"
)

// Level orders risks; higher is worse.
func (r Risk) Level() int {
	switch r {
	case RiskBlack:
		return 4
	case RiskRed:
		return 3
	case RiskYellow:
		return 2
	case RiskGreen:
		return 1
	}
	return 0
}

// Worse returns the more severe of r and o.
func (r Risk) Worse(o Risk) Risk {
	if o.Level() > r.Level() {
		return o
	}
	return r
}

// VulnerabilityCell is the risk of one student on one day.
type VulnerabilityCell struct {
	StudentID string           `json:"student_id"`
	Weekday   timeutil.Weekday `json:"weekday"`
	Risk      Risk             `json:"risk"`
	Reasons   []string         `json:"reasons,omitempty"`
}

// VulnerabilityRow is one student's week.
type VulnerabilityRow struct {
	StudentID        string                                  `json:"student_id"`
	StudentName      string                                  `json:"student_name"`
	Grade            int                                     `json:"grade"`
	CareRequirements []string                                `json:"care_requirements"`
	Days             [timeutil.DaysPerWeek]VulnerabilityCell `json:"days"`
	Worst            Risk                                    `json:"worst"`
}

// VulnerabilitySummary counts cells by risk.
type VulnerabilitySummary struct {
	Black            int `json:"black"`
	Red              int `json:"red"`
	Yellow           int `json:"yellow"`
	Green            int `json:"green"`
	StudentsAtRisk   int `json:"students_at_risk"`
	CareNeedStudents int `json:"care_need_students"`
}

// VulnerabilityMapResponse is the student x weekday grid.
type VulnerabilityMapResponse struct {
	Rows    []VulnerabilityRow   `json:"students"`
	Summary VulnerabilitySummary `json:"summary"`
}

// CandidateGroup is the ranking bucket a candidate falls into.
type CandidateGroup string

const (
	GroupPreferred  CandidateGroup = "preferred"
	GroupGradeMatch CandidateGroup = "grade_match"
	GroupOthers     CandidateGroup = "others"
)

// CandidateScore is a staff member's fitness for one slot.
type CandidateScore struct {
	Staff        StaffMember    `json:"staff"`
	IsPreferred  bool           `json:"is_preferred"`
	IsAbsent     bool           `json:"is_absent"`
	HasCertMatch bool           `json:"has_cert_match"`
	Shift        *Shift         `json:"shift"`
	Group        CandidateGroup `json:"group"`
	Position     int            `json:"position"`
}

// RankedCandidates is the grouped output of the candidate ranker.
type RankedCandidates struct {
	Preferred  []CandidateScore `json:"preferred"`
	GradeMatch []CandidateScore `json:"grade_match"`
	Others     []CandidateScore `json:"others"`
}

// Flatten returns preferred, grade-match and other candidates in display order.
func (r RankedCandidates) Flatten() []CandidateScore {
	out := make([]CandidateScore, 0, len(r.Preferred)+len(r.GradeMatch)+len(r.Others))
	out = append(out, r.Preferred...)
	out = append(out, r.GradeMatch...)
	out = append(out, r.Others...)
	return out
}

// Len is the total number of ranked candidates.
func (r RankedCandidates) Len() int {
	return len(r.Preferred) + len(r.GradeMatch) + len(r.Others)
}

// ImpactSeverity ranks students affected by an absence.
type ImpactSeverity string

const (
	ImpactCritical ImpactSeverity = "critical"
	ImpactHigh     ImpactSeverity = "high"
	ImpactMedium   ImpactSeverity = "medium"
)

// Rank orders impact severities; lower is more severe.
func (s ImpactSeverity) Rank() int {
	switch s {
	case ImpactCritical:
		return 0
	case ImpactHigh:
		return 1
	}
	return 2
}

// MissingPeriod records which care windows lost their staff.
type MissingPeriod string

const (
	MissingFM   MissingPeriod = "fm"
	MissingEM   MissingPeriod = "em"
	MissingBoth MissingPeriod = "both"
)

// Periods expands a missing period into its care windows.
func (m MissingPeriod) Periods() []Period {
	switch m {
	case MissingFM:
		return []Period{PeriodFM}
	case MissingEM:
		return []Period{PeriodEM}
	case MissingBoth:
		return []Period{PeriodFM, PeriodEM}
	}
	return nil
}

// AffectedStudent is a student who lost coverage to an absence.
type AffectedStudent struct {
	StudentID        string         `json:"student_id"`
	StudentName      string         `json:"student_name"`
	Grade            int            `json:"grade"`
	ClassName        *string        `json:"class_name"`
	Severity         ImpactSeverity `json:"severity"`
	CareRequirements []string       `json:"care_requirements"`
	MissingPeriod    MissingPeriod  `json:"missing_period"`
	AbsentStaffName  string         `json:"absent_staff_name"`
}

// ReassignmentSuggestion proposes a staff member for a student's period.
type ReassignmentSuggestion struct {
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name"`
	Period      Period  `json:"period"`
	FromStaffID *string `json:"from_staff_id,omitempty"`
	ToStaffID   string  `json:"suggested_staff_id"`
	ToStaffName string  `json:"suggested_staff_name"`
	Score       int     `json:"score"`
}

// ReplacementCandidate is an available staff member listed by the simulator.
type ReplacementCandidate struct {
	StaffID        string   `json:"staff_id"`
	StaffName      string   `json:"staff_name"`
	Certifications []string `json:"care_certifications"`
	CurrentLoad    int      `json:"current_load"`
	CoversCare     bool     `json:"covers_care"`
}

// AbsenceImpactResult is the outcome of an absence simulation for one day.
type AbsenceImpactResult struct {
	Weekday                timeutil.Weekday         `json:"weekday"`
	AbsentCount            int                      `json:"absent_count"`
	AffectedStudents       []AffectedStudent        `json:"affected_students"`
	ReplacementCandidates  []ReplacementCandidate   `json:"replacement_candidates"`
	SuggestedReassignments []ReassignmentSuggestion `json:"suggested_reassignments"`
}

// RosterEntry is one student on the day's roster.
type RosterEntry struct {
	Student    Student `json:"student"`
	Slot       DaySlot `json:"slot"`
	NeedsFM    bool    `json:"needs_fm"`
	NeedsEM    bool    `json:"needs_em"`
	FMAffected bool    `json:"fm_affected"`
	EMAffected bool    `json:"em_affected"`
}

// ClassGroup is the roster of one class; ClassID "" is the unassigned group.
type ClassGroup struct {
	ClassID   string        `json:"class_id"`
	ClassName string        `json:"class_name"`
	Grade     int           `json:"grade"`
	Students  []RosterEntry `json:"students"`
}

// DayRoster is the normalized model of one day.
type DayRoster struct {
	Weekday              timeutil.Weekday `json:"weekday"`
	Groups               []ClassGroup     `json:"groups"`
	SpecialNeedsStudents []string         `json:"special_needs_students"`
	AbsentStaff          []string         `json:"absent_staff"`
}

// ClassCoverage is the FM/EM coverage of one class group.
type ClassCoverage struct {
	ClassID    string  `json:"class_id"`
	ClassName  string  `json:"class_name"`
	FMNeed     int     `json:"fm_need"`
	FMAssigned int     `json:"fm_assigned"`
	EMNeed     int     `json:"em_need"`
	EMAssigned int     `json:"em_assigned"`
	FMCoverage float64 `json:"fm_coverage"`
	EMCoverage float64 `json:"em_coverage"`
}

// DaySummary is the per-day part of the week summary.
type DaySummary struct {
	Weekday      timeutil.Weekday `json:"weekday"`
	StudentCount int              `json:"student_count"`
	StaffCount   int              `json:"staff_count"`
	FMNeeded     int              `json:"fm_needed"`
	FMAssigned   int              `json:"fm_assigned"`
	EMNeeded     int              `json:"em_needed"`
	EMAssigned   int              `json:"em_assigned"`
	FMCoverage   float64          `json:"fm_coverage"`
	EMCoverage   float64          `json:"em_coverage"`
	WarningCount int              `json:"warning_count"`
	ErrorCount   int              `json:"error_count"`
}

// WeekTotals aggregates the five days.
type WeekTotals struct {
	FMNeeded     int     `json:"fm_needed"`
	FMAssigned   int     `json:"fm_assigned"`
	EMNeeded     int     `json:"em_needed"`
	EMAssigned   int     `json:"em_assigned"`
	FMCoverage   float64 `json:"fm_coverage"`
	EMCoverage   float64 `json:"em_coverage"`
	WarningCount int     `json:"warning_count"`
	ErrorCount   int     `json:"error_count"`
}

// WeekSummaryData is the five-day coverage overview.
type WeekSummaryData struct {
	Days   [timeutil.DaysPerWeek]DaySummary `json:"days"`
	Totals WeekTotals                       `json:"totals"`
}

// WellbeingAlertType is the taxonomy of staff wellbeing alerts.
type WellbeingAlertType string

const (
	AlertHighDailyLoad   WellbeingAlertType = "high_daily_load"
	AlertHighWeekLoad    WellbeingAlertType = "high_week_load"
	AlertConsecutiveCare WellbeingAlertType = "consecutive_care"
	AlertSoleHandler     WellbeingAlertType = "sole_handler"
)

// AlertSeverity grades wellbeing alerts.
type AlertSeverity string

const (
	AlertWarning  AlertSeverity = "warning"
	AlertCritical AlertSeverity = "critical"
)

// WellbeingAlert is one finding about a staff member's week.
type WellbeingAlert struct {
	Type      WellbeingAlertType `json:"type"`
	Severity  AlertSeverity      `json:"severity"`
	Message   string             `json:"message"`
	Weekday   *timeutil.Weekday  `json:"weekday"`
	StudentID *string            `json:"student_id,omitempty"`
	Value     int                `json:"value"`
}

// StaffWellbeing groups the alerts of one staff member.
type StaffWellbeing struct {
	StaffID     string           `json:"staff_id"`
	StaffName   string           `json:"staff_name"`
	Alerts      []WellbeingAlert `json:"alerts"`
	AlertCount  int              `json:"alert_count"`
	HasCritical bool             `json:"has_critical"`
}

// StaffWellbeingResponse is the week's wellbeing report.
type StaffWellbeingResponse struct {
	StaffAlerts     []StaffWellbeing `json:"staff_alerts"`
	TotalAlerts     int              `json:"total_alerts"`
	StaffWithAlerts int              `json:"staff_with_alerts"`
	FairnessScore   float64          `json:"fairness_score"`
}

// ClassBalance is the staffing ratio of one class on one day.
type ClassBalance struct {
	ClassID      string         `json:"class_id"`
	ClassName    string         `json:"class_name"`
	GradeGroup   GradeGroup     `json:"grade_group"`
	StudentCount int            `json:"student_count"`
	StaffCount   int            `json:"staff_count"`
	Ratio        float64        `json:"ratio"`
	Surplus      float64        `json:"surplus"`
	Status       CoverageStatus `json:"status"`
}

// RebalanceSuggestion proposes moving a staff member between classes.
type RebalanceSuggestion struct {
	StaffID       string `json:"staff_id"`
	StaffName     string `json:"staff_name"`
	FromClassID   string `json:"from_class"`
	FromClassName string `json:"from_class_name"`
	ToClassID     string `json:"to_class"`
	ToClassName   string `json:"to_class_name"`
	Reason        string `json:"reason"`
}

// ClassBalanceResult is the class balance of one day.
type ClassBalanceResult struct {
	Weekday     timeutil.Weekday      `json:"weekday"`
	LowGrades   []ClassBalance        `json:"low_grades"`
	HighGrades  []ClassBalance        `json:"high_grades"`
	Suggestions []RebalanceSuggestion `json:"rebalancing_suggestions"`
}

// UnfilledSlot is a needed period the proposer could not staff.
type UnfilledSlot struct {
	StudentID   string   `json:"student_id"`
	StudentName string   `json:"student_name"`
	Period      Period   `json:"period"`
	Reasons     []string `json:"reasons"`
}

// AssignmentProposal is the proposer's output for one day.
type AssignmentProposal struct {
	Weekday       timeutil.Weekday         `json:"weekday"`
	Suggestions   []ReassignmentSuggestion `json:"suggestions"`
	Unfilled      []UnfilledSlot           `json:"unfilled"`
	FairnessScore float64                  `json:"fairness_score"`
}

// AbsentStaff is a staff member away on a reported day.
type AbsentStaff struct {
	StaffID   string    `json:"staff_id"`
	StaffName string    `json:"staff_name"`
	Role      StaffRole `json:"role"`
}

// UncoveredNeed is a student whose assigned staff is away.
type UncoveredNeed struct {
	StudentID            string        `json:"student_id"`
	Description          string        `json:"description"`
	GradeGroup           GradeGroup    `json:"grade_group"`
	MissingPeriod        MissingPeriod `json:"missing_period"`
	CertificationsNeeded []string      `json:"certification_needed"`
}

// SubstituteDay is one weekday of the substitute report.
type SubstituteDay struct {
	Weekday        timeutil.Weekday `json:"weekday"`
	DayName        string           `json:"day_name"`
	AbsentStaff    []AbsentStaff    `json:"absent_staff"`
	DeficitHours   float64          `json:"deficit_hours"`
	UncoveredNeeds []UncoveredNeed  `json:"uncovered_needs"`
}

// SubstituteReport sums up a week's substitute needs.
type SubstituteReport struct {
	Year              int                                 `json:"week_year"`
	Week              int                                 `json:"week_number"`
	Days              [timeutil.DaysPerWeek]SubstituteDay `json:"days"`
	TotalDeficitHours float64                             `json:"total_deficit_hours"`
	TotalAbsentStaff  int                                 `json:"total_absent_staff"`
}
