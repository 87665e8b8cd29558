package staffing

import (
	"sort"

	"github.com/arnavshah/care-coverage-api/pkg/models"
	"github.com/arnavshah/care-coverage-api/pkg/timeutil"
)

// SimulateAbsence computes what happens to a day if the given staff members
// are away: which students lose coverage, how severe that is, and who should
// take over. It only produces suggestions; the roster is never modified.
// Students hit by several absent staff members are reported once.
func (e *Engine) SimulateAbsence(cat models.Catalog, day models.DayData, absentIDs []string) models.AbsenceImpactResult {
	dc := newDayContext(day)
	ix := indexCatalog(cat)

	requested := make(map[string]bool, len(absentIDs))
	for _, id := range absentIDs {
		if id != "" {
			requested[id] = true
		}
	}
	absent := make(map[string]bool, len(dc.absent)+len(requested))
	for id := range dc.absent {
		absent[id] = true
	}
	for id := range requested {
		absent[id] = true
	}

	load := periodLoad(day.StudentDays, absent)

	type hit struct {
		affected models.AffectedStudent
		student  models.Student
		slot     models.DaySlot
	}
	var hits []hit
	for _, sd := range day.StudentDays {
		st, ok := ix.students[sd.StudentID]
		if !ok {
			continue
		}
		fmID, emID := sd.StaffFor(models.PeriodFM), sd.StaffFor(models.PeriodEM)
		fmHit := fmID != "" && requested[fmID] && sd.PresentFor(models.PeriodFM)
		emHit := emID != "" && requested[emID] && sd.PresentFor(models.PeriodEM)
		if !fmHit && !emHit {
			continue
		}

		a := models.AffectedStudent{
			StudentID:        st.ID,
			StudentName:      st.FullName(),
			Grade:            st.Grade,
			ClassName:        ix.className(st),
			Severity:         impactSeverity(cat.Staff, st, absent),
			CareRequirements: nonNil(st.CareRequirements),
		}
		switch {
		case fmHit && emHit:
			a.MissingPeriod = models.MissingBoth
			a.AbsentStaffName = ix.staffName(fmID)
		case fmHit:
			a.MissingPeriod = models.MissingFM
			a.AbsentStaffName = ix.staffName(fmID)
		default:
			a.MissingPeriod = models.MissingEM
			a.AbsentStaffName = ix.staffName(emID)
		}
		hits = append(hits, hit{affected: a, student: st, slot: sd})
	}

	col := newCollator()
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i].affected, hits[j].affected
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() < b.Severity.Rank()
		}
		if c := col.CompareString(a.StudentName, b.StudentName); c != 0 {
			return c < 0
		}
		return a.StudentID < b.StudentID
	})

	result := models.AbsenceImpactResult{
		Weekday:                dc.weekday,
		AbsentCount:            len(requested),
		AffectedStudents:       make([]models.AffectedStudent, 0, len(hits)),
		SuggestedReassignments: []models.ReassignmentSuggestion{},
	}

	seen := make(map[string]bool)
	for _, h := range hits {
		result.AffectedStudents = append(result.AffectedStudents, h.affected)

		ranking := e.RankCandidates(e.rankRequest(cat.Staff, h.student, day.StaffShifts, absent)).Flatten()
		for _, p := range h.affected.MissingPeriod.Periods() {
			key := h.student.ID + "/" + string(p)
			if seen[key] {
				continue
			}
			seen[key] = true

			for _, c := range ranking {
				if !e.canCover(c, h.student, p) || load[c.Staff.ID][p] >= e.cfg.MaxPeriodAssignments {
					continue
				}
				s := models.ReassignmentSuggestion{
					StudentID:   h.student.ID,
					StudentName: h.student.FullName(),
					Period:      p,
					ToStaffID:   c.Staff.ID,
					ToStaffName: c.Staff.FullName(),
					Score:       len(ranking) - c.Position + 1,
				}
				if from := h.slot.StaffFor(p); from != "" {
					s.FromStaffID = strPtr(from)
				}
				result.SuggestedReassignments = append(result.SuggestedReassignments, s)
				bump(load, c.Staff.ID, p)
				break
			}
		}
	}

	result.ReplacementCandidates = e.replacementCandidates(cat.Staff, day.StaffShifts, absent, day.StudentDays, result.AffectedStudents)
	return result
}

// SimulateAbsenceRange runs SimulateAbsence for every weekday in [from, to],
// returning one result per day in weekday order.
func (e *Engine) SimulateAbsenceRange(cat models.Catalog, week models.WeekData, absentIDs []string, from, to timeutil.Weekday) []models.AbsenceImpactResult {
	timeutil.MustWeekday(int(from))
	timeutil.MustWeekday(int(to))
	days := weekDays(week)
	out := []models.AbsenceImpactResult{}
	for d := from; d <= to; d++ {
		out = append(out, e.SimulateAbsence(cat, days[d], absentIDs))
	}
	return out
}

// canCover reports whether a ranked candidate can take the student for the
// period: active, present, not a teacher, on shift for the period and holding
// every certification the student requires.
func (e *Engine) canCover(c models.CandidateScore, st models.Student, p models.Period) bool {
	if c.IsAbsent || !c.Staff.Active || c.Staff.Role == models.RoleTeacher {
		return false
	}
	if c.Shift == nil || !e.coversPeriod(*c.Shift, p) {
		return false
	}
	return len(st.CareRequirements) == 0 || c.HasCertMatch
}

// impactSeverity is critical when the student's care requirements can no
// longer be met by anyone present, high when they still can or the student
// needs double staffing, and medium otherwise.
func impactSeverity(staff []models.StaffMember, st models.Student, absent map[string]bool) models.ImpactSeverity {
	if len(st.CareRequirements) > 0 {
		if qualifiedCount(staff, st.CareRequirements, absent) == 0 {
			return models.ImpactCritical
		}
		return models.ImpactHigh
	}
	if st.RequiresDoubleStaffing {
		return models.ImpactHigh
	}
	return models.ImpactMedium
}

// qualifiedCount counts active, non-absent staff holding every certification.
func qualifiedCount(staff []models.StaffMember, certs []string, absent map[string]bool) int {
	n := 0
	for _, s := range staff {
		if s.Active && !absent[s.ID] && s.HasAllCertifications(certs) {
			n++
		}
	}
	return n
}

// periodLoad counts, per staff member and period, the present students they
// are assigned to. Absent staff carry no load.
func periodLoad(slots []models.DaySlot, absent map[string]bool) map[string]map[models.Period]int {
	load := make(map[string]map[models.Period]int)
	for _, sd := range slots {
		for _, p := range periods {
			id := sd.StaffFor(p)
			if id == "" || absent[id] || !sd.PresentFor(p) {
				continue
			}
			bump(load, id, p)
		}
	}
	return load
}

func bump(load map[string]map[models.Period]int, id string, p models.Period) {
	if load[id] == nil {
		load[id] = make(map[models.Period]int)
	}
	load[id][p]++
}

// replacementCandidates lists available staff: active, present and working
// today. Staff who can meet an affected student's care requirements come
// first, then the least loaded.
func (e *Engine) replacementCandidates(
	staff []models.StaffMember,
	shifts []models.Shift,
	absent map[string]bool,
	slots []models.DaySlot,
	affected []models.AffectedStudent,
) []models.ReplacementCandidate {
	working := shiftsByStaff(shifts)
	load := periodLoad(slots, absent)

	var out []models.ReplacementCandidate
	for _, s := range staff {
		if !s.Active || absent[s.ID] || s.Role == models.RoleTeacher {
			continue
		}
		if _, ok := working[s.ID]; !ok {
			continue
		}
		c := models.ReplacementCandidate{
			StaffID:        s.ID,
			StaffName:      s.FullName(),
			Certifications: nonNil(s.Certifications),
			CurrentLoad:    load[s.ID][models.PeriodFM] + load[s.ID][models.PeriodEM],
		}
		for _, a := range affected {
			if len(a.CareRequirements) > 0 && s.HasAllCertifications(a.CareRequirements) {
				c.CoversCare = true
				break
			}
		}
		out = append(out, c)
	}

	col := newCollator()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CoversCare != b.CoversCare {
			return a.CoversCare
		}
		if a.CurrentLoad != b.CurrentLoad {
			return a.CurrentLoad < b.CurrentLoad
		}
		if c := col.CompareString(a.StaffName, b.StaffName); c != 0 {
			return c < 0
		}
		return a.StaffID < b.StaffID
	})
	if len(out) > e.cfg.MaxCandidates {
		out = out[:e.cfg.MaxCandidates]
	}
	if out == nil {
		out = []models.ReplacementCandidate{}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
