package staffing

import (
	"sort"

	"golang.org/x/text/collate"

	"github.com/arnavshah/care-coverage-api/pkg/models"
)

// RankRequest describes one assignment slot to rank staff for.
type RankRequest struct {
	Staff                  []models.StaffMember
	StudentGrade           int
	PreferredStaff         []string
	RequiredCertifications []string
	// Shifts maps staff id to that day's shift; a missing entry means the
	// staff member is not working.
	Shifts map[string]models.Shift
	Absent map[string]bool
}

// RankCandidates orders every staff member by fitness for a slot. Staff are
// split into preferred, grade-match and others; within a group absent staff
// sort last, certification matches first, staff working today before those
// who are not, then by name. Nobody is left out: absence and mismatch show in
// the ordering and flags.
func (e *Engine) RankCandidates(req RankRequest) models.RankedCandidates {
	preferred := make(map[string]bool, len(req.PreferredStaff))
	for _, id := range req.PreferredStaff {
		preferred[id] = true
	}
	group := models.GradeGroupOf(req.StudentGrade)

	out := models.RankedCandidates{
		Preferred:  []models.CandidateScore{},
		GradeMatch: []models.CandidateScore{},
		Others:     []models.CandidateScore{},
	}
	for _, s := range req.Staff {
		c := models.CandidateScore{
			Staff:        s,
			IsPreferred:  preferred[s.ID],
			IsAbsent:     req.Absent[s.ID],
			HasCertMatch: s.HasAllCertifications(req.RequiredCertifications),
		}
		if sh, ok := req.Shifts[s.ID]; ok {
			c.Shift = &sh
		}
		switch {
		case c.IsPreferred:
			c.Group = models.GroupPreferred
			out.Preferred = append(out.Preferred, c)
		case s.MatchesGradeGroup(group):
			c.Group = models.GroupGradeMatch
			out.GradeMatch = append(out.GradeMatch, c)
		default:
			c.Group = models.GroupOthers
			out.Others = append(out.Others, c)
		}
	}

	col := newCollator()
	sortCandidates(col, out.Preferred)
	sortCandidates(col, out.GradeMatch)
	sortCandidates(col, out.Others)

	pos := 1
	for _, list := range [][]models.CandidateScore{out.Preferred, out.GradeMatch, out.Others} {
		for i := range list {
			list[i].Position = pos
			pos++
		}
	}
	return out
}

func sortCandidates(col *collate.Collator, cs []models.CandidateScore) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.IsAbsent != b.IsAbsent {
			return !a.IsAbsent
		}
		if a.HasCertMatch != b.HasCertMatch {
			return a.HasCertMatch
		}
		if (a.Shift != nil) != (b.Shift != nil) {
			return a.Shift != nil
		}
		if c := col.CompareString(a.Staff.FullName(), b.Staff.FullName()); c != 0 {
			return c < 0
		}
		return a.Staff.ID < b.Staff.ID
	})
}

// RankForSlot ranks staff for a student on the given day, taking preferences
// and certifications from the student and shifts and absences from the day.
// ok is false when the student is not in the catalog.
func (e *Engine) RankForSlot(cat models.Catalog, day models.DayData, studentID string) (models.RankedCandidates, bool) {
	checkDay(day)
	ix := indexCatalog(cat)
	st, ok := ix.students[studentID]
	if !ok {
		return models.RankedCandidates{}, false
	}
	return e.RankCandidates(e.rankRequest(cat.Staff, st, day.StaffShifts, day.AbsentSet())), true
}

func (e *Engine) rankRequest(staff []models.StaffMember, st models.Student, shifts []models.Shift, absent map[string]bool) RankRequest {
	return RankRequest{
		Staff:                  staff,
		StudentGrade:           st.Grade,
		PreferredStaff:         st.PreferredStaff,
		RequiredCertifications: st.CareRequirements,
		Shifts:                 shiftsByStaff(shifts),
		Absent:                 absent,
	}
}

// shiftsByStaff keeps the first shift of each staff member.
func shiftsByStaff(shifts []models.Shift) map[string]models.Shift {
	out := make(map[string]models.Shift, len(shifts))
	for _, sh := range shifts {
		if _, ok := out[sh.StaffID]; !ok {
			out[sh.StaffID] = sh
		}
	}
	return out
}
