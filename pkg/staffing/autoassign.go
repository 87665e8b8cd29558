package staffing

import (
	"fmt"

	"github.com/arnavshah/care-coverage-api/pkg/models"
)

// ProposeAssignments fills the day's open FM/EM slots greedily. A slot is open
// when the student needs the period and nobody, or only an absent staff
// member, is assigned. Each slot goes to the least-loaded eligible candidate of
// the first candidate group (preferred, grade match, others) that has one.
// Eligible means active, present, not a teacher, working across the period and
// below MaxPeriodAssignments students. The day itself is left untouched.
func (e *Engine) ProposeAssignments(cat models.Catalog, day models.DayData) models.AssignmentProposal {
	dc := newDayContext(day)
	ix := indexCatalog(cat)
	roster := e.AggregateDay(cat, day)
	load := periodLoad(day.StudentDays, dc.absent)

	type slot struct {
		student models.Student
		current string
		period  models.Period
	}
	var slots []slot
	for _, g := range roster.Groups {
		for _, en := range g.Students {
			for _, p := range periods {
				need := en.NeedsFM
				if p == models.PeriodEM {
					need = en.NeedsEM
				}
				id := en.Slot.StaffFor(p)
				if !need || (id != "" && !dc.absent[id]) {
					continue
				}
				slots = append(slots, slot{student: en.Student, current: id, period: p})
			}
		}
	}

	out := models.AssignmentProposal{
		Weekday:     dc.weekday,
		Suggestions: []models.ReassignmentSuggestion{},
		Unfilled:    []models.UnfilledSlot{},
	}

	for _, sl := range slots {
		ranked := e.RankCandidates(e.rankRequest(cat.Staff, sl.student, day.StaffShifts, dc.absent))
		total := ranked.Len()

		var best *models.CandidateScore
		absentCount := 0
		offCount := 0
		fullCount := 0
		ineligibleCount := 0

		for _, group := range [][]models.CandidateScore{ranked.Preferred, ranked.GradeMatch, ranked.Others} {
			minLoad := -1
			for i := range group {
				c := &group[i]
				eligible := c.Staff.Active && c.Staff.Role != models.RoleTeacher
				available := !c.IsAbsent
				working := c.Shift != nil && e.coversPeriod(*c.Shift, sl.period)
				current := load[c.Staff.ID][sl.period]
				fits := current < e.cfg.MaxPeriodAssignments

				if eligible && available && working && fits {
					if best == nil || current < minLoad {
						best = c
						minLoad = current
					}
					continue
				}
				if !eligible {
					ineligibleCount++
				}
				if !available {
					absentCount++
				}
				if !working {
					offCount++
				}
				if !fits {
					fullCount++
				}
			}
			if best != nil {
				break
			}
		}

		if best != nil {
			s := models.ReassignmentSuggestion{
				StudentID:   sl.student.ID,
				StudentName: sl.student.FullName(),
				Period:      sl.period,
				ToStaffID:   best.Staff.ID,
				ToStaffName: best.Staff.FullName(),
				Score:       total - best.Position + 1,
			}
			if sl.current != "" {
				s.FromStaffID = strPtr(sl.current)
			}
			out.Suggestions = append(out.Suggestions, s)
			bump(load, best.Staff.ID, sl.period)
			continue
		}

		var reasons []string
		if absentCount > 0 {
			reasons = append(reasons, fmt.Sprintf("%d personal är frånvarande", absentCount))
		}
		if offCount > 0 {
			reasons = append(reasons, fmt.Sprintf("%d personal arbetar inte under %s", offCount, periodLabel(sl.period)))
		}
		if fullCount > 0 {
			reasons = append(reasons, fmt.Sprintf("%d personal har redan %d elever", fullCount, e.cfg.MaxPeriodAssignments))
		}
		if ineligibleCount > 0 {
			reasons = append(reasons, fmt.Sprintf("%d personal är inaktiva eller pedagoger", ineligibleCount))
		}
		if len(reasons) == 0 {
			reasons = append(reasons, "ingen personal finns")
		}
		out.Unfilled = append(out.Unfilled, models.UnfilledSlot{
			StudentID:   sl.student.ID,
			StudentName: ix.studentName(sl.student.ID),
			Period:      sl.period,
			Reasons:     reasons,
		})
	}

	working := shiftsByStaff(day.StaffShifts)
	var loads []float64
	for _, s := range cat.Staff {
		if _, ok := working[s.ID]; !ok || !s.Active || dc.absent[s.ID] || s.Role == models.RoleTeacher {
			continue
		}
		loads = append(loads, float64(load[s.ID][models.PeriodFM]+load[s.ID][models.PeriodEM]))
	}
	out.FairnessScore = FairnessScore(loads)
	return out
}

// coversPeriod reports whether a shift spans the care period: FM shifts start
// before the FM cutoff, EM shifts end after the EM cutoff.
func (e *Engine) coversPeriod(sh models.Shift, p models.Period) bool {
	if p == models.PeriodFM {
		return sh.Start.Before(e.cfg.FMCutoff)
	}
	return sh.End.After(e.cfg.EMCutoff)
}
