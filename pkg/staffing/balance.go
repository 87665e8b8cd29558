package staffing

import (
	"fmt"
	"math"
	"sort"

	"github.com/arnavshah/care-coverage-api/pkg/models"
)

// ClassBalance compares each class's staffing with a target of one staff
// member per StudentsPerStaff present students and suggests moving staff from
// surplus to deficit classes within the same grade group.
func (e *Engine) ClassBalance(cat models.Catalog, day models.DayData) models.ClassBalanceResult {
	dc := newDayContext(day)
	ix := indexCatalog(cat)

	students := make(map[string]int)
	staff := make(map[string]map[string]bool)
	for _, sd := range day.StudentDays {
		if sd.AbsentType == models.AbsentFullDay {
			continue
		}
		st, ok := ix.students[sd.StudentID]
		if !ok || st.ClassID == nil {
			continue
		}
		cid := *st.ClassID
		students[cid]++
		if staff[cid] == nil {
			staff[cid] = make(map[string]bool)
		}
		for _, p := range periods {
			if id := sd.StaffFor(p); id != "" && !dc.absent[id] {
				staff[cid][id] = true
			}
		}
	}

	res := models.ClassBalanceResult{
		Weekday:     dc.weekday,
		LowGrades:   []models.ClassBalance{},
		HighGrades:  []models.ClassBalance{},
		Suggestions: []models.RebalanceSuggestion{},
	}
	for _, c := range cat.Classes {
		n, m := students[c.ID], len(staff[c.ID])
		target := 0.0
		if n > 0 {
			target = math.Max(float64(n)/float64(e.cfg.StudentsPerStaff), 1)
		}
		surplus := float64(m) - target

		b := models.ClassBalance{
			ClassID:      c.ID,
			ClassName:    c.Name,
			GradeGroup:   models.GradeGroupOf(c.Grade),
			StudentCount: n,
			StaffCount:   m,
			Ratio:        round1(float64(n) / math.Max(float64(m), 1)),
			Surplus:      round1(surplus),
			Status:       models.StatusBalanced,
		}
		switch {
		case surplus > 0.5:
			b.Status = models.StatusSurplus
		case surplus < -0.5:
			b.Status = models.StatusDeficit
		}
		if b.GradeGroup == models.GradeGroupLow {
			res.LowGrades = append(res.LowGrades, b)
		} else {
			res.HighGrades = append(res.HighGrades, b)
		}
	}

	col := newCollator()
	for _, group := range [][]models.ClassBalance{res.LowGrades, res.HighGrades} {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Surplus < group[j].Surplus
		})
		for _, deficit := range group {
			if deficit.Status != models.StatusDeficit {
				continue
			}
			for _, surplus := range group {
				if surplus.Status != models.StatusSurplus {
					continue
				}
				ids := make([]string, 0, len(staff[surplus.ClassID]))
				for id := range staff[surplus.ClassID] {
					ids = append(ids, id)
				}
				sort.Slice(ids, func(i, j int) bool {
					if c := col.CompareString(ix.staffName(ids[i]), ix.staffName(ids[j])); c != 0 {
						return c < 0
					}
					return ids[i] < ids[j]
				})
				for _, id := range ids {
					s, ok := ix.staff[id]
					if !ok || !s.Active || s.Role == models.RoleTeacher {
						continue
					}
					res.Suggestions = append(res.Suggestions, models.RebalanceSuggestion{
						StaffID:       s.ID,
						StaffName:     s.FullName(),
						FromClassID:   surplus.ClassID,
						FromClassName: surplus.ClassName,
						ToClassID:     deficit.ClassID,
						ToClassName:   deficit.ClassName,
						Reason: fmt.Sprintf("%s har överskott (%d personal, %d elever), %s har underskott",
							surplus.ClassName, surplus.StaffCount, surplus.StudentCount, deficit.ClassName),
					})
					break
				}
			}
		}
	}
	return res
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
