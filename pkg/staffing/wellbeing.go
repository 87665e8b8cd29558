package staffing

import (
	"fmt"
	"sort"

	"github.com/arnavshah/care-coverage-api/pkg/models"
	"github.com/arnavshah/care-coverage-api/pkg/timeutil"
)

// soleHandlerMinDays is how many days a single handler must cover a care-need
// student before the assignment pattern is reported.
const soleHandlerMinDays = 3

// Wellbeing rolls up each staff member's assignments across the week and
// reports overload and sole-handler patterns.
func (e *Engine) Wellbeing(cat models.Catalog, week models.WeekData) models.StaffWellbeingResponse {
	days := weekDays(week)
	ix := indexCatalog(cat)

	var contexts [timeutil.DaysPerWeek]dayContext
	daily := make(map[string]*[timeutil.DaysPerWeek]int)
	// care-need student -> weekday -> staff handling them that day
	handlers := make(map[string]*[timeutil.DaysPerWeek]map[string]bool)

	for i, day := range days {
		contexts[i] = newDayContext(day)
		for _, sd := range day.StudentDays {
			st, ok := ix.students[sd.StudentID]
			if !ok {
				continue
			}
			for _, p := range periods {
				id := sd.StaffFor(p)
				if id == "" || contexts[i].absent[id] || !sd.PresentFor(p) {
					continue
				}
				if daily[id] == nil {
					daily[id] = new([timeutil.DaysPerWeek]int)
				}
				daily[id][i]++
				if !st.NeedsCare() {
					continue
				}
				if handlers[st.ID] == nil {
					handlers[st.ID] = new([timeutil.DaysPerWeek]map[string]bool)
				}
				if handlers[st.ID][i] == nil {
					handlers[st.ID][i] = make(map[string]bool)
				}
				handlers[st.ID][i][id] = true
			}
		}
	}

	alerts := make(map[string][]models.WellbeingAlert)
	reported := make(map[string]bool) // staff/student pairs with a sole_handler alert

	for _, s := range cat.Staff {
		counts := daily[s.ID]
		if counts == nil {
			continue
		}
		total := 0
		for i, n := range counts {
			total += n
			if n <= e.cfg.MaxDailyAssignments {
				continue
			}
			wd := timeutil.Weekday(i)
			alerts[s.ID] = append(alerts[s.ID], models.WellbeingAlert{
				Type:     models.AlertHighDailyLoad,
				Severity: grade(n, e.cfg.CriticalDailyAssignments),
				Message:  fmt.Sprintf("%d tilldelningar %s", n, wd),
				Weekday:  &wd,
				Value:    n,
			})
		}
		if total > e.cfg.MaxWeekAssignments {
			alerts[s.ID] = append(alerts[s.ID], models.WellbeingAlert{
				Type:     models.AlertHighWeekLoad,
				Severity: grade(total, e.cfg.CriticalWeekAssignments),
				Message:  fmt.Sprintf("%d tilldelningar totalt denna vecka", total),
				Value:    total,
			})
		}
	}

	for _, st := range cat.Students {
		h := handlers[st.ID]
		if h == nil {
			continue
		}
		for _, s := range cat.Staff {
			streak := longestSoleStreak(h, s.ID)
			if streak < e.cfg.ConsecutiveCareDays {
				continue
			}
			severity := models.AlertWarning
			if streak >= timeutil.DaysPerWeek {
				severity = models.AlertCritical
			}
			alerts[s.ID] = append(alerts[s.ID], models.WellbeingAlert{
				Type:      models.AlertConsecutiveCare,
				Severity:  severity,
				Message:   fmt.Sprintf("Samma krävande elev (%s) %d dagar i rad", st.FullName(), streak),
				StudentID: strPtr(st.ID),
				Value:     streak,
			})
		}
	}

	for _, st := range cat.Students {
		if !st.NeedsCare() {
			continue
		}
		if id, attended, ok := soleQualified(cat.Staff, st, contexts); ok {
			reported[id+"/"+st.ID] = true
			alerts[id] = append(alerts[id], models.WellbeingAlert{
				Type:      models.AlertSoleHandler,
				Severity:  models.AlertWarning,
				Message:   fmt.Sprintf("Enda kvalificerade personal för %s (%d dagar)", st.FullName(), attended),
				StudentID: strPtr(st.ID),
				Value:     attended,
			})
		}
		if id, n, ok := soleAssigned(handlers[st.ID]); ok && !reported[id+"/"+st.ID] {
			if _, known := ix.staff[id]; !known {
				continue
			}
			reported[id+"/"+st.ID] = true
			alerts[id] = append(alerts[id], models.WellbeingAlert{
				Type:      models.AlertSoleHandler,
				Severity:  models.AlertWarning,
				Message:   fmt.Sprintf("Ensam hanterare för %s (%d dagar)", st.FullName(), n),
				StudentID: strPtr(st.ID),
				Value:     n,
			})
		}
	}

	resp := models.StaffWellbeingResponse{StaffAlerts: []models.StaffWellbeing{}}
	var loads []float64
	for _, s := range cat.Staff {
		if s.Active {
			total := 0
			if c := daily[s.ID]; c != nil {
				for _, n := range c {
					total += n
				}
			}
			loads = append(loads, float64(total))
		}
		list := alerts[s.ID]
		if len(list) == 0 {
			continue
		}
		sw := models.StaffWellbeing{
			StaffID:    s.ID,
			StaffName:  s.FullName(),
			Alerts:     list,
			AlertCount: len(list),
		}
		for _, a := range list {
			if a.Severity == models.AlertCritical {
				sw.HasCritical = true
			}
		}
		resp.StaffAlerts = append(resp.StaffAlerts, sw)
		resp.TotalAlerts += sw.AlertCount
	}
	resp.StaffWithAlerts = len(resp.StaffAlerts)
	resp.FairnessScore = FairnessScore(loads)

	col := newCollator()
	sort.SliceStable(resp.StaffAlerts, func(i, j int) bool {
		a, b := resp.StaffAlerts[i], resp.StaffAlerts[j]
		if a.HasCritical != b.HasCritical {
			return a.HasCritical
		}
		if a.AlertCount != b.AlertCount {
			return a.AlertCount > b.AlertCount
		}
		if c := col.CompareString(a.StaffName, b.StaffName); c != 0 {
			return c < 0
		}
		return a.StaffID < b.StaffID
	})
	return resp
}

func grade(value, critical int) models.AlertSeverity {
	if value > critical {
		return models.AlertCritical
	}
	return models.AlertWarning
}

// longestSoleStreak is the longest run of consecutive weekdays on which staffID
// is the only staff member handling the student. Days are Monday to Friday of
// one week, so a weekend always ends a run.
func longestSoleStreak(days *[timeutil.DaysPerWeek]map[string]bool, staffID string) int {
	best, streak := 0, 0
	prev := timeutil.Weekday(-1)
	for i, set := range days {
		wd := timeutil.Weekday(i)
		if len(set) != 1 || !set[staffID] {
			streak = 0
			continue
		}
		if streak > 0 && wd.Follows(prev) {
			streak++
		} else {
			streak = 1
		}
		prev = wd
		if streak > best {
			best = streak
		}
	}
	return best
}

// soleQualified finds a student whose certifications are held by exactly one
// staff member across the week. A staff member qualifies if active, holding
// every requirement and present on at least one day the student attends. The
// day count covers the attended days that staff member is present.
func soleQualified(staff []models.StaffMember, st models.Student, contexts [timeutil.DaysPerWeek]dayContext) (string, int, bool) {
	if len(st.CareRequirements) == 0 {
		return "", 0, false
	}
	qualified := make(map[string]int)
	for _, dc := range contexts {
		if _, ok := dc.attends(st.ID); !ok {
			continue
		}
		for _, s := range staff {
			if s.Active && !dc.absent[s.ID] && s.HasAllCertifications(st.CareRequirements) {
				qualified[s.ID]++
			}
		}
	}
	if len(qualified) != 1 {
		return "", 0, false
	}
	for id, days := range qualified {
		return id, days, true
	}
	return "", 0, false
}

// soleAssigned finds a care-need student handled by a single staff member all
// week on at least soleHandlerMinDays days.
func soleAssigned(days *[timeutil.DaysPerWeek]map[string]bool) (string, int, bool) {
	if days == nil {
		return "", 0, false
	}
	staffDays := make(map[string]int)
	for _, set := range days {
		for id := range set {
			staffDays[id]++
		}
	}
	if len(staffDays) != 1 {
		return "", 0, false
	}
	for id, n := range staffDays {
		return id, n, n >= soleHandlerMinDays
	}
	return "", 0, false
}
