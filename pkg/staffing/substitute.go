package staffing

import (
	"fmt"
	"sort"

	"github.com/arnavshah/care-coverage-api/pkg/models"
	"github.com/arnavshah/care-coverage-api/pkg/timeutil"
)

// SubstituteReport sums up, per weekday, who is away, how many staff hours
// are missing against the student-per-staff ratio and which students lost
// their assigned staff.
func (e *Engine) SubstituteReport(cat models.Catalog, week models.WeekData) models.SubstituteReport {
	ix := indexCatalog(cat)
	col := newCollator()

	out := models.SubstituteReport{Year: week.Year, Week: week.Week}
	var deficit float64
	for i, day := range weekDays(week) {
		absent := day.AbsentSet()
		wd := timeutil.Weekday(i)
		sd := models.SubstituteDay{
			Weekday:        wd,
			DayName:        wd.String(),
			AbsentStaff:    []models.AbsentStaff{},
			UncoveredNeeds: []models.UncoveredNeed{},
		}

		for id := range absent {
			s, ok := ix.staff[id]
			if !ok || !s.Active {
				continue
			}
			sd.AbsentStaff = append(sd.AbsentStaff, models.AbsentStaff{StaffID: s.ID, StaffName: s.FullName(), Role: s.Role})
		}
		sort.Slice(sd.AbsentStaff, func(a, b int) bool {
			x, y := sd.AbsentStaff[a], sd.AbsentStaff[b]
			if c := col.CompareString(x.StaffName, y.StaffName); c != 0 {
				return c < 0
			}
			return x.StaffID < y.StaffID
		})

		missing := e.staffHoursNeeded(day) - staffHoursAvailable(day.StaffShifts, absent)
		if missing > 0 {
			deficit += missing
			sd.DeficitHours = round1(missing)
		}

		for _, slot := range day.StudentDays {
			if slot.AbsentType == models.AbsentFullDay {
				continue
			}
			st, ok := ix.students[slot.StudentID]
			if !ok {
				continue
			}
			fm := absentFor(slot, models.PeriodFM, absent)
			em := absentFor(slot, models.PeriodEM, absent)
			if !fm && !em {
				continue
			}
			need := models.UncoveredNeed{
				StudentID:            st.ID,
				GradeGroup:           models.GradeGroupOf(st.Grade),
				CertificationsNeeded: nonNil(st.CareRequirements),
			}
			label := "FM"
			switch {
			case fm && em:
				need.MissingPeriod, label = models.MissingBoth, "FM/EM"
			case fm:
				need.MissingPeriod = models.MissingFM
			default:
				need.MissingPeriod, label = models.MissingEM, "EM"
			}
			need.Description = fmt.Sprintf("%s (åk %d) saknar %s-personal", st.FullName(), st.Grade, label)
			sd.UncoveredNeeds = append(sd.UncoveredNeeds, need)
		}

		out.Days[i] = sd
		out.TotalAbsentStaff += len(sd.AbsentStaff)
	}
	out.TotalDeficitHours = round1(deficit)
	return out
}

// staffHoursNeeded is the day's care hours divided by the students a staff
// member can take. Missing times fall back to the default presence window.
func (e *Engine) staffHoursNeeded(day models.DayData) float64 {
	minutes := 0
	for _, sd := range day.StudentDays {
		if sd.AbsentType == models.AbsentFullDay {
			continue
		}
		from, to := e.cfg.DefaultArrival, e.cfg.DefaultDeparture
		if sd.Arrival != nil {
			from = *sd.Arrival
		}
		if sd.Departure != nil {
			to = *sd.Departure
		}
		if to.After(from) {
			minutes += to.Minutes() - from.Minutes()
		}
	}
	return float64(minutes) / 60 / e.cfg.StudentsPerStaff
}

// staffHoursAvailable sums the shift hours of present staff, net of breaks.
func staffHoursAvailable(shifts []models.Shift, absent map[string]bool) float64 {
	minutes := 0
	for _, sh := range shifts {
		if absent[sh.StaffID] {
			continue
		}
		if n := sh.End.Minutes() - sh.Start.Minutes() - sh.BreakMinutes; n > 0 {
			minutes += n
		}
	}
	return float64(minutes) / 60
}

func absentFor(sd models.DaySlot, p models.Period, absent map[string]bool) bool {
	id := sd.StaffFor(p)
	return id != "" && absent[id] && sd.PresentFor(p)
}
