package staffing

import (
	"github.com/arnavshah/care-coverage-api/pkg/models"
	"github.com/arnavshah/care-coverage-api/pkg/timeutil"
)

// Timeline buckets the day into fixed-width slots between DayStart and DayEnd
// and counts present students and staff in each.
func (e *Engine) Timeline(day models.DayData) []models.CoverageSlot {
	checkDay(day)
	absent := day.AbsentSet()
	width := e.cfg.SlotMinutes

	slots := make([]models.CoverageSlot, 0, (e.cfg.DayEnd.Minutes()-e.cfg.DayStart.Minutes())/width)
	for start := e.cfg.DayStart; start.Add(width) <= e.cfg.DayEnd; start = start.Add(width) {
		end := start.Add(width)

		students := 0
		for _, sd := range day.StudentDays {
			if e.studentPresent(sd, start, end) {
				students++
			}
		}

		staff := make(map[string]bool)
		for _, sh := range day.StaffShifts {
			if absent[sh.StaffID] || staff[sh.StaffID] {
				continue
			}
			if e.staffPresent(sh, start, end) {
				staff[sh.StaffID] = true
			}
		}

		surplus := len(staff) - students
		slots = append(slots, models.CoverageSlot{
			Start:           start,
			End:             end,
			StudentsPresent: students,
			StaffPresent:    len(staff),
			Surplus:         surplus,
			Status:          models.StatusFor(surplus),
		})
	}
	return slots
}

// Deficits returns the deficit slots of a timeline in time order.
func Deficits(timeline []models.CoverageSlot) []models.CoverageSlot {
	out := []models.CoverageSlot{}
	for _, s := range timeline {
		if s.Status == models.StatusDeficit {
			out = append(out, s)
		}
	}
	return out
}

func (e *Engine) studentPresent(sd models.DaySlot, start, end timeutil.Clock) bool {
	switch sd.AbsentType {
	case models.AbsentFullDay:
		return false
	case models.AbsentAM:
		if start.Before(e.cfg.Midday) {
			return false
		}
	case models.AbsentPM:
		if !start.Before(e.cfg.Midday) {
			return false
		}
	}
	arrival, departure := e.cfg.DefaultArrival, e.cfg.DefaultDeparture
	if sd.Arrival != nil {
		arrival = *sd.Arrival
	}
	if sd.Departure != nil {
		departure = *sd.Departure
	}
	return timeutil.Overlaps(arrival, departure, start, end)
}

func (e *Engine) staffPresent(sh models.Shift, start, end timeutil.Clock) bool {
	if !timeutil.Overlaps(sh.Start, sh.End, start, end) {
		return false
	}
	if e.cfg.ExcludeBreaks && sh.BreakMinutes > 0 {
		// The break is placed at the middle of the shift.
		mid := sh.Start.Add(timeutil.Duration(sh.Start, sh.End) / 2)
		breakStart := mid.Add(-sh.BreakMinutes / 2)
		breakEnd := breakStart.Add(sh.BreakMinutes)
		if !start.Before(breakStart) && start.Before(breakEnd) {
			return false
		}
	}
	return true
}

// ClassCoverage counts FM/EM need and assignment per class group. A staff id
// counts as assigned only when it is set and the staff member is not absent.
func (e *Engine) ClassCoverage(roster models.DayRoster) []models.ClassCoverage {
	absent := make(map[string]bool, len(roster.AbsentStaff))
	for _, id := range roster.AbsentStaff {
		absent[id] = true
	}

	out := make([]models.ClassCoverage, 0, len(roster.Groups))
	for _, g := range roster.Groups {
		cc := models.ClassCoverage{ClassID: g.ClassID, ClassName: g.ClassName}
		for _, entry := range g.Students {
			if entry.NeedsFM {
				cc.FMNeed++
				if assigned(entry.Slot.FMStaffID, absent) {
					cc.FMAssigned++
				}
			}
			if entry.NeedsEM {
				cc.EMNeed++
				if assigned(entry.Slot.EMStaffID, absent) {
					cc.EMAssigned++
				}
			}
		}
		cc.FMCoverage = ratio(cc.FMAssigned, cc.FMNeed)
		cc.EMCoverage = ratio(cc.EMAssigned, cc.EMNeed)
		out = append(out, cc)
	}
	return out
}

func assigned(staffID *string, absent map[string]bool) bool {
	return staffID != nil && *staffID != "" && !absent[*staffID]
}

// DaySummary computes the per-day figures of the week summary.
func (e *Engine) DaySummary(cat models.Catalog, day models.DayData) models.DaySummary {
	wd := checkDay(day)
	absent := day.AbsentSet()
	sum := models.DaySummary{Weekday: wd}

	for _, sd := range day.StudentDays {
		if sd.AbsentType != models.AbsentFullDay {
			sum.StudentCount++
		}
		fm, em := e.Needs(sd)
		if fm {
			sum.FMNeeded++
			if assigned(sd.FMStaffID, absent) {
				sum.FMAssigned++
			}
		}
		if em {
			sum.EMNeeded++
			if assigned(sd.EMStaffID, absent) {
				sum.EMAssigned++
			}
		}
	}

	working := make(map[string]bool)
	for _, sh := range day.StaffShifts {
		if !absent[sh.StaffID] {
			working[sh.StaffID] = true
		}
	}
	sum.StaffCount = len(working)
	sum.FMCoverage = ratio(sum.FMAssigned, sum.FMNeeded)
	sum.EMCoverage = ratio(sum.EMAssigned, sum.EMNeeded)

	for _, w := range e.ClassifyDay(cat, day) {
		switch w.Severity {
		case models.SeverityError:
			sum.ErrorCount++
		case models.SeverityWarning:
			sum.WarningCount++
		}
	}
	return sum
}

// WeekSummary aggregates the five days. Week coverage is the sum of assigned
// over the sum of needed per period, not an average of daily ratios.
func (e *Engine) WeekSummary(cat models.Catalog, week models.WeekData) models.WeekSummaryData {
	var out models.WeekSummaryData
	for i, day := range weekDays(week) {
		ds := e.DaySummary(cat, day)
		out.Days[i] = ds
		out.Totals.FMNeeded += ds.FMNeeded
		out.Totals.FMAssigned += ds.FMAssigned
		out.Totals.EMNeeded += ds.EMNeeded
		out.Totals.EMAssigned += ds.EMAssigned
		out.Totals.WarningCount += ds.WarningCount
		out.Totals.ErrorCount += ds.ErrorCount
	}
	out.Totals.FMCoverage = ratio(out.Totals.FMAssigned, out.Totals.FMNeeded)
	out.Totals.EMCoverage = ratio(out.Totals.EMAssigned, out.Totals.EMNeeded)
	return out
}
