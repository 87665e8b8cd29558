package staffing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arnavshah/care-coverage-api/pkg/models"
	"github.com/arnavshah/care-coverage-api/pkg/timeutil"
)

var periods = []models.Period{models.PeriodFM, models.PeriodEM}

func periodLabel(p models.Period) string {
	return strings.ToUpper(string(p))
}

// dayContext is the per-call lookup over one day.
type dayContext struct {
	weekday     timeutil.Weekday
	absent      map[string]bool
	slots       map[string]models.DaySlot
	assignments map[string][]models.SpecialNeedsAssignment
}

func newDayContext(day models.DayData) dayContext {
	dc := dayContext{
		weekday:     checkDay(day),
		absent:      day.AbsentSet(),
		slots:       make(map[string]models.DaySlot, len(day.StudentDays)),
		assignments: make(map[string][]models.SpecialNeedsAssignment),
	}
	for _, sd := range day.StudentDays {
		dc.slots[sd.StudentID] = sd
	}
	for _, a := range day.DayAssignments {
		dc.assignments[a.StudentID] = append(dc.assignments[a.StudentID], a)
	}
	return dc
}

// attends reports whether the student has a slot that day and is not away all day.
func (dc dayContext) attends(studentID string) (models.DaySlot, bool) {
	sd, ok := dc.slots[studentID]
	if !ok || sd.AbsentType == models.AbsentFullDay {
		return sd, false
	}
	return sd, true
}

// ClassifyDay returns the day's warnings: the baseline warnings delivered with
// the day followed by the computed ones, without exact duplicates, ordered
// error before warning before info.
func (e *Engine) ClassifyDay(cat models.Catalog, day models.DayData) []models.Warning {
	dc := newDayContext(day)
	ix := indexCatalog(cat)
	wd := dc.weekday

	out := make([]models.Warning, 0, len(day.Warnings))
	for _, w := range day.Warnings {
		w.Weekday = wd
		out = append(out, w)
	}

	load := make(map[string]map[models.Period]int)
	for _, sd := range day.StudentDays {
		student := ix.studentName(sd.StudentID)
		for _, p := range periods {
			id := sd.StaffFor(p)
			if id != "" && sd.PresentFor(p) {
				if dc.absent[id] {
					out = append(out, models.Warning{
						Type:      models.WarningConflict,
						Severity:  models.SeverityError,
						Message:   fmt.Sprintf("%s är frånvarande men tilldelad %s på %s", ix.staffName(id), student, periodLabel(p)),
						StaffID:   strPtr(id),
						StudentID: strPtr(sd.StudentID),
						Weekday:   wd,
						Time:      strPtr(periodLabel(p)),
					})
				} else {
					if load[id] == nil {
						load[id] = make(map[models.Period]int)
					}
					load[id][p]++
				}
			}
			if id == "" && e.NeedsPeriod(sd, p) {
				out = append(out, e.gapWarning(sd, p, student, wd))
			}
		}
	}

	out = append(out, specialNeedsConflicts(ix, dc, day.DayAssignments)...)
	out = append(out, absenceWarnings(ix, day)...)
	out = append(out, e.workloadWarnings(ix, load, wd)...)

	for _, st := range cat.Students {
		cell := e.studentDayCell(cat.Staff, st, dc)
		switch cell.Risk {
		case models.RiskBlack:
			out = append(out, models.Warning{
				Type:      models.WarningVulnerability,
				Severity:  models.SeverityError,
				Message:   fmt.Sprintf("%s: %s", st.FullName(), strings.Join(cell.Reasons, "; ")),
				StudentID: strPtr(st.ID),
				Weekday:   wd,
			})
		case models.RiskRed:
			out = append(out, models.Warning{
				Type:      models.WarningVulnerability,
				Severity:  models.SeverityWarning,
				Message:   fmt.Sprintf("%s: %s", st.FullName(), strings.Join(cell.Reasons, "; ")),
				StudentID: strPtr(st.ID),
				Weekday:   wd,
			})
		}
	}

	return SortWarnings(dedupeWarnings(out))
}

func (e *Engine) gapWarning(sd models.DaySlot, p models.Period, student string, wd timeutil.Weekday) models.Warning {
	var msg string
	var at *string
	if p == models.PeriodFM {
		msg = fmt.Sprintf("%s behöver FM-omsorg (ank. %s) men saknar personal", student, sd.Arrival)
		at = timeutil.StringPtr(sd.Arrival)
	} else {
		msg = fmt.Sprintf("%s behöver EM-omsorg (avf. %s) men saknar personal", student, sd.Departure)
		at = timeutil.StringPtr(sd.Departure)
	}
	return models.Warning{
		Type:      models.WarningGap,
		Severity:  models.SeverityError,
		Message:   msg,
		StudentID: strPtr(sd.StudentID),
		Weekday:   wd,
		Time:      at,
	}
}

func specialNeedsConflicts(ix catalogIndex, dc dayContext, das []models.SpecialNeedsAssignment) []models.Warning {
	var out []models.Warning
	byStaff := make(map[string][]models.SpecialNeedsAssignment)
	var staffIDs []string
	for _, a := range das {
		if dc.absent[a.StaffID] {
			out = append(out, models.Warning{
				Type:      models.WarningConflict,
				Severity:  models.SeverityError,
				Message:   fmt.Sprintf("%s är frånvarande men har specialtilldelning för %s", ix.staffName(a.StaffID), ix.studentName(a.StudentID)),
				StaffID:   strPtr(a.StaffID),
				StudentID: strPtr(a.StudentID),
				Weekday:   dc.weekday,
				Time:      strPtr(a.Start.String()),
			})
		}
		if _, seen := byStaff[a.StaffID]; !seen {
			staffIDs = append(staffIDs, a.StaffID)
		}
		byStaff[a.StaffID] = append(byStaff[a.StaffID], a)
	}
	for _, id := range staffIDs {
		list := byStaff[id]
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				a, b := list[i], list[j]
				if !timeutil.Overlaps(a.Start, a.End, b.Start, b.End) {
					continue
				}
				out = append(out, models.Warning{
					Type:     models.WarningConflict,
					Severity: models.SeverityError,
					Message: fmt.Sprintf("%s har överlappande specialtilldelningar %s-%s och %s-%s",
						ix.staffName(id), a.Start, a.End, b.Start, b.End),
					StaffID: strPtr(id),
					Weekday: dc.weekday,
					Time:    strPtr(a.Start.String()),
				})
			}
		}
	}
	return out
}

// absenceWarnings flags every absent staff member without a confirmed substitute.
func absenceWarnings(ix catalogIndex, day models.DayData) []models.Warning {
	covered := make(map[string]bool)
	for _, a := range day.Absences {
		if a.SubstituteID != nil && *a.SubstituteID != "" {
			covered[a.StaffID] = true
		}
	}
	var out []models.Warning
	for _, id := range sortedKeys(day.AbsentSet()) {
		if covered[id] {
			continue
		}
		out = append(out, models.Warning{
			Type:     models.WarningAbsence,
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("%s är frånvarande utan bekräftad ersättare", ix.staffName(id)),
			StaffID:  strPtr(id),
			Weekday:  day.Weekday,
		})
	}
	return out
}

func (e *Engine) workloadWarnings(ix catalogIndex, load map[string]map[models.Period]int, wd timeutil.Weekday) []models.Warning {
	ids := make([]string, 0, len(load))
	for id := range load {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []models.Warning
	for _, id := range ids {
		for _, p := range periods {
			n := load[id][p]
			if n <= e.cfg.MaxPeriodAssignments {
				continue
			}
			out = append(out, models.Warning{
				Type:     models.WarningWorkload,
				Severity: models.SeverityWarning,
				Message:  fmt.Sprintf("%s tilldelad %d elever på %s (max %d)", ix.staffName(id), n, periodLabel(p), e.cfg.MaxPeriodAssignments),
				StaffID:  strPtr(id),
				Weekday:  wd,
				Time:     strPtr(periodLabel(p)),
			})
		}
	}
	return out
}

// SortWarnings orders warnings error > warning > info, keeping the input order
// within a severity.
func SortWarnings(ws []models.Warning) []models.Warning {
	sort.SliceStable(ws, func(i, j int) bool {
		return ws[i].Severity.Rank() < ws[j].Severity.Rank()
	})
	return ws
}

func dedupeWarnings(ws []models.Warning) []models.Warning {
	seen := make(map[string]bool, len(ws))
	out := ws[:0]
	for _, w := range ws {
		k := warningKey(w)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, w)
	}
	return out
}

func warningKey(w models.Warning) string {
	deref := func(s *string) string {
		if s == nil {
			return "\x00"
		}
		return *s
	}
	return strings.Join([]string{
		string(w.Type), string(w.Severity), w.Message,
		deref(w.StaffID), deref(w.StudentID), fmt.Sprint(int(w.Weekday)), deref(w.Time),
	}, "\x1f")
}

// StudentDayRisk classifies one student on one day.
func (e *Engine) StudentDayRisk(cat models.Catalog, studentID string, day models.DayData) models.VulnerabilityCell {
	dc := newDayContext(day)
	for _, st := range cat.Students {
		if st.ID == studentID {
			return e.studentDayCell(cat.Staff, st, dc)
		}
	}
	return models.VulnerabilityCell{StudentID: studentID, Weekday: dc.weekday, Risk: models.RiskNone}
}

// studentDayCell applies the risk rules and keeps the worst level found.
func (e *Engine) studentDayCell(staff []models.StaffMember, st models.Student, dc dayContext) models.VulnerabilityCell {
	cell := models.VulnerabilityCell{StudentID: st.ID, Weekday: dc.weekday, Risk: models.RiskNone}
	if !st.NeedsCare() {
		return cell
	}
	slot, ok := dc.attends(st.ID)
	if !ok {
		return cell
	}
	cell.Risk = models.RiskGreen

	raise := func(r models.Risk, reason string) {
		cell.Risk = cell.Risk.Worse(r)
		cell.Reasons = append(cell.Reasons, reason)
	}

	holders := certHolders(staff, st.CareRequirements, dc.absent)
	for _, cert := range st.CareRequirements {
		switch holders[cert] {
		case 0:
			raise(models.RiskBlack, fmt.Sprintf("ingen tillgänglig personal med %s", cert))
		case 1:
			raise(models.RiskRed, fmt.Sprintf("endast en tillgänglig personal med %s", cert))
		}
	}

	byID := make(map[string]models.StaffMember, len(staff))
	for _, s := range staff {
		byID[s.ID] = s
	}
	for _, p := range periods {
		if !e.NeedsPeriod(slot, p) {
			continue
		}
		id := slot.StaffFor(p)
		switch {
		case id == "":
			raise(models.RiskYellow, fmt.Sprintf("%s saknar personal", periodLabel(p)))
		case dc.absent[id]:
			raise(models.RiskYellow, fmt.Sprintf("%s-personal är frånvarande", periodLabel(p)))
		default:
			if s, ok := byID[id]; !ok || !s.HasAllCertifications(st.CareRequirements) {
				if len(st.CareRequirements) > 0 {
					raise(models.RiskYellow, fmt.Sprintf("%s-personal saknar certifiering", periodLabel(p)))
				}
			}
		}
	}

	if st.RequiresDoubleStaffing && len(dc.assignments[st.ID]) == 0 {
		raise(models.RiskYellow, "dubbelbemanning saknas")
	}
	return cell
}

// VulnerabilityMap builds the student x weekday risk grid for care-need
// students, worst rows first.
func (e *Engine) VulnerabilityMap(cat models.Catalog, week models.WeekData) models.VulnerabilityMapResponse {
	days := weekDays(week)
	var contexts [timeutil.DaysPerWeek]dayContext
	for i, d := range days {
		contexts[i] = newDayContext(d)
	}

	resp := models.VulnerabilityMapResponse{Rows: []models.VulnerabilityRow{}}
	for _, st := range cat.Students {
		if !st.NeedsCare() {
			continue
		}
		row := models.VulnerabilityRow{
			StudentID:        st.ID,
			StudentName:      st.FullName(),
			Grade:            st.Grade,
			CareRequirements: st.CareRequirements,
			Worst:            models.RiskNone,
		}
		for i := range contexts {
			cell := e.studentDayCell(cat.Staff, st, contexts[i])
			row.Days[i] = cell
			row.Worst = row.Worst.Worse(cell.Risk)
			switch cell.Risk {
			case models.RiskBlack:
				resp.Summary.Black++
			case models.RiskRed:
				resp.Summary.Red++
			case models.RiskYellow:
				resp.Summary.Yellow++
			case models.RiskGreen:
				resp.Summary.Green++
			}
		}
		resp.Summary.CareNeedStudents++
		if row.Worst.Level() >= models.RiskYellow.Level() {
			resp.Summary.StudentsAtRisk++
		}
		resp.Rows = append(resp.Rows, row)
	}

	col := newCollator()
	sort.SliceStable(resp.Rows, func(i, j int) bool {
		a, b := resp.Rows[i], resp.Rows[j]
		if a.Worst.Level() != b.Worst.Level() {
			return a.Worst.Level() > b.Worst.Level()
		}
		if c := col.CompareString(a.StudentName, b.StudentName); c != 0 {
			return c < 0
		}
		return a.StudentID < b.StudentID
	})
	return resp
}
