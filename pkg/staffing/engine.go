// Package staffing is the coverage and recommendation engine for before- and
// after-school care. Every operation is a pure function of the snapshot it is
// given: results are freshly built values and nothing is cached between calls,
// so an Engine is safe for concurrent use.
package staffing

import (
	"fmt"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/arnavshah/care-coverage-api/pkg/models"
	"github.com/arnavshah/care-coverage-api/pkg/timeutil"
)

// Engine computes coverage, warnings and recommendations.
type Engine struct {
	cfg Config
}

// New creates an engine. An invalid configuration is a programmer error.
func New(cfg Config) *Engine {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("staffing: %v", err))
	}
	return &Engine{cfg: cfg}
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Needs derives whether a day slot requires FM and EM coverage.
func (e *Engine) Needs(slot models.DaySlot) (fm, em bool) {
	return e.NeedsPeriod(slot, models.PeriodFM), e.NeedsPeriod(slot, models.PeriodEM)
}

// NeedsPeriod derives the coverage need of a single period.
func (e *Engine) NeedsPeriod(slot models.DaySlot, p models.Period) bool {
	if !slot.PresentFor(p) {
		return false
	}
	if p == models.PeriodFM {
		return slot.Arrival != nil && slot.Arrival.Before(e.cfg.FMCutoff)
	}
	return slot.Departure != nil && slot.Departure.After(e.cfg.EMCutoff)
}

// newCollator returns a Swedish collator. Collators keep internal buffers, so
// each call gets its own.
func newCollator() *collate.Collator {
	return collate.New(language.Swedish)
}

// catalogIndex is a per-call lookup over a catalog.
type catalogIndex struct {
	students map[string]models.Student
	staff    map[string]models.StaffMember
	classes  map[string]models.SchoolClass
}

func indexCatalog(cat models.Catalog) catalogIndex {
	ix := catalogIndex{
		students: make(map[string]models.Student, len(cat.Students)),
		staff:    make(map[string]models.StaffMember, len(cat.Staff)),
		classes:  make(map[string]models.SchoolClass, len(cat.Classes)),
	}
	for _, s := range cat.Students {
		ix.students[s.ID] = s
	}
	for _, s := range cat.Staff {
		ix.staff[s.ID] = s
	}
	for _, c := range cat.Classes {
		ix.classes[c.ID] = c
	}
	return ix
}

func (ix catalogIndex) staffName(id string) string {
	if s, ok := ix.staff[id]; ok {
		return s.FullName()
	}
	return id
}

func (ix catalogIndex) studentName(id string) string {
	if s, ok := ix.students[id]; ok {
		return s.FullName()
	}
	return id
}

func (ix catalogIndex) className(s models.Student) *string {
	if s.ClassID == nil {
		return nil
	}
	if c, ok := ix.classes[*s.ClassID]; ok {
		name := c.Name
		return &name
	}
	return nil
}

// certHolders counts, per required certification, the active staff members
// outside the absent set who hold it.
func certHolders(staff []models.StaffMember, certs []string, absent map[string]bool) map[string]int {
	counts := make(map[string]int, len(certs))
	for _, c := range certs {
		counts[c] = 0
	}
	for _, s := range staff {
		if !s.Active || absent[s.ID] {
			continue
		}
		for _, c := range certs {
			if s.HasCertification(c) {
				counts[c]++
			}
		}
	}
	return counts
}

// checkDay validates the weekday of a day record before any work is done.
func checkDay(day models.DayData) timeutil.Weekday {
	return timeutil.MustWeekday(int(day.Weekday))
}

// weekDays returns the days of a week with their weekday set from the index.
func weekDays(week models.WeekData) [timeutil.DaysPerWeek]models.DayData {
	days := week.Days
	for i := range days {
		days[i].Weekday = timeutil.Weekday(i)
	}
	return days
}

// ratio is assigned/needed, with an empty requirement counted as fully covered.
func ratio(assigned, needed int) float64 {
	if needed == 0 {
		return 1.0
	}
	return float64(assigned) / float64(needed)
}

func strPtr(s string) *string {
	return &s
}
