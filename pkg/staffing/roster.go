package staffing

import (
	"sort"

	"golang.org/x/text/collate"

	"github.com/arnavshah/care-coverage-api/pkg/models"
)

// AggregateDay groups a day's students by class. Students inside a group are
// ordered by name with Swedish collation; groups by ascending grade with the
// unassigned group last. Slots for students missing from the catalog are
// skipped, and a class id the catalog does not know lands in the unassigned
// group.
func (e *Engine) AggregateDay(cat models.Catalog, day models.DayData) models.DayRoster {
	wd := checkDay(day)
	ix := indexCatalog(cat)
	absent := day.AbsentSet()
	col := newCollator()

	groups := make(map[string]*models.ClassGroup)
	var keys []string
	for _, slot := range day.StudentDays {
		st, ok := ix.students[slot.StudentID]
		if !ok {
			continue
		}
		key, name, grade := "", "", 0
		if st.ClassID != nil {
			if c, ok := ix.classes[*st.ClassID]; ok {
				key, name, grade = c.ID, c.Name, c.Grade
			}
		}
		g, ok := groups[key]
		if !ok {
			g = &models.ClassGroup{ClassID: key, ClassName: name, Grade: grade, Students: []models.RosterEntry{}}
			groups[key] = g
			keys = append(keys, key)
		}
		if g.Grade == 0 && key != "" {
			g.Grade = st.Grade
		}

		fm, em := e.Needs(slot)
		g.Students = append(g.Students, models.RosterEntry{
			Student:    st,
			Slot:       slot,
			NeedsFM:    fm,
			NeedsEM:    em,
			FMAffected: slot.FMStaffID != nil && absent[*slot.FMStaffID],
			EMAffected: slot.EMStaffID != nil && absent[*slot.EMStaffID],
		})
	}

	roster := models.DayRoster{
		Weekday:              wd,
		Groups:               make([]models.ClassGroup, 0, len(keys)),
		SpecialNeedsStudents: specialNeedsStudents(day),
		AbsentStaff:          sortedKeys(absent),
	}
	for _, k := range keys {
		g := groups[k]
		sortEntries(col, g.Students)
		roster.Groups = append(roster.Groups, *g)
	}
	sort.SliceStable(roster.Groups, func(i, j int) bool {
		a, b := roster.Groups[i], roster.Groups[j]
		if (a.ClassID == "") != (b.ClassID == "") {
			return b.ClassID == ""
		}
		if a.Grade != b.Grade {
			return a.Grade < b.Grade
		}
		if c := col.CompareString(a.ClassName, b.ClassName); c != 0 {
			return c < 0
		}
		return a.ClassID < b.ClassID
	})
	return roster
}

// Entries returns every roster entry in display order.
func Entries(r models.DayRoster) []models.RosterEntry {
	var out []models.RosterEntry
	for _, g := range r.Groups {
		out = append(out, g.Students...)
	}
	return out
}

func sortEntries(col *collate.Collator, entries []models.RosterEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Student, entries[j].Student
		if c := col.CompareString(a.FullName(), b.FullName()); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
}

func specialNeedsStudents(day models.DayData) []string {
	set := make(map[string]bool, len(day.DayAssignments))
	for _, a := range day.DayAssignments {
		set[a.StudentID] = true
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k, ok := range set {
		if ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
