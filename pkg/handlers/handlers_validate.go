package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/arnavshah/care-coverage-api/pkg/models"
	"github.com/arnavshah/care-coverage-api/pkg/timeutil"
)

// ValidateInput checks a week payload before it is analysed or imported:
// binding rules first, then referential checks the engine would silently
// tolerate (duplicate ids, slots for unknown students, unknown staff ids).
func (h *Handler) ValidateInput(c *gin.Context) {
	var input WeekInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}
	if err := validateWeek(input.Week); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	if len(input.Students) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": "At least one student is required",
		})
		return
	}

	studentIDs := make(map[string]bool)
	for _, s := range input.Students {
		if studentIDs[s.ID] {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Duplicate student ID: " + s.ID})
			return
		}
		studentIDs[s.ID] = true
	}

	staffIDs := make(map[string]bool)
	for _, s := range input.Staff {
		if staffIDs[s.ID] {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Duplicate staff ID: " + s.ID})
			return
		}
		staffIDs[s.ID] = true
	}

	issues := []string{}
	slots := 0
	for i, d := range input.Week.Days {
		wd := timeutil.Weekday(i)
		for _, sd := range d.StudentDays {
			slots++
			if !studentIDs[sd.StudentID] {
				issues = append(issues, fmt.Sprintf("%s: unknown student %s", wd, sd.StudentID))
			}
			if !sd.AbsentType.Valid() {
				issues = append(issues, fmt.Sprintf("%s: student %s has invalid absent_type %q", wd, sd.StudentID, sd.AbsentType))
			}
			for _, p := range []models.Period{models.PeriodFM, models.PeriodEM} {
				if id := sd.StaffFor(p); id != "" && !staffIDs[id] {
					issues = append(issues, fmt.Sprintf("%s: student %s has unknown %s staff %s", wd, sd.StudentID, p, id))
				}
			}
		}
		for _, sh := range d.StaffShifts {
			if !staffIDs[sh.StaffID] {
				issues = append(issues, fmt.Sprintf("%s: shift for unknown staff %s", wd, sh.StaffID))
			}
			if !sh.Start.Before(sh.End) {
				issues = append(issues, fmt.Sprintf("%s: shift for %s ends before it starts", wd, sh.StaffID))
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":  len(issues) == 0,
		"issues": issues,
		"stats": gin.H{
			"student_count": len(input.Students),
			"staff_count":   len(input.Staff),
			"slot_count":    slots,
		},
	})
}

// validateWeek checks the ISO week when one is given.
func validateWeek(w models.WeekData) error {
	if w.Year == 0 && w.Week == 0 {
		return nil
	}
	if !timeutil.ValidISOWeek(w.Year, w.Week) {
		return errors.Errorf("invalid ISO week %d-%d", w.Year, w.Week)
	}
	return nil
}

// weekdayRange defaults to the whole week.
func weekdayRange(from, to *timeutil.Weekday) (timeutil.Weekday, timeutil.Weekday, error) {
	f, t := timeutil.Monday, timeutil.Friday
	if from != nil {
		f = *from
	}
	if to != nil {
		t = *to
	}
	if !f.Valid() || !t.Valid() || f > t {
		return 0, 0, errors.Errorf("invalid weekday range %d-%d", f, t)
	}
	return f, t, nil
}
