package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/care-coverage-api/pkg/models"
	"github.com/arnavshah/care-coverage-api/pkg/staffing"
	"github.com/arnavshah/care-coverage-api/pkg/timeutil"
)

// DayInput is a catalog plus one day, posted by integrations that keep their
// own schedule.
type DayInput struct {
	models.Catalog
	Day models.DayData `json:"day"`
}

// WeekInput is a catalog plus a full week.
type WeekInput struct {
	models.Catalog
	Week models.WeekData `json:"week"`
}

// RankInput asks for candidates for one student on one day.
type RankInput struct {
	DayInput
	StudentID string `json:"student_id" binding:"required"`
}

// AbsenceInput simulates absences on a single day, or on every day in
// [from, to] of a week when the week is given.
type AbsenceInput struct {
	models.Catalog
	Day      *models.DayData   `json:"day"`
	Week     *models.WeekData  `json:"week"`
	StaffIDs []string          `json:"staff_ids" binding:"required,min=1,dive,required"`
	From     *timeutil.Weekday `json:"from" binding:"omitempty,weekday"`
	To       *timeutil.Weekday `json:"to" binding:"omitempty,weekday"`
}

// DayAnalysis is the full picture of one day.
type DayAnalysis struct {
	Roster   models.DayRoster       `json:"roster"`
	Timeline []models.CoverageSlot  `json:"timeline"`
	Deficits []models.CoverageSlot  `json:"deficits"`
	Coverage []models.ClassCoverage `json:"class_coverage"`
	Summary  models.DaySummary      `json:"summary"`
	Warnings []models.Warning       `json:"warnings"`
}

func (h *Handler) analyzeDay(cat models.Catalog, day models.DayData) DayAnalysis {
	roster := h.Engine.AggregateDay(cat, day)
	timeline := h.Engine.Timeline(day)
	return DayAnalysis{
		Roster:   roster,
		Timeline: timeline,
		Deficits: staffing.Deficits(timeline),
		Coverage: h.Engine.ClassCoverage(roster),
		Summary:  h.Engine.DaySummary(cat, day),
		Warnings: h.Engine.ClassifyDay(cat, day),
	}
}

func (h *Handler) bindDay(c *gin.Context) (DayInput, bool) {
	var in DayInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return in, false
	}
	h.RecordUsage(c, len(in.Students), len(in.Staff))
	return in, true
}

func (h *Handler) bindWeek(c *gin.Context) (WeekInput, bool) {
	var in WeekInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return in, false
	}
	if err := validateWeek(in.Week); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return in, false
	}
	h.RecordUsage(c, len(in.Students), len(in.Staff))
	return in, true
}

// AnalyzeRoster groups the posted day by class
func (h *Handler) AnalyzeRoster(c *gin.Context) {
	in, ok := h.bindDay(c)
	if !ok {
		return
	}
	roster := h.Engine.AggregateDay(in.Catalog, in.Day)
	c.JSON(http.StatusOK, gin.H{
		"roster":         roster,
		"class_coverage": h.Engine.ClassCoverage(roster),
	})
}

// AnalyzeTimeline returns the coverage slots of the posted day
func (h *Handler) AnalyzeTimeline(c *gin.Context) {
	in, ok := h.bindDay(c)
	if !ok {
		return
	}
	timeline := h.Engine.Timeline(in.Day)
	c.JSON(http.StatusOK, gin.H{
		"timeline": timeline,
		"deficits": staffing.Deficits(timeline),
	})
}

// AnalyzeWeek returns the per-day and whole-week coverage summary
func (h *Handler) AnalyzeWeek(c *gin.Context) {
	in, ok := h.bindWeek(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Engine.WeekSummary(in.Catalog, in.Week))
}

// AnalyzeWarnings classifies the posted day
func (h *Handler) AnalyzeWarnings(c *gin.Context) {
	in, ok := h.bindDay(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"warnings": h.Engine.ClassifyDay(in.Catalog, in.Day)})
}

// AnalyzeVulnerability returns the week's student-by-weekday risk matrix
func (h *Handler) AnalyzeVulnerability(c *gin.Context) {
	in, ok := h.bindWeek(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Engine.VulnerabilityMap(in.Catalog, in.Week))
}

// AnalyzeRank ranks staff for one student
func (h *Handler) AnalyzeRank(c *gin.Context) {
	var in RankInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.RecordUsage(c, len(in.Students), len(in.Staff))

	ranked, found := h.Engine.RankForSlot(in.Catalog, in.Day, in.StudentID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not in catalog"})
		return
	}
	c.JSON(http.StatusOK, ranked)
}

// AnalyzeAbsence simulates staff absences without changing anything
func (h *Handler) AnalyzeAbsence(c *gin.Context) {
	var in AbsenceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch {
	case in.Week != nil:
		if err := validateWeek(*in.Week); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		from, to, err := weekdayRange(in.From, in.To)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.RecordUsage(c, len(in.Students), len(in.Staff))
		c.JSON(http.StatusOK, gin.H{"days": h.Engine.SimulateAbsenceRange(in.Catalog, *in.Week, in.StaffIDs, from, to)})
	case in.Day != nil:
		if !in.Day.Weekday.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "day.weekday must be 0-4"})
			return
		}
		h.RecordUsage(c, len(in.Students), len(in.Staff))
		c.JSON(http.StatusOK, h.Engine.SimulateAbsence(in.Catalog, *in.Day, in.StaffIDs))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "day or week is required"})
	}
}

// AnalyzeWellbeing reports staff overload and sole-handler patterns
func (h *Handler) AnalyzeWellbeing(c *gin.Context) {
	in, ok := h.bindWeek(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Engine.Wellbeing(in.Catalog, in.Week))
}

// AnalyzeDay returns roster, timeline, coverage and warnings in one response
func (h *Handler) AnalyzeDay(c *gin.Context) {
	in, ok := h.bindDay(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.analyzeDay(in.Catalog, in.Day))
}
