package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/care-coverage-api/pkg/models"
	"github.com/arnavshah/care-coverage-api/pkg/timeutil"
)

// WeekURI addresses a stored ISO week.
type WeekURI struct {
	Year int `uri:"year" binding:"required,min=2000,max=2100"`
	Week int `uri:"week" binding:"required,min=1,max=53"`
}

// DayURI addresses one weekday of a stored week.
type DayURI struct {
	Year    int `uri:"year" binding:"required,min=2000,max=2100"`
	Week    int `uri:"week" binding:"required,min=1,max=53"`
	Weekday int `uri:"weekday" binding:"weekday"`
}

func (h *Handler) bindWeekURI(c *gin.Context) (WeekURI, bool) {
	var uri WeekURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return uri, false
	}
	if !timeutil.ValidISOWeek(uri.Year, uri.Week) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid ISO week %d-%d", uri.Year, uri.Week)})
		return uri, false
	}
	return uri, true
}

// loadWeek reads the catalog and a stored week, answering the request itself
// on failure.
func (h *Handler) loadWeek(c *gin.Context, year, week int) (models.Catalog, models.WeekData, bool) {
	ctx := c.Request.Context()
	w, err := h.Store.LoadWeek(ctx, year, week)
	if err != nil {
		h.storeError(c, err)
		return models.Catalog{}, models.WeekData{}, false
	}
	cat, err := h.Store.LoadCatalog(ctx)
	if err != nil {
		h.serverError(c, err)
		return models.Catalog{}, models.WeekData{}, false
	}
	h.RecordUsage(c, len(cat.Students), len(cat.Staff))
	return cat, w, true
}

func (h *Handler) loadStoredWeek(c *gin.Context) (models.Catalog, models.WeekData, bool) {
	uri, ok := h.bindWeekURI(c)
	if !ok {
		return models.Catalog{}, models.WeekData{}, false
	}
	return h.loadWeek(c, uri.Year, uri.Week)
}

func (h *Handler) loadStoredDay(c *gin.Context) (models.Catalog, models.DayData, bool) {
	var uri DayURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.Catalog{}, models.DayData{}, false
	}
	cat, week, ok := h.loadWeek(c, uri.Year, uri.Week)
	if !ok {
		return models.Catalog{}, models.DayData{}, false
	}
	return cat, week.Days[uri.Weekday], true
}

// GetDay returns roster, timeline, coverage and warnings of a stored day
func (h *Handler) GetDay(c *gin.Context) {
	cat, day, ok := h.loadStoredDay(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.analyzeDay(cat, day))
}

// TimelineCSV exports the day's coverage slots, optionally limited to the
// slots starting within [from, to).
func (h *Handler) TimelineCSV(c *gin.Context) {
	var q struct {
		From string `form:"from" binding:"omitempty,clock"`
		To   string `form:"to" binding:"omitempty,clock"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	_, day, ok := h.loadStoredDay(c)
	if !ok {
		return
	}

	from, to := timeutil.Clock(0), timeutil.Clock(24*60)
	if q.From != "" {
		from = timeutil.MustParseClock(q.From)
	}
	if q.To != "" {
		to = timeutil.MustParseClock(q.To)
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=timeline-%d.csv", int(day.Weekday)))
	c.Status(http.StatusOK)

	writer := csv.NewWriter(c.Writer)
	writer.Write([]string{"time_start", "time_end", "students_present", "staff_present", "surplus", "status"})
	for _, s := range h.Engine.Timeline(day) {
		if s.Start.Before(from) || !s.Start.Before(to) {
			continue
		}
		writer.Write([]string{
			s.Start.String(),
			s.End.String(),
			strconv.Itoa(s.StudentsPresent),
			strconv.Itoa(s.StaffPresent),
			strconv.Itoa(s.Surplus),
			string(s.Status),
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.Log.Warn("timeline csv write failed", err)
	}
}

// GetBalance returns the class balance of a stored day
func (h *Handler) GetBalance(c *gin.Context) {
	cat, day, ok := h.loadStoredDay(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Engine.ClassBalance(cat, day))
}

// GetProposals proposes staff for the open slots of a stored day
func (h *Handler) GetProposals(c *gin.Context) {
	cat, day, ok := h.loadStoredDay(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Engine.ProposeAssignments(cat, day))
}

// GetRanking ranks staff for a student on a stored day
func (h *Handler) GetRanking(c *gin.Context) {
	cat, day, ok := h.loadStoredDay(c)
	if !ok {
		return
	}
	ranked, found := h.Engine.RankForSlot(cat, day, c.Param("studentID"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}
	c.JSON(http.StatusOK, ranked)
}

// GetSummary returns the coverage summary of a stored week
func (h *Handler) GetSummary(c *gin.Context) {
	cat, week, ok := h.loadStoredWeek(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Engine.WeekSummary(cat, week))
}

// GetVulnerability returns the risk matrix of a stored week
func (h *Handler) GetVulnerability(c *gin.Context) {
	cat, week, ok := h.loadStoredWeek(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Engine.VulnerabilityMap(cat, week))
}

// GetWellbeing returns staff wellbeing alerts of a stored week
func (h *Handler) GetWellbeing(c *gin.Context) {
	cat, week, ok := h.loadStoredWeek(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Engine.Wellbeing(cat, week))
}

// GetSubstitutes returns the substitute needs report of a stored week
func (h *Handler) GetSubstitutes(c *gin.Context) {
	cat, week, ok := h.loadStoredWeek(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Engine.SubstituteReport(cat, week))
}

// StoredAbsenceInput simulates absences against a stored week: one weekday,
// or a range that defaults to the whole week.
type StoredAbsenceInput struct {
	StaffIDs []string          `json:"staff_ids" binding:"required,min=1,dive,required"`
	Weekday  *timeutil.Weekday `json:"weekday" binding:"omitempty,weekday"`
	From     *timeutil.Weekday `json:"from" binding:"omitempty,weekday"`
	To       *timeutil.Weekday `json:"to" binding:"omitempty,weekday"`
}

// SimulateStoredAbsence runs the absence simulator on a stored week
func (h *Handler) SimulateStoredAbsence(c *gin.Context) {
	uri, ok := h.bindWeekURI(c)
	if !ok {
		return
	}
	var in StoredAbsenceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	from, to, err := weekdayRange(in.From, in.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cat, week, ok := h.loadWeek(c, uri.Year, uri.Week)
	if !ok {
		return
	}
	if in.Weekday != nil {
		c.JSON(http.StatusOK, h.Engine.SimulateAbsence(cat, week.Days[*in.Weekday], in.StaffIDs))
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": h.Engine.SimulateAbsenceRange(cat, week, in.StaffIDs, from, to)})
}

// ImportWeek stores a generated schedule for the week in the path
func (h *Handler) ImportWeek(c *gin.Context) {
	uri, ok := h.bindWeekURI(c)
	if !ok {
		return
	}
	var in WeekInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in.Week.Year, in.Week.Week = uri.Year, uri.Week

	ws, err := h.Store.ImportWeek(c.Request.Context(), in.Catalog, in.Week)
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.RecordUsage(c, len(in.Students), len(in.Staff))

	slots := 0
	for _, d := range in.Week.Days {
		slots += len(d.StudentDays)
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         ws.ID,
		"year":       ws.Year,
		"week":       ws.Week,
		"slot_count": slots,
	})
}

// ReassignInput applies one suggested reassignment.
type ReassignInput struct {
	Weekday   timeutil.Weekday `json:"weekday" binding:"weekday"`
	StudentID string           `json:"student_id" binding:"required"`
	Period    models.Period    `json:"period" binding:"required,period"`
	StaffID   string           `json:"staff_id" binding:"required"`
}

// Reassign writes a reassignment to a stored day
func (h *Handler) Reassign(c *gin.Context) {
	uri, ok := h.bindWeekURI(c)
	if !ok {
		return
	}
	var in ReassignInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.Store.ApplyReassignment(c.Request.Context(), uri.Year, uri.Week, in.Weekday, in.StudentID, in.Period, in.StaffID)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reassignment applied"})
}

// AbsenceReport is a staff absence on a calendar date.
type AbsenceReport struct {
	StaffID      string               `json:"staff_id" binding:"required"`
	Date         string               `json:"date" binding:"required,datetime=2006-01-02"`
	Reason       models.AbsenceReason `json:"reason"`
	SubstituteID *string              `json:"substitute_id"`
}

// ReportAbsence records an absence; a second report for the same staff and
// date replaces the reason and substitute.
func (h *Handler) ReportAbsence(c *gin.Context) {
	var in AbsenceReport
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, _ := time.Parse("2006-01-02", in.Date)
	wd, ok := timeutil.FromTime(date)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date falls on a weekend"})
		return
	}
	if in.Reason == "" {
		in.Reason = models.ReasonOther
	}
	if !in.Reason.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown reason %q", in.Reason)})
		return
	}
	if err := h.Store.ReportAbsence(c.Request.Context(), in.StaffID, date, in.Reason, in.SubstituteID); err != nil {
		h.serverError(c, err)
		return
	}
	year, week := timeutil.WeekOf(date)
	c.JSON(http.StatusOK, gin.H{
		"message": "Absence recorded",
		"year":    year,
		"week":    week,
		"weekday": wd,
	})
}
