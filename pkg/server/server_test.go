package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/arnavshah/care-coverage-api/pkg/auth"
	"github.com/arnavshah/care-coverage-api/pkg/config"
	"github.com/arnavshah/care-coverage-api/pkg/database"
	"github.com/arnavshah/care-coverage-api/pkg/handlers"
	"github.com/arnavshah/care-coverage-api/pkg/logger"
	"github.com/arnavshah/care-coverage-api/pkg/models"
	"github.com/arnavshah/care-coverage-api/pkg/staffing"
)

const weekBody = `{
  "students": [
    {"id": "s1", "first_name": "Alma", "last_name": "Berg", "grade": 2, "class_id": "c1"},
    {"id": "s2", "first_name": "Bo", "last_name": "Ek", "grade": 2, "class_id": "c1"}
  ],
  "staff": [
    {"id": "a", "first_name": "Anna", "last_name": "Lund", "role": "elevassistent", "active": true},
    {"id": "b", "first_name": "Berit", "last_name": "Holm", "role": "elevassistent", "active": true}
  ],
  "classes": [{"id": "c1", "name": "2A", "grade": 2}],
  "week": {
    "days": [
      {
        "student_days": [
          {"student_id": "s1", "arrival_time": "07:30", "departure_time": "15:00", "fm_staff_id": "a", "em_staff_id": "b"},
          {"student_id": "s2", "arrival_time": "07:30", "departure_time": "12:00"}
        ],
        "staff_shifts": [
          {"staff_id": "a", "start_time": "07:00", "end_time": "15:00"},
          {"staff_id": "b", "start_time": "07:00", "end_time": "16:00"}
        ]
      },
      {}, {}, {}, {}
    ]
  }
}`

const dayBody = `{
  "students": [{"id": "s1", "first_name": "Alma", "grade": 2}],
  "staff": [{"id": "a", "first_name": "Anna", "role": "elevassistent", "active": true}],
  "day": {
    "weekday": %d,
    "student_days": [{"student_id": "s1", "arrival_time": "07:30", "departure_time": "12:00"}]
  }
}`

type testApp struct {
	router *gin.Engine
	db     *gorm.DB
	key    string
}

func setup(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(&config.Config{DataPath: "file::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	authn := auth.New("test-jwt-secret", "test-master-secret")
	h := handlers.New(db, staffing.New(staffing.DefaultConfig()), authn, logger.Discard())
	return &testApp{
		router: NewRouter(h),
		db:     db,
		key:    authn.GenerateHMACKey("skola"),
	}
}

func (a *testApp) do(method, path, key, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		r.Header.Set("Authorization", "Bearer "+key)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestIndexAndHealth(t *testing.T) {
	app := setup(t)

	w := app.do(http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Care Coverage API")

	w = app.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAuthRequired(t *testing.T) {
	app := setup(t)

	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/api/usage", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/api/usage", "skola.deadbeef", "").Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/admin/keys", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/admin/keys", "not-a-jwt", "").Code)

	w := app.do(http.MethodGet, "/api/usage", app.key, "")
	require.Equal(t, http.StatusOK, w.Code)
	var usage struct {
		KeyName   string `json:"key_name"`
		RateLimit int    `json:"rate_limit"`
	}
	decode(t, w, &usage)
	assert.Equal(t, "skola", usage.KeyName)
	assert.Equal(t, 10000, usage.RateLimit)
}

func TestRateLimit(t *testing.T) {
	app := setup(t)
	require.NoError(t, app.db.Create(&database.APIKey{Key: app.key, Name: "skola", RateLimit: 1}).Error)

	body := strings.Replace(dayBody, "%d", "0", 1)
	assert.Equal(t, http.StatusOK, app.do(http.MethodPost, "/api/analysis/warnings", app.key, body).Code)
	assert.Equal(t, http.StatusTooManyRequests, app.do(http.MethodPost, "/api/analysis/warnings", app.key, body).Code)
}

func TestUpdatedKeyLimitApplies(t *testing.T) {
	app := setup(t)
	token, err := auth.New("test-jwt-secret", "test-master-secret").CreateToken("admin")
	require.NoError(t, err)

	w := app.do(http.MethodPost, "/admin/keys", token, `{"name": "fritids-syd", "rate_limit": 50}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created struct {
		ID  uint   `json:"id"`
		Key string `json:"key"`
	}
	decode(t, w, &created)

	body := strings.Replace(dayBody, "%d", "0", 1)
	require.Equal(t, http.StatusOK, app.do(http.MethodPost, "/api/analysis/warnings", created.Key, body).Code)

	w = app.do(http.MethodPut, fmt.Sprintf("/admin/keys/%d", created.ID), token, `{"rate_limit": 1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusTooManyRequests, app.do(http.MethodPost, "/api/analysis/warnings", created.Key, body).Code)

	var n int64
	require.NoError(t, app.db.Model(&database.APIKey{}).Where("key = ?", created.Key).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestAnalyzeWarnings(t *testing.T) {
	app := setup(t)

	w := app.do(http.MethodPost, "/api/analysis/warnings", app.key, strings.Replace(dayBody, "%d", "1", 1))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Warnings []models.Warning `json:"warnings"`
	}
	decode(t, w, &out)
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, models.WarningGap, out.Warnings[0].Type)
	assert.Equal(t, models.SeverityError, out.Warnings[0].Severity)
	assert.EqualValues(t, 1, out.Warnings[0].Weekday)
}

func TestAnalyzeRejectsBadWeekday(t *testing.T) {
	app := setup(t)
	w := app.do(http.MethodPost, "/api/analysis/timeline", app.key, strings.Replace(dayBody, "%d", "7", 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPost, "/api/analysis/timeline", app.key, `{"day": {"student_days": [{"student_id": "s1", "arrival_time": "7.30"}]}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "malformed clock")
}

func TestAnalyzeRankUnknownStudent(t *testing.T) {
	app := setup(t)
	body := `{"student_id": "nobody", "students": [], "staff": [], "day": {"weekday": 0}}`
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodPost, "/api/analysis/rank", app.key, body).Code)
}

func TestValidateInput(t *testing.T) {
	app := setup(t)
	body := strings.Replace(weekBody, `"fm_staff_id": "a"`, `"fm_staff_id": "ghost"`, 1)

	w := app.do(http.MethodPost, "/api/analysis/validate", app.key, body)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Valid  bool     `json:"valid"`
		Issues []string `json:"issues"`
	}
	decode(t, w, &out)
	assert.False(t, out.Valid)
	require.Len(t, out.Issues, 1)
	assert.Contains(t, out.Issues[0], "ghost")
}

type summaryResponse struct {
	Totals models.WeekTotals `json:"totals"`
}

func TestStoredWeekRoundTrip(t *testing.T) {
	app := setup(t)

	w := app.do(http.MethodPost, "/api/weeks/2024/11/import", app.key, weekBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var imported struct {
		ID        string `json:"id"`
		Year      int    `json:"year"`
		Week      int    `json:"week"`
		SlotCount int    `json:"slot_count"`
	}
	decode(t, w, &imported)
	assert.NotEmpty(t, imported.ID)
	assert.Equal(t, 2024, imported.Year)
	assert.Equal(t, 11, imported.Week)
	assert.Equal(t, 2, imported.SlotCount)

	w = app.do(http.MethodGet, "/api/weeks/2024/11/summary", app.key, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sum summaryResponse
	decode(t, w, &sum)
	assert.Equal(t, 2, sum.Totals.FMNeeded)
	assert.Equal(t, 1, sum.Totals.FMAssigned)
	assert.Equal(t, 0.5, sum.Totals.FMCoverage)
	assert.Equal(t, 1.0, sum.Totals.EMCoverage)

	w = app.do(http.MethodPost, "/api/weeks/2024/11/reassign", app.key,
		`{"weekday": 0, "student_id": "s2", "period": "fm", "staff_id": "b"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(http.MethodGet, "/api/weeks/2024/11/summary", app.key, "")
	decode(t, w, &sum)
	assert.Equal(t, 1.0, sum.Totals.FMCoverage)

	// Re-importing replaces the week.
	w = app.do(http.MethodPost, "/api/weeks/2024/11/import", app.key, weekBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = app.do(http.MethodGet, "/api/weeks/2024/11/summary", app.key, "")
	decode(t, w, &sum)
	assert.Equal(t, 0.5, sum.Totals.FMCoverage)
}

func TestStoredWeekErrors(t *testing.T) {
	app := setup(t)
	require.Equal(t, http.StatusOK, app.do(http.MethodPost, "/api/weeks/2024/11/import", app.key, weekBody).Code)

	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/api/weeks/2024/12/summary", app.key, "").Code)
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodGet, "/api/weeks/2023/53/summary", app.key, "").Code, "2023 has 52 ISO weeks")
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodGet, "/api/weeks/2024/11/days/5", app.key, "").Code)
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/api/weeks/2024/11/days/0/rank/nobody", app.key, "").Code)

	w := app.do(http.MethodPost, "/api/weeks/2024/11/reassign", app.key,
		`{"weekday": 3, "student_id": "s2", "period": "fm", "staff_id": "b"}`)
	assert.Equal(t, http.StatusNotFound, w.Code, "no slot on Thursday")

	w = app.do(http.MethodPost, "/api/weeks/2024/11/reassign", app.key,
		`{"weekday": 0, "student_id": "s2", "period": "lunch", "staff_id": "b"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStoredDayViews(t *testing.T) {
	app := setup(t)
	require.Equal(t, http.StatusOK, app.do(http.MethodPost, "/api/weeks/2024/11/import", app.key, weekBody).Code)

	w := app.do(http.MethodGet, "/api/weeks/2024/11/days/0/timeline.csv?from=07:00&to=08:00", app.key, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "time_start,time_end,students_present,staff_present,surplus,status", lines[0])
	assert.Equal(t, "07:00,07:30,0,2,2,surplus", lines[1])

	w = app.do(http.MethodGet, "/api/weeks/2024/11/days/0/proposals", app.key, "")
	require.Equal(t, http.StatusOK, w.Code)
	var prop models.AssignmentProposal
	decode(t, w, &prop)
	require.Len(t, prop.Suggestions, 1)
	assert.Equal(t, "s2", prop.Suggestions[0].StudentID)

	w = app.do(http.MethodGet, "/api/weeks/2024/11/days/0/balance", app.key, "")
	require.Equal(t, http.StatusOK, w.Code)
	var bal models.ClassBalanceResult
	decode(t, w, &bal)
	require.Len(t, bal.LowGrades, 1)
	assert.Equal(t, 2, bal.LowGrades[0].StaffCount)

	w = app.do(http.MethodGet, "/api/weeks/2024/11/days/0/rank/s1", app.key, "")
	require.Equal(t, http.StatusOK, w.Code)
	var ranked models.RankedCandidates
	decode(t, w, &ranked)
	assert.Equal(t, 2, ranked.Len())
}

func TestReportAbsence(t *testing.T) {
	app := setup(t)
	require.Equal(t, http.StatusOK, app.do(http.MethodPost, "/api/weeks/2024/11/import", app.key, weekBody).Code)

	w := app.do(http.MethodPost, "/api/absences", app.key, `{"staff_id": "a", "date": "2024-03-11", "reason": "sick"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rep struct {
		Year    int `json:"year"`
		Week    int `json:"week"`
		Weekday int `json:"weekday"`
	}
	decode(t, w, &rep)
	assert.Equal(t, 2024, rep.Year)
	assert.Equal(t, 11, rep.Week)
	assert.Equal(t, 0, rep.Weekday)

	w = app.do(http.MethodGet, "/api/weeks/2024/11/days/0", app.key, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var day struct {
		Summary  models.DaySummary `json:"summary"`
		Warnings []models.Warning  `json:"warnings"`
	}
	decode(t, w, &day)
	assert.Equal(t, 0, day.Summary.FMAssigned, "absent staff do not count as assigned")
	var conflict, absence bool
	for _, wn := range day.Warnings {
		conflict = conflict || wn.Type == models.WarningConflict
		absence = absence || wn.Type == models.WarningAbsence
	}
	assert.True(t, conflict)
	assert.True(t, absence)

	// A substitute silences the absence warning.
	w = app.do(http.MethodPost, "/api/absences", app.key, `{"staff_id": "a", "date": "2024-03-11", "reason": "sick", "substitute_id": "b"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = app.do(http.MethodGet, "/api/weeks/2024/11/days/0", app.key, "")
	decode(t, w, &day)
	for _, wn := range day.Warnings {
		assert.NotEqual(t, models.WarningAbsence, wn.Type)
	}

	w = app.do(http.MethodPost, "/api/absences", app.key, `{"staff_id": "a", "date": "2024-03-16"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "Saturday")
	w = app.do(http.MethodPost, "/api/absences", app.key, `{"staff_id": "a", "date": "2024-03-12", "reason": "hungover"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodGet, "/api/weeks/2024/11/substitutes", app.key, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var subs models.SubstituteReport
	decode(t, w, &subs)
	assert.Equal(t, 1, subs.TotalAbsentStaff)
	require.Len(t, subs.Days[0].AbsentStaff, 1)
	assert.Equal(t, "a", subs.Days[0].AbsentStaff[0].StaffID)
	require.Len(t, subs.Days[0].UncoveredNeeds, 1)
	assert.Equal(t, "s1", subs.Days[0].UncoveredNeeds[0].StudentID)
	assert.Equal(t, models.MissingFM, subs.Days[0].UncoveredNeeds[0].MissingPeriod)
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/api/weeks/2024/12/substitutes", app.key, "").Code)

	w = app.do(http.MethodPost, "/api/weeks/2024/11/absence-impact", app.key, `{"staff_ids": ["b"], "weekday": 0}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var impact models.AbsenceImpactResult
	decode(t, w, &impact)
	require.Len(t, impact.AffectedStudents, 1)
	assert.Equal(t, "s1", impact.AffectedStudents[0].StudentID)
	assert.Equal(t, models.MissingEM, impact.AffectedStudents[0].MissingPeriod)
}

func TestAdminKeys(t *testing.T) {
	app := setup(t)
	token, err := auth.New("test-jwt-secret", "test-master-secret").CreateToken("admin")
	require.NoError(t, err)

	w := app.do(http.MethodPost, "/admin/keys", token, `{"name": "fritids-nord"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created struct {
		ID  uint   `json:"id"`
		Key string `json:"key"`
	}
	decode(t, w, &created)
	assert.True(t, strings.HasPrefix(created.Key, "fritids-nord."))

	w = app.do(http.MethodGet, "/admin/keys", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), created.Key, "full keys are never listed")

	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/api/usage", created.Key, "").Code)
	assert.Equal(t, http.StatusOK, app.do(http.MethodDelete, "/admin/keys/1", token, "").Code)
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodDelete, "/admin/keys/1", token, "").Code)
}
