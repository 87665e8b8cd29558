// Package server builds the HTTP router shared by the standalone server and
// the serverless entry point.
package server

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/arnavshah/care-coverage-api/pkg/auth"
	"github.com/arnavshah/care-coverage-api/pkg/config"
	"github.com/arnavshah/care-coverage-api/pkg/database"
	"github.com/arnavshah/care-coverage-api/pkg/handlers"
	"github.com/arnavshah/care-coverage-api/pkg/logger"
	"github.com/arnavshah/care-coverage-api/pkg/staffing"
)

// Version is set at build time with -ldflags "-X .../pkg/server.Version=...".
var Version = "dev"

// App is a configured service ready to serve.
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Log    *logger.Logger
	Router *gin.Engine
}

// Bootstrap opens the database, seeds the first coordinator and builds the
// router.
func Bootstrap(cfg *config.Config) (*App, error) {
	lg := logger.New(log.New(os.Stderr, "", log.LstdFlags), logger.Options{
		Token:       cfg.RollbarToken,
		Environment: cfg.Env,
		CodeVersion: Version,
	})

	if cfg.JWTSecret == "" || cfg.APIMasterSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET and API_MASTER_SECRET are required in production")
		}
		lg.Warn("JWT_SECRET or API_MASTER_SECRET not set; tokens and keys are not secure")
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	created, err := auth.EnsureAdminExists(db, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		return nil, err
	}
	if created {
		lg.Printf("Default coordinator created: %s", cfg.AdminUsername)
	}

	if cfg.GinMode == "" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(cfg.GinMode)
	}

	h := handlers.New(db, staffing.New(cfg.Staffing), auth.New(cfg.JWTSecret, cfg.APIMasterSecret), lg)
	return &App{Config: cfg, DB: db, Log: lg, Router: NewRouter(h)}, nil
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(h *handlers.Handler) *gin.Engine {
	handlers.RegisterValidators()

	r := gin.New()
	r.Use(gin.Logger(), h.Log.Recovery())

	r.GET("/", h.Index)
	r.GET("/health", h.Health)
	r.POST("/admin/login", h.Login)

	// Admin Endpoints
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.GET("/usage", h.GetMyUsage)
		api.POST("/absences", h.ReportAbsence)

		// Stateless analysis of posted data
		analysis := api.Group("/analysis")
		analysis.POST("/validate", h.ValidateInput)
		analysis.POST("/day", h.AnalyzeDay)
		analysis.POST("/roster", h.AnalyzeRoster)
		analysis.POST("/timeline", h.AnalyzeTimeline)
		analysis.POST("/week", h.AnalyzeWeek)
		analysis.POST("/warnings", h.AnalyzeWarnings)
		analysis.POST("/vulnerability", h.AnalyzeVulnerability)
		analysis.POST("/rank", h.AnalyzeRank)
		analysis.POST("/absence-impact", h.AnalyzeAbsence)
		analysis.POST("/wellbeing", h.AnalyzeWellbeing)

		// Stored weeks
		weeks := api.Group("/weeks/:year/:week")
		weeks.POST("/import", h.ImportWeek)
		weeks.POST("/reassign", h.Reassign)
		weeks.POST("/absence-impact", h.SimulateStoredAbsence)
		weeks.GET("/summary", h.GetSummary)
		weeks.GET("/vulnerability", h.GetVulnerability)
		weeks.GET("/wellbeing", h.GetWellbeing)
		weeks.GET("/substitutes", h.GetSubstitutes)
		weeks.GET("/days/:weekday", h.GetDay)
		weeks.GET("/days/:weekday/timeline.csv", h.TimelineCSV)
		weeks.GET("/days/:weekday/balance", h.GetBalance)
		weeks.GET("/days/:weekday/proposals", h.GetProposals)
		weeks.GET("/days/:weekday/rank/:studentID", h.GetRanking)
	}

	return r
}
