package database

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/arnavshah/care-coverage-api/pkg/config"
	"github.com/arnavshah/care-coverage-api/pkg/models"
)

// Class represents the classes table
type Class struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Grade     int       `gorm:"not null" json:"grade"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Student represents the students table
type Student struct {
	ID                     string                      `gorm:"primaryKey;size:64" json:"id"`
	FirstName              string                      `gorm:"not null" json:"first_name"`
	LastName               string                      `gorm:"not null" json:"last_name"`
	Grade                  int                         `gorm:"not null" json:"grade"`
	ClassID                *string                     `gorm:"size:64;index" json:"class_id"`
	HasCareNeeds           bool                        `json:"has_care_needs"`
	CareRequirements       datatypes.JSONSlice[string] `json:"care_requirements"`
	PreferredStaff         datatypes.JSONSlice[string] `json:"preferred_staff"`
	RequiresDoubleStaffing bool                        `json:"requires_double_staffing"`
	Active                 bool                        `gorm:"default:true" json:"active"`
	CreatedAt              time.Time                   `json:"created_at"`
}

// Staff represents the staff table
type Staff struct {
	ID             string                      `gorm:"primaryKey;size:64" json:"id"`
	FirstName      string                      `gorm:"not null" json:"first_name"`
	LastName       string                      `gorm:"not null" json:"last_name"`
	Role           string                      `gorm:"size:32;not null" json:"role"`
	GradeGroup     *string                     `gorm:"size:8" json:"grade_group"`
	Certifications datatypes.JSONSlice[string] `json:"certifications"`
	Active         bool                        `json:"active"`
	CreatedAt      time.Time                   `json:"created_at"`
}

func (Staff) TableName() string { return "staff" }

// WeekSchedule represents the week_schedules table; one row per ISO week.
type WeekSchedule struct {
	ID        string                              `gorm:"primaryKey;size:36" json:"id"`
	Year      int                                 `gorm:"uniqueIndex:idx_year_week;not null" json:"year"`
	Week      int                                 `gorm:"uniqueIndex:idx_year_week;not null" json:"week"`
	Warnings  datatypes.JSONSlice[models.Warning] `json:"warnings"`
	CreatedAt time.Time                           `json:"created_at"`
	UpdatedAt time.Time                           `json:"updated_at"`
}

// StudentDay represents the student_days table
type StudentDay struct {
	ID             string  `gorm:"primaryKey;size:36" json:"id"`
	WeekScheduleID string  `gorm:"size:36;index;not null" json:"week_schedule_id"`
	StudentID      string  `gorm:"size:64;not null" json:"student_id"`
	Weekday        int     `gorm:"not null" json:"weekday"`
	ArrivalTime    *string `gorm:"size:5" json:"arrival_time"`
	DepartureTime  *string `gorm:"size:5" json:"departure_time"`
	FMStaffID      *string `gorm:"column:fm_staff_id;size:64" json:"fm_staff_id"`
	EMStaffID      *string `gorm:"column:em_staff_id;size:64" json:"em_staff_id"`
	AbsentType     string  `gorm:"size:16;default:none" json:"absent_type"`
}

// StaffShift represents the staff_shifts table
type StaffShift struct {
	ID             string `gorm:"primaryKey;size:36" json:"id"`
	WeekScheduleID string `gorm:"size:36;index;not null" json:"week_schedule_id"`
	StaffID        string `gorm:"size:64;not null" json:"staff_id"`
	Weekday        int    `gorm:"not null" json:"weekday"`
	StartTime      string `gorm:"size:5;not null" json:"start_time"`
	EndTime        string `gorm:"size:5;not null" json:"end_time"`
	BreakMinutes   int    `gorm:"default:0" json:"break_minutes"`
}

// DayAssignment represents the day_assignments table
type DayAssignment struct {
	ID             string `gorm:"primaryKey;size:36" json:"id"`
	WeekScheduleID string `gorm:"size:36;index;not null" json:"week_schedule_id"`
	StudentID      string `gorm:"size:64;not null" json:"student_id"`
	StaffID        string `gorm:"size:64;not null" json:"staff_id"`
	Weekday        int    `gorm:"not null" json:"weekday"`
	StartTime      string `gorm:"size:5;not null" json:"start_time"`
	EndTime        string `gorm:"size:5;not null" json:"end_time"`
	Role           string `gorm:"size:32;not null" json:"role"`
}

// Absence represents the absences table. Absences are dated, not tied to a
// week schedule.
type Absence struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	StaffID      string         `gorm:"size:64;uniqueIndex:idx_staff_date;not null" json:"staff_id"`
	Date         datatypes.Date `gorm:"uniqueIndex:idx_staff_date;not null" json:"date"`
	Reason       string         `gorm:"size:32;default:other" json:"reason"`
	SubstituteID *string        `gorm:"size:64" json:"substitute_id"`
	CreatedAt    time.Time      `json:"created_at"`
}

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	KeyPreview string     `json:"key_preview"`
	Name       string     `gorm:"not null" json:"name"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table
type APIUsage struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	KeyID         uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date          string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount  int    `gorm:"default:0" json:"request_count"`
	TotalStudents int    `gorm:"default:0" json:"total_students"`
	TotalStaff    int    `gorm:"default:0" json:"total_staff"`
}

func (APIUsage) TableName() string { return "api_usage" }

// Coordinator represents the coordinators table: people allowed to manage
// integration keys.
type Coordinator struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// uuid ids for rows created without one
func (w *WeekSchedule) BeforeCreate(*gorm.DB) error  { w.ID = ensureID(w.ID); return nil }
func (d *StudentDay) BeforeCreate(*gorm.DB) error    { d.ID = ensureID(d.ID); return nil }
func (s *StaffShift) BeforeCreate(*gorm.DB) error    { s.ID = ensureID(s.ID); return nil }
func (a *DayAssignment) BeforeCreate(*gorm.DB) error { a.ID = ensureID(a.ID); return nil }
func (a *Absence) BeforeCreate(*gorm.DB) error       { a.ID = ensureID(a.ID); return nil }
func (c *Class) BeforeCreate(*gorm.DB) error         { c.ID = ensureID(c.ID); return nil }
func (s *Student) BeforeCreate(*gorm.DB) error       { s.ID = ensureID(s.ID); return nil }
func (s *Staff) BeforeCreate(*gorm.DB) error         { s.ID = ensureID(s.ID); return nil }

func ensureID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// Open connects to postgres when DATABASE_URL is set and to sqlite at
// DATA_PATH otherwise, then migrates the schema.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if cfg.DatabaseURL != "" {
		gcfg.PrepareStmt = false
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  cfg.DatabaseURL,
			PreferSimpleProtocol: true,
		}), gcfg)
	} else {
		path := cfg.DataPath
		if path == "" {
			path = "care_coverage.db"
		}
		db, err = gorm.Open(sqlite.Open(path), gcfg)
		if err == nil && strings.Contains(path, ":memory:") {
			// every new connection would get its own empty database
			sqlDB, serr := db.DB()
			if serr != nil {
				return nil, errors.Wrap(serr, "database: sqlite handle")
			}
			sqlDB.SetMaxOpenConns(1)
		}
	}
	if err != nil {
		return nil, errors.Wrap(err, "database: connect")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Class{}, &Student{}, &Staff{},
		&WeekSchedule{}, &StudentDay{}, &StaffShift{}, &DayAssignment{}, &Absence{},
		&APIKey{}, &APIUsage{}, &Coordinator{},
	)
	return errors.Wrap(err, "database: migrate")
}
