// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/arnavshah/care-coverage-api/pkg/staffing"
	"github.com/arnavshah/care-coverage-api/pkg/timeutil"
)

// Config is the resolved service configuration.
type Config struct {
	Port            string
	GinMode         string
	Env             string
	DatabaseURL     string
	DataPath        string
	JWTSecret       string
	APIMasterSecret string
	AdminUsername   string
	AdminPassword   string
	RollbarToken    string
	Staffing        staffing.Config
}

// envPaths are tried in order; the first existing file wins.
var envPaths = []string{".env", "../.env", "../../.env"}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err != nil {
				return nil, errors.Wrapf(err, "config.godotenv(%s)", p)
			}
			break
		}
	}
	return FromViper(viper.New())
}

// FromViper resolves a Config from v after registering defaults and
// environment bindings. Staffing keys map to STAFFING_* variables, e.g.
// staffing.fm_cutoff is read from STAFFING_FM_CUTOFF.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Port:            v.GetString("port"),
		GinMode:         v.GetString("gin_mode"),
		Env:             strings.ToUpper(v.GetString("env")),
		DatabaseURL:     v.GetString("database_url"),
		DataPath:        v.GetString("data_path"),
		JWTSecret:       v.GetString("jwt_secret"),
		APIMasterSecret: v.GetString("api_master_secret"),
		AdminUsername:   v.GetString("admin_username"),
		AdminPassword:   v.GetString("admin_password"),
		RollbarToken:    v.GetString("rollbar_token"),
	}

	sc, err := staffingConfig(v)
	if err != nil {
		return nil, err
	}
	cfg.Staffing = sc
	return cfg, nil
}

// IsProduction reports whether the service runs in the PROD environment.
func (c *Config) IsProduction() bool {
	return c.Env == "PROD"
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("port", "8000")
	v.SetDefault("gin_mode", "")
	v.SetDefault("env", "DEV") // DEV, TEST, PROD
	v.SetDefault("database_url", "")
	v.SetDefault("data_path", "care_coverage.db")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("api_master_secret", "")
	v.SetDefault("admin_username", "admin")
	v.SetDefault("admin_password", "admin123")
	v.SetDefault("rollbar_token", "")

	d := staffing.DefaultConfig()
	v.SetDefault("staffing.day_start", d.DayStart.String())
	v.SetDefault("staffing.day_end", d.DayEnd.String())
	v.SetDefault("staffing.slot_minutes", d.SlotMinutes)
	v.SetDefault("staffing.fm_cutoff", d.FMCutoff.String())
	v.SetDefault("staffing.em_cutoff", d.EMCutoff.String())
	v.SetDefault("staffing.midday", d.Midday.String())
	v.SetDefault("staffing.default_arrival", d.DefaultArrival.String())
	v.SetDefault("staffing.default_departure", d.DefaultDeparture.String())
	v.SetDefault("staffing.exclude_breaks", d.ExcludeBreaks)
	v.SetDefault("staffing.max_period_assignments", d.MaxPeriodAssignments)
	v.SetDefault("staffing.max_daily_assignments", d.MaxDailyAssignments)
	v.SetDefault("staffing.critical_daily_assignments", d.CriticalDailyAssignments)
	v.SetDefault("staffing.max_week_assignments", d.MaxWeekAssignments)
	v.SetDefault("staffing.critical_week_assignments", d.CriticalWeekAssignments)
	v.SetDefault("staffing.consecutive_care_days", d.ConsecutiveCareDays)
	v.SetDefault("staffing.students_per_staff", d.StudentsPerStaff)
	v.SetDefault("staffing.max_candidates", d.MaxCandidates)
}

func staffingConfig(v *viper.Viper) (staffing.Config, error) {
	sc := staffing.Config{
		SlotMinutes:              v.GetInt("staffing.slot_minutes"),
		ExcludeBreaks:            v.GetBool("staffing.exclude_breaks"),
		MaxPeriodAssignments:     v.GetInt("staffing.max_period_assignments"),
		MaxDailyAssignments:      v.GetInt("staffing.max_daily_assignments"),
		CriticalDailyAssignments: v.GetInt("staffing.critical_daily_assignments"),
		MaxWeekAssignments:       v.GetInt("staffing.max_week_assignments"),
		CriticalWeekAssignments:  v.GetInt("staffing.critical_week_assignments"),
		ConsecutiveCareDays:      v.GetInt("staffing.consecutive_care_days"),
		StudentsPerStaff:         v.GetFloat64("staffing.students_per_staff"),
		MaxCandidates:            v.GetInt("staffing.max_candidates"),
	}

	clocks := []struct {
		key string
		dst *timeutil.Clock
	}{
		{"staffing.day_start", &sc.DayStart},
		{"staffing.day_end", &sc.DayEnd},
		{"staffing.fm_cutoff", &sc.FMCutoff},
		{"staffing.em_cutoff", &sc.EMCutoff},
		{"staffing.midday", &sc.Midday},
		{"staffing.default_arrival", &sc.DefaultArrival},
		{"staffing.default_departure", &sc.DefaultDeparture},
	}
	for _, c := range clocks {
		t, err := timeutil.ParseClock(v.GetString(c.key))
		if err != nil {
			return staffing.Config{}, errors.Wrapf(err, "config: %s", c.key)
		}
		*c.dst = t
	}

	if err := sc.Validate(); err != nil {
		return staffing.Config{}, errors.Wrap(err, "config: staffing")
	}
	return sc, nil
}
