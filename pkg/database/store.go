package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/care-coverage-api/pkg/models"
	"github.com/arnavshah/care-coverage-api/pkg/timeutil"
)

// ErrNotFound is returned when a week or a student day does not exist.
var ErrNotFound = errors.New("not found")

// Store converts between database rows and the engine's snapshot types.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// LoadCatalog returns the active students and classes and every staff member.
// Inactive staff are kept so the engine can flag them.
func (s *Store) LoadCatalog(ctx context.Context) (models.Catalog, error) {
	db := s.db.WithContext(ctx)

	var classes []Class
	if err := db.Where("active = ?", true).Order("grade, name").Find(&classes).Error; err != nil {
		return models.Catalog{}, errors.Wrap(err, "load classes")
	}
	var students []Student
	if err := db.Where("active = ?", true).Order("last_name, first_name, id").Find(&students).Error; err != nil {
		return models.Catalog{}, errors.Wrap(err, "load students")
	}
	var staff []Staff
	if err := db.Order("last_name, first_name, id").Find(&staff).Error; err != nil {
		return models.Catalog{}, errors.Wrap(err, "load staff")
	}

	cat := models.Catalog{
		Classes:  make([]models.SchoolClass, 0, len(classes)),
		Students: make([]models.Student, 0, len(students)),
		Staff:    make([]models.StaffMember, 0, len(staff)),
	}
	for _, c := range classes {
		cat.Classes = append(cat.Classes, models.SchoolClass{ID: c.ID, Name: c.Name, Grade: c.Grade})
	}
	for _, st := range students {
		cat.Students = append(cat.Students, models.Student{
			ID:                     st.ID,
			FirstName:              st.FirstName,
			LastName:               st.LastName,
			Grade:                  st.Grade,
			ClassID:                st.ClassID,
			HasCareNeeds:           st.HasCareNeeds,
			CareRequirements:       []string(st.CareRequirements),
			PreferredStaff:         []string(st.PreferredStaff),
			RequiresDoubleStaffing: st.RequiresDoubleStaffing,
		})
	}
	for _, sm := range staff {
		m := models.StaffMember{
			ID:             sm.ID,
			FirstName:      sm.FirstName,
			LastName:       sm.LastName,
			Role:           models.StaffRole(sm.Role),
			Certifications: []string(sm.Certifications),
			Active:         sm.Active,
		}
		if sm.GradeGroup != nil {
			g := models.GradeGroup(*sm.GradeGroup)
			m.GradeGroup = &g
		}
		cat.Staff = append(cat.Staff, m)
	}
	return cat, nil
}

// FindWeek returns the schedule row of an ISO week.
func (s *Store) FindWeek(ctx context.Context, year, week int) (*WeekSchedule, error) {
	var ws WeekSchedule
	err := s.db.WithContext(ctx).Where("year = ? AND week = ?", year, week).First(&ws).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find week %d-%d", year, week)
	}
	return &ws, nil
}

// LoadWeek assembles the five days of a stored week. Absences are matched by
// date, so an absence reported before the schedule was imported still counts.
func (s *Store) LoadWeek(ctx context.Context, year, week int) (models.WeekData, error) {
	ws, err := s.FindWeek(ctx, year, week)
	if err != nil {
		return models.WeekData{}, err
	}
	db := s.db.WithContext(ctx)

	var days []StudentDay
	if err := db.Where("week_schedule_id = ?", ws.ID).Order("weekday, student_id").Find(&days).Error; err != nil {
		return models.WeekData{}, errors.Wrap(err, "load student days")
	}
	var shifts []StaffShift
	if err := db.Where("week_schedule_id = ?", ws.ID).Order("weekday, staff_id").Find(&shifts).Error; err != nil {
		return models.WeekData{}, errors.Wrap(err, "load staff shifts")
	}
	var assignments []DayAssignment
	if err := db.Where("week_schedule_id = ?", ws.ID).Order("weekday, student_id").Find(&assignments).Error; err != nil {
		return models.WeekData{}, errors.Wrap(err, "load day assignments")
	}
	from, to := weekRange(year, week)
	var absences []Absence
	if err := db.Where("date >= ? AND date < ?", from, to).Order("date, staff_id").Find(&absences).Error; err != nil {
		return models.WeekData{}, errors.Wrap(err, "load absences")
	}

	out := models.WeekData{Year: year, Week: week}
	for i := range out.Days {
		d := &out.Days[i]
		d.Weekday = timeutil.Weekday(i)
		d.StudentDays = []models.DaySlot{}
		d.StaffShifts = []models.Shift{}
		d.DayAssignments = []models.SpecialNeedsAssignment{}
		d.Absences = []models.Absence{}
		d.Warnings = []models.Warning{}
	}

	for _, row := range days {
		wd, ok := weekdayOf(row.Weekday)
		if !ok {
			continue
		}
		out.Days[wd].StudentDays = append(out.Days[wd].StudentDays, models.DaySlot{
			StudentID:  row.StudentID,
			Weekday:    wd,
			Arrival:    timeutil.ClockPtr(row.ArrivalTime),
			Departure:  timeutil.ClockPtr(row.DepartureTime),
			FMStaffID:  row.FMStaffID,
			EMStaffID:  row.EMStaffID,
			AbsentType: models.AbsentType(row.AbsentType),
		})
	}
	for _, row := range shifts {
		wd, ok := weekdayOf(row.Weekday)
		if !ok {
			continue
		}
		start, end, err := parseWindow(row.StartTime, row.EndTime)
		if err != nil {
			return models.WeekData{}, errors.Wrapf(err, "staff shift %s", row.ID)
		}
		out.Days[wd].StaffShifts = append(out.Days[wd].StaffShifts, models.Shift{
			StaffID:      row.StaffID,
			Weekday:      wd,
			Start:        start,
			End:          end,
			BreakMinutes: row.BreakMinutes,
		})
	}
	for _, row := range assignments {
		wd, ok := weekdayOf(row.Weekday)
		if !ok {
			continue
		}
		start, end, err := parseWindow(row.StartTime, row.EndTime)
		if err != nil {
			return models.WeekData{}, errors.Wrapf(err, "day assignment %s", row.ID)
		}
		out.Days[wd].DayAssignments = append(out.Days[wd].DayAssignments, models.SpecialNeedsAssignment{
			StudentID: row.StudentID,
			StaffID:   row.StaffID,
			Weekday:   wd,
			Start:     start,
			End:       end,
			Role:      models.AssignmentRole(row.Role),
		})
	}
	for _, row := range absences {
		wd, ok := timeutil.FromTime(time.Time(row.Date))
		if !ok {
			continue
		}
		out.Days[wd].Absences = append(out.Days[wd].Absences, models.Absence{
			StaffID:      row.StaffID,
			Weekday:      wd,
			Reason:       models.AbsenceReason(row.Reason),
			SubstituteID: row.SubstituteID,
		})
	}
	for _, w := range ws.Warnings {
		if w.Weekday.Valid() {
			out.Days[w.Weekday].Warnings = append(out.Days[w.Weekday].Warnings, w)
		}
	}
	return out, nil
}

// ImportWeek stores a solver result: the catalog is upserted, and the week's
// days, shifts and special-needs assignments replace whatever was stored for
// that week. Absences are upserted by staff and date.
func (s *Store) ImportWeek(ctx context.Context, cat models.Catalog, data models.WeekData) (*WeekSchedule, error) {
	if !timeutil.ValidISOWeek(data.Year, data.Week) {
		return nil, errors.Errorf("invalid ISO week %d-%d", data.Year, data.Week)
	}

	var ws WeekSchedule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertCatalog(tx, cat); err != nil {
			return err
		}

		var warnings []models.Warning
		for i, d := range data.Days {
			for _, w := range d.Warnings {
				w.Weekday = timeutil.Weekday(i)
				warnings = append(warnings, w)
			}
		}

		err := tx.Where("year = ? AND week = ?", data.Year, data.Week).First(&ws).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			ws = WeekSchedule{Year: data.Year, Week: data.Week, Warnings: warnings}
			if err := tx.Create(&ws).Error; err != nil {
				return errors.Wrap(err, "create week")
			}
		case err != nil:
			return errors.Wrap(err, "find week")
		default:
			ws.Warnings = warnings
			if err := tx.Save(&ws).Error; err != nil {
				return errors.Wrap(err, "update week")
			}
			for _, m := range []interface{}{&StudentDay{}, &StaffShift{}, &DayAssignment{}} {
				if err := tx.Where("week_schedule_id = ?", ws.ID).Delete(m).Error; err != nil {
					return errors.Wrap(err, "clear week")
				}
			}
		}

		var (
			days        []StudentDay
			shifts      []StaffShift
			assignments []DayAssignment
			absences    []Absence
		)
		for i, d := range data.Days {
			wd := timeutil.Weekday(i)
			for _, sd := range d.StudentDays {
				absentType := string(sd.AbsentType)
				if absentType == "" {
					absentType = string(models.AbsentNone)
				}
				days = append(days, StudentDay{
					WeekScheduleID: ws.ID,
					StudentID:      sd.StudentID,
					Weekday:        int(wd),
					ArrivalTime:    timeutil.StringPtr(sd.Arrival),
					DepartureTime:  timeutil.StringPtr(sd.Departure),
					FMStaffID:      sd.FMStaffID,
					EMStaffID:      sd.EMStaffID,
					AbsentType:     absentType,
				})
			}
			for _, sh := range d.StaffShifts {
				shifts = append(shifts, StaffShift{
					WeekScheduleID: ws.ID,
					StaffID:        sh.StaffID,
					Weekday:        int(wd),
					StartTime:      sh.Start.String(),
					EndTime:        sh.End.String(),
					BreakMinutes:   sh.BreakMinutes,
				})
			}
			for _, a := range d.DayAssignments {
				assignments = append(assignments, DayAssignment{
					WeekScheduleID: ws.ID,
					StudentID:      a.StudentID,
					StaffID:        a.StaffID,
					Weekday:        int(wd),
					StartTime:      a.Start.String(),
					EndTime:        a.End.String(),
					Role:           string(a.Role),
				})
			}
			date := datatypes.Date(timeutil.DateOf(data.Year, data.Week, wd))
			for _, a := range d.Absences {
				reason := string(a.Reason)
				if reason == "" {
					reason = string(models.ReasonOther)
				}
				absences = append(absences, Absence{StaffID: a.StaffID, Date: date, Reason: reason, SubstituteID: a.SubstituteID})
			}
		}

		if len(days) > 0 {
			if err := tx.CreateInBatches(days, 200).Error; err != nil {
				return errors.Wrap(err, "insert student days")
			}
		}
		if len(shifts) > 0 {
			if err := tx.CreateInBatches(shifts, 200).Error; err != nil {
				return errors.Wrap(err, "insert staff shifts")
			}
		}
		if len(assignments) > 0 {
			if err := tx.CreateInBatches(assignments, 200).Error; err != nil {
				return errors.Wrap(err, "insert day assignments")
			}
		}
		if len(absences) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "staff_id"}, {Name: "date"}},
				DoUpdates: clause.AssignmentColumns([]string{"reason", "substitute_id"}),
			}).Create(&absences).Error
			if err != nil {
				return errors.Wrap(err, "upsert absences")
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "import week %d-%d", data.Year, data.Week)
	}
	return &ws, nil
}

func upsertCatalog(tx *gorm.DB, cat models.Catalog) error {
	upsert := func(rows interface{}) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(rows).Error
	}

	if len(cat.Classes) > 0 {
		rows := make([]Class, 0, len(cat.Classes))
		for _, c := range cat.Classes {
			rows = append(rows, Class{ID: c.ID, Name: c.Name, Grade: c.Grade, Active: true})
		}
		if err := upsert(&rows); err != nil {
			return errors.Wrap(err, "upsert classes")
		}
	}
	if len(cat.Students) > 0 {
		rows := make([]Student, 0, len(cat.Students))
		for _, st := range cat.Students {
			rows = append(rows, Student{
				ID:                     st.ID,
				FirstName:              st.FirstName,
				LastName:               st.LastName,
				Grade:                  st.Grade,
				ClassID:                st.ClassID,
				HasCareNeeds:           st.HasCareNeeds,
				CareRequirements:       datatypes.JSONSlice[string](st.CareRequirements),
				PreferredStaff:         datatypes.JSONSlice[string](st.PreferredStaff),
				RequiresDoubleStaffing: st.RequiresDoubleStaffing,
				Active:                 true,
			})
		}
		if err := upsert(&rows); err != nil {
			return errors.Wrap(err, "upsert students")
		}
	}
	if len(cat.Staff) > 0 {
		rows := make([]Staff, 0, len(cat.Staff))
		for _, sm := range cat.Staff {
			row := Staff{
				ID:             sm.ID,
				FirstName:      sm.FirstName,
				LastName:       sm.LastName,
				Role:           string(sm.Role),
				Certifications: datatypes.JSONSlice[string](sm.Certifications),
				Active:         sm.Active,
			}
			if sm.GradeGroup != nil {
				g := string(*sm.GradeGroup)
				row.GradeGroup = &g
			}
			rows = append(rows, row)
		}
		if err := upsert(&rows); err != nil {
			return errors.Wrap(err, "upsert staff")
		}
	}
	return nil
}

// ApplyReassignment sets the FM or EM staff of one student day. It is the only
// write the analysis endpoints trigger, and only on explicit request.
func (s *Store) ApplyReassignment(ctx context.Context, year, week int, wd timeutil.Weekday, studentID string, period models.Period, staffID string) error {
	ws, err := s.FindWeek(ctx, year, week)
	if err != nil {
		return err
	}
	column := "fm_staff_id"
	if period == models.PeriodEM {
		column = "em_staff_id"
	}
	res := s.db.WithContext(ctx).Model(&StudentDay{}).
		Where("week_schedule_id = ? AND weekday = ? AND student_id = ?", ws.ID, int(wd), studentID).
		Update(column, staffID)
	if res.Error != nil {
		return errors.Wrap(res.Error, "apply reassignment")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReportAbsence records or updates a staff absence on a date.
func (s *Store) ReportAbsence(ctx context.Context, staffID string, date time.Time, reason models.AbsenceReason, substituteID *string) error {
	a := Absence{
		StaffID:      staffID,
		Date:         datatypes.Date(date),
		Reason:       string(reason),
		SubstituteID: substituteID,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "staff_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"reason", "substitute_id"}),
	}).Create(&a).Error
	return errors.Wrap(err, "report absence")
}

func weekRange(year, week int) (time.Time, time.Time) {
	from := timeutil.DateOf(year, week, timeutil.Monday)
	return from, from.AddDate(0, 0, 7)
}

func weekdayOf(i int) (timeutil.Weekday, bool) {
	wd := timeutil.Weekday(i)
	return wd, wd.Valid()
}

func parseWindow(start, end string) (timeutil.Clock, timeutil.Clock, error) {
	s, err := timeutil.ParseClock(start)
	if err != nil {
		return 0, 0, err
	}
	e, err := timeutil.ParseClock(end)
	if err != nil {
		return 0, 0, err
	}
	return s, e, nil
}
