package handlers

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/arnavshah/care-coverage-api/pkg/models"
	"github.com/arnavshah/care-coverage-api/pkg/timeutil"
)

var registerOnce sync.Once

// RegisterValidators adds the domain tags to gin's validator:
//
//	weekday  an integer weekday 0 (Monday) to 4 (Friday)
//	clock    an "HH:MM" string
//	period   "fm" or "em"
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		for tag, fn := range map[string]validator.Func{
			"weekday": validateWeekday,
			"clock":   validateClock,
			"period":  validatePeriod,
		} {
			if err := v.RegisterValidation(tag, fn); err != nil {
				panic(fmt.Sprintf("handlers: register %q validator: %v", tag, err))
			}
		}
	})
}

func validateWeekday(fl validator.FieldLevel) bool {
	return timeutil.Weekday(fl.Field().Int()).Valid()
}

func validateClock(fl validator.FieldLevel) bool {
	_, err := timeutil.ParseClock(fl.Field().String())
	return err == nil
}

func validatePeriod(fl validator.FieldLevel) bool {
	return models.Period(fl.Field().String()).Valid()
}
