package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/utils"
)

var registerOnce sync.Once

// registerValidators adds the domain tags to gin's validator:
// credoitem (a known credo item id) and day (YYYY-MM-DD).
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("credoitem", func(fl validator.FieldLevel) bool {
			_, ok := models.LookupCredoItem(fl.Field().String())
			return ok
		})
		_ = v.RegisterValidation("day", func(fl validator.FieldLevel) bool {
			return utils.ValidDay(fl.Field().String())
		})
	})
}

// bindingMessage turns validator output into one readable line.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body: " + err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "credoitem":
			parts = append(parts, fmt.Sprintf("%s: unknown credo item %q", field, fe.Value()))
		case "day":
			parts = append(parts, field+" must be a date (YYYY-MM-DD)")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
		case "max", "min", "gte", "lte":
			parts = append(parts, fmt.Sprintf("%s fails %s=%s", field, fe.Tag(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(parts, "; ")
}
