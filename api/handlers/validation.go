package handlers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/moyijulius/crime-report-platform/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("reportstatus", func(fl validator.FieldLevel) bool {
		return models.ReportStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return models.Role(fl.Field().String()).Valid()
	})
	return v
}

// validationMessages maps "<field>.<tag>" to the message shown to clients
var validationMessages = map[string]string{
	"username.required":     "Username is required",
	"email.required":        "Email is required",
	"email.email":           "A valid email is required",
	"password.required":     "Password is required",
	"password.min":          "Password must be at least 6 characters",
	"crimeType.required":    "Crime type is required",
	"location.required":     "Location is required",
	"description.required":  "Description is required",
	"status.required":       "Status is required",
	"status.reportstatus":   "Status must be one of Under Review, In Progress, Investigation, Closed",
	"message.required":      "Message is required",
	"text.required":         "Testimonial text is required",
	"rating.required":       "Rating is required",
	"rating.min":            "Rating must be between 1 and 5",
	"rating.max":            "Rating must be between 1 and 5",
	"approved.required":     "Approved flag is required",
	"role.role":             "Role must be one of user, admin, officer",
}

// validationErrors runs the struct validator on v and converts failures into
// client facing field errors
func validationErrors(v interface{}) []models.ValidationError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []models.ValidationError{{Msg: err.Error()}}
	}
	out := make([]models.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := validationMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = "Invalid value"
		}
		out = append(out, models.ValidationError{Field: fe.Field(), Msg: msg})
	}
	return out
}
