package academic

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	datetimeTag  = "datetime"
	datetimeText = "date must be formatted as YYYY-MM-DD"

	sessionDatesTag  = "sessiondates"
	sessionDatesText = "end date cannot precede start date"
)

// InitValidators registers the academic validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(sessionStructValidation, NewSession{})
	core.RegisterCustomTranslation(validate, translator, sessionDatesTag, sessionDatesText)
	core.RegisterCustomTranslation(validate, translator, datetimeTag, datetimeText, true)
}

// sessionStructValidation checks that a Session does not end before it starts.
func sessionStructValidation(sl validator.StructLevel) {
	ns, ok := sl.Current().Interface().(NewSession)
	if !ok || ns.start.IsZero() || ns.end.IsZero() {
		return
	}
	if ns.end.Before(ns.start) {
		sl.ReportError(ns.EndDate, "end_date", "EndDate", sessionDatesTag, "")
	}
}
