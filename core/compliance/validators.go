package compliance

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/bitacora/core"
)

var (
	courseTag  = "course"
	courseText = "curso desconocido"

	subjectTag  = "subject"
	subjectText = "asignatura desconocida"

	statusTag  = "status"
	statusText = "estado inválido (Cumple | No Cumple)"
)

// InitValidators registers the catalog-aware validators.
func InitValidators(validate *validator.Validate, translator ut.Translator, catalog Catalog) {
	_ = validate.RegisterValidation(courseTag, func(fl validator.FieldLevel) bool {
		return catalog.HasCourse(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, courseTag, courseText)

	_ = validate.RegisterValidation(subjectTag, func(fl validator.FieldLevel) bool {
		return catalog.HasSubject(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, subjectTag, subjectText)

	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}

func statusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).IsValid()
}
