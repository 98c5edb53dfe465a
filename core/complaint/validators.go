package complaint

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/lalamika/core"
)

var (
	statusTag  = "status"
	statusText = "invalid status"
)

// InitValidators registers this package's custom validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}

func statusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	for _, s := range AllStatuses {
		if status == s {
			return true
		}
	}
	return false
}
