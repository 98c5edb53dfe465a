package user

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/lalamika/core"
)

var (
	regRoleTag  = "regrole"
	regRoleText = "role must be either student or staff"

	anyRoleTag  = "anyrole"
	anyRoleText = "invalid role"
)

// InitValidators registers this package's custom validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(regRoleTag, roleValidation(RegisterableRoles))
	core.RegisterCustomTranslation(validate, translator, regRoleTag, regRoleText)

	_ = validate.RegisterValidation(anyRoleTag, roleValidation(AllRoles))
	core.RegisterCustomTranslation(validate, translator, anyRoleTag, anyRoleText)
}

func roleValidation(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		role := fl.Field().String()
		for _, r := range allowed {
			if role == r {
				return true
			}
		}
		return false
	}
}
