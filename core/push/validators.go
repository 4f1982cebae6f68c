package push

import (
	"net/url"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/homeroom/core"
)

var (
	pushOriginTag  = "pushorigin"
	pushOriginText = "{0} must be an absolute http(s) URL"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(pushOriginTag, pushOriginValidation)
	core.RegisterCustomTranslation(validate, translator, pushOriginTag, pushOriginText)
}

// pushOriginValidation only allows absolute http(s) URLs, the audience is derived from them.
func pushOriginValidation(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}
