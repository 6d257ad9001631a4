package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/samber/lo"
)

var (
	// custom validation tags & texts
	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderText  = "only alphanumeric characters and underscores are allowed"
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

	notBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// NewTranslator returns the english translator used to render validation errors.
func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewValidator returns a validator with the app-wide validators & translations registered.
func NewValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	InitValidators(validate, translator)
	return validate
}

// CustomValidation pairs a validation tag with the message rendered when it fails.
// A nil Func only registers the message, for tags reported by struct-level validators
// or provided by the validator package itself.
type CustomValidation struct {
	Tag      string
	Text     string
	Func     validator.Func
	Override bool // replace an existing translation
}

// RegisterValidations registers every validation & its english translation.
func RegisterValidations(validate *validator.Validate, translator ut.Translator, cvs ...CustomValidation) {
	for _, cv := range cvs {
		if cv.Func != nil {
			_ = validate.RegisterValidation(cv.Tag, cv.Func)
		}
		tag, text, override := cv.Tag, cv.Text, cv.Override
		_ = validate.RegisterTranslation(
			tag, translator,
			func(t ut.Translator) error { return t.Add(tag, text, override) },
			func(t ut.Translator, fe validator.FieldError) string {
				s, _ := t.T(fe.Tag(), fe.Field())
				return s
			},
		)
	}
}

// InitValidators sets up the app-wide validators: JSON field names in errors,
// english default messages and the shared custom tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		return lo.Ternary(name == "-", "", name)
	})

	RegisterValidations(validate, translator,
		CustomValidation{Tag: alphaNumUnderTag, Text: alphaNumUnderText, Func: alphaNumUnderValidation},
		CustomValidation{Tag: notBlankTag, Text: notBlankText, Func: notBlankValidation},
		CustomValidation{Tag: requiredTag, Text: requiredText, Override: true},
		CustomValidation{Tag: requiredWithTag, Text: requiredText, Override: true},
	)
}

// Custom Global Validators

// alphaNumUnderValidation only allows alphanumeric characters and underscores.
func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}

// notBlankValidation rejects strings made of whitespace only.
func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
