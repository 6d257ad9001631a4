package discipline

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/trezcool/ead/core"
	"github.com/trezcool/ead/core/media"
)

var (
	codeTag   = "discipline_code"
	codeText  = "only letters, digits, dots and hyphens are allowed"
	codeRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.-]*$`)

	declaredSourceTag  = "declared_source"
	declaredSourceText = "unknown media source"

	assessmentTag  = "assessment"
	assessmentText = "unknown assessment"

	ebookKindTag  = "ebook_kind"
	ebookKindText = "unknown e-book kind"

	optionIndexTag  = "option_index"
	optionIndexText = "must be the index of one of the options"
)

// InitValidators registers the discipline validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(questionStructValidation, NewQuestion{})

	core.RegisterValidations(validate, translator,
		core.CustomValidation{Tag: codeTag, Text: codeText, Func: codeValidation},
		core.CustomValidation{Tag: declaredSourceTag, Text: declaredSourceText, Func: declaredSourceValidation},
		core.CustomValidation{Tag: assessmentTag, Text: assessmentText, Func: oneOfValidation(Assessments)},
		core.CustomValidation{Tag: ebookKindTag, Text: ebookKindText, Func: oneOfValidation(EbookKinds)},
		core.CustomValidation{Tag: optionIndexTag, Text: optionIndexText},
	)
}

// Custom Validators

func codeValidation(fl validator.FieldLevel) bool {
	return codeRegex.MatchString(fl.Field().String())
}

// declaredSourceValidation accepts the exact (lowercase) hint values.
func declaredSourceValidation(fl validator.FieldLevel) bool {
	src := fl.Field().String()
	return media.ParseDeclaredSource(src) == media.DeclaredSource(src)
}

func oneOfValidation(values []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return lo.Contains(values, fl.Field().String())
	}
}

// questionStructValidation checks that CorrectOption points into Options.
func questionStructValidation(sl validator.StructLevel) {
	nq := sl.Current().Interface().(NewQuestion)
	if nq.CorrectOption == nil || len(nq.Options) == 0 {
		return // reported by field validators
	}
	if *nq.CorrectOption >= len(nq.Options) {
		sl.ReportError(nq.CorrectOption, "correct_option", "CorrectOption", optionIndexTag, "")
	}
}

// IsAssessment reports whether s is a known assessment.
func IsAssessment(s string) bool { return lo.Contains(Assessments, s) }

// IsEbookKind reports whether s is a known e-book kind.
func IsEbookKind(s string) bool { return lo.Contains(EbookKinds, s) }
