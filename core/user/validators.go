package user

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/samber/lo"

	"github.com/trezcool/ead/core"
	appfs "github.com/trezcool/ead/fs"
)

const (
	allRolesTag  = "allroles"
	allRolesText = "invalid roles"

	usernameOrEmailTag  = "username_or_email"
	usernameOrEmailText = "one of username or email is required"

	pwdMinLen = 8
	pwdMaxSim = .7

	pwdMinLenTag     = "pwdminlen"
	pwdNoSpaceTag    = "pwdnospace"
	pwdNotAllNumTag  = "pwdnotallnum"
	pwdComplexityTag = "pwdcplx"
	pwdAttrSimTag    = "pwdtoosim"
	pwdNoCommonTag   = "pwdnocommon"

	pwdNoSpaceText    = "password must not contain whitespace"
	pwdNotAllNumText  = "password cannot be entirely numeric"
	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"
	pwdAttrSimText    = "password cannot be similar to user attributes"
	pwdNoCommonText   = "password is too common"
)

var (
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)
	nonAlnumRegex = regexp.MustCompile("[^A-Za-z0-9]")

	commonPasswords     map[string]struct{}
	commonPasswordsOnce sync.Once
)

// passwordRule is one clause of the password policy; attrs are the lower-cased user attributes.
type passwordRule struct {
	tag    string
	text   string
	broken func(pwd string, attrs []string) bool
}

// passwordPolicy is checked in order; only the first broken rule is reported.
var passwordPolicy = []passwordRule{
	{pwdMinLenTag, pwdMinLenText, func(pwd string, _ []string) bool {
		return utf8.RuneCountInString(pwd) < pwdMinLen
	}},
	{pwdNoSpaceTag, pwdNoSpaceText, func(pwd string, _ []string) bool {
		return containsRune(pwd, unicode.IsSpace)
	}},
	{pwdNotAllNumTag, pwdNotAllNumText, func(pwd string, _ []string) bool {
		return !containsRune(pwd, func(r rune) bool { return !unicode.IsDigit(r) })
	}},
	{pwdComplexityTag, pwdComplexityText, func(pwd string, _ []string) bool {
		return !(containsRune(pwd, unicode.IsUpper) &&
			containsRune(pwd, unicode.IsLower) &&
			containsRune(pwd, unicode.IsDigit) &&
			nonAlnumRegex.MatchString(pwd))
	}},
	{pwdAttrSimTag, pwdAttrSimText, func(pwd string, attrs []string) bool {
		return lo.SomeBy(attrs, func(attr string) bool { return similarity(pwd, attr) >= pwdMaxSim })
	}},
	{pwdNoCommonTag, pwdNoCommonText, func(pwd string, _ []string) bool {
		return isCommonPassword(pwd)
	}},
}

// InitValidators registers the user validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(userStructValidation, NewUser{}, UpdateUser{})

	cvs := []core.CustomValidation{
		{Tag: allRolesTag, Text: allRolesText, Func: allRolesValidation},
		{Tag: usernameOrEmailTag, Text: usernameOrEmailText},
	}
	for _, rule := range passwordPolicy {
		cvs = append(cvs, core.CustomValidation{Tag: rule.tag, Text: rule.text})
	}
	core.RegisterValidations(validate, translator, cvs...)
}

func allRolesValidation(fl validator.FieldLevel) bool {
	roles, ok := fl.Field().Interface().([]string)
	return ok && lo.Every(AllRoles, roles)
}

func userStructValidation(sl validator.StructLevel) {
	var pwd, name, uname, email string
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		if usr.Username == "" && usr.Email == "" {
			sl.ReportError(usr.Username, "username", "Username", usernameOrEmailTag, "")
			sl.ReportError(usr.Email, "email", "Email", usernameOrEmailTag, "")
		}
		pwd, name, uname, email = usr.Password, usr.Name, usr.Username, usr.Email
	case UpdateUser:
		if usr.Password == "" {
			return
		}
		pwd, name, uname, email = usr.Password, usr.Name, usr.Username, usr.Email
	default:
		return
	}

	if tag := checkPassword(pwd, name, uname, email); tag != "" {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}
}

// checkPassword returns the tag of the first broken password rule, if any.
func checkPassword(pwd string, attrs ...string) string {
	attrs = lo.FilterMap(attrs, func(attr string, _ int) (string, bool) {
		return strings.ToLower(attr), attr != ""
	})
	for _, rule := range passwordPolicy {
		if rule.broken(pwd, attrs) {
			return rule.tag
		}
	}
	return ""
}

func containsRune(s string, f func(rune) bool) bool {
	return strings.IndexFunc(s, f) >= 0
}

// similarity is difflib's quick ratio between the lower-cased password and attr.
func similarity(pwd, attr string) float64 {
	return difflib.NewMatcher(strings.Split(strings.ToLower(pwd), ""), strings.Split(attr, "")).QuickRatio()
}

func isCommonPassword(pwd string) bool {
	commonPasswordsOnce.Do(loadCommonPasswords)
	_, ok := commonPasswords[strings.ToLower(pwd)]
	return ok
}

func loadCommonPasswords() {
	commonPasswords = make(map[string]struct{})
	file, err := appfs.FS.Open("assets/common-passwords.txt")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			commonPasswords[strings.ToLower(pwd)] = struct{}{}
		}
	}
}
