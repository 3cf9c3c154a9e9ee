package user

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
)

var (
	allRolesTag  = "allroles"
	allRolesText = "invalid roles"

	phoneTag   = "phone"
	phoneText  = "invalid phone number"
	phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{5,30}$`)

	usernameOrEmailTag  = "username_or_email"
	usernameOrEmailText = "one of username or email is required"

	guardianEmailTag  = "guardian_email"
	guardianEmailText = "guardians must have an email address to receive consent requests"

	pwdMinLen   = 8
	pwdMaxSim   = .7
	specialChar = regexp.MustCompile("[^A-Za-z0-9]")

	// passwordPolicy is checked in order; the first broken rule is reported.
	passwordPolicy = []passwordRule{
		{
			tag:  "pwdminlen",
			text: fmt.Sprintf("password must contain at least %d characters", pwdMinLen),
			ok:   func(pwd string, _ ...string) bool { return len([]rune(pwd)) >= pwdMinLen },
		},
		{
			tag:  "pwdnospace",
			text: "password must not contain whitespace",
			ok:   func(pwd string, _ ...string) bool { return strings.IndexFunc(pwd, unicode.IsSpace) < 0 },
		},
		{
			tag:  "pwdnotallnum",
			text: "password cannot be entirely numeric",
			ok: func(pwd string, _ ...string) bool {
				return strings.IndexFunc(pwd, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0
			},
		},
		{
			tag:  "pwdcplx",
			text: "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character",
			ok: func(pwd string, _ ...string) bool {
				return strings.IndexFunc(pwd, unicode.IsUpper) >= 0 &&
					strings.IndexFunc(pwd, unicode.IsLower) >= 0 &&
					strings.IndexFunc(pwd, unicode.IsDigit) >= 0 &&
					specialChar.MatchString(pwd)
			},
		},
		{
			tag:  "pwdtoosim",
			text: "password cannot be similar to user attributes",
			ok: func(pwd string, attrs ...string) bool {
				for _, attr := range attrs {
					if similarity(pwd, attr) >= pwdMaxSim {
						return false
					}
				}
				return true
			},
		},
	}
)

type passwordRule struct {
	tag  string
	text string
	ok   func(pwd string, userAttrs ...string) bool
}

// RegisterValidators registers the user validators and their translations.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(allRolesTag, allRolesValidation)
	core.RegisterCustomTranslation(validate, translator, allRolesTag, allRolesText)
	_ = validate.RegisterValidation(phoneTag, phoneValidation)
	core.RegisterCustomTranslation(validate, translator, phoneTag, phoneText)

	validate.RegisterStructValidation(userStructValidation, NewUser{}, UpdateUser{})
	core.RegisterCustomTranslation(validate, translator, usernameOrEmailTag, usernameOrEmailText)
	core.RegisterCustomTranslation(validate, translator, guardianEmailTag, guardianEmailText)
	for _, rule := range passwordPolicy {
		core.RegisterCustomTranslation(validate, translator, rule.tag, rule.text)
	}
}

// Custom Validators

// allRolesValidation checks that provided user roles are all known
func allRolesValidation(fl validator.FieldLevel) bool {
	roles, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	for _, role := range roles {
		if RolePriority(role) == 0 {
			return false
		}
	}
	return true
}

func phoneValidation(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}

// userStructValidation does struct level validation on NewUser and UpdateUser structs.
func userStructValidation(sl validator.StructLevel) {
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		if usr.Username == "" && usr.Email == "" {
			sl.ReportError(usr.Username, "username", "Username", usernameOrEmailTag, "")
			sl.ReportError(usr.Email, "email", "Email", usernameOrEmailTag, "")
		} else if usr.Email == "" && hasRolePrefix(usr.Roles, RoleParent) {
			sl.ReportError(usr.Email, "email", "Email", guardianEmailTag, "")
		}
		validatePassword(usr.Password, sl, usr.Name, usr.Username, usr.Email)
	case UpdateUser:
		if usr.Password != "" {
			validatePassword(usr.Password, sl, usr.Name, usr.Username, usr.Email)
		}
	}
}

// validatePassword reports the first rule of the password policy that `pwd` breaks.
func validatePassword(pwd string, sl validator.StructLevel, userAttrs ...string) {
	for _, rule := range passwordPolicy {
		if !rule.ok(pwd, userAttrs...) {
			sl.ReportError(pwd, "password", "Password", rule.tag, "")
			return
		}
	}
}

// similarity is the difflib quick ratio of two strings, case-insensitive; 0 if `attr` is empty.
func similarity(pwd, attr string) float64 {
	if attr == "" {
		return 0
	}
	pwd, attr = strings.ToLower(pwd), strings.ToLower(attr)
	return difflib.NewMatcher(strings.Split(pwd, ""), strings.Split(attr, "")).QuickRatio()
}

func hasRolePrefix(roles []string, prefix string) bool {
	for _, role := range roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}
