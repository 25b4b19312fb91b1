package owner

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/nae-imUam/coaching-app-api/core"
)

var (
	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password is too similar to your account details"

	pwdPolicyTexts = map[string]string{
		pwdMinLenTag:    pwdMinLenText,
		pwdNoSpaceTag:   pwdNoSpaceText,
		pwdNotAllNumTag: pwdNotAllNumText,
		pwdAttrSimTag:   pwdAttrSimText,
	}
)

// InitValidators registers owner validators & translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(ownerStructValidation, NewOwner{})
	for tag, text := range pwdPolicyTexts {
		core.RegisterCustomTranslation(validate, translator, tag, text)
	}
}

// ownerStructValidation applies the password policy to NewOwner structs.
func ownerStructValidation(sl validator.StructLevel) {
	if no, ok := sl.Current().Interface().(NewOwner); ok {
		if tag := checkPasswordPolicy(no.Password, no.Name, no.Phone, no.Email); tag != "" {
			sl.ReportError(no.Password, "password", "Password", tag, "")
		}
	}
}

// validatePassword returns a ValidationError on `field` when pwd breaks the policy.
func validatePassword(field, pwd string, o Owner) error {
	if tag := checkPasswordPolicy(pwd, o.Name, o.Phone, o.Email); tag != "" {
		text := pwdPolicyTexts[tag]
		return core.NewValidationError(errors.New(text), core.FieldError{Field: field, Error: text})
	}
	return nil
}

// checkPasswordPolicy returns the tag of the first broken rule, or "":
// - minLen: 8
// - no whitespace
// - not all numeric
// - not similar to the owner's name, phone or email
func checkPasswordPolicy(pwd string, attrs ...string) string {
	if len([]rune(pwd)) < pwdMinLen {
		return pwdMinLenTag
	}

	var digitCount int
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == len([]rune(pwd)) {
		return pwdNotAllNumTag
	}

	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		attr = strings.ToLower(strings.TrimPrefix(attr, "+"))
		if attr == "" {
			continue
		}
		m := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(attr, ""))
		if m.QuickRatio() >= pwdMaxSim && m.Ratio() >= pwdMaxSim {
			return pwdAttrSimTag
		}
	}
	return ""
}
