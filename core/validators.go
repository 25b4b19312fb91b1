package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shopspring/decimal"
)

var (
	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "this field may not be blank"

	phoneTag   = "phone"
	phoneText  = "enter a valid phone number"
	phoneRegex = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

	// money: NUMERIC(10, 2), not negative
	moneyTag  = "money"
	moneyText = "ensure this value is a non-negative amount with at most 8 digits before and 2 after the decimal point"
	moneyMax  = decimal.New(1, 8)

	// marks: NUMERIC(6, 2), not negative
	marksTag  = "marks"
	marksText = "ensure this value is a non-negative number with at most 4 digits before and 2 after the decimal point"
	marksMax  = decimal.New(1, 4)

	// hours: NUMERIC(4, 2), not negative
	hoursTag  = "hours"
	hoursText = "ensure this value is a non-negative number of hours below 100, with at most 2 decimal places"
	hoursMax  = decimal.New(1, 2)

	gtZeroTag  = "gtzero"
	gtZeroText = "ensure this value is greater than 0"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// decimals are validated through their canonical string, dates through their time
	validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		if d, ok := v.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		if d, ok := v.Interface().(Date); ok {
			return d.Time
		}
		return nil
	}, Date{})

	// register custom validators
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankText)

	_ = validate.RegisterValidation(phoneTag, phoneValidation)
	RegisterCustomTranslation(validate, translator, phoneTag, phoneText)

	_ = validate.RegisterValidation(moneyTag, decimalValidation(moneyMax))
	RegisterCustomTranslation(validate, translator, moneyTag, moneyText)

	_ = validate.RegisterValidation(marksTag, decimalValidation(marksMax))
	RegisterCustomTranslation(validate, translator, marksTag, marksText)

	_ = validate.RegisterValidation(hoursTag, decimalValidation(hoursMax))
	RegisterCustomTranslation(validate, translator, hoursTag, hoursText)

	_ = validate.RegisterValidation(gtZeroTag, gtZeroValidation)
	RegisterCustomTranslation(validate, translator, gtZeroTag, gtZeroText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// phoneValidation expects a phone number already normalised by NormalizePhone.
func phoneValidation(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}

// decimalValidation checks a non-negative decimal below max with at most 2 decimal places.
func decimalValidation(max decimal.Decimal) validator.Func {
	return func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return d.Sign() >= 0 && d.LessThan(max) && HasMaxPlaces(d, 2)
	}
}

func gtZeroValidation(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return d.Sign() > 0
}

// HasMaxPlaces reports whether d has no more than `places` significant decimal places.
func HasMaxPlaces(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}
