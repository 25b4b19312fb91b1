package exam

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/nae-imUam/coaching-app-api/core"
)

var (
	boardTag  = "board"
	boardText = "board must be one of: " + strings.Join(Boards, ", ")
)

// InitValidators registers exam validators & translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(boardTag, boardValidation)
	core.RegisterCustomTranslation(validate, translator, boardTag, boardText)
}

func boardValidation(fl validator.FieldLevel) bool {
	board := fl.Field().String()
	for _, b := range Boards {
		if b == board {
			return true
		}
	}
	return false
}
