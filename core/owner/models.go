package owner

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/nae-imUam/coaching-app-api/core"
)

// Owner is an institute account. Every other entity belongs to exactly one Owner.
type Owner struct {
	ID            string    `json:"id"`
	Phone         string    `json:"phone"`
	Name          string    `json:"name"`
	InstituteName string    `json:"institute_name"`
	Email         string    `json:"email"`
	IsActive      bool      `json:"is_active"`
	PasswordHash  []byte    `json:"-"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
	LastLogin     time.Time `json:"last_login"` // UTC
}

func (o *Owner) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	o.PasswordHash = hash
	return nil
}

func (o *Owner) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(o.PasswordHash, []byte(pwd))
}

// NewOwner contains information needed to register a new Owner.
type NewOwner struct {
	Phone           string `json:"phone" validate:"required,phone"`
	Name            string `json:"name" validate:"required,max=255"`
	InstituteName   string `json:"institute_name" validate:"required,max=255"`
	Email           string `json:"email" validate:"omitempty,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (no *NewOwner) Clean() {
	no.Phone = core.NormalizePhone(no.Phone)
	no.Name = core.CleanName(no.Name)
	no.InstituteName = core.CleanName(no.InstituteName)
	no.Email = core.CleanString(no.Email, true /* lower */)
}

// UpdateProfile defines what information may be provided to modify an Owner's profile.
// Blank fields are left unchanged.
type UpdateProfile struct {
	Name          string `json:"name" validate:"max=255"`
	InstituteName string `json:"institute_name" validate:"max=255"`
	Email         string `json:"email" validate:"omitempty,email"`
}

func (up *UpdateProfile) Validate(orig Owner, validate *validator.Validate) error {
	if name := core.CleanName(up.Name); name != "" {
		up.Name = name
	} else {
		up.Name = orig.Name
	}
	if inst := core.CleanName(up.InstituteName); inst != "" {
		up.InstituteName = inst
	} else {
		up.InstituteName = orig.InstituteName
	}
	if email := core.CleanString(up.Email, true /* lower */); email != "" {
		up.Email = email
	} else {
		up.Email = orig.Email
	}
	return validate.Struct(up)
}

type ChangePassword struct {
	OldPassword     string `json:"old_password" validate:"required"`
	Password        string `json:"new_password" validate:"required"`
	PasswordConfirm string `json:"new_password_confirm" validate:"required,eqfield=Password"`
}

type ResetPassword struct {
	Phone           string `json:"phone" validate:"required"`
	Token           string `json:"token" validate:"required"`
	Password        string `json:"new_password" validate:"required"`
	PasswordConfirm string `json:"new_password_confirm" validate:"required,eqfield=Password"`
}

// GetFilter selects a single Owner; the first non-empty field wins.
type GetFilter struct {
	ID    string
	Phone string
}
