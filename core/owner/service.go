package owner

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/nae-imUam/coaching-app-api/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("owner")
	ErrPhoneExists        = errors.New("an account with this phone number already exists")
	ErrInvalidCredentials = errors.New("invalid phone number or password")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

type (
	Repository interface {
		// CreateOwner returns ErrPhoneExists when the phone is taken.
		CreateOwner(ctx context.Context, o Owner, exec ...core.DBExecutor) (Owner, error)
		GetOwner(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Owner, error)
		UpdateOwner(ctx context.Context, o Owner, exec ...core.DBExecutor) (Owner, error)
	}

	Service interface {
		Register(ctx context.Context, no NewOwner) (Owner, error)
		Authenticate(ctx context.Context, phone, pwd string) (Owner, error)
		GetByID(ctx context.Context, id string) (Owner, error)
		GetByPhone(ctx context.Context, phone string) (Owner, error)
		UpdateProfile(ctx context.Context, id string, up UpdateProfile) (Owner, error)
		ChangePassword(ctx context.Context, id string, cp ChangePassword) error
		// RequestPasswordReset emails a reset token to the owner when they have an email,
		// and returns the token so that debug builds can hand it back directly.
		RequestPasswordReset(ctx context.Context, phone string) (string, error)
		ResetPassword(ctx context.Context, rp ResetPassword) error
	}

	service struct {
		repo     Repository
		mailSvc  core.EmailService
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, validate *validator.Validate) Service {
	return &service{repo: repo, mailSvc: mailSvc, validate: validate}
}

func (svc *service) Register(ctx context.Context, no NewOwner) (Owner, error) {
	no.Clean()
	if err := svc.validate.Struct(no); err != nil {
		return Owner{}, err
	}

	now := time.Now().UTC()
	o := Owner{
		Phone:         no.Phone,
		Name:          no.Name,
		InstituteName: no.InstituteName,
		Email:         no.Email,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := o.SetPassword(no.Password); err != nil {
		return Owner{}, errors.Wrap(err, "setting password")
	}

	o, err := svc.repo.CreateOwner(ctx, o)
	if err != nil {
		if errors.Cause(err) == ErrPhoneExists {
			return Owner{}, core.NewValidationError(ErrPhoneExists, core.FieldError{Field: "phone", Error: ErrPhoneExists.Error()})
		}
		return Owner{}, errors.Wrap(err, "creating owner")
	}
	return o, nil
}

func (svc *service) Authenticate(ctx context.Context, phone, pwd string) (Owner, error) {
	o, err := svc.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Owner{}, ErrInvalidCredentials
		}
		return Owner{}, err
	}
	if err = o.CheckPassword(pwd); err != nil {
		return Owner{}, ErrInvalidCredentials
	}
	if !o.IsActive {
		return Owner{}, ErrAccountDeactivated
	}

	o.LastLogin = time.Now().UTC()
	o, err = svc.repo.UpdateOwner(ctx, o)
	return o, errors.Wrap(err, "setting last login")
}

func (svc *service) GetByID(ctx context.Context, id string) (Owner, error) {
	return svc.repo.GetOwner(ctx, GetFilter{ID: id})
}

func (svc *service) GetByPhone(ctx context.Context, phone string) (Owner, error) {
	phone = core.NormalizePhone(phone)
	if phone == "" {
		return Owner{}, ErrNotFound
	}
	return svc.repo.GetOwner(ctx, GetFilter{Phone: phone})
}

func (svc *service) UpdateProfile(ctx context.Context, id string, up UpdateProfile) (Owner, error) {
	o, err := svc.GetByID(ctx, id)
	if err != nil {
		return Owner{}, err
	}
	if err = up.Validate(o, svc.validate); err != nil {
		return Owner{}, err
	}

	o.Name = up.Name
	o.InstituteName = up.InstituteName
	o.Email = up.Email
	o.UpdatedAt = time.Now().UTC()
	o, err = svc.repo.UpdateOwner(ctx, o)
	return o, errors.Wrap(err, "updating owner")
}

func (svc *service) ChangePassword(ctx context.Context, id string, cp ChangePassword) error {
	if err := svc.validate.Struct(cp); err != nil {
		return err
	}
	o, err := svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err = o.CheckPassword(cp.OldPassword); err != nil {
		msg := "old password is incorrect"
		return core.NewValidationError(errors.New(msg), core.FieldError{Field: "old_password", Error: msg})
	}
	return svc.setPassword(ctx, o, cp.Password)
}

func (svc *service) RequestPasswordReset(ctx context.Context, phone string) (string, error) {
	o, err := svc.GetByPhone(ctx, phone)
	if err != nil {
		return "", err
	}
	if !o.IsActive {
		return "", ErrNotFound
	}

	token, err := makeToken(o)
	if err != nil {
		return "", errors.Wrap(err, "making reset token")
	}
	if o.Email != "" {
		svc.sendPasswordResetMail(o, token)
	}
	return token, nil
}

func (svc *service) sendPasswordResetMail(o Owner, token string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: o.Name, Address: o.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":     o.Name,
			"Phone":    o.Phone,
			"Token":    token,
			"ValidFor": core.Conf.PasswordResetTimeoutDelta.String(),
		},
	})
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetPassword) error {
	if err := svc.validate.Struct(rp); err != nil {
		return err
	}

	invalid := core.NewValidationError(ErrInvalidResetToken, core.FieldError{Field: "token", Error: ErrInvalidResetToken.Error()})
	o, err := svc.GetByPhone(ctx, rp.Phone)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return invalid
		}
		return err
	}
	if err = verifyToken(o, rp.Token); err != nil {
		return invalid
	}
	return svc.setPassword(ctx, o, rp.Password)
}

func (svc *service) setPassword(ctx context.Context, o Owner, pwd string) error {
	if err := validatePassword("new_password", pwd, o); err != nil {
		return err
	}
	if err := o.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	o.UpdatedAt = time.Now().UTC()
	_, err := svc.repo.UpdateOwner(ctx, o)
	return errors.Wrap(err, "updating owner")
}
