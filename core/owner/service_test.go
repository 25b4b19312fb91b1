package owner_test

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/owner"
	"github.com/nae-imUam/coaching-app-api/services/email"
	"github.com/nae-imUam/coaching-app-api/services/logger"
	"github.com/nae-imUam/coaching-app-api/tests"
)

func newService(t *testing.T) (owner.Service, owner.Repository, *emailsvc.Outbox) {
	repos := testutil.OpenRepos(t)
	validate, _ := testutil.NewValidator()
	outbox := emailsvc.NewOutbox(logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), core.Conf))
	return owner.NewService(repos.Owners, outbox, validate), repos.Owners, outbox
}

func validationField(t *testing.T, err error) string {
	t.Helper()
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr), "expected a ValidationError, got %v", err)
	require.NotEmpty(t, verr.Fields)
	return verr.Fields[0].Field
}

func TestService_Register(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	o, err := svc.Register(ctx, owner.NewOwner{
		Phone:           "98111 11111",
		Name:            " Ravi Kumar ",
		InstituteName:   "Ravi Classes",
		Email:           "Ravi@Test.IN",
		Password:        testutil.Password,
		PasswordConfirm: testutil.Password,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "+919811111111", o.Phone)
	assert.Equal(t, "Ravi Kumar", o.Name)
	assert.Equal(t, "ravi@test.in", o.Email)
	assert.True(t, o.IsActive)
	assert.NoError(t, o.CheckPassword(testutil.Password))

	t.Run("phone taken", func(t *testing.T) {
		_, err := svc.Register(ctx, owner.NewOwner{
			Phone:           "+919811111111",
			Name:            "Other",
			InstituteName:   "Other Classes",
			Password:        testutil.Password,
			PasswordConfirm: testutil.Password,
		})
		assert.Equal(t, "phone", validationField(t, err))
	})

	t.Run("password policy", func(t *testing.T) {
		for _, pwd := range []string{"short", "12345678", "has space 1", "ravikumar1"} {
			_, err := svc.Register(ctx, owner.NewOwner{
				Phone:           "+919822222222",
				Name:            "Ravi Kumar",
				InstituteName:   "Ravi Classes",
				Password:        pwd,
				PasswordConfirm: pwd,
			})
			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs), pwd)
			assert.Equal(t, "password", verrs[0].Field(), pwd)
		}
	})

	t.Run("passwords differ", func(t *testing.T) {
		_, err := svc.Register(ctx, owner.NewOwner{
			Phone:           "+919822222222",
			Name:            "Asha",
			InstituteName:   "Asha Classes",
			Password:        testutil.Password,
			PasswordConfirm: testutil.Password + "x",
		})
		assert.IsType(t, validator.ValidationErrors{}, err)
	})
}

func TestService_Authenticate(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	o := testutil.CreateOwner(t, repo, "+919811111111", "Ravi", true)
	testutil.CreateOwner(t, repo, "+919822222222", "Asha", false)

	logged, err := svc.Authenticate(ctx, "9811111111", testutil.Password)
	require.NoError(t, err)
	assert.Equal(t, o.ID, logged.ID)
	assert.False(t, logged.LastLogin.IsZero())

	_, err = svc.Authenticate(ctx, "+919811111111", "wrong-pass")
	assert.Equal(t, owner.ErrInvalidCredentials, err)

	_, err = svc.Authenticate(ctx, "+919899999999", testutil.Password)
	assert.Equal(t, owner.ErrInvalidCredentials, err)

	_, err = svc.Authenticate(ctx, "+919822222222", testutil.Password)
	assert.Equal(t, owner.ErrAccountDeactivated, err)
}

func TestService_UpdateProfile(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	o := testutil.CreateOwner(t, repo, "+919811111111", "Ravi", true)

	updated, err := svc.UpdateProfile(ctx, o.ID, owner.UpdateProfile{InstituteName: " Ravi   Academy ", Email: "RAVI@test.in"})
	require.NoError(t, err)
	assert.Equal(t, "Ravi", updated.Name)
	assert.Equal(t, "Ravi Academy", updated.InstituteName)
	assert.Equal(t, "ravi@test.in", updated.Email)

	_, err = svc.UpdateProfile(ctx, o.ID, owner.UpdateProfile{Email: "not-an-email"})
	assert.IsType(t, validator.ValidationErrors{}, err)

	_, err = svc.UpdateProfile(ctx, "nope", owner.UpdateProfile{})
	assert.Equal(t, owner.ErrNotFound, err)
}

func TestService_ChangePassword(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	o := testutil.CreateOwner(t, repo, "+919811111111", "Ravi", true)

	err := svc.ChangePassword(ctx, o.ID, owner.ChangePassword{OldPassword: "wrong", Password: "n3w-Secret!", PasswordConfirm: "n3w-Secret!"})
	assert.Equal(t, "old_password", validationField(t, err))

	err = svc.ChangePassword(ctx, o.ID, owner.ChangePassword{OldPassword: testutil.Password, Password: "98765432", PasswordConfirm: "98765432"})
	assert.Equal(t, "new_password", validationField(t, err))

	err = svc.ChangePassword(ctx, o.ID, owner.ChangePassword{OldPassword: testutil.Password, Password: "n3w-Secret!", PasswordConfirm: "n3w-Secret!"})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, o.Phone, "n3w-Secret!")
	assert.NoError(t, err)
}

func TestService_passwordReset(t *testing.T) {
	svc, repo, outbox := newService(t)
	ctx := context.Background()
	o := testutil.CreateOwner(t, repo, "+919811111111", "Ravi", true)
	testutil.CreateOwner(t, repo, "+919822222222", "Asha", false)

	// no email on file: the token is returned but nothing is sent
	token, err := svc.RequestPasswordReset(ctx, o.Phone)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Empty(t, outbox.Sent())

	o, err = svc.UpdateProfile(ctx, o.ID, owner.UpdateProfile{Email: "ravi@test.in"})
	require.NoError(t, err)
	token, err = svc.RequestPasswordReset(ctx, "9811111111")
	require.NoError(t, err)
	sent := outbox.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ravi@test.in", sent[0].To[0].Address)
	assert.Equal(t, token, sent[0].TemplateData.(map[string]interface{})["Token"])

	_, err = svc.RequestPasswordReset(ctx, "+919822222222")
	assert.Equal(t, owner.ErrNotFound, err)

	err = svc.ResetPassword(ctx, owner.ResetPassword{Phone: o.Phone, Token: "bad-token", Password: "n3w-Secret!", PasswordConfirm: "n3w-Secret!"})
	assert.Equal(t, "token", validationField(t, err))

	err = svc.ResetPassword(ctx, owner.ResetPassword{Phone: o.Phone, Token: token, Password: "n3w-Secret!", PasswordConfirm: "n3w-Secret!"})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, o.Phone, "n3w-Secret!")
	require.NoError(t, err)

	// a used token is void once the password changed
	err = svc.ResetPassword(ctx, owner.ResetPassword{Phone: o.Phone, Token: token, Password: "an0ther-Secret", PasswordConfirm: "an0ther-Secret"})
	assert.Equal(t, "token", validationField(t, err))
}
