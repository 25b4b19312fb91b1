package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/owner"
)

type (
	LoginRequest struct {
		Phone    string `json:"phone" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	PasswordResetRequest struct {
		Phone string `json:"phone" validate:"required"`
	}

	TokenRequest struct {
		Token string `json:"token" validate:"required"`
	}

	RefreshRequest struct {
		Refresh string `json:"refresh" validate:"required"`
	}

	LogoutRequest struct {
		RefreshToken string `json:"refresh_token"`
	}
)

type ownerApi struct {
	svc      owner.Service
	auth     *authenticator
	validate *validator.Validate
}

func registerOwnerAPI(
	g *echo.Group,
	auth *authenticator,
	limit func(scope string) echo.MiddlewareFunc,
	svc owner.Service,
	validate *validator.Validate,
) {
	api := ownerApi{
		svc:      svc,
		auth:     auth,
		validate: validate,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/register", api.register)
	ag.POST("/login", api.login, limit("login"))
	ag.POST("/password-reset/request", api.requestPasswordReset, limit("password-reset-request"))
	ag.POST("/password-reset/confirm", api.confirmPasswordReset, limit("password-reset-confirm"))
	ag.POST("/verify-token", api.verifyToken)
	ag.POST("/token-refresh", api.refreshToken)

	// authed endpoints
	mw := auth.required()
	ag.POST("/logout", api.logout, mw...)
	ag.POST("/change-password", api.changePassword, mw...)
	ag.GET("/profile", api.profile, mw...)
	ag.PUT("/profile", api.updateProfile, mw...)
	ag.PATCH("/profile", api.updateProfile, mw...)
}

// Handlers

func (api *ownerApi) register(ctx echo.Context) error {
	var data owner.NewOwner
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOwner")
	}

	o, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering owner")
	}
	tokens, err := GenerateTokens(o)
	if err != nil {
		return errors.Wrap(err, "generating tokens")
	}

	return respond(ctx, http.StatusCreated, "User registered successfully", echo.Map{"user": o, "tokens": tokens})
}

func (api *ownerApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	o, err := api.svc.Authenticate(ctx.Request().Context(), data.Phone, data.Password)
	if err != nil {
		switch errors.Cause(err) {
		case owner.ErrInvalidCredentials:
			return errLoginFailed
		case owner.ErrAccountDeactivated:
			return errAccountDeactivated
		}
		return errors.Wrap(err, "authenticating")
	}
	tokens, err := GenerateTokens(o)
	if err != nil {
		return errors.Wrap(err, "generating tokens")
	}

	return respond(ctx, http.StatusOK, "Login successful", echo.Map{"user": o, "tokens": tokens})
}

func (api *ownerApi) logout(ctx echo.Context) error {
	var data LogoutRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LogoutRequest")
	}

	reqCtx := ctx.Request().Context()
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err = api.auth.deny(reqCtx, claims); err != nil {
		return err
	}

	// the refresh token is optional, and only revoked when it belongs to the same owner
	if data.RefreshToken != "" {
		refresh, err := parseToken(data.RefreshToken)
		if err != nil || refresh.Type != refreshToken || refresh.Subject != claims.Subject {
			return errInvalidToken
		}
		if err = api.auth.deny(reqCtx, *refresh); err != nil {
			return err
		}
	}

	return respond(ctx, http.StatusOK, "Logged out successfully", nil)
}

func (api *ownerApi) refreshToken(ctx echo.Context) error {
	var data RefreshRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefreshRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	access, err := api.auth.refresh(ctx.Request().Context(), data.Refresh)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "", echo.Map{"tokens": TokenPair{Refresh: data.Refresh, Access: access}})
}

func (api *ownerApi) verifyToken(ctx echo.Context) error {
	var data TokenRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TokenRequest")
	}
	if data.Token == "" {
		return core.NewValidationError(errors.New("Token is required"))
	}

	claims, err := parseToken(data.Token)
	if err != nil || claims.Type != accessToken {
		return errInvalidToken
	}
	if err = api.auth.checkNotDenied(ctx.Request().Context(), *claims); err != nil {
		return errInvalidToken
	}
	return respond(ctx, http.StatusOK, "Token is valid", nil)
}

func (api *ownerApi) profile(ctx echo.Context) error {
	o, err := getContextOwner(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context owner")
	}
	return respond(ctx, http.StatusOK, "", echo.Map{"user": o})
}

func (api *ownerApi) updateProfile(ctx echo.Context) error {
	var data owner.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}

	o, err := api.svc.UpdateProfile(ctx.Request().Context(), ownerID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return respond(ctx, http.StatusOK, "Profile updated successfully", echo.Map{"user": o})
}

func (api *ownerApi) changePassword(ctx echo.Context) error {
	var data owner.ChangePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}

	if err := api.svc.ChangePassword(ctx.Request().Context(), ownerID(ctx), data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return respond(ctx, http.StatusOK, "Password changed successfully", nil)
}

func (api *ownerApi) requestPasswordReset(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	token, err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Phone)
	if err != nil && !core.IsNotFound(err) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}

	if ctx.Echo().Debug && token != "" {
		return respond(ctx, http.StatusOK, "Password reset token generated", echo.Map{"reset_token": token})
	}
	return respond(ctx, http.StatusOK, "If the phone number exists, a reset token has been sent", nil)
}

func (api *ownerApi) confirmPasswordReset(ctx echo.Context) error {
	var data owner.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return respond(ctx, http.StatusOK, "Password reset successfully", nil)
}
