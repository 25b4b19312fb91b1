package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/owner"
)

const (
	accessToken  = "access"
	refreshToken = "refresh"

	deniedKeyPrefix = "jwt:denied:"
)

var (
	// appJWTConfig is the default JWT auth middleware config.
	appJWTConfig = middleware.JWTConfig{
		SigningKey:    []byte(core.Conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "ownerToken",
		Claims:        new(Claims),
	}
	contextOwnerKey = "owner"
)

// Claims represents the authorization claims transmitted via a JWT.
// Subject is the owner ID and Id a unique token ID used by the denylist.
type Claims struct {
	jwt.StandardClaims
	Type          string `json:"typ"`
	OrigIssuedAt  int64  `json:"oriat,omitempty"`
	Phone         string `json:"phone,omitempty"`
	InstituteName string `json:"institute_name,omitempty"`
}

type TokenPair struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

func GetOwnerClaims(o owner.Owner, typ string, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	exp := now.Add(core.Conf.Server.JWTExpirationDelta).Unix()
	if typ == refreshToken {
		exp = time.Unix(oriat, 0).Add(core.Conf.Server.JWTRefreshExpirationDelta).Unix()
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Issuer:    core.Conf.AppName,
			Subject:   o.ID,
			ExpiresAt: exp,
			IssuedAt:  nownix,
		},
		Type:          typ,
		OrigIssuedAt:  oriat,
		Phone:         o.Phone,
		InstituteName: o.InstituteName,
	}
}

// GenerateToken generates a signed JWT token string representing the owner Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// GenerateTokens issues a fresh access/refresh pair for o.
func GenerateTokens(o owner.Owner) (TokenPair, error) {
	var pair TokenPair
	var err error
	if pair.Access, err = GenerateToken(GetOwnerClaims(o, accessToken)); err != nil {
		return TokenPair{}, err
	}
	pair.Refresh, err = GenerateToken(GetOwnerClaims(o, refreshToken))
	return pair, err
}

// parseToken verifies the signature, algorithm & expiry of a raw token.
func parseToken(raw string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != appJWTConfig.SigningMethod {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return appJWTConfig.SigningKey, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextOwner(ctx echo.Context, svc owner.Service, clms ...Claims) (owner.Owner, error) {
	if o, ok := ctx.Get(contextOwnerKey).(owner.Owner); ok {
		return o, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return owner.Owner{}, errors.Wrap(err, "getting context claims")
		}
	}

	o, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return owner.Owner{}, errUnauthorized
		}
		return owner.Owner{}, errors.Wrap(err, "finding owner by ID")
	}
	ctx.Set(contextOwnerKey, o)
	return o, nil
}

// ownerID returns the ID of the owner authenticated by the auth middlewares.
func ownerID(ctx echo.Context) string {
	o, _ := ctx.Get(contextOwnerKey).(owner.Owner)
	return o.ID
}

// authenticator verifies access tokens against the signing key and the denylist.
type authenticator struct {
	cache core.Cache
	svc   owner.Service
	jwt   echo.MiddlewareFunc
}

func newAuthenticator(cache core.Cache, svc owner.Service) *authenticator {
	return &authenticator{
		cache: cache,
		svc:   svc,
		jwt:   middleware.JWTWithConfig(appJWTConfig),
	}
}

func (a *authenticator) required() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{a.jwt, a.checkAccess}
}

// checkAccess rejects refresh & revoked tokens, and loads the active owner into the context.
func (a *authenticator) checkAccess(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		if claims.Type != accessToken {
			return errInvalidToken
		}
		if err = a.checkNotDenied(ctx.Request().Context(), claims); err != nil {
			return err
		}

		o, err := getContextOwner(ctx, a.svc, claims)
		if err != nil {
			return err
		}
		if !o.IsActive {
			return errAccountDeactivated
		}
		return next(ctx)
	}
}

func (a *authenticator) checkNotDenied(ctx context.Context, claims Claims) error {
	denied, err := a.cache.Exists(ctx, deniedKeyPrefix+claims.Id)
	if err != nil {
		return errors.Wrap(err, "checking token denylist")
	}
	if denied {
		return errTokenRevoked
	}
	return nil
}

// deny puts the token on the denylist until it expires.
func (a *authenticator) deny(ctx context.Context, claims Claims) error {
	ttl := time.Until(time.Unix(claims.ExpiresAt, 0))
	if ttl <= 0 {
		return nil
	}
	return errors.Wrap(a.cache.Set(ctx, deniedKeyPrefix+claims.Id, ttl), "denying token")
}

// refresh exchanges a valid refresh token for a new access token.
func (a *authenticator) refresh(ctx context.Context, raw string) (string, error) {
	claims, err := parseToken(raw)
	if err != nil || claims.Type != refreshToken {
		return "", errInvalidToken
	}
	if err = a.checkNotDenied(ctx, *claims); err != nil {
		return "", err
	}

	o, err := a.svc.GetByID(ctx, claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return "", errInvalidToken
		}
		return "", errors.Wrap(err, "finding owner by ID")
	}

	// check if owner is still active
	if !o.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(core.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(GetOwnerClaims(o, accessToken, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
