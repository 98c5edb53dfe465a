package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/lalamika/core"
	"github.com/trezcool/lalamika/core/user"
)

var (
	// appJWTConfig is the default JWT auth middleware config. It is completed
	// with the signing key by initJWTConfig before the server starts.
	appJWTConfig = middleware.JWTConfig{
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		Claims:        new(Claims),
	}
	jwtConf *core.Config
)

func initJWTConfig(conf *core.Config) {
	appJWTConfig.SigningKey = []byte(conf.SecretKey)
	jwtConf = conf
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
	Name         string `json:"name,omitempty"`
}

func (c Claims) principal() user.Principal {
	return user.Principal{ID: c.Subject, Email: c.Email, Role: c.Role, Name: c.Name}
}

func GetPrincipalClaims(prin user.Principal, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    jwtConf.AppName,
			Subject:   prin.ID,
			Audience:  "Campus",
			ExpiresAt: now.Add(jwtConf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        prin.Email,
		Role:         prin.Role,
		Name:         prin.Name,
	}
	return claims
}

func authenticate(ctx context.Context, creds user.Credentials, svc user.ServiceInterface) (*Claims, user.Principal, error) {
	prin, err := svc.Authenticate(ctx, creds)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrAuthenticationFailed, user.ErrEmailNotFound, user.ErrIncorrectPassword:
			return nil, user.Principal{}, core.NewValidationError(err)
		}
		return nil, user.Principal{}, errors.Wrap(err, "authenticating")
	}
	return GetPrincipalClaims(prin), prin, nil
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextPrincipal rebuilds the acting Principal from the token claims.
// The admin never exists in the user store, so no lookup happens here.
func getContextPrincipal(ctx echo.Context) (user.Principal, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.Principal{}, errors.Wrap(err, "getting context claims")
	}
	return claims.principal(), nil
}

func refreshToken(ctx echo.Context, svc user.ServiceInterface) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	prin := claims.principal()
	if !prin.IsAdmin() {
		// check the account still exists
		if _, err = svc.GetByID(ctx.Request().Context(), prin.ID); err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return "", errUnauthorized
			}
			return "", errors.Wrap(err, "finding user by ID")
		}
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(jwtConf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetPrincipalClaims(prin, claims.OrigIssuedAt)
	token, err := GenerateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}
