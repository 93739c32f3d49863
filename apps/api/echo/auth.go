package echoapi

import (
	"context"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/bitacora/core"
)

const (
	contextTokenKey = "userToken"
	contextOwnerKey = "owner"

	// localOwner owns all data when authentication is disabled.
	localOwner = "local"
)

// IDTokenVerifier verifies ID tokens issued by the external sign-in provider (*auth.Client).
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// Claims represents the authorization claims transmitted via a JWT.
// Subject is the owner id all requests are scoped to.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email,omitempty"`
}

func NewClaims(conf *core.Config, owner core.Owner) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   owner.ID,
			ExpiresAt: now.Add(conf.Auth.TokenExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email: owner.Email,
	}
}

// GenerateToken generates a signed JWT token string representing the owner Claims.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// newAuthMiddleware resolves the request owner according to conf.Auth.Mode.
func newAuthMiddleware(conf *core.Config, verifier IDTokenVerifier) echo.MiddlewareFunc {
	switch conf.Auth.Mode {
	case core.AuthNone:
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(ctx echo.Context) error {
				ctx.Set(contextOwnerKey, core.Owner{ID: localOwner})
				return next(ctx)
			}
		}
	case core.AuthFirebase:
		return idTokenMiddleware(verifier)
	default:
		jwtMw := middleware.JWTWithConfig(middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(Claims),
		})
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return jwtMw(claimsOwner(next))
		}
	}
}

func claimsOwner(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		token, ok := ctx.Get(contextTokenKey).(*jwt.Token)
		if !ok {
			return errUnauthorized
		}
		claims, ok := token.Claims.(*Claims)
		if !ok || claims.Subject == "" {
			return errInvalidToken
		}
		ctx.Set(contextOwnerKey, core.Owner{ID: claims.Subject, Email: claims.Email})
		return next(ctx)
	}
}

func idTokenMiddleware(verifier IDTokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") {
				return middleware.ErrJWTMissing
			}
			token, err := verifier.VerifyIDToken(ctx.Request().Context(), strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				return errInvalidToken
			}
			owner := core.Owner{ID: token.UID}
			if email, ok := token.Claims["email"].(string); ok {
				owner.Email = email
			}
			ctx.Set(contextOwnerKey, owner)
			return next(ctx)
		}
	}
}

func getContextOwner(ctx echo.Context) (core.Owner, error) {
	if owner, ok := ctx.Get(contextOwnerKey).(core.Owner); ok {
		return owner, nil
	}
	return core.Owner{}, errUnauthorized
}
