package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/codetrail/codetrail/core/identity"
	"github.com/codetrail/codetrail/services/identity/token"
)

const (
	contextTokenKey    = "userToken"
	contextRoleKey     = "role"
	contextIdentityKey = "identity"
)

// newJWTConfig is the JWT auth middleware config of the API.
func newJWTConfig(tokens *token.Manager) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    tokens.Key(),
		SigningMethod: token.SigningMethod.Alg(),
		ContextKey:    contextTokenKey,
		Claims:        new(token.Claims),
	}
}

// getContextClaims returns the claims the JWT middleware verified, once they pass our own checks.
func getContextClaims(ctx echo.Context, tokens *token.Manager) (token.Claims, error) {
	if t, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := t.Claims.(*token.Claims); ok {
			if err := tokens.Validate(claims); err != nil {
				return token.Claims{}, errUnauthorized
			}
			return *claims, nil
		}
	}
	return token.Claims{}, errUnauthorized
}

func getContextIdentity(ctx echo.Context, tokens *token.Manager) (identity.Identity, error) {
	claims, err := getContextClaims(ctx, tokens)
	if err != nil {
		return identity.Identity{}, err
	}
	return claims.Identity(), nil
}

// sessionClaims reads the session of a page request: the Authorization header, then the cookie.
// A missing or invalid session is anonymous, not an error.
func sessionClaims(ctx echo.Context, tokens *token.Manager, cookieName string) (*token.Claims, bool) {
	var ss string
	if auth := ctx.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, middleware.DefaultJWTConfig.AuthScheme+" ") {
		ss = auth[len(middleware.DefaultJWTConfig.AuthScheme)+1:]
	} else if c, err := ctx.Cookie(cookieName); err == nil {
		ss = c.Value
	}
	if ss == "" {
		return nil, false
	}
	claims, err := tokens.Parse(ss)
	if err != nil {
		return nil, false
	}
	return claims, true
}

func setSessionCookie(ctx echo.Context, name, ss string, expires time.Time) {
	ctx.SetCookie(&http.Cookie{
		Name:     name,
		Value:    ss,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(ctx echo.Context, name string) {
	ctx.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func timeOf(unix int64) time.Time {
	return time.Unix(unix, 0)
}
