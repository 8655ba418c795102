package echoapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/codetrail/codetrail/core/guard"
	"github.com/codetrail/codetrail/core/identity"
	"github.com/codetrail/codetrail/core/resolver"
	"github.com/codetrail/codetrail/core/role"
	"github.com/codetrail/codetrail/services/identity/token"
)

// waitRole resolves the role of email for at most wait.
func waitRole(ctx echo.Context, res *resolver.Resolver, email string, wait time.Duration) resolver.State {
	c := ctx.Request().Context()
	if wait > 0 {
		var cancel context.CancelFunc
		c, cancel = context.WithTimeout(c, wait)
		defer cancel()
	}
	st := res.Wait(c, email)
	ctx.Set(contextRoleKey, st)
	return st
}

func retryAfter(ctx echo.Context, wait time.Duration) {
	secs := int(wait.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	ctx.Response().Header().Set("Retry-After", strconv.Itoa(secs))
}

// requireRole lets API requests through only for identities holding r.
// Must run after the JWT middleware.
func requireRole(r role.Role, tokens *token.Manager, res *resolver.Resolver, wait time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			idn, err := getContextIdentity(ctx, tokens)
			if err != nil {
				return errors.Wrap(err, "getting context identity")
			}
			st := waitRole(ctx, res, idn.Email, wait)
			if st.Loading {
				retryAfter(ctx, wait)
				return errRoleUnavailable
			}
			if st.Role != r {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// guardMiddleware runs the route guard for pages declared in routes.
// Checking answers 202 so the client retries; denials redirect.
func guardMiddleware(opts Options, deps Deps) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()
			route, ok := deps.Routes.Lookup(req.URL.Path)
			if !ok {
				return next(ctx)
			}

			in := guard.Input{RequiredRole: route.RequiredRole, Location: req.URL.RequestURI()}
			if claims, ok := sessionClaims(ctx, deps.Tokens, opts.SessionCookie); ok {
				idn := claims.Identity()
				in.Identity = &idn
				st := waitRole(ctx, deps.Resolver, idn.Email, opts.ResolveWait)
				in.RoleLoading = st.Loading
				in.Role = st.Role
			}

			out := guard.Evaluate(in)
			switch out.Decision {
			case guard.Checking:
				retryAfter(ctx, opts.ResolveWait)
				return ctx.JSON(http.StatusAccepted, echo.Map{"status": out.Decision})
			case guard.DeniedUnauthenticated, guard.DeniedWrongRole:
				return ctx.Redirect(http.StatusFound, out.Redirect)
			}
			if in.Identity != nil {
				ctx.Set(contextIdentityKey, *in.Identity)
			}
			return next(ctx)
		}
	}
}

// roleKeyAuth protects the role endpoint with a shared key.
// Without a key the endpoint is open only when open is set (debug and test runs); otherwise every caller is refused.
func roleKeyAuth(apiKey string, open bool) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Skipper: func(echo.Context) bool { return apiKey == "" && open },
		Validator: func(key string, _ echo.Context) (bool, error) {
			return apiKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1, nil
		},
	})
}

func pageIdentity(ctx echo.Context) (identity.Identity, bool) {
	idn, ok := ctx.Get(contextIdentityKey).(identity.Identity)
	return idn, ok
}

func pageRole(ctx echo.Context) resolver.State {
	st, _ := ctx.Get(contextRoleKey).(resolver.State)
	return st
}
