package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/codetrail/codetrail/core/dashboard"
	"github.com/codetrail/codetrail/core/guard"
	"github.com/codetrail/codetrail/core/identity"
	"github.com/codetrail/codetrail/core/resolver"
	"github.com/codetrail/codetrail/core/user"
	"github.com/codetrail/codetrail/services/rolesvc"
)

type pages struct {
	deps Deps
}

func registerPages(e *echo.Echo, opts Options, deps Deps) {
	p := pages{deps: deps}

	e.GET(guard.LoginPath, p.login)
	e.GET(guard.UnauthorizedPath, p.unauthorized)

	gm := guardMiddleware(opts, deps)
	e.GET("/profile", p.profile, gm)
	e.GET("/dashboard", p.dashboard, gm)
	e.GET("/dashboard/*", p.dashboard, gm)
}

func (p *pages) login(ctx echo.Context) error {
	var rt ReturnTo
	rt.Bind(ctx)
	return ctx.JSON(http.StatusOK, LoginPage{From: rt.Location})
}

func (p *pages) unauthorized(ctx echo.Context) error {
	return ctx.JSON(http.StatusForbidden, echo.Map{"error": "You are not allowed to view this page."})
}

func (p *pages) profile(ctx echo.Context) error {
	idn, ok := pageIdentity(ctx)
	if !ok {
		return errUnauthorized
	}
	return ctx.JSON(http.StatusOK, ProfilePage{Identity: idn, Role: pageRole(ctx)})
}

// dashboard renders the navigation of the caller's role for any location under /dashboard.
func (p *pages) dashboard(ctx echo.Context) error {
	idn, ok := pageIdentity(ctx)
	if !ok {
		return errUnauthorized
	}
	st := pageRole(ctx)
	return ctx.JSON(http.StatusOK, DashboardPage{
		Location:  ctx.Request().URL.Path,
		Identity:  idn,
		Dashboard: dashboard.ComposeOrDefault(st.Role),
	})
}

type (
	LoginPage struct {
		From string `json:"from"`
	}

	ProfilePage struct {
		Identity identity.Identity `json:"identity"`
		Role     resolver.State    `json:"role"`
	}

	DashboardPage struct {
		Location  string              `json:"location"`
		Identity  identity.Identity   `json:"identity"`
		Dashboard dashboard.Dashboard `json:"dashboard"`
	}
)

// registerRoleAPI serves the role lookup the resolver of another instance may call.
func registerRoleAPI(e *echo.Echo, opts Options, deps Deps) {
	e.GET(rolesvc.RolePath, func(ctx echo.Context) error {
		email := ctx.QueryParam(rolesvc.EmailParam)
		if email == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "email is required")
		}
		r, err := deps.Users.RoleOf(ctx.Request().Context(), email)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding role")
		}
		return ctx.JSON(http.StatusOK, rolesvc.Response{Role: r.String()})
	}, roleKeyAuth(opts.RoleAPIKey, opts.Debug || opts.TestMode))
}
