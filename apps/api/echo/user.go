package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/codetrail/codetrail/core"
	"github.com/codetrail/codetrail/core/dashboard"
	"github.com/codetrail/codetrail/core/identity"
	"github.com/codetrail/codetrail/core/resolver"
	"github.com/codetrail/codetrail/core/role"
	"github.com/codetrail/codetrail/core/user"
	"github.com/codetrail/codetrail/services/identity/local"
	"github.com/codetrail/codetrail/services/identity/token"
)

type authApi struct {
	opts Options
	deps Deps
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts Options, deps Deps) {
	api := authApi{opts: opts, deps: deps}

	ag := g.Group("/auth")
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)
	ag.POST("/logout", api.logout)
	ag.POST("/token-refresh", api.refreshToken, jwt)

	sg := g.Group("/session", jwt)
	sg.GET("", api.session)
	sg.POST("/refetch", api.refetch)
}

type userApi struct {
	opts Options
	deps Deps
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts Options, deps Deps) {
	api := userApi{opts: opts, deps: deps}

	g.PATCH("/profile", api.updateProfile, jwt)

	ug := g.Group("/users", jwt, requireRole(role.Admin, deps.Tokens, deps.Resolver, opts.ResolveWait))
	ug.GET("", api.query)
	ug.PUT("/role", api.changeRole)
}

// Handlers

// provider signs one principal in for the duration of a request.
func (api *authApi) provider() *localidp.Provider {
	return localidp.New(api.deps.Users, api.deps.Tokens)
}

func (api *authApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}

	p := api.provider()
	idn, err := p.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	resp, err := api.signIn(ctx, p.Token(), idn, "/")
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, resp)
}

func (api *authApi) login(ctx echo.Context) error {
	var data identity.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}
	var rt ReturnTo
	rt.Bind(ctx)

	p := api.provider()
	idn, err := p.Login(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	resp, err := api.signIn(ctx, p.Token(), idn, rt.Location)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *authApi) signIn(ctx echo.Context, ss string, idn identity.Identity, redirect string) (LoginResponse, error) {
	claims, err := api.deps.Tokens.Parse(ss)
	if err != nil {
		return LoginResponse{}, errors.Wrap(err, "reading issued token")
	}
	setSessionCookie(ctx, api.opts.SessionCookie, ss, timeOf(claims.ExpiresAt))

	// warm the role up; the redirect target will ask for it
	api.deps.Resolver.Resolve(ctx.Request().Context(), idn.Email)
	return LoginResponse{Token: ss, Identity: idn, Redirect: redirect}, nil
}

// logout forgets the cached role before answering, whatever the state of the session.
func (api *authApi) logout(ctx echo.Context) error {
	if claims, ok := sessionClaims(ctx, api.deps.Tokens, api.opts.SessionCookie); ok {
		if err := api.deps.Resolver.Invalidate(ctx.Request().Context(), claims.Email); err != nil {
			api.deps.Logger.Warn("logout: invalidating role", err, claims.Identity())
		}
	}
	clearSessionCookie(ctx, api.opts.SessionCookie)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx, api.deps.Tokens)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	// check if user is still active
	usr, err := api.deps.Users.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errUnauthorized
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return errAccountDeactivated
	}

	ss, err := api.deps.Tokens.Refresh(&claims, usr.Identity())
	if err != nil {
		if errors.Cause(err) == token.ErrRefreshExpired {
			return errRefreshExpired
		}
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: ss, Identity: usr.Identity()})
}

func (api *authApi) session(ctx echo.Context) error {
	idn, err := getContextIdentity(ctx, api.deps.Tokens)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	st := waitRole(ctx, api.deps.Resolver, idn.Email, api.opts.ResolveWait)
	return ctx.JSON(http.StatusOK, newSessionResponse(idn, st))
}

func (api *authApi) refetch(ctx echo.Context) error {
	idn, err := getContextIdentity(ctx, api.deps.Tokens)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	if _, err = api.deps.Resolver.Refetch(ctx.Request().Context(), idn.Email); err != nil {
		api.deps.Logger.Warn("refetch: deleting cached role", err, idn)
	}
	st := waitRole(ctx, api.deps.Resolver, idn.Email, api.opts.ResolveWait)
	return ctx.JSON(http.StatusOK, newSessionResponse(idn, st))
}

func (api *userApi) updateProfile(ctx echo.Context) error {
	claims, err := getContextClaims(ctx, api.deps.Tokens)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data user.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	usr, err := api.deps.Users.UpdateProfile(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating profile")
	}

	// the token carries the profile, hand out a fresh one
	idn := usr.Identity()
	ss, err := api.deps.Tokens.Sign(api.deps.Tokens.Claims(usr.ID, idn, claims.OrigIssuedAt))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: ss, Identity: idn})
}

func (api *userApi) query(ctx echo.Context) error {
	users, err := api.deps.Users.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

// changeRole moves a user to another role; the next check of that user fetches it anew.
func (api *userApi) changeRole(ctx echo.Context) error {
	var data user.ChangeRole
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangeRole")
	}

	usr, err := api.deps.Users.ChangeRole(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		if errors.Cause(err) == role.ErrUnknown {
			return core.NewValidationError(err, core.FieldError{Field: "role", Error: err.Error()})
		}
		return errors.Wrap(err, "changing role")
	}
	if err = api.deps.Resolver.Invalidate(ctx.Request().Context(), usr.Email); err != nil {
		api.deps.Logger.Warn("changeRole: invalidating role", err)
	}
	return ctx.JSON(http.StatusOK, usr)
}

type (
	LoginResponse struct {
		Token    string            `json:"token"`
		Identity identity.Identity `json:"identity"`
		Redirect string            `json:"redirect,omitempty"`
	}

	SessionResponse struct {
		Identity  identity.Identity    `json:"identity"`
		Role      resolver.State       `json:"role"`
		Dashboard *dashboard.Dashboard `json:"dashboard"`
	}
)

// newSessionResponse includes the dashboard once the role is settled, falling back when it failed.
func newSessionResponse(idn identity.Identity, st resolver.State) SessionResponse {
	resp := SessionResponse{Identity: idn, Role: st}
	if !st.Loading {
		d := dashboard.ComposeOrDefault(st.Role)
		resp.Dashboard = &d
	}
	return resp
}
