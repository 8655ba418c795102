package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/codetrail/codetrail/apps/api/echo"
	"github.com/codetrail/codetrail/core/dashboard"
	"github.com/codetrail/codetrail/core/resolver"
	"github.com/codetrail/codetrail/core/role"
	"github.com/codetrail/codetrail/tests"
)

func decodeLogin(t *testing.T, data []byte) LoginResponse {
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func Test_authApi_login(t *testing.T) {
	e := setup(t)
	testutil.CreateUser(t, e.usrRepo, "Hero", "hero@test.cd", pwd, role.Student, true)
	testutil.CreateUser(t, e.usrRepo, "N Dog", "ndog@test.cd", pwd, role.Student, false)

	invalidCreds := marshallObj(t, httpErr{Error: "Invalid email or password."})
	runHTTPTests(t, e.app, []httpTest{
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/auth/login", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"this field is required","password":"this field is required"}`),
		},
		{
			name: "invalid email", method: http.MethodPost, path: "/v1/auth/login",
			body: []byte(`{"email":"hero","password":"x"}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"enter a valid email address"}`),
		},
		{
			name: "unknown email", method: http.MethodPost, path: "/v1/auth/login",
			body: []byte(`{"email":"lol@test.cd","password":"` + pwd + `"}`), wantCode: http.StatusBadRequest, wantData: invalidCreds,
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/auth/login",
			body: []byte(`{"email":"hero@test.cd","password":"lol"}`), wantCode: http.StatusBadRequest, wantData: invalidCreds,
		},
		{
			name: "inactive", method: http.MethodPost, path: "/v1/auth/login",
			body: []byte(`{"email":"ndog@test.cd","password":"` + pwd + `"}`), wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "This account has been disabled."}),
		},
	})

	tests := []struct {
		name         string
		path         string
		wantRedirect string
	}{
		{name: "no from", path: "/v1/auth/login", wantRedirect: "/"},
		{name: "from", path: "/v1/auth/login?from=%2Fdashboard%2Fstudent%2Fmy-courses", wantRedirect: "/dashboard/student/my-courses"},
		{name: "foreign from", path: "/v1/auth/login?from=%2F%2Fevil.test", wantRedirect: "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, tt.path, []byte(`{"email":" HERO@test.cd","password":"`+pwd+`"}`))
			e.app.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			resp := decodeLogin(t, rec.Body.Bytes())
			assert.Equal(t, tt.wantRedirect, resp.Redirect)
			assert.Equal(t, "hero@test.cd", resp.Identity.Email)
			claims, err := e.tokens.Parse(resp.Token)
			require.NoError(t, err)
			assert.Equal(t, "hero@test.cd", claims.Email)

			var cookie *http.Cookie
			for _, c := range rec.Result().Cookies() {
				if c.Name == cookieName {
					cookie = c
				}
			}
			if assert.NotNil(t, cookie) {
				assert.Equal(t, resp.Token, cookie.Value)
				assert.True(t, cookie.HttpOnly)
			}
		})
	}
}

func Test_authApi_register(t *testing.T) {
	e := setup(t)
	testutil.CreateUser(t, e.usrRepo, "King", "king@test.cd", pwd, role.Teacher, true)

	runHTTPTests(t, e.app, []httpTest{
		{
			name: "weak password", method: http.MethodPost, path: "/v1/auth/register",
			body:     []byte(`{"name":"Awe","email":"awe@test.cd","password":"12345678","password_confirm":"12345678"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"password":"password cannot be entirely numeric"}`),
		},
		{
			name: "password mismatch", method: http.MethodPost, path: "/v1/auth/register",
			body:     []byte(`{"name":"Awe","email":"awe@test.cd","password":"` + pwd + `","password_confirm":"x"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"password_confirm":"the two fields do not match"}`),
		},
		{
			name: "email taken", method: http.MethodPost, path: "/v1/auth/register",
			body:     []byte(`{"name":"Awe","email":"KING@test.cd","password":"` + pwd + `","password_confirm":"` + pwd + `"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"email":"a user with this email already exists"}`),
		},
	})

	req, rec := newRequest(http.MethodPost, "/v1/auth/register",
		[]byte(`{"name":"Awe","email":"awe@test.cd","password":"`+pwd+`","password_confirm":"`+pwd+`"}`))
	e.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeLogin(t, rec.Body.Bytes())

	// new accounts are students
	req, rec = newAuthRequest(http.MethodGet, "/dashboard/student", resp.Token)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_authApi_session(t *testing.T) {
	e := setup(t)
	teacher := testutil.CreateUser(t, e.usrRepo, "Teacher", "teacher@test.cd", pwd, role.Teacher, true)
	d := dashboard.ComposeOrDefault(role.Teacher)

	runHTTPTests(t, e.app, []httpTest{
		{name: "auth required", path: "/v1/session", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{
			name: "ok", path: "/v1/session", token: e.getToken(t, teacher), wantCode: http.StatusOK,
			wantData: marshallObj(t, SessionResponse{Identity: teacher.Identity(), Role: resolver.State{Role: role.Teacher}, Dashboard: &d}),
		},
	})
}

func Test_authApi_refetch(t *testing.T) {
	fetcher := testutil.NewFetcher().Script("awe@test.cd",
		testutil.FetchResult{Err: assert.AnError},
		testutil.FetchResult{Err: assert.AnError},
		testutil.FetchResult{Role: role.Admin},
	)
	e := setup(t, fetcher)
	awe := testutil.CreateUser(t, e.usrRepo, "Awe", "awe@test.cd", pwd, role.Student, true)
	token := e.getToken(t, awe)

	req, rec := newAuthRequest(http.MethodGet, "/dashboard/admin", token)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, 2, fetcher.Calls("awe@test.cd"))

	// settled: no automatic third call
	req, rec = newAuthRequest(http.MethodGet, "/dashboard/admin", token)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, 2, fetcher.Calls("awe@test.cd"))

	req, rec = newAuthRequest(http.MethodPost, "/v1/session/refetch", token)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, fetcher.Calls("awe@test.cd"))

	req, rec = newAuthRequest(http.MethodGet, "/dashboard/admin", token)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_authApi_refreshToken(t *testing.T) {
	e := setup(t)
	awe := testutil.CreateUser(t, e.usrRepo, "Awe", "awe@test.cd", pwd, role.Student, true)
	ndog := testutil.CreateUser(t, e.usrRepo, "N Dog", "ndog@test.cd", pwd, role.Student, false)

	runHTTPTests(t, e.app, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/auth/token-refresh", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{
			name: "inactive", method: http.MethodPost, path: "/v1/auth/token-refresh", token: e.getToken(t, ndog),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "ok", method: http.MethodPost, path: "/v1/auth/token-refresh", token: e.getToken(t, awe), wantCode: http.StatusOK},
	})
}

func Test_userApi_updateProfile(t *testing.T) {
	e := setup(t)
	awe := testutil.CreateUser(t, e.usrRepo, "Awe", "awe@test.cd", pwd, role.Student, true)
	token := e.getToken(t, awe)

	runHTTPTests(t, e.app, []httpTest{
		{name: "auth required", method: http.MethodPatch, path: "/v1/profile", wantCode: http.StatusUnauthorized},
		{
			name: "invalid avatar", method: http.MethodPatch, path: "/v1/profile", token: token, body: []byte(`{"avatar_url":"lol"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"avatar_url":"enter a valid URL"}`),
		},
	})

	req, rec := newAuthRequest(http.MethodPatch, "/v1/profile", token, []byte(`{"display_name":"Awe K","avatar_url":"https://cdn.test.cd/a.png"}`))
	e.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeLogin(t, rec.Body.Bytes())
	assert.Equal(t, "Awe K", resp.Identity.DisplayName)
	assert.Equal(t, "https://cdn.test.cd/a.png", resp.Identity.AvatarURL)

	claims, err := e.tokens.Parse(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "Awe K", claims.Name)
}

func Test_userApi_changeRole(t *testing.T) {
	e := setup(t)
	admin := testutil.CreateUser(t, e.usrRepo, "Admin", "admin@test.cd", pwd, role.Admin, true)
	student := testutil.CreateUser(t, e.usrRepo, "Hero", "hero@test.cd", pwd, role.Student, true)
	adminToken := e.getToken(t, admin)
	studentToken := e.getToken(t, student)

	// cache the student role
	req, rec := newAuthRequest(http.MethodGet, "/dashboard/student", studentToken)
	e.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	runHTTPTests(t, e.app, []httpTest{
		{name: "auth required", method: http.MethodPut, path: "/v1/users/role", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{
			name: "admin required", method: http.MethodPut, path: "/v1/users/role", token: studentToken,
			body:     []byte(`{"email":"hero@test.cd","role":"admin"}`),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "unknown role", method: http.MethodPut, path: "/v1/users/role", token: adminToken,
			body: []byte(`{"email":"hero@test.cd","role":"principal"}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown user", method: http.MethodPut, path: "/v1/users/role", token: adminToken,
			body: []byte(`{"email":"lol@test.cd","role":"teacher"}`), wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "ok", method: http.MethodPut, path: "/v1/users/role", token: adminToken,
			body: []byte(`{"email":"hero@test.cd","role":"teacher"}`), wantCode: http.StatusOK,
		},
	})

	_, found, _ := e.cache.Get(context.Background(), "hero@test.cd")
	assert.False(t, found)

	req, rec = newAuthRequest(http.MethodGet, "/dashboard/teacher", studentToken)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	req, rec = newAuthRequest(http.MethodGet, "/dashboard/student", studentToken)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/v1/users", adminToken)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
