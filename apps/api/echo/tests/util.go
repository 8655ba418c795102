package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	. "github.com/codetrail/codetrail/apps/api/echo"
	"github.com/codetrail/codetrail/core"
	"github.com/codetrail/codetrail/core/resolver"
	"github.com/codetrail/codetrail/core/user"
	"github.com/codetrail/codetrail/services/identity/token"
	"github.com/codetrail/codetrail/services/logger"
	"github.com/codetrail/codetrail/services/rolesvc"
	"github.com/codetrail/codetrail/storage/cache/inmem"
	"github.com/codetrail/codetrail/tests"
)

const (
	roleAPIKey = "r0le-k3y"
	cookieName = "codetrail_session"
	pwd        = "Tr@il-2024!"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	app      Server
	usrSvc   *user.Service
	usrRepo  user.Repository
	tokens   *token.Manager
	resolver *resolver.Resolver
	cache    *inmemcache.Cache
}

// setup starts a server on a fresh directory. Roles come from the directory unless fetcher is given.
func setup(t *testing.T, fetcher ...resolver.Fetcher) *env {
	return setupWith(t, func(*Options) {}, fetcher...)
}

// setupWith is setup with the server options adjusted by tweak.
func setupWith(t *testing.T, tweak func(*Options), fetcher ...resolver.Fetcher) *env {
	usrSvc, usrRepo := testutil.NewUserService()

	var f resolver.Fetcher = rolesvc.NewDirectory(usrSvc)
	if len(fetcher) > 0 {
		f = fetcher[0]
	}
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "API : ", 0), &core.Config{TestMode: true})
	cache := inmemcache.New()
	res := resolver.New(f, cache, resolver.Options{Timeout: time.Second, Logger: logger})
	t.Cleanup(res.Close)

	tokens := token.NewManager("CodeTrail", "secret", time.Hour, 4*time.Hour)
	opts := Options{
		TestMode:       true,
		DisableReqLogs: true,
		SessionCookie:  cookieName,
		ResolveWait:    200 * time.Millisecond,
		RoleAPIKey:     roleAPIKey,
	}
	tweak(&opts)
	app := NewServer(
		opts,
		Deps{
			Logger:   logger,
			Users:    usrSvc,
			Tokens:   tokens,
			Resolver: res,
		},
	)
	return &env{app: app, usrSvc: usrSvc, usrRepo: usrRepo, tokens: tokens, resolver: res, cache: cache}
}

func (e *env) getToken(t *testing.T, usr user.User) string {
	ss, err := e.tokens.Issue(usr.ID, usr.Identity())
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return ss
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app Server, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
