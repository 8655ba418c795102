// Package rolesvc answers "what role does this email hold".
//
// Client calls a CodeTrail role endpoint over HTTP; Directory asks the
// local user directory. Both satisfy resolver.Fetcher.
package rolesvc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/codetrail/codetrail/core/resolver"
	"github.com/codetrail/codetrail/core/role"
	"github.com/codetrail/codetrail/core/user"
)

const (
	RolePath   = "/users/role"
	EmailParam = "email"

	maxBodySize = 4 << 10
)

// Response is the body of a role lookup.
type Response struct {
	Role string `json:"role"`
}

// StatusError is a non-2xx answer of the role service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("role service: status %d: %s", e.Code, e.Body)
}

type Client struct {
	base   string
	apiKey string
	http   *http.Client
}

var _ resolver.Fetcher = (*Client)(nil)

// NewClient calls baseURL + RolePath. An empty apiKey sends no Authorization header.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		base:   strings.TrimSuffix(baseURL, "/"),
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

// FetchRole maps 404 to user.ErrNotFound and a role outside the enum to role.ErrUnknown.
func (c *Client) FetchRole(ctx context.Context, email string) (role.Role, error) {
	q := make(url.Values)
	q.Set(EmailParam, email)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+RolePath+"?"+q.Encode(), nil)
	if err != nil {
		return role.None, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return role.None, errors.Wrap(err, "requesting role")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return role.None, errors.Wrap(err, "reading response")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return role.None, user.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return role.None, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var res Response
	if err = json.Unmarshal(body, &res); err != nil {
		return role.None, errors.Wrap(err, "decoding response")
	}
	return role.Parse(res.Role)
}

// Directory resolves roles in-process.
type Directory struct {
	users *user.Service
}

var _ resolver.Fetcher = (*Directory)(nil)

func NewDirectory(users *user.Service) *Directory {
	return &Directory{users: users}
}

func (d *Directory) FetchRole(ctx context.Context, email string) (role.Role, error) {
	return d.users.RoleOf(ctx, email)
}
