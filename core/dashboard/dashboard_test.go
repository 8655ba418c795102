package dashboard

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/codetrail/codetrail/core/guard"
	"github.com/codetrail/codetrail/core/role"
)

func TestCompose(t *testing.T) {
	tests := []struct {
		role      role.Role
		wantHome  string
		wantTheme Theme
		wantLen   int
	}{
		{role.Student, "/dashboard/student/student-dashboard", Theme{"#023e7d", "#E0E7FF"}, 9},
		{role.Teacher, "/dashboard/teacher-dashboard", Theme{"#3a5a40", "#E0F2FE"}, 9},
		{role.Admin, "/dashboard/admin/admin-dashboard", Theme{"#30011E", "#E2E8F0"}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			d, err := Compose(tt.role)
			assert.NoError(t, err)
			assert.Equal(t, tt.role, d.Role)
			assert.Equal(t, tt.wantHome, d.Home)
			assert.Equal(t, tt.wantTheme, d.Theme)
			assert.Len(t, d.Navigation, tt.wantLen)
			assert.Equal(t, "CodeTrail ("+tt.role.String()+")", d.Title)
			assert.Equal(t, "/profile", d.Navigation[len(d.Navigation)-1].Path)
		})
	}
}

func TestCompose_NavigationIsReachable(t *testing.T) {
	routes := guard.DefaultRoutes()
	for _, r := range role.All() {
		d, err := Compose(r)
		assert.NoError(t, err)
		for _, item := range d.Navigation {
			assert.NotEmpty(t, item.Label)
			assert.NotEmpty(t, item.Icon)
			route, found := routes.Lookup(item.Path)
			if !assert.True(t, found, item.Path) {
				continue
			}
			// every entry is protected and reachable by the role that sees it
			if route.RequiredRole != role.None {
				assert.Equal(t, r, route.RequiredRole, item.Path)
			}
			if strings.HasPrefix(item.Path, "/dashboard/") {
				assert.NotEqual(t, role.None, route.RequiredRole, item.Path)
			}
		}
	}
}

func TestCompose_NoRole(t *testing.T) {
	_, err := Compose(role.None)
	assert.Equal(t, ErrNoRole, err)

	_, err = Compose(role.Role(99))
	assert.Equal(t, role.ErrUnknown, errors.Cause(err))
}

func TestComposeOrDefault(t *testing.T) {
	student, _ := Compose(role.Student)
	assert.Equal(t, student, ComposeOrDefault(role.None))
	assert.Equal(t, student, ComposeOrDefault(role.Role(99)))

	admin, _ := Compose(role.Admin)
	assert.Equal(t, admin, ComposeOrDefault(role.Admin))
}
