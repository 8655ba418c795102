package guard

import (
	"sort"
	"strings"

	"github.com/codetrail/codetrail/core/role"
)

// Route declares a protected subtree.
type Route struct {
	Prefix       string    `json:"prefix"`
	RequiredRole role.Role `json:"required_role"`
}

// Routes is a protected-route table. Lookup picks the longest matching prefix.
type Routes struct {
	routes []Route
}

func NewRoutes(routes ...Route) *Routes {
	rs := &Routes{routes: append([]Route(nil), routes...)}
	sort.SliceStable(rs.routes, func(i, j int) bool {
		return len(rs.routes[i].Prefix) > len(rs.routes[j].Prefix)
	})
	return rs
}

// DefaultRoutes is the CodeTrail dashboard tree.
func DefaultRoutes() *Routes {
	return NewRoutes(
		Route{Prefix: "/profile"},
		Route{Prefix: "/dashboard"},
		// students only: teachers and admins have their own subtrees
		Route{Prefix: "/dashboard/student", RequiredRole: role.Student},
		Route{Prefix: "/dashboard/teacher", RequiredRole: role.Teacher},
		Route{Prefix: "/dashboard/teacher-dashboard", RequiredRole: role.Teacher},
		Route{Prefix: "/dashboard/admin", RequiredRole: role.Admin},
	)
}

// Lookup returns the route protecting path, if any.
func (rs *Routes) Lookup(path string) (Route, bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	for _, r := range rs.routes {
		if path == r.Prefix || strings.HasPrefix(path, strings.TrimSuffix(r.Prefix, "/")+"/") {
			return r, true
		}
	}
	return Route{}, false
}

// All lists the declared routes, longest prefix first.
func (rs *Routes) All() []Route {
	return append([]Route(nil), rs.routes...)
}
