// Package dashboard builds the role-specific navigation and theme.
package dashboard

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/codetrail/codetrail/core/role"
)

var ErrNoRole = errors.New("dashboard: no role")

type (
	NavItem struct {
		Label string `json:"label"`
		Path  string `json:"path"`
		Icon  string `json:"icon"`
	}

	Theme struct {
		Sidebar string `json:"sidebar"`
		Text    string `json:"text"`
	}

	Dashboard struct {
		Role       role.Role `json:"role"`
		Title      string    `json:"title"`
		Home       string    `json:"home"`
		Theme      Theme     `json:"theme"`
		Navigation []NavItem `json:"navigation"`
	}
)

// Compose returns the dashboard of r. Every known role must have a case.
func Compose(r role.Role) (Dashboard, error) {
	var d Dashboard
	switch r {
	case role.Student:
		d = Dashboard{Theme: Theme{Sidebar: "#023e7d", Text: "#E0E7FF"}, Navigation: studentNav()}
	case role.Teacher:
		d = Dashboard{Theme: Theme{Sidebar: "#3a5a40", Text: "#E0F2FE"}, Navigation: teacherNav()}
	case role.Admin:
		d = Dashboard{Theme: Theme{Sidebar: "#30011E", Text: "#E2E8F0"}, Navigation: adminNav()}
	case role.None:
		return Dashboard{}, ErrNoRole
	default:
		return Dashboard{}, errors.Wrapf(role.ErrUnknown, "composing dashboard for %d", int(r))
	}
	d.Role = r
	d.Title = fmt.Sprintf("CodeTrail (%s)", r)
	d.Home = d.Navigation[0].Path
	return d, nil
}

// ComposeOrDefault falls back to the student dashboard when r cannot be composed.
func ComposeOrDefault(r role.Role) Dashboard {
	d, err := Compose(r)
	if err != nil {
		d, _ = Compose(role.Student)
	}
	return d
}

func studentNav() []NavItem {
	return []NavItem{
		{Label: "Dashboard", Path: "/dashboard/student/student-dashboard", Icon: "home"},
		{Label: "My Courses", Path: "/dashboard/student/my-courses", Icon: "clipboard-check"},
		{Label: "Upcoming Tasks", Path: "/dashboard/student/upcoming-tasks", Icon: "book-open"},
		{Label: "Assignments", Path: "/dashboard/student/assignments", Icon: "clipboard-check"},
		{Label: "View Grades", Path: "/dashboard/student/view-grades", Icon: "chart-pie"},
		{Label: "Announcements", Path: "/dashboard/student/student-announcements", Icon: "megaphone"},
		{Label: "Communication", Path: "/dashboard/student/communication", Icon: "megaphone"},
		{Label: "Teacher Request", Path: "/dashboard/student/teacher-request", Icon: "megaphone"},
		{Label: "Student Profile", Path: "/profile", Icon: "user-round"},
	}
}

func teacherNav() []NavItem {
	return []NavItem{
		{Label: "Dashboard", Path: "/dashboard/teacher-dashboard", Icon: "layout-dashboard"},
		{Label: "Upload Video", Path: "/dashboard/teacher/upload-video", Icon: "book-open"},
		{Label: "My Uploaded Video", Path: "/dashboard/teacher/my-upload-video", Icon: "file-spreadsheet"},
		{Label: "Create Assignments", Path: "/dashboard/teacher/create-assignments", Icon: "file-text"},
		{Label: "Uploaded Assignments", Path: "/dashboard/teacher/uploaded-assignments", Icon: "file-text"},
		{Label: "Student Grades", Path: "/dashboard/teacher/student-grades", Icon: "graduation-cap"},
		{Label: "Announcements", Path: "/dashboard/teacher/announcements", Icon: "megaphone"},
		{Label: "Communication", Path: "/dashboard/teacher/teacher-communication", Icon: "message-square"},
		{Label: "Teacher Profile", Path: "/profile", Icon: "user-circle"},
	}
}

func adminNav() []NavItem {
	return []NavItem{
		{Label: "Dashboard", Path: "/dashboard/admin/admin-dashboard", Icon: "home"},
		{Label: "Manage Students", Path: "/dashboard/admin/students", Icon: "users"},
		{Label: "Manage Teachers", Path: "/dashboard/admin/teachers", Icon: "briefcase"},
		{Label: "Video Library", Path: "/dashboard/admin/video-library", Icon: "book-open"},
		{Label: "Quizzes & Exams", Path: "/dashboard/admin/quizzes-exams", Icon: "graduation-cap"},
		{Label: "Manage Assignments", Path: "/dashboard/admin/manage-assignments", Icon: "calendar-check"},
		{Label: "Announcements", Path: "/dashboard/admin/announcements", Icon: "megaphone"},
		{Label: "Reports & Analytics", Path: "/dashboard/admin/reports", Icon: "bar-chart-3"},
		{Label: "Student Request", Path: "/dashboard/admin/student-request", Icon: "settings"},
		{Label: "Admin Profile", Path: "/profile", Icon: "folder-open"},
	}
}
