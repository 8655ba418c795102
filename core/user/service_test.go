package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codetrail/codetrail/core"
	"github.com/codetrail/codetrail/core/role"
	"github.com/codetrail/codetrail/core/user"
	"github.com/codetrail/codetrail/tests"
)

const pwd = "Tr@il-2024!"

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc, repo := testutil.NewUserService()
	testutil.CreateUser(t, repo, "King", "king@test.cd", pwd, role.Teacher, true)

	tests := []struct {
		name    string
		nu      user.NewUser
		wantErr bool
	}{
		{name: "missing fields", nu: user.NewUser{}, wantErr: true},
		{name: "invalid email", nu: user.NewUser{Name: "Awe", Email: "awe", Password: pwd, PasswordConfirm: pwd}, wantErr: true},
		{name: "password mismatch", nu: user.NewUser{Name: "Awe", Email: "awe@test.cd", Password: pwd, PasswordConfirm: pwd + "x"}, wantErr: true},
		{name: "weak password", nu: user.NewUser{Name: "Awe", Email: "awe@test.cd", Password: "password", PasswordConfirm: "password"}, wantErr: true},
		{name: "email taken", nu: user.NewUser{Name: "King", Email: " KING@test.cd", Password: pwd, PasswordConfirm: pwd}, wantErr: true},
		{name: "ok", nu: user.NewUser{Name: " Awe ", Email: "AWE@test.cd ", Password: pwd, PasswordConfirm: pwd}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.Register(ctx, tt.nu)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, usr.ID)
			assert.Equal(t, "Awe", usr.Name)
			assert.Equal(t, "awe@test.cd", usr.Email)
			assert.Equal(t, role.Student, usr.Role)
			assert.True(t, usr.IsActive)
			assert.NoError(t, usr.CheckPassword(pwd))
		})
	}
}

func TestService_Register_errorTypes(t *testing.T) {
	ctx := context.Background()
	svc, repo := testutil.NewUserService()
	testutil.CreateUser(t, repo, "King", "king@test.cd", pwd, role.Teacher, true)

	_, err := svc.Register(ctx, user.NewUser{Name: "Awe", Email: "awe@test.cd", Password: "short", PasswordConfirm: "short"})
	_, ok := errors.Cause(err).(validator.ValidationErrors)
	assert.True(t, ok, "want validator.ValidationErrors, got %T", err)

	_, err = svc.Register(ctx, user.NewUser{Name: "Other", Email: "king@test.cd", Password: pwd, PasswordConfirm: pwd})
	verr, ok := err.(*core.ValidationError)
	require.True(t, ok, "want *core.ValidationError, got %T", err)
	assert.Equal(t, user.ErrEmailExists, verr.Err)
	assert.Equal(t, map[string]string{"email": user.ErrEmailExists.Error()}, verr.FieldMap())
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc, repo := testutil.NewUserService()
	testutil.CreateUser(t, repo, "Awe", "awe@test.cd", pwd, role.Student, true)
	testutil.CreateUser(t, repo, "N Dog", "ndog@test.cd", pwd, role.Student, false)

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	user.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { user.NowFunc = time.Now })

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "unknown email", email: "lol@test.cd", pwd: pwd, wantErr: user.ErrNotFound},
		{name: "wrong password", email: "awe@test.cd", pwd: "nope", wantErr: user.ErrInvalidPassword},
		{name: "inactive", email: "ndog@test.cd", pwd: pwd, wantErr: user.ErrInactive},
		{name: "ok", email: " AWE@test.cd", pwd: pwd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.Authenticate(ctx, tt.email, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "awe@test.cd", usr.Email)
			assert.Equal(t, now, usr.LastLogin)
		})
	}
}

func TestService_RoleOf(t *testing.T) {
	ctx := context.Background()
	svc, repo := testutil.NewUserService()
	testutil.CreateUser(t, repo, "Awe", "awe@test.cd", pwd, role.Admin, true)
	testutil.CreateUser(t, repo, "N Dog", "ndog@test.cd", pwd, role.Teacher, false)

	r, err := svc.RoleOf(ctx, "Awe@Test.cd")
	assert.NoError(t, err)
	assert.Equal(t, role.Admin, r)

	r, err = svc.RoleOf(ctx, "ndog@test.cd")
	assert.Equal(t, user.ErrNotFound, err)
	assert.Equal(t, role.None, r)

	_, err = svc.RoleOf(ctx, "lol@test.cd")
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_ChangeRole(t *testing.T) {
	ctx := context.Background()
	svc, repo := testutil.NewUserService()
	testutil.CreateUser(t, repo, "Awe", "awe@test.cd", pwd, role.Student, true)

	tests := []struct {
		name     string
		cr       user.ChangeRole
		wantErr  bool
		wantRole role.Role
	}{
		{name: "unknown role", cr: user.ChangeRole{Email: "awe@test.cd", Role: "principal"}, wantErr: true},
		{name: "invalid email", cr: user.ChangeRole{Email: "awe", Role: "teacher"}, wantErr: true},
		{name: "unknown user", cr: user.ChangeRole{Email: "lol@test.cd", Role: "teacher"}, wantErr: true},
		{name: "ok", cr: user.ChangeRole{Email: "AWE@test.cd", Role: " Teacher"}, wantRole: role.Teacher},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.ChangeRole(ctx, tt.cr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, usr.Role)

			r, err := svc.RoleOf(ctx, "awe@test.cd")
			assert.NoError(t, err)
			assert.Equal(t, tt.wantRole, r)
		})
	}
}

func TestService_AddUser(t *testing.T) {
	ctx := context.Background()
	svc, repo := testutil.NewUserService()
	testutil.CreateUser(t, repo, "Awe", "awe@test.cd", pwd, role.Student, false)

	_, err := svc.AddUser(ctx, "X", "x@test.cd", "pwd", role.None)
	assert.Equal(t, role.ErrUnknown, err)

	usr, err := svc.AddUser(ctx, "", "awe@test.cd", "simple", role.Admin)
	require.NoError(t, err)
	assert.Equal(t, "Awe", usr.Name)
	assert.Equal(t, role.Admin, usr.Role)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("simple"))

	usr, err = svc.AddUser(ctx, "Root", "ROOT@test.cd", "simple", role.Admin)
	require.NoError(t, err)
	assert.Equal(t, "root@test.cd", usr.Email)

	all, err := svc.QueryAll(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc, repo := testutil.NewUserService()
	awe := testutil.CreateUser(t, repo, "Awe", "awe@test.cd", pwd, role.Student, true)
	sPtr := func(s string) *string { return &s }

	_, err := svc.UpdateProfile(ctx, awe.ID, user.UpdateProfile{AvatarURL: sPtr("not a url")})
	assert.Error(t, err)

	_, err = svc.UpdateProfile(ctx, "lol", user.UpdateProfile{Name: sPtr("X")})
	assert.Equal(t, user.ErrNotFound, err)

	usr, err := svc.UpdateProfile(ctx, awe.ID, user.UpdateProfile{Name: sPtr(" "), AvatarURL: sPtr("https://cdn.test.cd/awe.png")})
	require.NoError(t, err)
	assert.Equal(t, "Awe", usr.Name)
	assert.Equal(t, "https://cdn.test.cd/awe.png", usr.AvatarURL)

	usr, err = svc.UpdateProfile(ctx, awe.ID, user.UpdateProfile{Name: sPtr("Awe Kabamba")})
	require.NoError(t, err)
	assert.Equal(t, "Awe Kabamba", usr.Name)
	assert.Equal(t, "https://cdn.test.cd/awe.png", usr.AvatarURL)
}
