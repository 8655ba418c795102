package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/codetrail/codetrail/core"
	"github.com/codetrail/codetrail/core/role"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound        = errors.New("user not found")
	ErrEmailExists     = errors.New("a user with this email already exists")
	ErrInvalidPassword = errors.New("invalid password")
	ErrInactive        = errors.New("account deactivated")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register creates an active student account.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	nu.Clean()
	if err := core.Validate.Struct(nu); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Email); err != nil {
		return User{}, err
	}
	return svc.create(ctx, nu.Name, nu.Email, nu.Password, role.Student)
}

func (svc *Service) create(ctx context.Context, name, email, pwd string, r role.Role) (User, error) {
	now := NowFunc().UTC()
	usr := User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Role:      r,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// AddUser updates or creates a user with the given role and password. No password policy applies.
func (svc *Service) AddUser(ctx context.Context, name, email, pwd string, r role.Role) (User, error) {
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)
	if !r.IsValid() {
		return User{}, role.ErrUnknown
	}

	usr, err := svc.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != ErrNotFound {
			return User{}, errors.Wrap(err, "finding user by email")
		}
		return svc.create(ctx, name, email, pwd, r)
	}
	if name != "" {
		usr.Name = name
	}
	usr.Role = r
	usr.IsActive = true
	usr.UpdatedAt = NowFunc().UTC()
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.UpdateUser(ctx, usr)
}

// Authenticate checks the password of email and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidPassword
	}
	if !usr.IsActive {
		return User{}, ErrInactive
	}
	usr.LastLogin = NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// RoleOf is the authoritative role of email. Inactive users have none.
func (svc *Service) RoleOf(ctx context.Context, email string) (role.Role, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return role.None, err
	}
	if !usr.IsActive {
		return role.None, ErrNotFound
	}
	return usr.Role, nil
}

func (svc *Service) UpdateProfile(ctx context.Context, id string, up UpdateProfile) (User, error) {
	up.Clean()
	if err := core.Validate.Struct(up); err != nil {
		return User{}, err
	}

	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if up.Name != nil && *up.Name != "" {
		usr.Name = *up.Name
	}
	if up.AvatarURL != nil {
		usr.AvatarURL = *up.AvatarURL
	}
	usr.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// ChangeRole moves a user to another role.
func (svc *Service) ChangeRole(ctx context.Context, cr ChangeRole) (User, error) {
	cr.Clean()
	if err := core.Validate.Struct(cr); err != nil {
		return User{}, err
	}
	r, err := role.Parse(cr.Role)
	if err != nil {
		return User{}, err
	}

	usr, err := svc.repo.GetUserByEmail(ctx, cr.Email)
	if err != nil {
		return User{}, err
	}
	usr.Role = r
	usr.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}
