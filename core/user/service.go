package user

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/trezcool/lalamika/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")

	// authentication errors. The non-admin messages are deliberately distinct
	// (legacy API behavior); the admin branch never distinguishes the two.
	ErrAuthenticationFailed = errors.New("invalid admin credentials")
	ErrEmailNotFound        = errors.New("email not found")
	ErrIncorrectPassword    = errors.New("incorrect password")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		GetUserByEmailAndRole(ctx context.Context, email, role string) (User, error)
		QueryUsersByRole(ctx context.Context, role string) ([]User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	ServiceInterface interface {
		CheckEmailUniqueness(ctx context.Context, email string) error
		Register(ctx context.Context, nu NewUser) (User, error)
		Authenticate(ctx context.Context, creds Credentials) (Principal, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		QueryStaff(ctx context.Context) ([]User, error)
		SetUserPassword(ctx context.Context, email, pwd string) (User, error)
		Stats(ctx context.Context) (Stats, error)
	}

	Service struct {
		repo Repository
		conf *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{repo: repo, conf: conf}
}

func (svc *Service) CheckEmailUniqueness(ctx context.Context, email string) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	usr := User{
		Email:      nu.Email,
		Name:       nu.Name,
		Department: nu.Department,
		Role:       nu.Role,
		CreatedAt:  time.Now().UTC(),
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Authenticate dispatches on the requested role: the admin branch checks the
// single configured credential pair and never touches the user store; any
// other role resolves a stored User by (email, role).
func (svc *Service) Authenticate(ctx context.Context, creds Credentials) (Principal, error) {
	if creds.Role == RoleAdmin {
		return svc.authenticateAdmin(creds)
	}

	usr, err := svc.repo.GetUserByEmailAndRole(ctx, creds.Email, creds.Role)
	if err != nil {
		if err == ErrNotFound {
			return Principal{}, ErrEmailNotFound
		}
		return Principal{}, err
	}
	if err = usr.CheckPassword(creds.Password); err != nil {
		return Principal{}, ErrIncorrectPassword
	}
	return NewPrincipal(usr), nil
}

func (svc *Service) authenticateAdmin(creds Credentials) (Principal, error) {
	admin := svc.conf.Admin
	if admin.Email == "" || admin.Password == "" {
		return Principal{}, ErrAuthenticationFailed
	}
	emailOK := subtle.ConstantTimeCompare([]byte(creds.Email), []byte(admin.Email)) == 1
	pwdOK := subtle.ConstantTimeCompare([]byte(creds.Password), []byte(admin.Password)) == 1
	if !(emailOK && pwdOK) {
		return Principal{}, ErrAuthenticationFailed
	}
	return NewAdminPrincipal(admin.Email), nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// QueryStaff lists staff users, for the admin assignment dropdown.
func (svc *Service) QueryStaff(ctx context.Context) ([]User, error) {
	return svc.repo.QueryUsersByRole(ctx, RoleStaff)
}

// SetUserPassword resets a stored user's password (ops CLI).
func (svc *Service) SetUserPassword(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, err
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	users, err := svc.repo.QueryAllUsers(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Total: len(users)}
	for _, usr := range users {
		switch usr.Role {
		case RoleStudent:
			stats.Students++
		case RoleStaff:
			stats.Staff++
		}
	}
	return stats, nil
}
