package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/lalamika/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleStaff   = "staff"
	RoleAdmin   = "admin" // configuration-only; never persisted
)

var (
	// RegisterableRoles can be picked at registration. The admin role cannot:
	// the admin identity comes from deployment configuration alone.
	RegisterableRoles = []string{RoleStudent, RoleStaff}

	AllRoles = []string{RoleStudent, RoleStaff, RoleAdmin}
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Department   string    `json:"department"`
	Role         string    `json:"role"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsStudent() bool { return u.Role == RoleStudent }
func (u *User) IsStaff() bool   { return u.Role == RoleStaff }

// Summary is the public display projection of a User (no credentials).
type Summary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department,omitempty"`
}

func (u User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name, Email: u.Email, Department: u.Department}
}

// Principal is whoever is acting on the system: either a stored User or the
// single configured admin identity. Downstream authorization code never
// special-cases where a Principal came from.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Name  string `json:"name"`
}

func NewPrincipal(usr User) Principal {
	return Principal{ID: usr.ID, Email: usr.Email, Role: usr.Role, Name: usr.Name}
}

func NewAdminPrincipal(email string) Principal {
	return Principal{ID: "admin", Email: email, Role: RoleAdmin, Name: "Admin"}
}

func (p Principal) IsAdmin() bool   { return p.Role == RoleAdmin }
func (p Principal) IsStaff() bool   { return p.Role == RoleStaff }
func (p Principal) IsStudent() bool { return p.Role == RoleStudent }

// NewUser contains information needed to register a new User.
type NewUser struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	Role       string `json:"role" validate:"required,regrole"`
	Name       string `json:"name" validate:"required"`
	Department string `json:"department" validate:"required"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Name = core.CleanString(nu.Name)
	nu.Department = core.CleanString(nu.Department)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, nu.Email)
}

// Credentials is a login request: the role picks the authentication branch.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,anyrole"`
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	return validate.Struct(c)
}

// Stats are the public user metrics, recomputed from a full scan on every call.
type Stats struct {
	Total    int `json:"total"`
	Students int `json:"students"`
	Staff    int `json:"staff"`
}
