package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/lalamika/core/user"
)

const pqUniqueViolation = "23505"

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

type userRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	Department   string    `db:"department"`
	Role         string    `db:"role"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r userRow) unmarshal() user.User {
	return user.User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		Department:   r.Department,
		Role:         r.Role,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

func marshalUser(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Email:        usr.Email,
		Name:         usr.Name,
		Department:   usr.Department,
		Role:         usr.Role,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
	}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return string(pqErr.Code) == pqUniqueViolation
	}
	return false
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string) error {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM "user" WHERE email = $1)`
	if err := repo.db.GetContext(ctx, &exists, q, email); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	q := `INSERT INTO "user" (id, email, name, department, role, password_hash, created_at)
	      VALUES (:id, :email, :name, :department, :role, :password_hash, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, marshalUser(usr)); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	var row userRow
	q := `SELECT * FROM "user" WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return user.User{}, trapNoRowsErr(err, "getting user by id")
	}
	return row.unmarshal(), nil
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	q := `SELECT * FROM "user" WHERE email = $1`
	if err := repo.db.GetContext(ctx, &row, q, email); err != nil {
		return user.User{}, trapNoRowsErr(err, "getting user by email")
	}
	return row.unmarshal(), nil
}

func (repo *userRepository) GetUserByEmailAndRole(ctx context.Context, email, role string) (user.User, error) {
	var row userRow
	q := `SELECT * FROM "user" WHERE email = $1 AND role = $2`
	if err := repo.db.GetContext(ctx, &row, q, email, role); err != nil {
		return user.User{}, trapNoRowsErr(err, "getting user by email and role")
	}
	return row.unmarshal(), nil
}

func (repo *userRepository) QueryUsersByRole(ctx context.Context, role string) ([]user.User, error) {
	var rows []userRow
	q := `SELECT * FROM "user" WHERE role = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, role); err != nil {
		return nil, errors.Wrap(err, "querying users by role")
	}
	return unmarshalUsers(rows), nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	q := `SELECT * FROM "user" ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying all users")
	}
	return unmarshalUsers(rows), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE "user" SET email = :email, name = :name, department = :department,
	      role = :role, password_hash = :password_hash WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, marshalUser(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func unmarshalUsers(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.unmarshal())
	}
	return users
}
