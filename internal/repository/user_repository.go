package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/fixpoint-io/fixpoint-api/internal/apperr"
	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/fixpoint-io/fixpoint-api/internal/scope"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	CreateUser(ctx context.Context, email, password, fullName string, role models.UserRole, permissions []string, locationID *string) (models.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (models.User, error)
	GetUserByID(ctx context.Context, userID string) (models.User, error)
	ListUsers(ctx context.Context, filter scope.Filter) ([]models.User, error)
	UpdateUserAccess(ctx context.Context, userID string, role models.UserRole, permissions []string, locationID *string) (models.User, error)
	DeactivateUser(ctx context.Context, userID string) error
	ListRecipientsByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
	ListRecipientsByLocation(ctx context.Context, locationID string) ([]models.User, error)
	ListActiveRecipients(ctx context.Context) ([]models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, full_name, password_hash, role, permissions, location_id, is_active, created_at, updated_at`

func (u *userRepository) CreateUser(ctx context.Context, email, password, fullName string, role models.UserRole, permissions []string, locationID *string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	fullName = strings.TrimSpace(fullName)
	if email == "" {
		return models.User{}, apperr.E(apperr.KindValidation, "email is required")
	}
	if len(password) < 8 {
		return models.User{}, apperr.E(apperr.KindValidation, "password must be at least 8 characters")
	}
	if !models.IsValidRole(role) {
		return models.User{}, apperr.E(apperr.KindValidation, "unknown role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	const query = `
		INSERT INTO users (email, full_name, password_hash, role, permissions, location_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING ` + userColumns

	row := u.db.QueryRowContext(ctx, query, email, fullName, string(hash), role, pq.Array(permissions), locationID)
	return scanUser(row)
}

func (u *userRepository) AuthenticateUser(ctx context.Context, email, password string) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1 AND deleted_at IS NULL`

	user, err := scanUser(u.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, apperr.E(apperr.KindUnauthorized, "invalid credentials")
		}
		return models.User{}, err
	}

	if !user.IsActive {
		return models.User{}, apperr.E(apperr.KindUnauthorized, "account is deactivated")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, apperr.E(apperr.KindUnauthorized, "invalid credentials")
	}
	return user, nil
}

func (u *userRepository) GetUserByID(ctx context.Context, userID string) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 AND deleted_at IS NULL`
	return scanUser(u.db.QueryRowContext(ctx, query, userID))
}

func (u *userRepository) ListUsers(ctx context.Context, filter scope.Filter) ([]models.User, error) {
	clause, args := filter.Clause("location_id", 1)
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE deleted_at IS NULL AND ` + clause + `
		ORDER BY email`

	rows, err := u.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (u *userRepository) UpdateUserAccess(ctx context.Context, userID string, role models.UserRole, permissions []string, locationID *string) (models.User, error) {
	if !models.IsValidRole(role) {
		return models.User{}, apperr.E(apperr.KindValidation, "unknown role %q", role)
	}

	const query = `
		UPDATE users
		SET role = $2, permissions = $3, location_id = $4, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + userColumns

	return scanUser(u.db.QueryRowContext(ctx, query, userID, role, pq.Array(permissions), locationID))
}

func (u *userRepository) DeactivateUser(ctx context.Context, userID string) error {
	const query = `
		UPDATE users
		SET is_active = FALSE, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := u.db.ExecContext(ctx, query, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (u *userRepository) ListRecipientsByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = $1 AND is_active AND deleted_at IS NULL
		ORDER BY email`

	rows, err := u.db.QueryContext(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (u *userRepository) ListRecipientsByLocation(ctx context.Context, locationID string) ([]models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE location_id = $1 AND is_active AND deleted_at IS NULL
		ORDER BY email`

	rows, err := u.db.QueryContext(ctx, query, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (u *userRepository) ListActiveRecipients(ctx context.Context) ([]models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE is_active AND deleted_at IS NULL
		ORDER BY email`

	rows, err := u.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func scanUser(scanner interface {
	Scan(dest ...interface{}) error
}) (models.User, error) {
	var (
		user        models.User
		permissions pq.StringArray
		locationID  sql.NullString
	)
	if err := scanner.Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&user.Role,
		&permissions,
		&locationID,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return models.User{}, err
	}
	user.Permissions = permissions
	if locationID.Valid {
		val := locationID.String
		user.LocationID = &val
	}
	return user, nil
}

func scanUsers(rows *sql.Rows) ([]models.User, error) {
	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
