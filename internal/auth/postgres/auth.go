package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/frahmantamala/plant-maintenance/internal/auth"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
	}
}

type profileRow struct {
	ID         string         `db:"id"`
	FirstName  string         `db:"first_name"`
	LastName   string         `db:"last_name"`
	Email      string         `db:"email"`
	Role       string         `db:"role"`
	Department sql.NullString `db:"department"`
	Status     string         `db:"status"`
}

type permissionRow struct {
	Name    string `db:"permission_name"`
	Granted bool   `db:"granted"`
}

func (r *Repository) GetCredentials(ctx context.Context, email string) (*auth.Credentials, error) {
	var creds auth.Credentials
	query := r.db.Rebind(`SELECT id, email, password_hash, status FROM employees WHERE lower(email) = lower(?)`)

	if err := r.db.GetContext(ctx, &creds, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrCredentialsNotFound
		}
		return nil, err
	}
	return &creds, nil
}

// GetProfile loads the employee row and its permission map.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*auth.Principal, error) {
	var row profileRow
	query := r.db.Rebind(`SELECT id, first_name, last_name, email, role, department, status
	             FROM employees WHERE id = ?`)

	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrProfileNotFound
		}
		return nil, err
	}

	role, err := auth.ParseRole(row.Role)
	if err != nil {
		// an unrecognised role grants nothing
		return nil, auth.ErrProfileNotFound
	}

	var perms []permissionRow
	permQuery := r.db.Rebind(`SELECT permission_name, granted
	             FROM employee_permissions
	             WHERE employee_id = ?`)
	if err := r.db.SelectContext(ctx, &perms, permQuery, userID); err != nil {
		return nil, err
	}

	permissions := make(map[string]bool, len(perms))
	for _, p := range perms {
		permissions[p.Name] = p.Granted
	}

	return &auth.Principal{
		ID:          row.ID,
		FullName:    strings.TrimSpace(row.FirstName + " " + row.LastName),
		Email:       row.Email,
		Role:        role,
		Department:  row.Department.String,
		Status:      row.Status,
		Permissions: permissions,
	}, nil
}
