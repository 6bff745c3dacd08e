package postgres

import (
	"context"

	"github.com/frahmantamala/plant-maintenance/internal/dashboard"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) dashboard.RepositoryAPI {
	return &Repository{db: db}
}

type groupCount struct {
	Key   string `db:"group_key"`
	Count int    `db:"count"`
}

func (r *Repository) grouped(ctx context.Context, query string, args ...interface{}) (map[string]int, error) {
	var rows []groupCount
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Count
	}
	return out, nil
}

// EmployeesByRole counts employees who have not been terminated.
func (r *Repository) EmployeesByRole(ctx context.Context) (map[string]int, error) {
	return r.grouped(ctx, `SELECT role AS group_key, COUNT(*) AS count
	             FROM employees WHERE status <> ? GROUP BY role`, "Terminated")
}

func (r *Repository) MachinesByStatus(ctx context.Context) (map[string]int, error) {
	return r.grouped(ctx, `SELECT status AS group_key, COUNT(*) AS count FROM machines GROUP BY status`)
}

func (r *Repository) PartCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM parts`)
	return n, err
}

func (r *Repository) LowStockParts(ctx context.Context, threshold int) ([]dashboard.LowStockPart, error) {
	var parts []dashboard.LowStockPart
	query := r.db.Rebind(`SELECT id, name, stock FROM parts WHERE stock <= ? ORDER BY stock ASC, name ASC`)
	if err := r.db.SelectContext(ctx, &parts, query, threshold); err != nil {
		return nil, err
	}
	return parts, nil
}
