package repos

import (
	"github.com/jmoiron/sqlx"

	"orderbot/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) List() ([]domain.Product, error) {
	var out []domain.Product
	err := r.db.Select(&out, `
	  SELECT id, name, price, stock, created_at, COALESCE(updated_at,'') AS updated_at
	  FROM products
	  ORDER BY LOWER(name)
	`)
	return out, err
}

func (r *ProductRepo) Get(id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, `
	  SELECT id, name, price, stock, created_at, COALESCE(updated_at,'') AS updated_at
	  FROM products
	  WHERE id = ?
	`, id)
	return p, err
}

// FindExact returns products whose name equals the token, case-insensitively.
// The unique nocase index on name makes this at most one row.
func (r *ProductRepo) FindExact(token string) ([]domain.Product, error) {
	var out []domain.Product
	err := r.db.Select(&out, `
	  SELECT id, name, price, stock, created_at, COALESCE(updated_at,'') AS updated_at
	  FROM products
	  WHERE LOWER(name) = LOWER(?)
	`, token)
	return out, err
}

// FindSubstring returns every product whose name contains the token,
// case-insensitively. The resolver decides what to do with multiple hits.
func (r *ProductRepo) FindSubstring(token string) ([]domain.Product, error) {
	var out []domain.Product
	err := r.db.Select(&out, `
	  SELECT id, name, price, stock, created_at, COALESCE(updated_at,'') AS updated_at
	  FROM products
	  WHERE LOWER(name) LIKE '%' || LOWER(?) || '%'
	  ORDER BY LOWER(name)
	`, token)
	return out, err
}

// Stock reads the current stock figure outside any transaction; used to
// refresh before retrying a lost decrement race.
func (r *ProductRepo) Stock(id string) (int, error) {
	var qty int
	err := r.db.Get(&qty, `SELECT stock FROM products WHERE id = ?`, id)
	return qty, err
}
