package repos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"orderbot/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

// CreateWithItems persists an order, its line items, and the matching stock
// decrements as one transaction. Every decrement is conditional on the stock
// still covering the quantity at commit time; when a product lost that race
// the whole transaction rolls back and a *domain.StockConflictError naming
// the product is returned, so no partial order can ever persist.
func (r *OrderRepo) CreateWithItems(o domain.Order, items []domain.OrderItem) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
	  INSERT INTO orders(id, customer_ref, status, total, created_at)
	  VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, o.ID, o.CustomerRef, o.Status, o.Total); err != nil {
		return err
	}

	for _, it := range items {
		if _, err := tx.Exec(`
		  INSERT INTO order_items(order_id, product_id, quantity, unit_price)
		  VALUES (?, ?, ?, ?)
		`, o.ID, it.ProductID, it.Quantity, it.UnitPrice); err != nil {
			return err
		}

		res, err := tx.Exec(`
		  UPDATE products
		  SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP
		  WHERE id = ? AND stock >= ?
		`, it.Quantity, it.ProductID, it.Quantity)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &domain.StockConflictError{ProductID: it.ProductID}
		}
	}

	return tx.Commit()
}

// Get loads an order with its items. Item names come from the live catalog
// and fall back to the product id when the product no longer exists.
func (r *OrderRepo) Get(orderID string) (domain.Order, []domain.OrderItem, error) {
	var o domain.Order
	if err := r.db.Get(&o, `
	  SELECT id, customer_ref, status, total, created_at
	  FROM orders
	  WHERE id = ?
	`, orderID); err != nil {
		if err == sql.ErrNoRows {
			return domain.Order{}, nil, domain.ErrNotFound
		}
		return domain.Order{}, nil, err
	}

	var items []domain.OrderItem
	if err := r.db.Select(&items, `
	  SELECT oi.order_id, oi.product_id, COALESCE(p.name, oi.product_id) AS name,
	         oi.quantity, oi.unit_price
	  FROM order_items oi
	  LEFT JOIN products p ON p.id = oi.product_id
	  WHERE oi.order_id = ?
	  ORDER BY name
	`, orderID); err != nil {
		return domain.Order{}, nil, err
	}

	return o, items, nil
}
