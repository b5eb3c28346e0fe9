package domain

// Order statuses. Transitions past "pending" belong to fulfillment tooling,
// not to the webhook pipeline.
const (
	StatusPending   = "pending"
	StatusFulfilled = "fulfilled"
	StatusCancelled = "cancelled"
)

type Product struct {
	ID        string  `db:"id"`
	Name      string  `db:"name"`
	Price     float64 `db:"price"`
	Stock     int     `db:"stock"`
	CreatedAt string  `db:"created_at"`
	UpdatedAt string  `db:"updated_at"`
}

type Order struct {
	ID          string  `db:"id"`
	CustomerRef string  `db:"customer_ref"` // originating chat identity (phone)
	Status      string  `db:"status"`
	Total       float64 `db:"total"`
	CreatedAt   string  `db:"created_at"`
}

// OrderItem references its product weakly by id: unit_price is a snapshot
// taken at order time, so repricing or deleting a catalog product never
// affects a historical order. Name is filled from the catalog on reads and
// falls back to the product id when the product is gone.
type OrderItem struct {
	OrderID   string  `db:"order_id"`
	ProductID string  `db:"product_id"`
	Name      string  `db:"name"`
	Quantity  int     `db:"quantity"`
	UnitPrice float64 `db:"unit_price"`
}

// OrderView is the read model returned by status lookups.
type OrderView struct {
	ID     string
	Status string
	Total  float64
	Items  []OrderItem
}
