package services

import (
	"errors"

	"github.com/google/uuid"

	"orderbot/internal/domain"
	"orderbot/internal/repos"
)

// Skip reasons reported back to the customer per rejected line.
const (
	ReasonNotFound          = "not_found"
	ReasonAmbiguous         = "ambiguous"
	ReasonInsufficientStock = "insufficient_stock"
	ReasonInvalidQuantity   = "invalid_quantity"
)

// ResolvedLine is a catalog-resolved order line ready for placement.
type ResolvedLine struct {
	Product  domain.Product
	Quantity int
}

// SkippedLine records why a requested line was excluded from the order.
type SkippedLine struct {
	Name   string
	Reason string
}

// Placement is the outcome of a successful order transaction.
type Placement struct {
	Order   domain.Order
	Items   []domain.OrderItem
	Skipped []SkippedLine
}

type OrderService struct {
	Prods  *repos.ProductRepo
	Orders *repos.OrderRepo
}

func NewOrderService(prods *repos.ProductRepo, orders *repos.OrderRepo) *OrderService {
	return &OrderService{Prods: prods, Orders: orders}
}

// Place validates the resolved lines and creates the order atomically. Lines
// with a non-positive quantity or more demand than stock are demoted to
// Skipped rather than failing the command; if nothing survives the result is
// ErrNoValidItems with no rows written and no stock touched.
//
// The store-side decrement is conditional, so a concurrent order can still
// win the stock between our read and the commit. When that happens the whole
// transaction is rolled back and retried once against refreshed stock; a line
// that loses the race twice is demoted and the rest of the order goes
// through.
func (s *OrderService) Place(customerRef string, lines []ResolvedLine) (Placement, error) {
	var skipped []SkippedLine
	var live []ResolvedLine
	for _, ln := range lines {
		switch {
		case ln.Quantity <= 0:
			skipped = append(skipped, SkippedLine{Name: ln.Product.Name, Reason: ReasonInvalidQuantity})
		case ln.Product.Stock < ln.Quantity:
			skipped = append(skipped, SkippedLine{Name: ln.Product.Name, Reason: ReasonInsufficientStock})
		default:
			live = append(live, ln)
		}
	}

	conflicts := map[string]int{}
	for {
		if len(live) == 0 {
			return Placement{Skipped: skipped}, domain.ErrNoValidItems
		}

		o := domain.Order{
			ID:          uuid.NewString(),
			CustomerRef: customerRef,
			Status:      domain.StatusPending,
			Total:       total(live),
		}
		items := make([]domain.OrderItem, len(live))
		for i, ln := range live {
			items[i] = domain.OrderItem{
				OrderID:   o.ID,
				ProductID: ln.Product.ID,
				Name:      ln.Product.Name,
				Quantity:  ln.Quantity,
				UnitPrice: ln.Product.Price, // price snapshot at order time
			}
		}

		err := s.Orders.CreateWithItems(o, items)
		if err == nil {
			return Placement{Order: o, Items: items, Skipped: skipped}, nil
		}

		var conflict *domain.StockConflictError
		if !errors.As(err, &conflict) {
			return Placement{}, err
		}

		conflicts[conflict.ProductID]++
		if conflicts[conflict.ProductID] >= 2 {
			live, skipped = demote(live, skipped, conflict.ProductID)
			continue
		}

		// Lost the race once: refresh stock figures and drop any line the
		// refreshed stock can no longer cover, then retry.
		var refreshErr error
		live, skipped, refreshErr = s.refresh(live, skipped)
		if refreshErr != nil {
			return Placement{}, refreshErr
		}
	}
}

func (s *OrderService) refresh(live []ResolvedLine, skipped []SkippedLine) ([]ResolvedLine, []SkippedLine, error) {
	kept := live[:0]
	for _, ln := range live {
		qty, err := s.Prods.Stock(ln.Product.ID)
		if err != nil {
			return nil, nil, err
		}
		if qty < ln.Quantity {
			skipped = append(skipped, SkippedLine{Name: ln.Product.Name, Reason: ReasonInsufficientStock})
			continue
		}
		ln.Product.Stock = qty
		kept = append(kept, ln)
	}
	return kept, skipped, nil
}

func demote(live []ResolvedLine, skipped []SkippedLine, productID string) ([]ResolvedLine, []SkippedLine) {
	kept := live[:0]
	for _, ln := range live {
		if ln.Product.ID == productID {
			skipped = append(skipped, SkippedLine{Name: ln.Product.Name, Reason: ReasonInsufficientStock})
			continue
		}
		kept = append(kept, ln)
	}
	return kept, skipped
}

func total(lines []ResolvedLine) float64 {
	t := 0.0
	for _, ln := range lines {
		t += ln.Product.Price * float64(ln.Quantity)
	}
	return t
}

// Status fetches an order with its items. Pure read.
func (s *OrderService) Status(orderID string) (domain.OrderView, error) {
	o, items, err := s.Orders.Get(orderID)
	if err != nil {
		return domain.OrderView{}, err
	}
	return domain.OrderView{ID: o.ID, Status: o.Status, Total: o.Total, Items: items}, nil
}
