package services_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"orderbot/internal/repos"
	"orderbot/internal/services"
)

type fakeGateway struct {
	mu   sync.Mutex
	sent []string // "to|body"
}

func (g *fakeGateway) Send(to, body string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, to+"|"+body)
	return nil
}

func (g *fakeGateway) bodies() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.sent))
	copy(out, g.sent)
	return out
}

func memdbIngest(t *testing.T, products string) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// each pooled connection gets its own :memory: database
	db.SetMaxOpenConns(1)
	schema := `
	CREATE TABLE products(id TEXT PRIMARY KEY, name TEXT NOT NULL, price NUMERIC,
	  stock INTEGER CHECK (stock >= 0), created_at TEXT DEFAULT '', updated_at TEXT);
	CREATE TABLE orders(id TEXT PRIMARY KEY, customer_ref TEXT, status TEXT,
	  total NUMERIC, created_at TEXT DEFAULT '');
	CREATE TABLE order_items(order_id TEXT, product_id TEXT, quantity INTEGER,
	  unit_price NUMERIC, PRIMARY KEY(order_id, product_id));
	CREATE TABLE processed_messages(message_id TEXT PRIMARY KEY, reply TEXT,
	  processed_at TEXT DEFAULT '');
	` + products
	if _, err := db.Exec(schema); err != nil {
		t.Fatal(err)
	}
	return db
}

func newIngest(db *sqlx.DB, gw services.Gateway) *services.IngestService {
	prodRepo := repos.NewProductRepo(db)
	return services.NewIngestService(
		repos.NewMessageRepo(db),
		services.NewCatalogService(prodRepo),
		services.NewOrderService(prodRepo, repos.NewOrderRepo(db)),
		gw,
	)
}

func TestIngestOrderHappyPath(t *testing.T) {
	db := memdbIngest(t, `INSERT INTO products(id,name,price,stock) VALUES
	  ('p-rice','rice',50,3);`)
	gw := &fakeGateway{}
	svc := newIngest(db, gw)

	outcome, err := svc.Handle("15550001111", "wamid.1", "order rice 2")
	if err != nil {
		t.Fatal(err)
	}
	if outcome != services.Accepted {
		t.Fatalf("want Accepted, got %v", outcome)
	}

	bodies := gw.bodies()
	if len(bodies) != 1 {
		t.Fatalf("want 1 reply, got %d", len(bodies))
	}
	if !strings.Contains(bodies[0], "Order created!") || !strings.Contains(bodies[0], "Total: 100.00") {
		t.Fatalf("bad reply: %s", bodies[0])
	}
	if !strings.Contains(bodies[0], "2x rice") {
		t.Fatalf("reply missing item line: %s", bodies[0])
	}
}

func TestIngestDuplicateReplaysReply(t *testing.T) {
	db := memdbIngest(t, `INSERT INTO products(id,name,price,stock) VALUES
	  ('p-rice','rice',50,3);`)
	gw := &fakeGateway{}
	svc := newIngest(db, gw)

	if _, err := svc.Handle("15550001111", "wamid.dup", "order rice 1"); err != nil {
		t.Fatal(err)
	}
	outcome, err := svc.Handle("15550001111", "wamid.dup", "order rice 1")
	if err != nil {
		t.Fatal(err)
	}
	if outcome != services.DuplicateSkipped {
		t.Fatalf("want DuplicateSkipped, got %v", outcome)
	}

	bodies := gw.bodies()
	if len(bodies) != 2 || bodies[0] != bodies[1] {
		t.Fatalf("duplicate must replay the same reply: %+v", bodies)
	}

	// only one order, stock decremented exactly once
	var orders, stock int
	if err := db.Get(&orders, `SELECT COUNT(*) FROM orders`); err != nil {
		t.Fatal(err)
	}
	if err := db.Get(&stock, `SELECT stock FROM products WHERE id='p-rice'`); err != nil {
		t.Fatal(err)
	}
	if orders != 1 || stock != 2 {
		t.Fatalf("want 1 order and stock 2, got %d/%d", orders, stock)
	}
}

func TestIngestConcurrentDuplicates(t *testing.T) {
	db := memdbIngest(t, `INSERT INTO products(id,name,price,stock) VALUES
	  ('p-rice','rice',50,10);`)
	gw := &fakeGateway{}
	svc := newIngest(db, gw)

	const deliveries = 6
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Handle("15550001111", "wamid.race", "order rice 2"); err != nil {
				t.Errorf("handle: %v", err)
			}
		}()
	}
	wg.Wait()

	var orders, ledger int
	if err := db.Get(&orders, `SELECT COUNT(*) FROM orders`); err != nil {
		t.Fatal(err)
	}
	if err := db.Get(&ledger, `SELECT COUNT(*) FROM processed_messages`); err != nil {
		t.Fatal(err)
	}
	if orders != 1 {
		t.Fatalf("want at most one order, got %d", orders)
	}
	if ledger != 1 {
		t.Fatalf("want exactly one ledger row, got %d", ledger)
	}

	// every reply that did go out carries the same text
	bodies := gw.bodies()
	for _, b := range bodies {
		if b != bodies[0] {
			t.Fatalf("diverging replies: %+v", bodies)
		}
	}
}

func TestIngestNoValidItemsAndErrors(t *testing.T) {
	db := memdbIngest(t, `INSERT INTO products(id,name,price,stock) VALUES
	  ('p-cake','ricecake',30,5),
	  ('p-bran','ricebran',25,5);`)
	gw := &fakeGateway{}
	svc := newIngest(db, gw)

	// ambiguous token ends up skipped and the order has nothing left
	if _, err := svc.Handle("15550001111", "wamid.amb", "order rice 2"); err != nil {
		t.Fatal(err)
	}
	// unknown product
	if _, err := svc.Handle("15550001111", "wamid.nf", "order butter 1"); err != nil {
		t.Fatal(err)
	}
	// status without id is a usage hint
	if _, err := svc.Handle("15550001111", "wamid.val", "status"); err != nil {
		t.Fatal(err)
	}
	// free text gets the help reply
	if _, err := svc.Handle("15550001111", "wamid.hi", "hello"); err != nil {
		t.Fatal(err)
	}

	bodies := gw.bodies()
	if len(bodies) != 4 {
		t.Fatalf("want 4 replies, got %+v", bodies)
	}
	if !strings.Contains(bodies[0], "No valid products") || !strings.Contains(bodies[0], "matches several products") {
		t.Fatalf("ambiguous reply: %s", bodies[0])
	}
	if !strings.Contains(bodies[1], "No valid products") || !strings.Contains(bodies[1], "not found") {
		t.Fatalf("not-found reply: %s", bodies[1])
	}
	if !strings.Contains(bodies[2], "Usage: status") {
		t.Fatalf("usage reply: %s", bodies[2])
	}
	if !strings.Contains(bodies[3], "Send 'order rice 2'") {
		t.Fatalf("help reply: %s", bodies[3])
	}

	var orders int
	if err := db.Get(&orders, `SELECT COUNT(*) FROM orders`); err != nil {
		t.Fatal(err)
	}
	if orders != 0 {
		t.Fatalf("no orders expected, got %d", orders)
	}
}

func TestIngestListAndStatus(t *testing.T) {
	db := memdbIngest(t, `INSERT INTO products(id,name,price,stock) VALUES
	  ('p-rice','rice',50,3);`)
	gw := &fakeGateway{}
	svc := newIngest(db, gw)

	if _, err := svc.Handle("15550001111", "wamid.l1", "list"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Handle("15550001111", "wamid.o1", "order rice 1"); err != nil {
		t.Fatal(err)
	}

	var orderID string
	if err := db.Get(&orderID, `SELECT id FROM orders`); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Handle("15550001111", "wamid.s1", "status "+orderID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Handle("15550001111", "wamid.s2", "status missing-id"); err != nil {
		t.Fatal(err)
	}

	bodies := gw.bodies()
	if !strings.Contains(bodies[0], "Catalog:") || !strings.Contains(bodies[0], "rice - 50.00 (3 in stock)") {
		t.Fatalf("catalog reply: %s", bodies[0])
	}
	if !strings.Contains(bodies[2], "Order Status") || !strings.Contains(bodies[2], "Status: pending") {
		t.Fatalf("status reply: %s", bodies[2])
	}
	if !strings.Contains(bodies[3], "Order not found with that ID.") {
		t.Fatalf("not-found reply: %s", bodies[3])
	}
}
