// Package sqlite provides the SQLite-backed implementation of the store ports.
//
// WAL mode is enabled on Open so that readers never block writers and vice
// versa — catalog reads keep flowing while order assembly writes.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/jcmexdev/storefront/internal/store"

	// Register the pure-Go SQLite driver. We use modernc.org/sqlite instead
	// of mattn/go-sqlite3 to avoid CGO requirements, making it easier to
	// build and run in Docker (Alpine).
	_ "modernc.org/sqlite"
)

// Repository implements store.CatalogStore, store.OrderStore and
// store.UserStore on a single SQLite database.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at the given path.
//
// The pure-Go driver uses _pragma query parameters to configure connection
// state. WAL enables concurrent readers. foreign_keys=on enforces the
// product/category/user references. busy_timeout waits for locks instead of
// failing immediately.
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	// Use "sqlite", not "sqlite3" for the modernc driver.
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	return &Repository{db: db}, nil
}

// RunMigrations applies the file migrations from migrationsPath. Idempotent;
// call it once on startup.
func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := migratesqlite.WithInstance(r.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqlite: create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("sqlite: create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: run migrations: %w", err)
	}

	return nil
}

// Close releases the database connection. Call it with defer in main().
func (r *Repository) Close() error {
	return r.db.Close()
}

// ---- catalog ----

// CreateCategory inserts a category. Catalog rows are written by seeding and
// tests only; the HTTP surface never mutates them.
func (r *Repository) CreateCategory(ctx context.Context, c *store.Category) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, c.Name)
	if err != nil {
		return fmt.Errorf("sqlite: create category %q: %w", c.Name, err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: create category %q: %w", c.Name, err)
	}
	return nil
}

func (r *Repository) CreateProduct(ctx context.Context, p *store.Product) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO products (name, price, category_id, model_number, other) VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.Price, p.CategoryID, p.ModelNumber, p.Other,
	)
	if err != nil {
		return fmt.Errorf("sqlite: create product %q: %w", p.Name, err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: create product %q: %w", p.Name, err)
	}
	return nil
}

// UpdateProductPrice applies an external price change. Existing order items
// keep their snapshot price.
func (r *Repository) UpdateProductPrice(ctx context.Context, id int64, price float64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET price = ? WHERE id = ?`, price, id)
	if err != nil {
		return fmt.Errorf("sqlite: update price for product %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: update price for product %d: %w", id, err)
	}
	if n == 0 {
		return store.ErrProductNotFound
	}
	return nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]store.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list categories: %w", err)
	}
	defer rows.Close()

	var categories []store.Category
	for rows.Next() {
		var c store.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list categories: %w", err)
	}
	return categories, nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*store.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, price, category_id, model_number, other FROM products WHERE id = ?`, id)

	var p store.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.CategoryID, &p.ModelNumber, &p.Other)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get product %d: %w", id, err)
	}
	return &p, nil
}

// ListProducts builds the WHERE clause from the filter. The category name is
// joined in so free-text search can match it alongside the product columns.
func (r *Repository) ListProducts(ctx context.Context, filter store.ProductFilter) ([]store.Product, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT p.id, p.name, p.price, p.category_id, p.model_number, p.other
		FROM   products p
		JOIN   categories c ON c.id = p.category_id`)

	var conds []string
	var args []any

	like := func(column, substr string) {
		conds = append(conds, column+" LIKE ?")
		args = append(args, "%"+substr+"%")
	}

	if filter.NameContains != "" {
		like("p.name", filter.NameContains)
	}
	if filter.Price != nil {
		conds = append(conds, "p.price = ?")
		args = append(args, *filter.Price)
	}
	if filter.PriceGTE != nil {
		conds = append(conds, "p.price >= ?")
		args = append(args, *filter.PriceGTE)
	}
	if filter.PriceLTE != nil {
		conds = append(conds, "p.price <= ?")
		args = append(args, *filter.PriceLTE)
	}
	if filter.CategoryID != nil {
		conds = append(conds, "p.category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.ModelNumberContains != "" {
		like("p.model_number", filter.ModelNumberContains)
	}
	if filter.OtherContains != "" {
		like("p.other", filter.OtherContains)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		conds = append(conds, "(p.name LIKE ? OR c.name LIKE ? OR p.model_number LIKE ? OR p.other LIKE ?)")
		args = append(args, pattern, pattern, pattern, pattern)
	}

	if len(conds) > 0 {
		query.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	switch filter.Ordering {
	case store.OrderingPriceAsc:
		query.WriteString(" ORDER BY p.price ASC, p.id")
	case store.OrderingPriceDesc:
		query.WriteString(" ORDER BY p.price DESC, p.id")
	default:
		query.WriteString(" ORDER BY p.id")
	}

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list products: %w", err)
	}
	defer rows.Close()

	var products []store.Product
	for rows.Next() {
		var p store.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.CategoryID, &p.ModelNumber, &p.Other); err != nil {
			return nil, fmt.Errorf("sqlite: scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list products: %w", err)
	}
	return products, nil
}

// ---- cart / order items ----

func (r *Repository) CreateOrderItem(ctx context.Context, userID int64, item *store.OrderItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin create order item: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO order_items (product_id, quantity, price, order_id) VALUES (?, ?, ?, NULL)`,
		item.ProductID, item.Quantity, item.Price,
	)
	if err != nil {
		return fmt.Errorf("sqlite: create order item: %w", err)
	}
	item.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: create order item: %w", err)
	}
	item.OrderID = nil

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cart_entries (user_id, order_item_id) VALUES (?, ?)`,
		userID, item.ID,
	); err != nil {
		return fmt.Errorf("sqlite: create cart entry for item %d: %w", item.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit create order item: %w", err)
	}
	return nil
}

func (r *Repository) GetOrderItem(ctx context.Context, id int64) (*store.OrderItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, product_id, quantity, price, order_id FROM order_items WHERE id = ?`, id)

	var it store.OrderItem
	err := row.Scan(&it.ID, &it.ProductID, &it.Quantity, &it.Price, &it.OrderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrOrderItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get order item %d: %w", id, err)
	}
	return &it, nil
}

func (r *Repository) UpdateOrderItemQuantity(ctx context.Context, id int64, quantity int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE order_items SET quantity = ? WHERE id = ?`, quantity, id)
	if err != nil {
		return fmt.Errorf("sqlite: update order item %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: update order item %d: %w", id, err)
	}
	if n == 0 {
		return store.ErrOrderItemNotFound
	}
	return nil
}

func (r *Repository) DeleteOrderItem(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin delete order item: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cart_entries WHERE order_item_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: delete cart entry for item %d: %w", id, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete order item %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete order item %d: %w", id, err)
	}
	if n == 0 {
		return store.ErrOrderItemNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit delete order item: %w", err)
	}
	return nil
}

func (r *Repository) ListCartItems(ctx context.Context, userID int64) ([]store.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.id, oi.product_id, oi.quantity, oi.price, oi.order_id
		FROM   order_items oi
		JOIN   cart_entries ce ON ce.order_item_id = oi.id
		WHERE  ce.user_id = ?
		ORDER  BY oi.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list cart items for user %d: %w", userID, err)
	}
	defer rows.Close()

	return scanOrderItems(rows)
}

// ---- orders ----

// AssembleOrder is all-or-nothing: the order row, every cart entry deletion
// and every order_id assignment commit together, or none of them do.
func (r *Repository) AssembleOrder(ctx context.Context, userID int64, shippingAddress string, itemIDs []int64) (*store.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin assemble order: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createdAt := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (user_id, shipping_address, created_at) VALUES (?, ?, ?)`,
		userID, shippingAddress, formatTime(createdAt),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: create order: %w", err)
	}
	orderID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqlite: create order: %w", err)
	}

	for _, itemID := range itemIDs {
		res, err := tx.ExecContext(ctx,
			`UPDATE order_items SET order_id = ? WHERE id = ?`, orderID, itemID)
		if err != nil {
			return nil, fmt.Errorf("sqlite: attach item %d to order %d: %w", itemID, orderID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("sqlite: attach item %d to order %d: %w", itemID, orderID, err)
		}
		if n == 0 {
			return nil, store.ErrOrderItemNotFound
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM cart_entries WHERE order_item_id = ?`, itemID); err != nil {
			return nil, fmt.Errorf("sqlite: unstage item %d: %w", itemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit assemble order: %w", err)
	}

	return r.GetOrder(ctx, orderID)
}

func (r *Repository) GetOrder(ctx context.Context, id int64) (*store.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, shipping_address, created_at FROM orders WHERE id = ?`, id)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get order %d: %w", id, err)
	}

	o.Items, err = r.orderItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repository) ListOrdersByUser(ctx context.Context, userID int64) ([]store.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, shipping_address, created_at FROM orders WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list orders for user %d: %w", userID, err)
	}
	defer rows.Close()

	var orders []store.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list orders for user %d: %w", userID, err)
	}

	for i := range orders {
		orders[i].Items, err = r.orderItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *Repository) UpdateOrderShippingAddress(ctx context.Context, id int64, shippingAddress string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET shipping_address = ? WHERE id = ?`, shippingAddress, id)
	if err != nil {
		return fmt.Errorf("sqlite: update order %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: update order %d: %w", id, err)
	}
	if n == 0 {
		return store.ErrOrderNotFound
	}
	return nil
}

func (r *Repository) orderItems(ctx context.Context, orderID int64) ([]store.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, quantity, price, order_id
		FROM   order_items
		WHERE  order_id = ?
		ORDER  BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list items for order %d: %w", orderID, err)
	}
	defer rows.Close()

	return scanOrderItems(rows)
}

// ---- users / tokens ----

func (r *Repository) CreateUser(ctx context.Context, user *store.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin create user: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE username = ?`, user.Username).Scan(&existing)
	if err == nil {
		return store.ErrUsernameTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: check username %q: %w", user.Username, err)
	}

	user.CreatedAt = time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		user.Username, user.PasswordHash, formatTime(user.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: create user %q: %w", user.Username, err)
	}
	user.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: create user %q: %w", user.Username, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit create user: %w", err)
	}
	return nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *Repository) SaveToken(ctx context.Context, token string, userID int64) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_tokens (token, user_id, created_at) VALUES (?, ?, ?)`,
		token, userID, formatTime(time.Now().UTC()),
	); err != nil {
		return fmt.Errorf("sqlite: save token for user %d: %w", userID, err)
	}
	return nil
}

func (r *Repository) GetUserByToken(ctx context.Context, token string) (*store.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.password_hash, u.created_at
		FROM   users u
		JOIN   auth_tokens t ON t.user_id = u.id
		WHERE  t.token = ?`, token)

	u, err := scanUser(row)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, store.ErrTokenNotFound
	}
	return u, err
}

// ---- scan helpers ----

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*store.Order, error) {
	var o store.Order
	var createdAt string
	if err := row.Scan(&o.ID, &o.UserID, &o.ShippingAddress, &createdAt); err != nil {
		return nil, err
	}
	var err error
	o.CreatedAt, err = parseRFC3339(createdAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func scanUser(row rowScanner) (*store.User, error) {
	var u store.User
	var createdAt string
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan user: %w", err)
	}
	u.CreatedAt, err = parseRFC3339(createdAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func scanOrderItems(rows *sql.Rows) ([]store.OrderItem, error) {
	var items []store.OrderItem
	for rows.Next() {
		var it store.OrderItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Quantity, &it.Price, &it.OrderID); err != nil {
			return nil, fmt.Errorf("sqlite: scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate order items: %w", err)
	}
	return items, nil
}
