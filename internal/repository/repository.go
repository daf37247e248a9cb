// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot replaces every stored row for the tenant in one transaction
// and increments the tenant's generation.
func (r *SQLRepository) SaveSnapshot(ctx context.Context, tenantID string, snap *domain.Snapshot) (*domain.SnapshotInfo, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: snapshot is required", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range snapshotTables {
		if _, err := tx.ExecContext(ctx, r.rebind("DELETE FROM "+table+" WHERE tenant_id = ?"), tenantID); err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := r.insertRows(ctx, tx, tenantID, snap); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	upsert := `
		INSERT INTO snapshots (
			tenant_id, generation, updated_at,
			products, customers, orders, inventory, warehouses
		) VALUES (?, 1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id) DO UPDATE SET
			generation = snapshots.generation + 1,
			updated_at = excluded.updated_at,
			products = excluded.products,
			customers = excluded.customers,
			orders = excluded.orders,
			inventory = excluded.inventory,
			warehouses = excluded.warehouses
	`
	_, err = tx.ExecContext(ctx, r.rebind(upsert),
		tenantID, now.Format(time.RFC3339Nano),
		len(snap.Products), len(snap.Customers), len(snap.Orders),
		len(snap.Inventory), len(snap.Warehouses),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update snapshot generation: %w", err)
	}

	info, err := r.scanInfo(tx.QueryRowContext(ctx, r.rebind(infoQuery), tenantID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return info, nil
}

func (r *SQLRepository) insertRows(ctx context.Context, tx *sql.Tx, tenantID string, snap *domain.Snapshot) error {
	for i, p := range snap.Products {
		_, err := tx.ExecContext(ctx, r.rebind(`INSERT INTO products (tenant_id, seq, id, sku, name) VALUES (?, ?, ?, ?, ?)`),
			tenantID, i, p.ID, p.SKU, p.Name)
		if err != nil {
			return fmt.Errorf("failed to insert product %s: %w", p.ID, err)
		}
	}

	for i, c := range snap.Customers {
		_, err := tx.ExecContext(ctx, r.rebind(`INSERT INTO customers (tenant_id, seq, id, name, type, country, city) VALUES (?, ?, ?, ?, ?, ?, ?)`),
			tenantID, i, c.ID, c.Name, string(c.Type), c.Location.Country, c.Location.City)
		if err != nil {
			return fmt.Errorf("failed to insert customer %s: %w", c.ID, err)
		}
	}

	for i, w := range snap.Warehouses {
		_, err := tx.ExecContext(ctx, r.rebind(`INSERT INTO warehouses (tenant_id, seq, id, name, country, city) VALUES (?, ?, ?, ?, ?, ?)`),
			tenantID, i, w.ID, w.Name, w.Location.Country, w.Location.City)
		if err != nil {
			return fmt.Errorf("failed to insert warehouse %s: %w", w.ID, err)
		}
	}

	for i, p := range snap.Inventory {
		var available sql.NullInt64
		if p.Available != nil {
			available = sql.NullInt64{Int64: int64(*p.Available), Valid: true}
		}
		query := `
			INSERT INTO inventory_positions (
				tenant_id, seq, id, product_id, product_sku, product_name, warehouse_id,
				on_hand, reserved, available, reorder_point, safety_stock
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := tx.ExecContext(ctx, r.rebind(query),
			tenantID, i, p.ID, p.Product.ID, p.Product.SKU, p.Product.Name, p.WarehouseID,
			p.OnHand, p.Reserved, available, p.ReorderPoint, p.SafetyStock,
		)
		if err != nil {
			return fmt.Errorf("failed to insert inventory position %s: %w", p.ID, err)
		}
	}

	for i, o := range snap.Orders {
		lines, err := json.Marshal(o.Lines)
		if err != nil {
			return fmt.Errorf("failed to encode lines of order %s: %w", o.ID, err)
		}
		query := `
			INSERT INTO orders (tenant_id, seq, id, customer_id, status, channel, placed_at, lines)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err = tx.ExecContext(ctx, r.rebind(query),
			tenantID, i, o.ID, o.CustomerID, string(o.Status), string(o.Channel),
			formatTime(o.PlacedAt), string(lines),
		)
		if err != nil {
			return fmt.Errorf("failed to insert order %s: %w", o.ID, err)
		}
	}

	return nil
}

const infoQuery = `
	SELECT tenant_id, generation, updated_at,
		   products, customers, orders, inventory, warehouses
	FROM snapshots
	WHERE tenant_id = ?
`

func (r *SQLRepository) scanInfo(row *sql.Row) (*domain.SnapshotInfo, error) {
	var info domain.SnapshotInfo
	var updatedAt string

	err := row.Scan(
		&info.TenantID, &info.Generation, &updatedAt,
		&info.Products, &info.Customers, &info.Orders,
		&info.Inventory, &info.Warehouses,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	info.UpdatedAt = parseTime(updatedAt)
	return &info, nil
}

// SnapshotInfo returns the stored generation and row counts.
func (r *SQLRepository) SnapshotInfo(ctx context.Context, tenantID string) (*domain.SnapshotInfo, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	return r.scanInfo(r.db.QueryRowContext(ctx, r.rebind(infoQuery), tenantID))
}

// LoadSnapshot reads the tenant's snapshot in the order it was saved.
func (r *SQLRepository) LoadSnapshot(ctx context.Context, tenantID string) (*domain.Snapshot, error) {
	if _, err := r.SnapshotInfo(ctx, tenantID); err != nil {
		return nil, err
	}

	snap := &domain.Snapshot{}
	var err error

	if snap.Products, err = r.loadProducts(ctx, tenantID); err != nil {
		return nil, err
	}
	if snap.Customers, err = r.loadCustomers(ctx, tenantID); err != nil {
		return nil, err
	}
	if snap.Warehouses, err = r.loadWarehouses(ctx, tenantID); err != nil {
		return nil, err
	}
	if snap.Inventory, err = r.loadInventory(ctx, tenantID); err != nil {
		return nil, err
	}
	if snap.Orders, err = r.loadOrders(ctx, tenantID); err != nil {
		return nil, err
	}

	return snap, nil
}

func (r *SQLRepository) loadProducts(ctx context.Context, tenantID string) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`SELECT id, sku, name FROM products WHERE tenant_id = ? ORDER BY seq`), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLRepository) loadCustomers(ctx context.Context, tenantID string) ([]domain.Customer, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`SELECT id, name, type, country, city FROM customers WHERE tenant_id = ? ORDER BY seq`), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		var c domain.Customer
		var typ string
		if err := rows.Scan(&c.ID, &c.Name, &typ, &c.Location.Country, &c.Location.City); err != nil {
			return nil, err
		}
		c.Type = domain.CustomerType(typ)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLRepository) loadWarehouses(ctx context.Context, tenantID string) ([]domain.Warehouse, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`SELECT id, name, country, city FROM warehouses WHERE tenant_id = ? ORDER BY seq`), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Warehouse
	for rows.Next() {
		var w domain.Warehouse
		if err := rows.Scan(&w.ID, &w.Name, &w.Location.Country, &w.Location.City); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *SQLRepository) loadInventory(ctx context.Context, tenantID string) ([]domain.InventoryPosition, error) {
	query := `
		SELECT id, product_id, product_sku, product_name, warehouse_id,
			   on_hand, reserved, available, reorder_point, safety_stock
		FROM inventory_positions
		WHERE tenant_id = ?
		ORDER BY seq
	`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.InventoryPosition
	for rows.Next() {
		var p domain.InventoryPosition
		var available sql.NullInt64
		if err := rows.Scan(
			&p.ID, &p.Product.ID, &p.Product.SKU, &p.Product.Name, &p.WarehouseID,
			&p.OnHand, &p.Reserved, &available, &p.ReorderPoint, &p.SafetyStock,
		); err != nil {
			return nil, err
		}
		if available.Valid {
			v := int(available.Int64)
			p.Available = &v
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLRepository) loadOrders(ctx context.Context, tenantID string) ([]domain.Order, error) {
	query := `
		SELECT id, customer_id, status, channel, placed_at, lines
		FROM orders
		WHERE tenant_id = ?
		ORDER BY seq
	`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		var status, ch, placedAt, lines string
		if err := rows.Scan(&o.ID, &o.CustomerID, &status, &ch, &placedAt, &lines); err != nil {
			return nil, err
		}
		o.Status = domain.OrderStatus(status)
		o.Channel = domain.Channel(ch)
		o.PlacedAt = parseTime(placedAt)
		if err := json.Unmarshal([]byte(lines), &o.Lines); err != nil {
			return nil, fmt.Errorf("failed to decode lines of order %s: %w", o.ID, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListTenants returns every tenant with a stored snapshot, sorted.
func (r *SQLRepository) ListTenants(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tenant_id FROM snapshots ORDER BY tenant_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		tenants = append(tenants, id)
	}
	return tenants, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

// Timestamps are stored as RFC 3339 text; the zero time as an empty string.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
