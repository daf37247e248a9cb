package repository

// Schema definitions for Heron snapshot storage.
// Compatible with both SQLite and PostgreSQL.
// Row tables key on (tenant_id, seq) so a loaded snapshot keeps input order.

const schemaSnapshots = `
CREATE TABLE IF NOT EXISTS snapshots (
    tenant_id TEXT PRIMARY KEY,
    generation BIGINT NOT NULL,
    updated_at TEXT NOT NULL,
    products INTEGER NOT NULL DEFAULT 0,
    customers INTEGER NOT NULL DEFAULT 0,
    orders INTEGER NOT NULL DEFAULT 0,
    inventory INTEGER NOT NULL DEFAULT 0,
    warehouses INTEGER NOT NULL DEFAULT 0
);
`

const schemaProducts = `
CREATE TABLE IF NOT EXISTS products (
    tenant_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    id TEXT NOT NULL,
    sku TEXT NOT NULL,
    name TEXT NOT NULL,
    PRIMARY KEY (tenant_id, seq)
);
`

const schemaCustomers = `
CREATE TABLE IF NOT EXISTS customers (
    tenant_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    type TEXT NOT NULL,
    country TEXT NOT NULL,
    city TEXT NOT NULL,
    PRIMARY KEY (tenant_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_customers_id ON customers(tenant_id, id);
`

const schemaWarehouses = `
CREATE TABLE IF NOT EXISTS warehouses (
    tenant_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    country TEXT NOT NULL,
    city TEXT NOT NULL,
    PRIMARY KEY (tenant_id, seq)
);
`

const schemaInventory = `
CREATE TABLE IF NOT EXISTS inventory_positions (
    tenant_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    id TEXT NOT NULL,
    product_id TEXT NOT NULL,
    product_sku TEXT NOT NULL,
    product_name TEXT NOT NULL,
    warehouse_id TEXT NOT NULL,
    on_hand INTEGER NOT NULL,
    reserved INTEGER NOT NULL,
    available INTEGER,
    reorder_point INTEGER NOT NULL,
    safety_stock INTEGER NOT NULL,
    PRIMARY KEY (tenant_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_inventory_product ON inventory_positions(tenant_id, product_id);
`

// schemaOrders stores lines as a JSON document per order.
const schemaOrders = `
CREATE TABLE IF NOT EXISTS orders (
    tenant_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    status TEXT NOT NULL,
    channel TEXT NOT NULL,
    placed_at TEXT NOT NULL,
    lines TEXT NOT NULL,
    PRIMARY KEY (tenant_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(tenant_id, status);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaSnapshots,
		schemaProducts,
		schemaCustomers,
		schemaWarehouses,
		schemaInventory,
		schemaOrders,
	}
}

// snapshotTables lists the row tables replaced on every save.
var snapshotTables = []string{
	"products",
	"customers",
	"warehouses",
	"inventory_positions",
	"orders",
}
