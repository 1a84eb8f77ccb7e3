package repository

import (
	"context"
	"database/sql"

	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
)

// schema is applied in order by Migrate. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		email      TEXT NOT NULL UNIQUE,
		phone      TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		sku           TEXT,
		selling_price NUMERIC(12,2),
		mrp           NUMERIC(12,2),
		gst           NUMERIC(7,2) NOT NULL DEFAULT 0,
		active        BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`ALTER TABLE products ADD COLUMN IF NOT EXISTS gst NUMERIC(7,2) NOT NULL DEFAULT 0`,
	`CREATE TABLE IF NOT EXISTS orders (
		id               TEXT PRIMARY KEY,
		customer_id      TEXT NOT NULL REFERENCES customers(id),
		status           TEXT NOT NULL DEFAULT 'pending',
		payment_method   TEXT NOT NULL DEFAULT 'cod',
		shipping_address JSONB,
		subtotal         NUMERIC(12,2) NOT NULL DEFAULT 0,
		gst_percent      NUMERIC(7,2) NOT NULL DEFAULT 0,
		gst_amount       NUMERIC(12,2) NOT NULL DEFAULT 0,
		delivery_charge  NUMERIC(12,2) NOT NULL DEFAULT 0,
		total_amount     NUMERIC(12,2) NOT NULL DEFAULT 0,
		notes            TEXT,
		source           TEXT NOT NULL DEFAULT 'admin',
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id         TEXT PRIMARY KEY,
		order_id   TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id TEXT,
		name       TEXT NOT NULL,
		sku        TEXT NOT NULL DEFAULT '',
		unit_price NUMERIC(12,2) NOT NULL,
		quantity   INTEGER NOT NULL CHECK (quantity >= 0),
		position   INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items (order_id)`,
}

// Migrate creates the orders schema if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	logger := logging.NewLoggerV2("migrate")

	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			logger.Error("Migration statement failed", logging.Fields{
				"step":  i,
				"error": err.Error(),
			})
			return err
		}
	}

	logger.Info("Schema up to date", logging.Fields{"statements": len(schema)})
	return nil
}
