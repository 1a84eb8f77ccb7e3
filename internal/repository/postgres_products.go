package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/models"
)

// PostgresProductCatalog reads prices from the catalog's products table.
// Product CRUD lives elsewhere; this side only reads.
type PostgresProductCatalog struct {
	db     *sql.DB
	logger *logging.LoggerV2
}

func NewPostgresProductCatalog(db *sql.DB, logger *logging.LoggerV2) *PostgresProductCatalog {
	return &PostgresProductCatalog{db: db, logger: logger}
}

func (c *PostgresProductCatalog) GetProducts(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	products := make(map[string]*models.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	query := `
		SELECT id, name, sku, COALESCE(selling_price, 0), COALESCE(mrp, 0), COALESCE(gst, 0)
		FROM products
		WHERE id = ANY($1) AND active
	`
	rows, err := c.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		c.logger.Error("Failed to load products", logging.Fields{
			"count": len(ids),
			"error": err.Error(),
		})
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Product
		var sku sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &sku, &p.SellingPrice, &p.MRP, &p.GST); err != nil {
			return nil, err
		}
		p.SKU = sku.String
		products[p.ID] = &p
	}

	return products, rows.Err()
}
