package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/errors"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/models"
)

const orderColumns = `
	o.id, c.id, c.name, c.email, c.phone, o.status, o.payment_method,
	o.shipping_address, o.subtotal, o.gst_percent, o.gst_amount,
	o.delivery_charge, o.total_amount, o.notes, o.source,
	o.created_at, o.updated_at
`

const orderFrom = `
	FROM orders o
	JOIN customers c ON c.id = o.customer_id
`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// PostgresOrderRepository implements OrderRepository using PostgreSQL.
type PostgresOrderRepository struct {
	db     *sql.DB
	logger *logging.LoggerV2
}

// NewPostgresOrderRepository creates a new PostgreSQL order repository.
func NewPostgresOrderRepository(db *sql.DB, logger *logging.LoggerV2) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves an order and its items.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.logger.Debug("Fetching order by ID", logging.Fields{"order_id": id})

	order, err := r.getOrder(ctx, r.db, id, false)
	if err != nil {
		if !errors.IsNotFound(err) {
			r.logger.Error("Failed to fetch order", logging.Fields{
				"order_id": id,
				"error":    err.Error(),
			})
		}
		return nil, err
	}

	return order, nil
}

// Create inserts the order, its customer and its items in one transaction.
func (r *PostgresOrderRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	r.logger.Debug("Creating new order", logging.Fields{"customer_email": order.Customer.Email})

	// TODO(TEAM-API): Add idempotency key support
	created := cloneOrder(order)
	if created.ID == "" {
		created.ID = generateOrderID()
	}
	now := time.Now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now
	assignItemIDs(created.Items)

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		customerID, err := upsertCustomer(ctx, tx, created.Customer)
		if err != nil {
			return err
		}
		created.Customer.ID = customerID

		addressJSON, err := json.Marshal(created.ShippingAddress)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO orders (
				id, customer_id, status, payment_method, shipping_address,
				subtotal, gst_percent, gst_amount, delivery_charge, total_amount,
				notes, source, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
			)
		`
		if _, err := tx.ExecContext(ctx, query,
			created.ID,
			created.Customer.ID,
			created.Status,
			created.PaymentMethod,
			addressJSON,
			created.Subtotal,
			created.GSTPercent,
			created.GSTAmount,
			created.DeliveryCharge,
			created.Total,
			created.Notes,
			created.Source,
			created.CreatedAt,
			created.UpdatedAt,
		); err != nil {
			return mapPQError(err)
		}

		return insertItems(ctx, tx, created.ID, created.Items)
	})
	if err != nil {
		r.logger.Error("Failed to create order", logging.Fields{
			"customer_email": order.Customer.Email,
			"error":          err.Error(),
		})
		return nil, err
	}

	r.logger.Info("Order created successfully", logging.Fields{
		"order_id":    created.ID,
		"customer_id": created.Customer.ID,
		"total":       created.Total.StringFixed(2),
	})

	return created, nil
}

// Update locks the order row with SELECT ... FOR UPDATE, applies fn and
// writes the result before the lock is released.
func (r *PostgresOrderRepository) Update(ctx context.Context, id string, fn UpdateFunc) (*models.Order, error) {
	r.logger.Debug("Updating order", logging.Fields{"order_id": id})

	var updated *models.Order
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		order, err := r.getOrder(ctx, tx, id, true)
		if err != nil {
			return err
		}

		mutation, err := fn(order)
		if err != nil {
			return err
		}
		if !mutation.Changed {
			updated = order
			return nil
		}

		if mutation.CustomerChanged {
			customerID, err := upsertCustomer(ctx, tx, order.Customer)
			if err != nil {
				return err
			}
			order.Customer.ID = customerID
		}

		if mutation.ItemsReplaced {
			if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
				return err
			}
			assignItemIDs(order.Items)
			if err := insertItems(ctx, tx, id, order.Items); err != nil {
				return err
			}
		}

		addressJSON, err := json.Marshal(order.ShippingAddress)
		if err != nil {
			return err
		}

		order.UpdatedAt = time.Now().UTC()
		query := `
			UPDATE orders
			SET customer_id = $2, status = $3, payment_method = $4,
			    shipping_address = $5, subtotal = $6, gst_percent = $7,
			    gst_amount = $8, delivery_charge = $9, total_amount = $10,
			    notes = $11, updated_at = $12
			WHERE id = $1
		`
		if _, err := tx.ExecContext(ctx, query,
			id,
			order.Customer.ID,
			order.Status,
			order.PaymentMethod,
			addressJSON,
			order.Subtotal,
			order.GSTPercent,
			order.GSTAmount,
			order.DeliveryCharge,
			order.Total,
			order.Notes,
			order.UpdatedAt,
		); err != nil {
			return mapPQError(err)
		}

		updated = order
		return nil
	})
	if err != nil {
		if _, isValidation := errors.AsValidation(err); !isValidation && !errors.IsNotFound(err) {
			r.logger.Error("Failed to update order", logging.Fields{
				"order_id": id,
				"error":    err.Error(),
			})
		}
		return nil, err
	}

	return updated, nil
}

// List retrieves orders matching filter, newest first, with the total
// count before pagination.
func (r *PostgresOrderRepository) List(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error) {
	r.logger.Debug("Listing orders", logging.Fields{
		"status": filter.Status,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})

	var conditions []string
	args := make([]interface{}, 0)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != nil {
		conditions = append(conditions, "o.status = "+arg(*filter.Status))
	}
	if filter.CustomerEmail != "" {
		conditions = append(conditions, "LOWER(c.email) = LOWER("+arg(filter.CustomerEmail)+")")
	}
	if filter.StartDate != nil {
		conditions = append(conditions, "o.created_at >= "+arg(*filter.StartDate))
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "o.created_at <= "+arg(*filter.EndDate))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) "+orderFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + orderColumns + orderFrom + where +
		" ORDER BY o.created_at DESC LIMIT " + arg(filter.Limit) + " OFFSET " + arg(filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	byID := make(map[string]*models.Order)
	ids := make([]string, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
		byID[order.ID] = order
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := loadItems(ctx, r.db, ids, byID); err != nil {
		return nil, 0, err
	}

	r.logger.Info("Orders listed", logging.Fields{
		"count": len(orders),
		"total": total,
	})

	return orders, total, nil
}

func (r *PostgresOrderRepository) getOrder(ctx context.Context, q queryer, id string, forUpdate bool) (*models.Order, error) {
	query := "SELECT " + orderColumns + orderFrom + " WHERE o.id = $1"
	if forUpdate {
		query += " FOR UPDATE OF o"
	}

	order, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := loadItems(ctx, q, []string{order.ID}, map[string]*models.Order{order.ID: order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *PostgresOrderRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !stderrors.Is(rbErr, sql.ErrTxDone) {
			r.logger.Warn("Rollback failed", logging.Fields{"error": rbErr.Error()})
		}
		return err
	}

	return tx.Commit()
}

func upsertCustomer(ctx context.Context, q queryer, customer models.Customer) (string, error) {
	query := `
		INSERT INTO customers (id, name, email, phone, created_at)
		VALUES ($1, $2, LOWER($3), $4, NOW())
		ON CONFLICT (email) DO UPDATE
		SET name = COALESCE(NULLIF(EXCLUDED.name, ''), customers.name),
		    phone = COALESCE(NULLIF(EXCLUDED.phone, ''), customers.phone)
		RETURNING id
	`

	var id string
	err := q.QueryRowContext(ctx, query, generateCustomerID(), customer.Name, customer.Email, customer.Phone).Scan(&id)
	if err != nil {
		return "", mapPQError(err)
	}
	return id, nil
}

func insertItems(ctx context.Context, q queryer, orderID string, items []models.OrderItem) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, name, sku, unit_price, quantity, position)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
	`
	for i, item := range items {
		if _, err := q.ExecContext(ctx, query,
			item.ID, orderID, item.ProductID, item.Name, item.SKU, item.UnitPrice, item.Quantity, i,
		); err != nil {
			return mapPQError(err)
		}
	}
	return nil
}

func loadItems(ctx context.Context, q queryer, ids []string, byID map[string]*models.Order) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		SELECT order_id, id, COALESCE(product_id, ''), name, sku, unit_price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`
	rows, err := q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var item models.OrderItem
		if err := rows.Scan(&orderID, &item.ID, &item.ProductID, &item.Name, &item.SKU, &item.UnitPrice, &item.Quantity); err != nil {
			return err
		}
		if order, ok := byID[orderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, order := range byID {
		if order.Items == nil {
			order.Items = []models.OrderItem{}
		}
	}
	return nil
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var addressJSON []byte
	var phone, notes sql.NullString

	err := row.Scan(
		&order.ID,
		&order.Customer.ID,
		&order.Customer.Name,
		&order.Customer.Email,
		&phone,
		&order.Status,
		&order.PaymentMethod,
		&addressJSON,
		&order.Subtotal,
		&order.GSTPercent,
		&order.GSTAmount,
		&order.DeliveryCharge,
		&order.Total,
		&notes,
		&order.Source,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(addressJSON) > 0 {
		if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
			return nil, err
		}
	}
	if phone.Valid {
		order.Customer.Phone = phone.String
	}
	if notes.Valid {
		order.Notes = notes.String
	}

	return &order, nil
}

// mapPQError translates constraint violations to service errors.
func mapPQError(err error) error {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code.Name() {
	case "unique_violation":
		return fmt.Errorf("%w: %s", errors.ErrConflict, pqErr.Message)
	case "foreign_key_violation":
		return errors.NewValidationError(pqErr.Column, pqErr.Message)
	case "check_violation":
		return errors.NewValidationError(pqErr.Constraint, pqErr.Message)
	}
	return err
}
