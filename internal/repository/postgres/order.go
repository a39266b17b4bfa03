package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Andres4532/solhana-storefront/internal/domain"
	"github.com/Andres4532/solhana-storefront/pkg/database"
	apperrors "github.com/Andres4532/solhana-storefront/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts an order and its items atomically within a transaction,
// decrementing the sold stock from each item's variant or product in the same
// transaction.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	orderQuery := `
		INSERT INTO orders (id, order_number, customer_id, customer_name, customer_last_name, customer_phone, customer_email,
			status, subtotal, discount, shipping_cost, priority_shipping, total, payment_method,
			shipping_address, shipping_city, shipping_notes, department, whatsapp_sent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	_, err = tx.Exec(ctx, orderQuery,
		o.ID,
		o.OrderNumber,
		o.CustomerID,
		o.CustomerName,
		o.CustomerLastName,
		o.CustomerPhone,
		o.CustomerEmail,
		o.Status,
		o.Subtotal,
		o.Discount,
		o.ShippingCost,
		o.PriorityShipping,
		o.Total,
		o.PaymentMethod,
		o.ShippingAddress,
		o.ShippingCity,
		o.ShippingNotes,
		o.Department,
		o.WhatsAppSent,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("order", "order_number", o.OrderNumber)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, variant_id, product_name, sku, unit_price, quantity, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.VariantID,
			item.ProductName,
			item.SKU,
			item.UnitPrice,
			item.Quantity,
			item.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	// Sold units come off the stock ledger with the order. The floor at zero
	// absorbs carts that raced past each other; availability was already
	// checked when the lines were added.
	variantStockQuery := `
		UPDATE product_variants
		SET stock = GREATEST(stock - $2, 0), updated_at = now()
		WHERE id = $1`
	productStockQuery := `
		UPDATE products
		SET stock = GREATEST(stock - $2, 0), updated_at = now()
		WHERE id = $1`

	for _, item := range o.Items {
		if item.VariantID != nil {
			_, err = tx.Exec(ctx, variantStockQuery, *item.VariantID, item.Quantity)
		} else {
			_, err = tx.Exec(ctx, productStockQuery, item.ProductID, item.Quantity)
		}
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves an order by its ID, eagerly loading its items. Items are
// aggregated in the same query to avoid a second round trip.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT
			o.id, o.order_number, o.customer_id, o.customer_name, o.customer_last_name, o.customer_phone, o.customer_email,
			o.status, o.subtotal, o.discount, o.shipping_cost, o.priority_shipping, o.total, o.payment_method,
			o.shipping_address, o.shipping_city, o.shipping_notes, o.department, o.whatsapp_sent, o.created_at, o.updated_at,
			COALESCE(
				JSONB_AGG(
					JSONB_BUILD_OBJECT(
						'id', oi.id,
						'order_id', oi.order_id,
						'product_id', oi.product_id,
						'variant_id', oi.variant_id,
						'product_name', oi.product_name,
						'sku', oi.sku,
						'unit_price', oi.unit_price,
						'quantity', oi.quantity,
						'subtotal', oi.subtotal
					) ORDER BY oi.id
				) FILTER (WHERE oi.id IS NOT NULL),
				'[]'::jsonb
			) AS items
		FROM orders o
		LEFT JOIN order_items oi ON o.id = oi.order_id
		WHERE o.id = $1
		GROUP BY o.id`

	var (
		o         domain.Order
		itemsJSON []byte
	)

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.OrderNumber,
		&o.CustomerID,
		&o.CustomerName,
		&o.CustomerLastName,
		&o.CustomerPhone,
		&o.CustomerEmail,
		&o.Status,
		&o.Subtotal,
		&o.Discount,
		&o.ShippingCost,
		&o.PriorityShipping,
		&o.Total,
		&o.PaymentMethod,
		&o.ShippingAddress,
		&o.ShippingCity,
		&o.ShippingNotes,
		&o.Department,
		&o.WhatsAppSent,
		&o.CreatedAt,
		&o.UpdatedAt,
		&itemsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if len(itemsJSON) > 0 && string(itemsJSON) != "null" && string(itemsJSON) != "[]" {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	} else {
		o.Items = []domain.OrderItem{}
	}

	return &o, nil
}

// MarkWhatsAppSent records that the WhatsApp handoff link was produced.
func (r *OrderRepository) MarkWhatsAppSent(ctx context.Context, id string) error {
	query := `
		UPDATE orders
		SET whatsapp_sent = true, updated_at = now()
		WHERE id = $1`

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark order whatsapp sent: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}

	return nil
}
