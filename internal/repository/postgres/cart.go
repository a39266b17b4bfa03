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

// CartRepository implements repository.CartRepository using PostgreSQL.
type CartRepository struct {
	pool database.DBTX
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool database.DBTX) *CartRepository {
	return &CartRepository{pool: pool}
}

// ownerCondition returns the WHERE fragment and argument selecting one
// owner's lines. Exactly one of the owner fields is set; Validate enforces
// that before any call reaches the repository.
func ownerCondition(owner domain.CartOwner, argIndex int) (string, any) {
	if owner.CustomerID != nil {
		return fmt.Sprintf("customer_id = $%d", argIndex), *owner.CustomerID
	}
	return fmt.Sprintf("session_id = $%d", argIndex), *owner.SessionID
}

// ListByOwner returns the owner's cart lines enriched with product data,
// newest first. The join snapshots the product's current discount and
// original price so the cart can render sale prices without extra fetches.
func (r *CartRepository) ListByOwner(ctx context.Context, owner domain.CartOwner) ([]domain.CartItem, error) {
	cond, arg := ownerCondition(owner, 1)
	query := fmt.Sprintf(`
		SELECT
			cl.id, cl.customer_id, cl.session_id, cl.product_id, cl.variant_id,
			cl.quantity, cl.unit_price, cl.color, cl.size, cl.created_at, cl.updated_at,
			p.name, p.sku, p.price, p.discount_pct, p.original_price,
			COALESCE(pv.image_url, p.image_url) AS image_url,
			pv.attributes
		FROM cart_lines cl
		JOIN products p ON p.id = cl.product_id
		LEFT JOIN product_variants pv ON pv.id = cl.variant_id
		WHERE cl.%s
		ORDER BY cl.created_at DESC, cl.id`, cond)

	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)

	for rows.Next() {
		var (
			item      domain.CartItem
			attrsJSON []byte
		)
		if err := rows.Scan(
			&item.ID,
			&item.CustomerID,
			&item.SessionID,
			&item.ProductID,
			&item.VariantID,
			&item.Quantity,
			&item.UnitPrice,
			&item.Color,
			&item.Size,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.ProductName,
			&item.ProductSKU,
			&item.ProductPrice,
			&item.ProductDiscountPct,
			&item.ProductOriginalPrice,
			&item.ImageURL,
			&attrsJSON,
		); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}

		if len(attrsJSON) > 0 && string(attrsJSON) != "null" {
			if err := json.Unmarshal(attrsJSON, &item.VariantAttributes); err != nil {
				return nil, fmt.Errorf("unmarshal variant attributes: %w", err)
			}
		}

		item.Subtotal = item.UnitPrice * int64(item.Quantity)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}

	return items, nil
}

// FindLine locates the owner's line for a product/variant pair.
func (r *CartRepository) FindLine(ctx context.Context, owner domain.CartOwner, productID string, variantID *string) (*domain.CartLine, error) {
	cond, arg := ownerCondition(owner, 1)
	query := fmt.Sprintf(`
		SELECT id, customer_id, session_id, product_id, variant_id, quantity, unit_price, color, size, created_at, updated_at
		FROM cart_lines
		WHERE %s
		  AND product_id = $2
		  AND (variant_id = $3 OR (variant_id IS NULL AND $3::uuid IS NULL))`, cond)

	var line domain.CartLine
	err := r.pool.QueryRow(ctx, query, arg, productID, variantID).Scan(
		&line.ID,
		&line.CustomerID,
		&line.SessionID,
		&line.ProductID,
		&line.VariantID,
		&line.Quantity,
		&line.UnitPrice,
		&line.Color,
		&line.Size,
		&line.CreatedAt,
		&line.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find cart line: %w", err)
	}

	return &line, nil
}

// InsertLine adds a new cart line.
func (r *CartRepository) InsertLine(ctx context.Context, line *domain.CartLine) error {
	query := `
		INSERT INTO cart_lines (id, customer_id, session_id, product_id, variant_id, quantity, unit_price, color, size, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		line.ID,
		line.CustomerID,
		line.SessionID,
		line.ProductID,
		line.VariantID,
		line.Quantity,
		line.UnitPrice,
		line.Color,
		line.Size,
		line.CreatedAt,
		line.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrAlreadyExists
		}
		return fmt.Errorf("insert cart line: %w", err)
	}

	return nil
}

// UpdateQuantity sets the quantity of an existing line.
func (r *CartRepository) UpdateQuantity(ctx context.Context, lineID string, quantity int) error {
	query := `
		UPDATE cart_lines
		SET quantity = $2, updated_at = now()
		WHERE id = $1`

	ct, err := r.pool.Exec(ctx, query, lineID, quantity)
	if err != nil {
		return fmt.Errorf("update cart line quantity: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("cart line", lineID)
	}

	return nil
}

// DeleteLine removes a single line.
func (r *CartRepository) DeleteLine(ctx context.Context, lineID string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM cart_lines WHERE id = $1`, lineID)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("cart line", lineID)
	}

	return nil
}

// DeleteAllForOwner removes every line belonging to the owner.
func (r *CartRepository) DeleteAllForOwner(ctx context.Context, owner domain.CartOwner) error {
	cond, arg := ownerCondition(owner, 1)
	if _, err := r.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM cart_lines WHERE %s`, cond), arg); err != nil {
		return fmt.Errorf("delete cart lines: %w", err)
	}
	return nil
}

// DeleteAllForSession removes every line belonging to an anonymous session
// token. Deleting an unknown token is not an error.
func (r *CartRepository) DeleteAllForSession(ctx context.Context, sessionID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM cart_lines WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete session cart lines: %w", err)
	}
	return nil
}

// ReassignSession moves all of a session's lines to a customer inside one
// transaction. Where the customer already holds a line for the same
// product/variant pair, the session line's quantity is folded into it and
// the session line dropped; the rest are re-owned as-is.
func (r *CartRepository) ReassignSession(ctx context.Context, sessionID, customerID string) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	mergeQuery := `
		UPDATE cart_lines AS c
		SET quantity = c.quantity + s.quantity, updated_at = now()
		FROM cart_lines AS s
		WHERE s.session_id = $1
		  AND c.customer_id = $2
		  AND c.product_id = s.product_id
		  AND (c.variant_id = s.variant_id OR (c.variant_id IS NULL AND s.variant_id IS NULL))`

	if _, err := tx.Exec(ctx, mergeQuery, sessionID, customerID); err != nil {
		return 0, fmt.Errorf("merge duplicate cart lines: %w", err)
	}

	dropQuery := `
		DELETE FROM cart_lines AS s
		WHERE s.session_id = $1
		  AND EXISTS (
			SELECT 1 FROM cart_lines AS c
			WHERE c.customer_id = $2
			  AND c.product_id = s.product_id
			  AND (c.variant_id = s.variant_id OR (c.variant_id IS NULL AND s.variant_id IS NULL))
		  )`

	if _, err := tx.Exec(ctx, dropQuery, sessionID, customerID); err != nil {
		return 0, fmt.Errorf("drop merged cart lines: %w", err)
	}

	reassignQuery := `
		UPDATE cart_lines
		SET customer_id = $2, session_id = NULL, updated_at = now()
		WHERE session_id = $1`

	if _, err := tx.Exec(ctx, reassignQuery, sessionID, customerID); err != nil {
		return 0, fmt.Errorf("reassign cart lines: %w", err)
	}

	var total int
	countQuery := `SELECT count(*) FROM cart_lines WHERE customer_id = $1`
	if err := tx.QueryRow(ctx, countQuery, customerID).Scan(&total); err != nil {
		return 0, fmt.Errorf("count customer cart lines: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return total, nil
}
