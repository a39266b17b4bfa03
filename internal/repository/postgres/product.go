// Package postgres contains the PostgreSQL implementations of the
// repository interfaces.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Andres4532/solhana-storefront/internal/domain"
	"github.com/Andres4532/solhana-storefront/internal/repository"
	"github.com/Andres4532/solhana-storefront/pkg/database"
	apperrors "github.com/Andres4532/solhana-storefront/pkg/errors"
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

const productColumns = `id, sku, name, description, price, discount_pct, original_price, stock, has_variants, status, category_id, image_url, created_at, updated_at`

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1`

	var p domain.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.SKU,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.DiscountPct,
		&p.OriginalPrice,
		&p.Stock,
		&p.HasVariants,
		&p.Status,
		&p.CategoryID,
		&p.ImageURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	return &p, nil
}

// GetDetail retrieves a product together with all of its variants.
func (r *ProductRepository) GetDetail(ctx context.Context, id string) (*domain.ProductDetail, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	variants, err := r.ListVariants(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &domain.ProductDetail{
		Product:  *p,
		Variants: variants,
	}
	detail.AvailableColors = domain.AvailableColors(variants, nil)
	detail.AvailableSizes = domain.AvailableSizes(variants, nil)

	return detail, nil
}

// List returns products matching the given filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.Search != nil {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+*filter.Search+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// count(*) OVER() gives the total in the same query.
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var totalCount int
	products := make([]domain.Product, 0)

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.SKU,
			&p.Name,
			&p.Description,
			&p.Price,
			&p.DiscountPct,
			&p.OriginalPrice,
			&p.Stock,
			&p.HasVariants,
			&p.Status,
			&p.CategoryID,
			&p.ImageURL,
			&p.CreatedAt,
			&p.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, totalCount, nil
}

// ListVariants returns a product's active variants, oldest first so facet
// ordering is stable across requests. Deactivated variants never reach facet
// resolution; lines that still reference one read as unavailable.
func (r *ProductRepository) ListVariants(ctx context.Context, productID string) ([]domain.ProductVariant, error) {
	query := `
		SELECT id, product_id, attributes, price, sku, stock, active, image_url, created_at, updated_at
		FROM product_variants
		WHERE product_id = $1 AND active = true
		ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list product variants: %w", err)
	}
	defer rows.Close()

	variants := make([]domain.ProductVariant, 0)

	for rows.Next() {
		var (
			v         domain.ProductVariant
			attrsJSON []byte
		)
		if err := rows.Scan(
			&v.ID,
			&v.ProductID,
			&attrsJSON,
			&v.Price,
			&v.SKU,
			&v.Stock,
			&v.Active,
			&v.ImageURL,
			&v.CreatedAt,
			&v.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan variant row: %w", err)
		}

		if len(attrsJSON) > 0 && string(attrsJSON) != "null" {
			if err := json.Unmarshal(attrsJSON, &v.Attributes); err != nil {
				return nil, fmt.Errorf("unmarshal variant attributes: %w", err)
			}
		}

		// Canonical facets are derived once here so nothing downstream has
		// to probe the raw attribute bag.
		v.Facets = domain.NormalizeFacets(v.Attributes)

		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant rows: %w", err)
	}

	return variants, nil
}
