package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Andres4532/solhana-storefront/internal/repository"
	"github.com/Andres4532/solhana-storefront/pkg/database"
	apperrors "github.com/Andres4532/solhana-storefront/pkg/errors"
)

func newProductRepo(t *testing.T) (*ProductRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewProductRepository(mock), mock
}

var productScanColumns = []string{
	"id", "sku", "name", "description", "price", "discount_pct", "original_price",
	"stock", "has_variants", "status", "category_id", "image_url", "created_at", "updated_at",
}

var variantScanColumns = []string{
	"id", "product_id", "attributes", "price", "sku", "stock", "active", "image_url", "created_at", "updated_at",
}

func productRow(now time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(productScanColumns).AddRow(
		"prod-001", "VES-001", "Vestido Lino", "Vestido de lino natural",
		int64(5000), 10.0, nil, 0, true, "active", nil, nil, now, now,
	)
}

func TestProductRepository_GetByID_Success(t *testing.T) {
	repo, mock := newProductRepo(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	mock.ExpectQuery("SELECT(.|\n)*FROM products").
		WithArgs("prod-001").
		WillReturnRows(productRow(now))

	p, err := repo.GetByID(context.Background(), "prod-001")
	require.NoError(t, err)
	assert.Equal(t, "Vestido Lino", p.Name)
	assert.Equal(t, int64(5000), p.Price)
	assert.True(t, p.HasVariants)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newProductRepo(t)

	mock.ExpectQuery("SELECT(.|\n)*FROM products").
		WithArgs("prod-missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "prod-missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_ListVariants_NormalizesMixedCasingAttributes(t *testing.T) {
	repo, mock := newProductRepo(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	rows := pgxmock.NewRows(variantScanColumns).
		AddRow("var-001", "prod-001", []byte(`{"Color":"Rojo","TALLA":"M"}`), nil, nil, 4, true, nil, now, now).
		AddRow("var-002", "prod-001", []byte(`{"color":"Negro","Size":"L"}`), nil, nil, 0, true, nil, now, now).
		AddRow("var-003", "prod-001", []byte(`{}`), nil, nil, 2, true, nil, now, now)

	// Deactivated variants are filtered at the source, never in Go.
	mock.ExpectQuery(`SELECT(.|\n)*FROM product_variants(.|\n)*active = true`).
		WithArgs("prod-001").
		WillReturnRows(rows)

	variants, err := repo.ListVariants(context.Background(), "prod-001")
	require.NoError(t, err)
	require.Len(t, variants, 3)

	require.NotNil(t, variants[0].Facets.Color)
	assert.Equal(t, "Rojo", *variants[0].Facets.Color)
	require.NotNil(t, variants[0].Facets.Size)
	assert.Equal(t, "M", *variants[0].Facets.Size)

	require.NotNil(t, variants[1].Facets.Color)
	assert.Equal(t, "Negro", *variants[1].Facets.Color)
	require.NotNil(t, variants[1].Facets.Size)
	assert.Equal(t, "L", *variants[1].Facets.Size)

	assert.Nil(t, variants[2].Facets.Color)
	assert.Nil(t, variants[2].Facets.Size)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetDetail_ComposesFacets(t *testing.T) {
	repo, mock := newProductRepo(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	mock.ExpectQuery("SELECT(.|\n)*FROM products").
		WithArgs("prod-001").
		WillReturnRows(productRow(now))

	variantRows := pgxmock.NewRows(variantScanColumns).
		AddRow("var-001", "prod-001", []byte(`{"color":"Rojo","talla":"M"}`), nil, nil, 4, true, nil, now, now).
		AddRow("var-002", "prod-001", []byte(`{"color":"Negro","talla":"L"}`), nil, nil, 2, true, nil, now, now)

	mock.ExpectQuery("SELECT(.|\n)*FROM product_variants").
		WithArgs("prod-001").
		WillReturnRows(variantRows)

	detail, err := repo.GetDetail(context.Background(), "prod-001")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rojo", "Negro"}, detail.AvailableColors)
	assert.Equal(t, []string{"M", "L"}, detail.AvailableSizes)
	assert.Len(t, detail.Variants, 2)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List_WithStatusFilter(t *testing.T) {
	repo, mock := newProductRepo(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	status := "active"

	rows := pgxmock.NewRows(append(productScanColumns, "total_count")).AddRow(
		"prod-001", "VES-001", "Vestido Lino", "Vestido de lino natural",
		int64(5000), 10.0, nil, 0, true, "active", nil, nil, now, now, 7,
	)

	mock.ExpectQuery("SELECT(.|\n)*FROM products").
		WithArgs(status, 20, 0).
		WillReturnRows(rows)

	products, total, err := repo.List(context.Background(), repository.ProductFilter{Status: &status})
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 7, total)

	assert.NoError(t, mock.ExpectationsWereMet())
}
