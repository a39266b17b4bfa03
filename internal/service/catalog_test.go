package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Andres4532/solhana-storefront/internal/domain"
	"github.com/Andres4532/solhana-storefront/internal/repository"
	apperrors "github.com/Andres4532/solhana-storefront/pkg/errors"
)

func TestCatalogService_ListProducts_DefaultsAndActiveOnly(t *testing.T) {
	products := &mockProductRepository{}
	svc := NewCatalogService(products)

	products.On("List", mock.Anything, mock.MatchedBy(func(f repository.ProductFilter) bool {
		return f.Status != nil && *f.Status == domain.ProductStatusActive &&
			f.Page == 1 && f.PerPage == 20
	})).Return([]domain.Product{{ID: "prod-001", Name: "Vestido Lino"}}, 1, nil)

	page, err := svc.ListProducts(context.Background(), ListProductsInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Len(t, page.Products, 1)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PerPage)

	products.AssertExpectations(t)
}

func TestCatalogService_GetProductDetail_InactiveReadsAsNotFound(t *testing.T) {
	products := &mockProductRepository{}
	svc := NewCatalogService(products)

	detail := &domain.ProductDetail{
		Product: domain.Product{ID: "prod-001", Status: domain.ProductStatusDraft},
	}
	products.On("GetDetail", mock.Anything, "prod-001").Return(detail, nil)

	_, err := svc.GetProductDetail(context.Background(), "prod-001")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCatalogService_GetProductDetail_Active(t *testing.T) {
	products := &mockProductRepository{}
	svc := NewCatalogService(products)

	detail := &domain.ProductDetail{
		Product:         domain.Product{ID: "prod-001", Status: domain.ProductStatusActive},
		AvailableColors: []string{"Rojo"},
	}
	products.On("GetDetail", mock.Anything, "prod-001").Return(detail, nil)

	got, err := svc.GetProductDetail(context.Background(), "prod-001")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rojo"}, got.AvailableColors)
}

func TestCatalogService_GetProductDetail_EmptyID(t *testing.T) {
	svc := NewCatalogService(&mockProductRepository{})

	_, err := svc.GetProductDetail(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
