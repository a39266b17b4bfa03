package service

import (
	"context"

	"github.com/Andres4532/solhana-storefront/internal/domain"
	"github.com/Andres4532/solhana-storefront/internal/repository"
	apperrors "github.com/Andres4532/solhana-storefront/pkg/errors"
)

// ListProductsInput holds the catalog listing parameters.
type ListProductsInput struct {
	CategoryID *string `json:"category_id,omitempty"`
	Search     *string `json:"search,omitempty"`
	Page       int     `json:"page" validate:"gte=0"`
	PerPage    int     `json:"per_page" validate:"gte=0,lte=100"`
}

// ProductPage is one page of the storefront catalog.
type ProductPage struct {
	Products []domain.Product `json:"products"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PerPage  int              `json:"per_page"`
}

// CatalogService serves the public catalog. Only active products are visible;
// drafts and retired products read as not found.
type CatalogService struct {
	products repository.ProductRepository
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(products repository.ProductRepository) *CatalogService {
	return &CatalogService{products: products}
}

// ListProducts returns one page of active products.
func (s *CatalogService) ListProducts(ctx context.Context, input ListProductsInput) (*ProductPage, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	perPage := input.PerPage
	if perPage < 1 {
		perPage = 20
	}

	status := domain.ProductStatusActive
	filter := repository.ProductFilter{
		CategoryID: input.CategoryID,
		Search:     input.Search,
		Status:     &status,
		Page:       page,
		PerPage:    perPage,
	}

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &ProductPage{
		Products: products,
		Total:    total,
		Page:     page,
		PerPage:  perPage,
	}, nil
}

// GetProductDetail returns an active product with its variants and facet sets.
func (s *CatalogService) GetProductDetail(ctx context.Context, id string) (*domain.ProductDetail, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	detail, err := s.products.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.Status != domain.ProductStatusActive {
		return nil, apperrors.NotFound("product", id)
	}

	return detail, nil
}
