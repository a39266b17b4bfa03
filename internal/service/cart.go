// Package service implements the storefront business logic on top of the
// repository and event layers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Andres4532/solhana-storefront/internal/domain"
	"github.com/Andres4532/solhana-storefront/internal/event"
	"github.com/Andres4532/solhana-storefront/internal/repository"
	apperrors "github.com/Andres4532/solhana-storefront/pkg/errors"
)

// MaxQuantityPerLine is the upper bound for a single cart line, independent
// of stock. Stops fat-finger and scripted abuse.
const MaxQuantityPerLine = 100

// AddItemInput holds the parameters for adding an item to the cart. The
// variant can be addressed directly by id or resolved from the chosen facets.
type AddItemInput struct {
	ProductID string  `json:"product_id" validate:"required"`
	VariantID *string `json:"variant_id,omitempty"`
	Color     *string `json:"color,omitempty"`
	Size      *string `json:"size,omitempty"`
	Quantity  int     `json:"quantity" validate:"required,gte=1"`
}

// UpdateQuantityInput holds the parameters for updating a line quantity.
// Zero removes the line.
type UpdateQuantityInput struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// AvailabilityInput describes the shopper's current facet state on a product
// page. Changed names the facet that was just picked ("color" or "size");
// when set, mutual narrowing applies before availability is computed.
type AvailabilityInput struct {
	Color   *string `json:"color,omitempty"`
	Size    *string `json:"size,omitempty"`
	Changed string  `json:"changed,omitempty" validate:"omitempty,oneof=color size"`
	Value   string  `json:"value,omitempty"`
}

// FacetOption is one selectable facet value with its stock flag. Out-of-stock
// values stay selectable; the flag only drives struck-through rendering.
type FacetOption struct {
	Value    string `json:"value"`
	HasStock bool   `json:"has_stock"`
}

// Availability is everything the product page needs after a facet change or
// cart mutation: the resolved variant, the stock ceiling net of the cart, the
// narrowed selection and the per-option stock flags.
type Availability struct {
	ProductID      string                `json:"product_id"`
	VariantID      *string               `json:"variant_id,omitempty"`
	Selection      domain.FacetSelection `json:"selection"`
	Colors         []FacetOption         `json:"colors"`
	Sizes          []FacetOption         `json:"sizes"`
	Ceiling        int                   `json:"ceiling"`
	InCart         int                   `json:"in_cart"`
	AvailableToAdd int                   `json:"available_to_add"`
	Quantity       int                   `json:"quantity"`
	UnitPrice      int64                 `json:"unit_price"`
	OriginalPrice  int64                 `json:"original_price"`
}

// CartService implements the cart business logic. Every mutation re-reads the
// owner's cart from the store before returning so callers always see the
// post-mutation state, and publishes a cart event that replaces client-side
// change notifications.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger

	// mergeOnLogin controls whether an anonymous cart is re-owned by the
	// customer when they authenticate.
	mergeOnLogin bool
}

// NewCartService creates a new cart service.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, producer *event.Producer, logger *slog.Logger, mergeOnLogin bool) *CartService {
	return &CartService{
		carts:        carts,
		products:     products,
		producer:     producer,
		logger:       logger,
		mergeOnLogin: mergeOnLogin,
	}
}

// GetCart retrieves the owner's cart. An owner with no lines gets an empty
// cart, not an error.
func (s *CartService) GetCart(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	items, err := s.carts.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	return &domain.Cart{Owner: owner, Items: items}, nil
}

// Availability computes what the product page shows for one facet state:
// the narrowed selection, the per-option stock flags, and how many more units
// the owner can add given what the cart already holds.
func (s *CartService) Availability(ctx context.Context, owner domain.CartOwner, productID string, input AvailabilityInput) (*Availability, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	variants, err := s.products.ListVariants(ctx, productID)
	if err != nil {
		return nil, err
	}
	variants = domain.ActiveVariants(variants)

	sel := domain.FacetSelection{Color: input.Color, Size: input.Size}
	switch input.Changed {
	case "color":
		sel = domain.NarrowOnColor(variants, sel, input.Value)
	case "size":
		sel = domain.NarrowOnSize(variants, sel, input.Value)
	default:
		if product.HasVariants && sel.Color == nil && sel.Size == nil {
			sel = domain.DefaultSelection(variants)
		}
	}

	var selected *domain.ProductVariant
	if product.HasVariants {
		selected = domain.SelectVariant(variants, sel)
	}

	items, err := s.carts.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("read cart for availability: %w", err)
	}
	lines := make([]domain.CartLine, len(items))
	for i, item := range items {
		lines[i] = item.CartLine
	}

	ceiling := domain.StockCeiling(product, variants, selected)
	inCart := domain.InCartQuantity(lines, product, selected, sel)
	available := domain.AvailableToAdd(ceiling, inCart)

	colors := make([]FacetOption, 0)
	for _, c := range domain.AvailableColors(variants, nil) {
		colors = append(colors, FacetOption{Value: c, HasStock: domain.ColorHasStock(variants, c)})
	}
	sizes := make([]FacetOption, 0)
	for _, sz := range domain.AvailableSizes(variants, sel.Color) {
		sizes = append(sizes, FacetOption{Value: sz, HasStock: domain.SizeHasStock(variants, sz, sel.Color)})
	}

	finalPrice, originalPrice := domain.UnitPrice(product, selected)

	out := &Availability{
		ProductID:      productID,
		Selection:      sel,
		Colors:         colors,
		Sizes:          sizes,
		Ceiling:        ceiling,
		InCart:         inCart,
		AvailableToAdd: available,
		Quantity:       domain.NewQuantityField(available).Value,
		UnitPrice:      finalPrice,
		OriginalPrice:  originalPrice,
	}
	if selected != nil {
		out.VariantID = &selected.ID
	}

	return out, nil
}

// AddItem adds a purchasable combination to the owner's cart, merging into an
// existing line for the same product/variant pair. The quantity is gated by
// the live stock ceiling net of what the cart already holds; the unit price
// is captured at add time.
func (s *CartService) AddItem(ctx context.Context, owner domain.CartOwner, input AddItemInput) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if input.Quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be greater than 0")
	}
	if input.Quantity > MaxQuantityPerLine {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerLine))
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if product.Status != domain.ProductStatusActive {
		return nil, apperrors.NotFound("product", input.ProductID)
	}

	variants, err := s.products.ListVariants(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	variants = domain.ActiveVariants(variants)

	selected, err := s.resolveVariant(product, variants, input)
	if err != nil {
		return nil, err
	}

	var variantID *string
	if selected != nil {
		variantID = &selected.ID
	}

	inCart := 0
	existing, err := s.carts.FindLine(ctx, owner, input.ProductID, variantID)
	switch {
	case err == nil:
		inCart = existing.Quantity
	case errors.Is(err, apperrors.ErrNotFound):
		existing = nil
	default:
		return nil, fmt.Errorf("find cart line: %w", err)
	}

	ceiling := domain.StockCeiling(product, variants, selected)
	available := domain.AvailableToAdd(ceiling, inCart)
	if input.Quantity > available {
		return nil, apperrors.OutOfStock(available)
	}

	if existing != nil {
		newQty := existing.Quantity + input.Quantity
		if newQty > MaxQuantityPerLine {
			return nil, apperrors.InvalidInput(fmt.Sprintf("combined quantity must not exceed %d", MaxQuantityPerLine))
		}
		if err := s.carts.UpdateQuantity(ctx, existing.ID, newQty); err != nil {
			return nil, fmt.Errorf("merge cart line: %w", err)
		}
	} else {
		unitPrice, _ := domain.UnitPrice(product, selected)
		now := time.Now().UTC()
		line := &domain.CartLine{
			ID:        uuid.NewString(),
			ProductID: input.ProductID,
			VariantID: variantID,
			Quantity:  input.Quantity,
			UnitPrice: unitPrice,
			CreatedAt: now,
			UpdatedAt: now,
		}
		line.CustomerID = owner.CustomerID
		line.SessionID = owner.SessionID
		if selected != nil {
			line.Color = selected.Facets.Color
			line.Size = selected.Facets.Size
		} else {
			line.Color = input.Color
			line.Size = input.Size
		}
		if err := s.carts.InsertLine(ctx, line); err != nil {
			return nil, fmt.Errorf("insert cart line: %w", err)
		}
	}

	return s.reloadAndNotify(ctx, owner)
}

// resolveVariant picks the variant the add refers to. Only active variants
// reach this point, so an explicit variant id that is missing or deactivated
// reads as not found. Without an id, a variant product resolves from the
// chosen facets; failing to resolve on a variant product is an input error,
// never a silent fallback to product-level stock.
func (s *CartService) resolveVariant(product *domain.Product, variants []domain.ProductVariant, input AddItemInput) (*domain.ProductVariant, error) {
	if input.VariantID != nil {
		for i := range variants {
			if variants[i].ID == *input.VariantID {
				return &variants[i], nil
			}
		}
		return nil, apperrors.NotFound("variant", *input.VariantID)
	}

	if !product.HasVariants || len(variants) == 0 {
		return nil, nil
	}

	sel := domain.FacetSelection{Color: input.Color, Size: input.Size}
	selected := domain.SelectVariant(variants, sel)
	if selected == nil {
		return nil, apperrors.InvalidInput("no variant matches the chosen options")
	}
	return selected, nil
}

// UpdateLineQuantity sets a line to an absolute quantity, re-validating the
// stock ceiling at call time. Zero removes the line.
func (s *CartService) UpdateLineQuantity(ctx context.Context, owner domain.CartOwner, lineID string, input UpdateQuantityInput) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if input.Quantity < 0 {
		return nil, apperrors.InvalidInput("quantity must not be negative")
	}
	if input.Quantity > MaxQuantityPerLine {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerLine))
	}

	line, err := s.ownedLine(ctx, owner, lineID)
	if err != nil {
		return nil, err
	}

	if input.Quantity == 0 {
		if err := s.carts.DeleteLine(ctx, lineID); err != nil {
			return nil, fmt.Errorf("delete cart line: %w", err)
		}
		return s.reloadAndNotify(ctx, owner)
	}

	product, err := s.products.GetByID(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}

	variants, err := s.products.ListVariants(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	variants = domain.ActiveVariants(variants)

	// The ceiling is recomputed from live stock, not from what was true when
	// the line was created.
	ceiling := domain.LineStockCeiling(product, variants, line)
	if input.Quantity > ceiling {
		return nil, apperrors.OutOfStock(ceiling)
	}

	if err := s.carts.UpdateQuantity(ctx, lineID, input.Quantity); err != nil {
		return nil, fmt.Errorf("update cart line quantity: %w", err)
	}

	return s.reloadAndNotify(ctx, owner)
}

// RemoveLine removes a single line from the owner's cart.
func (s *CartService) RemoveLine(ctx context.Context, owner domain.CartOwner, lineID string) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.ownedLine(ctx, owner, lineID); err != nil {
		return nil, err
	}

	if err := s.carts.DeleteLine(ctx, lineID); err != nil {
		return nil, fmt.Errorf("delete cart line: %w", err)
	}

	return s.reloadAndNotify(ctx, owner)
}

// ClearCart removes every line the owner holds.
func (s *CartService) ClearCart(ctx context.Context, owner domain.CartOwner, reason string) error {
	if err := owner.Validate(); err != nil {
		return err
	}

	if err := s.carts.DeleteAllForOwner(ctx, owner); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	if err := s.producer.PublishCartCleared(ctx, owner, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// ClaimSessionCart re-owns an anonymous cart on login, folding it into the
// customer's existing cart line by line. When merge-on-login is disabled the
// anonymous cart is left behind for its TTL purge and the customer's own cart
// is returned untouched.
func (s *CartService) ClaimSessionCart(ctx context.Context, sessionID, customerID string) (*domain.Cart, error) {
	if sessionID == "" || customerID == "" {
		return nil, apperrors.InvalidInput("session id and customer id are required")
	}

	owner := domain.CustomerOwner(customerID)

	if !s.mergeOnLogin {
		return s.GetCart(ctx, owner)
	}

	total, err := s.carts.ReassignSession(ctx, sessionID, customerID)
	if err != nil {
		return nil, fmt.Errorf("claim session cart: %w", err)
	}

	if err := s.producer.PublishCartClaimed(ctx, sessionID, customerID, total); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.claimed event",
			slog.String("customer_id", customerID),
			slog.String("error", err.Error()),
		)
	}

	return s.reloadAndNotify(ctx, owner)
}

// ownedLine fetches a line and verifies it belongs to the owner. A line held
// by someone else reads as not found, never as forbidden, to avoid leaking
// line ids across owners.
func (s *CartService) ownedLine(ctx context.Context, owner domain.CartOwner, lineID string) (*domain.CartLine, error) {
	items, err := s.carts.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	for i := range items {
		if items[i].ID == lineID {
			return &items[i].CartLine, nil
		}
	}
	return nil, apperrors.NotFound("cart line", lineID)
}

// reloadAndNotify re-reads the owner's cart after a mutation and publishes
// cart.updated. Publish failures are logged, never surfaced: a broken broker
// must not look like a broken cart.
func (s *CartService) reloadAndNotify(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error) {
	items, err := s.carts.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("reload cart: %w", err)
	}

	cart := &domain.Cart{Owner: owner, Items: items}

	if err := s.producer.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("error", err.Error()),
		)
	}

	return cart, nil
}
