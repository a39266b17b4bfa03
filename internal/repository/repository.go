// Package repository defines the persistence interfaces consumed by the
// service layer. Implementations live in the postgres and rediscache
// subpackages.
package repository

import (
	"context"

	"github.com/Andres4532/solhana-storefront/internal/domain"
)

// ProductFilter defines filter criteria for listing products.
type ProductFilter struct {
	CategoryID *string
	Status     *string
	Search     *string
	Page       int
	PerPage    int
}

// ProductRepository defines persistence operations over the catalog.
type ProductRepository interface {
	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetDetail retrieves a product together with all of its variants.
	GetDetail(ctx context.Context, id string) (*domain.ProductDetail, error)

	// List returns products matching the filter along with the total count.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// ListVariants returns a product's active variants.
	ListVariants(ctx context.Context, productID string) ([]domain.ProductVariant, error)
}

// ProductCacheInvalidator drops cached product state after a write outside
// the catalog path changes it, such as the stock decrement on checkout.
// Invalidation is best-effort and never returns an error.
type ProductCacheInvalidator interface {
	Invalidate(ctx context.Context, productID string)
}

// CartRepository defines persistence operations over cart lines. A cart is
// the set of lines sharing one owner; there is no cart header row.
type CartRepository interface {
	// ListByOwner returns the owner's cart lines enriched with product data,
	// newest first.
	ListByOwner(ctx context.Context, owner domain.CartOwner) ([]domain.CartItem, error)

	// FindLine locates the owner's line for a product/variant pair. Returns
	// apperrors.ErrNotFound when no such line exists.
	FindLine(ctx context.Context, owner domain.CartOwner, productID string, variantID *string) (*domain.CartLine, error)

	// InsertLine adds a new cart line.
	InsertLine(ctx context.Context, line *domain.CartLine) error

	// UpdateQuantity sets the quantity of an existing line.
	UpdateQuantity(ctx context.Context, lineID string, quantity int) error

	// DeleteLine removes a single line.
	DeleteLine(ctx context.Context, lineID string) error

	// DeleteAllForOwner removes every line belonging to the owner.
	DeleteAllForOwner(ctx context.Context, owner domain.CartOwner) error

	// DeleteAllForSession removes every line belonging to an anonymous
	// session token. Satisfies session.Purger.
	DeleteAllForSession(ctx context.Context, sessionID string) error

	// ReassignSession moves all of a session's lines to a customer,
	// merging quantities where the customer already has a matching line.
	// Returns the number of lines that ended up owned by the customer.
	ReassignSession(ctx context.Context, sessionID, customerID string) (int, error)
}

// OrderRepository defines persistence operations over orders.
type OrderRepository interface {
	// Create inserts an order and its items atomically.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by its unique identifier, including items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// MarkWhatsAppSent records that the WhatsApp handoff link was produced.
	MarkWhatsAppSent(ctx context.Context, id string) error
}

// CustomerRepository resolves checkout contacts to customer rows.
type CustomerRepository interface {
	// UpsertByContact finds a customer by email (or phone when the email is
	// empty), creating one on first contact, and returns its ID.
	UpsertByContact(ctx context.Context, name, email, phone string) (string, error)
}
