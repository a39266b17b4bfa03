package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/Andres4532/solhana-storefront/internal/domain"
	"github.com/Andres4532/solhana-storefront/internal/event"
	"github.com/Andres4532/solhana-storefront/internal/repository"
	apperrors "github.com/Andres4532/solhana-storefront/pkg/errors"
)

// CheckoutConfig carries the store-level checkout parameters, in cents.
type CheckoutConfig struct {
	ShippingCost         int64
	PriorityShippingCost int64
	StorePhone           string
}

// CheckoutInput holds the contact and shipping data collected at checkout.
// Guests check out with contact data only; an authenticated owner already
// carries a customer id.
type CheckoutInput struct {
	Name             string  `json:"name" validate:"required"`
	LastName         string  `json:"last_name"`
	Phone            string  `json:"phone" validate:"required"`
	Email            string  `json:"email" validate:"omitempty,email"`
	PaymentMethod    string  `json:"payment_method" validate:"required"`
	ShippingAddress  *string `json:"shipping_address,omitempty"`
	ShippingCity     *string `json:"shipping_city,omitempty"`
	Department       *string `json:"department,omitempty"`
	ShippingNotes    *string `json:"shipping_notes,omitempty"`
	PriorityShipping bool    `json:"priority_shipping"`
}

// CheckoutResult is the placed order plus the WhatsApp handoff link the
// storefront opens to finish the conversation with the store.
type CheckoutResult struct {
	Order       *domain.Order `json:"order"`
	WhatsAppURL string        `json:"whatsapp_url"`
}

// CheckoutService turns a cart into an order. The order itself is
// transactional; emptying the cart afterwards is best-effort because a placed
// order with a leftover cart beats a lost order.
type CheckoutService struct {
	carts     repository.CartRepository
	orders    repository.OrderRepository
	customers repository.CustomerRepository
	cache     repository.ProductCacheInvalidator
	producer  *event.Producer
	logger    *slog.Logger
	cfg       CheckoutConfig
}

// NewCheckoutService creates a new checkout service. cache may be nil when no
// product cache sits in front of the catalog.
func NewCheckoutService(carts repository.CartRepository, orders repository.OrderRepository, customers repository.CustomerRepository, cache repository.ProductCacheInvalidator, producer *event.Producer, logger *slog.Logger, cfg CheckoutConfig) *CheckoutService {
	return &CheckoutService{
		carts:     carts,
		orders:    orders,
		customers: customers,
		cache:     cache,
		producer:  producer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Checkout places an order from the owner's cart.
func (s *CheckoutService) Checkout(ctx context.Context, owner domain.CartOwner, input CheckoutInput) (*CheckoutResult, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if input.Name == "" || input.Phone == "" {
		return nil, apperrors.InvalidInput("name and phone are required")
	}
	if !domain.IsValidPaymentMethod(input.PaymentMethod) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}

	items, err := s.carts.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if len(items) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	customerID := owner.CustomerID
	if customerID == nil {
		// Guests become customer rows keyed by contact so repeat orders link up.
		id, err := s.customers.UpsertByContact(ctx, input.Name, input.Email, input.Phone)
		if err != nil {
			return nil, fmt.Errorf("upsert guest customer: %w", err)
		}
		customerID = &id
	}

	now := time.Now().UTC()
	order := s.buildOrder(customerID, input, items, now)

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// The order took units off the stock ledger; drop the cached product
	// details so the pages stop showing the sold stock right away.
	if s.cache != nil {
		seen := make(map[string]struct{}, len(order.Items))
		for _, item := range order.Items {
			if _, ok := seen[item.ProductID]; ok {
				continue
			}
			seen[item.ProductID] = struct{}{}
			s.cache.Invalidate(ctx, item.ProductID)
		}
	}

	// Once the order exists the cart is a leftover. Failing to clear it must
	// not fail the checkout.
	if err := s.carts.DeleteAllForOwner(ctx, owner); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear cart after checkout",
			slog.String("order_number", order.OrderNumber),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_number", order.OrderNumber),
			slog.String("error", err.Error()),
		)
	}
	if err := s.producer.PublishCartCleared(ctx, owner, "checkout"); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("order_number", order.OrderNumber),
			slog.String("error", err.Error()),
		)
	}

	waURL := order.WhatsAppURL(s.cfg.StorePhone)
	if err := s.orders.MarkWhatsAppSent(ctx, order.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark order whatsapp sent",
			slog.String("order_number", order.OrderNumber),
			slog.String("error", err.Error()),
		)
	} else {
		order.WhatsAppSent = true
	}

	return &CheckoutResult{Order: order, WhatsAppURL: waURL}, nil
}

// GetOrder retrieves a placed order by id.
func (s *CheckoutService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("order id is required")
	}
	return s.orders.GetByID(ctx, id)
}

func (s *CheckoutService) buildOrder(customerID *string, input CheckoutInput, items []domain.CartItem, now time.Time) *domain.Order {
	var subtotal, discount int64
	orderItems := make([]domain.OrderItem, len(items))

	orderID := uuid.NewString()
	for i, item := range items {
		lineSubtotal := item.UnitPrice * int64(item.Quantity)
		subtotal += lineSubtotal
		// The saving shown on the order is the gap between the product's
		// undiscounted price and what was actually captured on the line.
		if full := item.ProductPrice * int64(item.Quantity); full > lineSubtotal {
			discount += full - lineSubtotal
		}

		var sku *string
		if item.ProductSKU != "" {
			v := item.ProductSKU
			sku = &v
		}
		orderItems[i] = domain.OrderItem{
			ID:          uuid.NewString(),
			OrderID:     orderID,
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			SKU:         sku,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			Subtotal:    lineSubtotal,
		}
	}

	shipping := s.cfg.ShippingCost
	if input.PriorityShipping {
		shipping += s.cfg.PriorityShippingCost
	}

	order := &domain.Order{
		ID:               orderID,
		OrderNumber:      newOrderNumber(now),
		CustomerID:       customerID,
		CustomerName:     &input.Name,
		CustomerPhone:    &input.Phone,
		Status:           domain.OrderStatusPending,
		Subtotal:         subtotal,
		Discount:         discount,
		ShippingCost:     shipping,
		PriorityShipping: input.PriorityShipping,
		Total:            subtotal + shipping,
		PaymentMethod:    input.PaymentMethod,
		ShippingAddress:  input.ShippingAddress,
		ShippingCity:     input.ShippingCity,
		ShippingNotes:    input.ShippingNotes,
		Department:       input.Department,
		Items:            orderItems,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if input.LastName != "" {
		order.CustomerLastName = &input.LastName
	}
	if input.Email != "" {
		order.CustomerEmail = &input.Email
	}

	return order
}

// newOrderNumber builds a human-quotable order number. The random tail keeps
// same-millisecond checkouts apart; the unique index on order_number catches
// the rest.
func newOrderNumber(now time.Time) string {
	return fmt.Sprintf("SLH-%s-%04d", now.Format("20060102"), rand.IntN(10000)) // #nosec G404 -- uniqueness is enforced by the database
}
