// Package event publishes storefront domain events to Kafka. The cart
// events replace in-page notifications: anything that renders a cart badge
// or a recommendation feed subscribes to these instead of polling.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Andres4532/solhana-storefront/internal/domain"
	pkgkafka "github.com/Andres4532/solhana-storefront/pkg/kafka"
)

// Kafka topic constants for storefront domain events.
const (
	TopicCartUpdated  = "solhana.cart.updated"
	TopicCartCleared  = "solhana.cart.cleared"
	TopicCartClaimed  = "solhana.cart.claimed"
	TopicOrderCreated = "solhana.order.created"
)

// Aggregate type constants.
const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"
)

// Source identifier for events originating from the storefront.
const SourceStorefront = "solhana-storefront"

// CartUpdatedData is the payload for a cart.updated event. It carries the
// re-read cart so consumers never have to fetch it back.
type CartUpdatedData struct {
	CustomerID *string        `json:"customer_id,omitempty"`
	SessionID  *string        `json:"session_id,omitempty"`
	Items      []CartItemData `json:"items"`
	ItemCount  int            `json:"item_count"`
	Subtotal   int64          `json:"subtotal"`
}

// CartItemData is the item payload within cart events.
type CartItemData struct {
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id,omitempty"`
	Name      string  `json:"name"`
	SKU       string  `json:"sku"`
	UnitPrice int64   `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	Color     *string `json:"color,omitempty"`
	Size      *string `json:"size,omitempty"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	CustomerID *string `json:"customer_id,omitempty"`
	SessionID  *string `json:"session_id,omitempty"`
	Reason     string  `json:"reason"`
}

// CartClaimedData is the payload for a cart.claimed event, emitted when an
// anonymous cart is re-owned by a customer on login.
type CartClaimedData struct {
	SessionID  string `json:"session_id"`
	CustomerID string `json:"customer_id"`
	LineCount  int    `json:"line_count"`
}

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	OrderID       string  `json:"order_id"`
	OrderNumber   string  `json:"order_number"`
	CustomerID    *string `json:"customer_id,omitempty"`
	Total         int64   `json:"total"`
	PaymentMethod string  `json:"payment_method"`
	ItemCount     int     `json:"item_count"`
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// ownerKey picks the aggregate id for cart events: the customer id when the
// cart is owned, otherwise the session token.
func ownerKey(owner domain.CartOwner) string {
	if owner.CustomerID != nil {
		return *owner.CustomerID
	}
	if owner.SessionID != nil {
		return *owner.SessionID
	}
	return ""
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	items := make([]CartItemData, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = CartItemData{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.ProductName,
			SKU:       item.ProductSKU,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Color:     item.Color,
			Size:      item.Size,
		}
	}

	data := CartUpdatedData{
		CustomerID: cart.Owner.CustomerID,
		SessionID:  cart.Owner.SessionID,
		Items:      items,
		ItemCount:  cart.ItemCount(),
		Subtotal:   cart.Subtotal(),
	}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, ownerKey(cart.Owner), AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("owner", ownerKey(cart.Owner)),
		slog.Int("item_count", cart.ItemCount()),
	)

	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, owner domain.CartOwner, reason string) error {
	data := CartClearedData{
		CustomerID: owner.CustomerID,
		SessionID:  owner.SessionID,
		Reason:     reason,
	}

	event, err := pkgkafka.NewEvent(TopicCartCleared, ownerKey(owner), AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.cleared event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartCleared, event); err != nil {
		return fmt.Errorf("publish cart.cleared event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.cleared event",
		slog.String("owner", ownerKey(owner)),
		slog.String("reason", reason),
	)

	return nil
}

// PublishCartClaimed publishes a cart.claimed event after a login merge.
func (p *Producer) PublishCartClaimed(ctx context.Context, sessionID, customerID string, lineCount int) error {
	data := CartClaimedData{
		SessionID:  sessionID,
		CustomerID: customerID,
		LineCount:  lineCount,
	}

	event, err := pkgkafka.NewEvent(TopicCartClaimed, customerID, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.claimed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartClaimed, event); err != nil {
		return fmt.Errorf("publish cart.claimed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.claimed event",
		slog.String("customer_id", customerID),
		slog.Int("line_count", lineCount),
	)

	return nil
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	data := OrderCreatedData{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerID:    order.CustomerID,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
		ItemCount:     len(order.Items),
	}

	event, err := pkgkafka.NewEvent(TopicOrderCreated, order.ID, AggregateTypeOrder, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create order.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCreated, event); err != nil {
		return fmt.Errorf("publish order.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.created event",
		slog.String("order_number", order.OrderNumber),
	)

	return nil
}
