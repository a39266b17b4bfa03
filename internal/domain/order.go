package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Order status constants.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// Payment method constants.
const (
	PaymentMethodCash       = "cash"
	PaymentMethodQRTransfer = "qr_transfer"
	PaymentMethodCard       = "card"
	PaymentMethodOther      = "other"
)

// Order is a placed order handed off to WhatsApp for confirmation. CustomerID
// is nil for guest checkouts; the contact fields are captured either way so
// the order can be fulfilled without an account.
type Order struct {
	ID               string    `json:"id"`
	OrderNumber      string    `json:"order_number"`
	CustomerID       *string   `json:"customer_id,omitempty"`
	CustomerName     *string   `json:"customer_name,omitempty"`
	CustomerLastName *string   `json:"customer_last_name,omitempty"`
	CustomerPhone    *string   `json:"customer_phone,omitempty"`
	CustomerEmail    *string   `json:"customer_email,omitempty"`
	Status           string    `json:"status"`
	Subtotal         int64     `json:"subtotal"`
	Discount         int64     `json:"discount"`
	ShippingCost     int64     `json:"shipping_cost"`
	PriorityShipping bool      `json:"priority_shipping"`
	Total            int64     `json:"total"`
	PaymentMethod    string    `json:"payment_method"`
	ShippingAddress  *string   `json:"shipping_address,omitempty"`
	ShippingCity     *string   `json:"shipping_city,omitempty"`
	ShippingNotes    *string   `json:"shipping_notes,omitempty"`
	Department       *string   `json:"department,omitempty"`
	WhatsAppSent     bool      `json:"whatsapp_sent"`
	Items            []OrderItem `json:"items,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// OrderItem is one purchased line frozen at checkout time.
type OrderItem struct {
	ID          string  `json:"id"`
	OrderID     string  `json:"order_id"`
	ProductID   string  `json:"product_id"`
	VariantID   *string `json:"variant_id,omitempty"`
	ProductName string  `json:"product_name"`
	SKU         *string `json:"sku,omitempty"`
	UnitPrice   int64   `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	Subtotal    int64   `json:"subtotal"`
}

// ValidOrderStatuses returns the set of valid order statuses.
func ValidOrderStatuses() []string {
	return []string{OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusCompleted, OrderStatusCancelled}
}

// IsValidOrderStatus checks whether the given status is a valid order status.
func IsValidOrderStatus(status string) bool {
	for _, s := range ValidOrderStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// ValidPaymentMethods returns the set of accepted payment methods.
func ValidPaymentMethods() []string {
	return []string{PaymentMethodCash, PaymentMethodQRTransfer, PaymentMethodCard, PaymentMethodOther}
}

// IsValidPaymentMethod checks whether the given method is accepted.
func IsValidPaymentMethod(method string) bool {
	for _, m := range ValidPaymentMethods() {
		if m == method {
			return true
		}
	}
	return false
}

// formatCents renders a cent amount as a decimal string ("149.90").
func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// WhatsAppMessage composes the plain-text order summary sent to the store's
// WhatsApp line when checkout hands off.
func (o *Order) WhatsAppMessage() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nuevo pedido %s\n", o.OrderNumber)
	if o.CustomerName != nil {
		name := *o.CustomerName
		if o.CustomerLastName != nil {
			name += " " + *o.CustomerLastName
		}
		fmt.Fprintf(&b, "Cliente: %s\n", name)
	}
	b.WriteString("\n")
	for _, item := range o.Items {
		fmt.Fprintf(&b, "- %dx %s (%s)\n", item.Quantity, item.ProductName, formatCents(item.Subtotal))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Subtotal: %s\n", formatCents(o.Subtotal))
	if o.Discount > 0 {
		fmt.Fprintf(&b, "Descuento: -%s\n", formatCents(o.Discount))
	}
	fmt.Fprintf(&b, "Envio: %s\n", formatCents(o.ShippingCost))
	fmt.Fprintf(&b, "Total: %s\n", formatCents(o.Total))
	if o.ShippingAddress != nil {
		fmt.Fprintf(&b, "Entrega: %s", *o.ShippingAddress)
		if o.ShippingCity != nil {
			fmt.Fprintf(&b, ", %s", *o.ShippingCity)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// WhatsAppURL builds the wa.me handoff link for the given store phone number
// (digits only, country code included).
func (o *Order) WhatsAppURL(storePhone string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", storePhone, url.QueryEscape(o.WhatsAppMessage()))
}
