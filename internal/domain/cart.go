package domain

import (
	"errors"
	"time"
)

// CartOwner identifies who a cart belongs to: an authenticated customer or an
// anonymous browser session. Exactly one of the two must be set.
type CartOwner struct {
	CustomerID *string `json:"customer_id,omitempty"`
	SessionID  *string `json:"session_id,omitempty"`
}

// CustomerOwner returns an owner scoped to an authenticated customer.
func CustomerOwner(customerID string) CartOwner {
	return CartOwner{CustomerID: &customerID}
}

// SessionOwner returns an owner scoped to an anonymous session token.
func SessionOwner(sessionID string) CartOwner {
	return CartOwner{SessionID: &sessionID}
}

// IsAnonymous reports whether the owner is an anonymous session.
func (o CartOwner) IsAnonymous() bool {
	return o.CustomerID == nil && o.SessionID != nil
}

// Validate enforces the exactly-one-of invariant.
func (o CartOwner) Validate() error {
	hasCustomer := o.CustomerID != nil && *o.CustomerID != ""
	hasSession := o.SessionID != nil && *o.SessionID != ""
	switch {
	case !hasCustomer && !hasSession:
		return errors.New("cart owner requires a customer id or a session id")
	case hasCustomer && hasSession:
		return errors.New("cart owner must not carry both a customer id and a session id")
	}
	return nil
}

// CartLine is one row of a cart: a distinct purchasable combination held by
// one owner. VariantID is nil for products without variants; Color and Size
// are denormalized snapshots of the facets chosen at add time, kept for
// display and for the per-line stock check when no variant id applies.
type CartLine struct {
	ID         string    `json:"id"`
	CustomerID *string   `json:"customer_id,omitempty"`
	SessionID  *string   `json:"session_id,omitempty"`
	ProductID  string    `json:"product_id"`
	VariantID  *string   `json:"variant_id,omitempty"`
	Quantity   int       `json:"quantity"`
	UnitPrice  int64     `json:"unit_price"`
	Color      *string   `json:"color,omitempty"`
	Size       *string   `json:"size,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MatchesKey reports whether the line holds the same purchasable combination:
// same product and same variant-or-none. Two adds for the same key merge into
// one line instead of producing duplicates.
func (l *CartLine) MatchesKey(productID string, variantID *string) bool {
	if l.ProductID != productID {
		return false
	}
	if l.VariantID == nil || variantID == nil {
		return l.VariantID == nil && variantID == nil
	}
	return *l.VariantID == *variantID
}

// CartItem is a cart line enriched with catalog data for display: product
// name/sku/image, the variant's attribute snapshot, and the product's current
// discount and original price so the cart page can render strikethroughs
// without a second fetch.
type CartItem struct {
	CartLine
	ProductName          string            `json:"product_name"`
	ProductSKU           string            `json:"product_sku"`
	ImageURL             *string           `json:"image_url,omitempty"`
	VariantAttributes    map[string]string `json:"variant_attributes,omitempty"`
	Subtotal             int64             `json:"subtotal"`
	ProductPrice         int64             `json:"product_price"`
	ProductDiscountPct   float64           `json:"product_discount_pct"`
	ProductOriginalPrice *int64            `json:"product_original_price,omitempty"`
}

// Cart is the full cart of one owner as re-read from the store after every
// mutation.
type Cart struct {
	Owner CartOwner  `json:"owner"`
	Items []CartItem `json:"items"`
}

// ItemCount returns the total number of units across all lines.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// Subtotal returns the sum of all line subtotals in cents.
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// FindLine returns the cart item with the given line id, or nil.
func (c *Cart) FindLine(lineID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ID == lineID {
			return &c.Items[i]
		}
	}
	return nil
}
