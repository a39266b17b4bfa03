package domain

import (
	"math"
	"time"
)

// Product status constants.
const (
	ProductStatusDraft    = "draft"
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

// Product represents a sellable item in the catalog.
//
// Stock is only meaningful when HasVariants is false; for variant products
// the sellable stock is the sum of the active variants' stock.
type Product struct {
	ID            string    `json:"id"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         int64     `json:"price"`
	DiscountPct   float64   `json:"discount_pct"`
	OriginalPrice *int64    `json:"original_price,omitempty"`
	Stock         int       `json:"stock"`
	HasVariants   bool      `json:"has_variants"`
	Status        string    `json:"status"`
	CategoryID    *string   `json:"category_id,omitempty"`
	ImageURL      *string   `json:"image_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProductVariant is a concrete purchasable configuration of a product.
//
// Attributes carries the raw attribute bag as stored; the map has no canonical
// schema (historic rows mix key casings like color/Color/COLOR and
// talla/Size). Facets holds the canonical color/size values derived from
// Attributes exactly once, at fetch time, so the rest of the engine never
// probes the raw map again.
type ProductVariant struct {
	ID         string            `json:"id"`
	ProductID  string            `json:"product_id"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Facets     Facets            `json:"facets"`
	Price      *int64            `json:"price,omitempty"`
	SKU        *string           `json:"sku,omitempty"`
	Stock      int               `json:"stock"`
	Active     bool              `json:"active"`
	ImageURL   *string           `json:"image_url,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// ProductDetail is an enriched product response containing the product's
// active variants and the facet values selectable from them.
type ProductDetail struct {
	Product
	Variants        []ProductVariant `json:"variants"`
	AvailableColors []string         `json:"available_colors"`
	AvailableSizes  []string         `json:"available_sizes"`
}

// ActiveVariants filters out deactivated variants. Facet resolution and stock
// ceilings only ever see active variants; a combination whose variant was
// deactivated resolves as if the variant no longer exists.
func ActiveVariants(variants []ProductVariant) []ProductVariant {
	active := make([]ProductVariant, 0, len(variants))
	for _, v := range variants {
		if v.Active {
			active = append(active, v)
		}
	}
	return active
}

// TotalActiveStock sums the stock of all active variants.
func TotalActiveStock(variants []ProductVariant) int {
	var total int
	for _, v := range variants {
		if v.Active {
			total += v.Stock
		}
	}
	return total
}

// UnitPrice resolves the price captured on a cart line and shown on the
// product page, in cents.
//
// The base is the variant's override price when present and positive,
// otherwise the product's price. The product-level discount applies on top in
// both cases; variants carry no discount of their own. The original
// (strikethrough) price is the product's stored original price when it is
// positive and differs from the current product price, otherwise the base
// itself. A zero stored original means none was recorded, not a free product.
func UnitPrice(p *Product, v *ProductVariant) (final, original int64) {
	base := p.Price
	if v != nil && v.Price != nil && *v.Price > 0 {
		base = *v.Price
	}

	final = base
	if p.DiscountPct > 0 {
		final = base - int64(math.Round(float64(base)*p.DiscountPct/100))
	}

	original = base
	if p.OriginalPrice != nil && *p.OriginalPrice > 0 && *p.OriginalPrice != p.Price {
		original = *p.OriginalPrice
	}

	return final, original
}

// ValidProductStatuses returns the set of valid product statuses.
func ValidProductStatuses() []string {
	return []string{ProductStatusDraft, ProductStatusActive, ProductStatusInactive}
}

// IsValidProductStatus checks whether the given status is a valid product status.
func IsValidProductStatus(status string) bool {
	for _, s := range ValidProductStatuses() {
		if s == status {
			return true
		}
	}
	return false
}
