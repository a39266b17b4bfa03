package domain

// StockCeiling computes the maximum total quantity sellable for the current
// page selection, in priority order: the selected variant's own stock; the sum
// of active variant stocks when the product has variants but none is resolved
// yet; the product's stock field otherwise.
func StockCeiling(p *Product, variants []ProductVariant, selected *ProductVariant) int {
	if selected != nil {
		return selected.Stock
	}
	if p.HasVariants && len(variants) > 0 {
		return TotalActiveStock(variants)
	}
	return p.Stock
}

// LineStockCeiling computes the ceiling for an existing cart line, recomputed
// at call time. A line with a variant id uses that variant's stock directly
// (0 when the variant no longer exists). A variant-less line on a variant
// product sums active variants matching the line's facet snapshot; inactive
// variants never count. Otherwise the product's stock applies.
func LineStockCeiling(p *Product, variants []ProductVariant, line *CartLine) int {
	if line.VariantID != nil {
		for i := range variants {
			if variants[i].ID == *line.VariantID {
				return variants[i].Stock
			}
		}
		return 0
	}

	if p.HasVariants && len(variants) > 0 {
		var total int
		for _, v := range variants {
			if !v.Active {
				continue
			}
			if line.Color != nil && (v.Facets.Color == nil || *v.Facets.Color != *line.Color) {
				continue
			}
			if line.Size != nil && (v.Facets.Size == nil || *v.Facets.Size != *line.Size) {
				continue
			}
			total += v.Stock
		}
		return total
	}

	return p.Stock
}

// AvailableToAdd nets the ceiling against what the owner already reserved in
// cart for the same combination. Never negative, even when the cart holds more
// than current stock (stale state after an admin stock cut).
func AvailableToAdd(ceiling, inCartQty int) int {
	if ceiling <= inCartQty {
		return 0
	}
	return ceiling - inCartQty
}

// InCartQuantity sums the quantities of cart lines holding the combination the
// shopper is looking at. With a resolved variant the match is by variant id;
// with a partial facet choice on a variant product the line's facet snapshot
// must agree with every chosen facet; a bare product matches all of its lines.
func InCartQuantity(lines []CartLine, p *Product, selected *ProductVariant, sel FacetSelection) int {
	var total int
	for i := range lines {
		if lineMatchesSelection(&lines[i], p, selected, sel) {
			total += lines[i].Quantity
		}
	}
	return total
}

func lineMatchesSelection(line *CartLine, p *Product, selected *ProductVariant, sel FacetSelection) bool {
	if line.ProductID != p.ID {
		return false
	}

	if selected != nil {
		return line.VariantID != nil && *line.VariantID == selected.ID
	}

	if p.HasVariants && (sel.Color != nil || sel.Size != nil) {
		if sel.Color != nil && (line.Color == nil || *line.Color != *sel.Color) {
			return false
		}
		if sel.Size != nil && (line.Size == nil || *line.Size != *sel.Size) {
			return false
		}
	}

	return true
}

// QuantityField is the editable "about to add" counter on a product page,
// clamped between the ceiling and a floor of 1 (0 only while nothing is
// sellable). The persisted path on cart lines never goes through this type;
// it issues direct quantity updates gated by the ceiling check.
type QuantityField struct {
	Value int
}

// NewQuantityField starts the counter at 1 when anything is sellable, else 0.
func NewQuantityField(availableToAdd int) QuantityField {
	if availableToAdd > 0 {
		return QuantityField{Value: 1}
	}
	return QuantityField{Value: 0}
}

// Increment raises the counter, capped at what can still be added.
func (q *QuantityField) Increment(availableToAdd int) {
	if q.Value < availableToAdd {
		q.Value++
	}
}

// Decrement lowers the counter with a floor of 1.
func (q *QuantityField) Decrement() {
	if q.Value > 1 {
		q.Value--
	}
}

// Resync resets the counter after a facet change: show the quantity already
// in cart for the new combination when there is one, otherwise start over at 1.
func (q *QuantityField) Resync(inCartQty int) {
	if inCartQty > 0 {
		q.Value = inCartQty
	} else {
		q.Value = 1
	}
}

// Clamp re-validates the counter after the ceiling moved: cap it at the
// available quantity, drop to 0 when nothing is sellable, and re-promote to 1
// as soon as stock is back.
func (q *QuantityField) Clamp(availableToAdd int) {
	switch {
	case q.Value > availableToAdd && availableToAdd > 0:
		q.Value = availableToAdd
	case availableToAdd == 0 && q.Value > 0:
		q.Value = 0
	case availableToAdd > 0 && q.Value == 0:
		q.Value = 1
	}
}
