package domain

// Ordered probe lists for the raw attribute bag. Legacy catalog rows were
// written by hand through the admin shell, so the same logical facet shows up
// under several key casings; the first non-empty hit wins.
var (
	colorKeys = []string{"color", "Color", "COLOR"}
	sizeKeys  = []string{"talla", "Talla", "TALLA", "size", "Size", "SIZE"}
)

// Facets is the canonical color/size pair of a variant. Either value may be
// nil when the variant does not carry that dimension.
type Facets struct {
	Color *string `json:"color,omitempty"`
	Size  *string `json:"size,omitempty"`
}

// FacetSelection is the shopper's independently chosen color and size.
// A nil value means "not chosen" and matches any variant value.
type FacetSelection struct {
	Color *string `json:"color,omitempty"`
	Size  *string `json:"size,omitempty"`
}

// NormalizeFacets parses a raw attribute map into canonical facets. It is
// applied once at fetch time so no other code path probes the raw map.
func NormalizeFacets(attrs map[string]string) Facets {
	return Facets{
		Color: probeAttr(attrs, colorKeys),
		Size:  probeAttr(attrs, sizeKeys),
	}
}

func probeAttr(attrs map[string]string, keys []string) *string {
	for _, k := range keys {
		if v, ok := attrs[k]; ok && v != "" {
			val := v
			return &val
		}
	}
	return nil
}

// matches reports whether the variant satisfies every chosen facet. An unset
// selection value is a wildcard; a chosen value requires the variant to carry
// exactly that value (a variant missing the facet does not match a chosen one).
func (f Facets) matches(sel FacetSelection) bool {
	if sel.Color != nil && (f.Color == nil || *f.Color != *sel.Color) {
		return false
	}
	if sel.Size != nil && (f.Size == nil || *f.Size != *sel.Size) {
		return false
	}
	return true
}

// SelectVariant returns the first variant in list order matching every chosen
// facet, or nil when none matches. With an empty selection this is simply the
// first variant in the list.
func SelectVariant(variants []ProductVariant, sel FacetSelection) *ProductVariant {
	for i := range variants {
		if variants[i].Facets.matches(sel) {
			return &variants[i]
		}
	}
	return nil
}

// AvailableColors returns the distinct colors across all variants, in order of
// first appearance. Pass a non-nil size to restrict to variants carrying that
// size (the display set; stock is not considered here).
func AvailableColors(variants []ProductVariant, size *string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range variants {
		if v.Facets.Color == nil {
			continue
		}
		if size != nil && (v.Facets.Size == nil || *v.Facets.Size != *size) {
			continue
		}
		if _, ok := seen[*v.Facets.Color]; ok {
			continue
		}
		seen[*v.Facets.Color] = struct{}{}
		out = append(out, *v.Facets.Color)
	}
	return out
}

// AvailableSizes returns the distinct sizes across all variants, in order of
// first appearance, optionally restricted to variants carrying the given color.
func AvailableSizes(variants []ProductVariant, color *string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range variants {
		if v.Facets.Size == nil {
			continue
		}
		if color != nil && (v.Facets.Color == nil || *v.Facets.Color != *color) {
			continue
		}
		if _, ok := seen[*v.Facets.Size]; ok {
			continue
		}
		seen[*v.Facets.Size] = struct{}{}
		out = append(out, *v.Facets.Size)
	}
	return out
}

// inStockSizesForColor returns the distinct sizes of active, in-stock variants
// carrying the given color. Used when narrowing after a color pick.
func inStockSizesForColor(variants []ProductVariant, color string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range variants {
		if !v.Active || v.Stock <= 0 {
			continue
		}
		if v.Facets.Color == nil || *v.Facets.Color != color {
			continue
		}
		if v.Facets.Size == nil {
			continue
		}
		if _, ok := seen[*v.Facets.Size]; ok {
			continue
		}
		seen[*v.Facets.Size] = struct{}{}
		out = append(out, *v.Facets.Size)
	}
	return out
}

// inStockColorsForSize returns the distinct colors of active, in-stock
// variants carrying the given size. Used when narrowing after a size pick.
func inStockColorsForSize(variants []ProductVariant, size string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range variants {
		if !v.Active || v.Stock <= 0 {
			continue
		}
		if v.Facets.Size == nil || *v.Facets.Size != size {
			continue
		}
		if v.Facets.Color == nil {
			continue
		}
		if _, ok := seen[*v.Facets.Color]; ok {
			continue
		}
		seen[*v.Facets.Color] = struct{}{}
		out = append(out, *v.Facets.Color)
	}
	return out
}

// NarrowOnColor applies a new color pick to the selection. If the currently
// selected size is not available (active, stock > 0) under the new color, it
// is replaced with the first available size for that color, or cleared when
// none remains. Mutual narrowing, not a Cartesian lock: the pick itself always
// sticks.
func NarrowOnColor(variants []ProductVariant, sel FacetSelection, color string) FacetSelection {
	next := FacetSelection{Color: &color, Size: sel.Size}
	if sel.Size == nil {
		return next
	}

	sizes := inStockSizesForColor(variants, color)
	for _, s := range sizes {
		if s == *sel.Size {
			return next
		}
	}
	if len(sizes) > 0 {
		next.Size = &sizes[0]
	} else {
		next.Size = nil
	}
	return next
}

// NarrowOnSize is the symmetric counterpart of NarrowOnColor for a size pick.
func NarrowOnSize(variants []ProductVariant, sel FacetSelection, size string) FacetSelection {
	next := FacetSelection{Color: sel.Color, Size: &size}
	if sel.Color == nil {
		return next
	}

	colors := inStockColorsForSize(variants, size)
	for _, c := range colors {
		if c == *sel.Color {
			return next
		}
	}
	if len(colors) > 0 {
		next.Color = &colors[0]
	} else {
		next.Color = nil
	}
	return next
}

// ColorHasStock reports whether at least one active variant carrying the color
// has stock. Drives the disabled/struck-through rendering of an option; it
// does not block selecting the value.
func ColorHasStock(variants []ProductVariant, color string) bool {
	for _, v := range variants {
		if v.Active && v.Stock > 0 && v.Facets.Color != nil && *v.Facets.Color == color {
			return true
		}
	}
	return false
}

// SizeHasStock reports whether at least one active variant carrying the size
// (and the selected color, when one is chosen) has stock.
func SizeHasStock(variants []ProductVariant, size string, selectedColor *string) bool {
	for _, v := range variants {
		if !v.Active || v.Stock <= 0 {
			continue
		}
		if v.Facets.Size == nil || *v.Facets.Size != size {
			continue
		}
		if selectedColor != nil && (v.Facets.Color == nil || *v.Facets.Color != *selectedColor) {
			continue
		}
		return true
	}
	return false
}

// DefaultSelection picks the first available color and size, when the variant
// set carries those facets at all. Products without the facet never surface it.
func DefaultSelection(variants []ProductVariant) FacetSelection {
	var sel FacetSelection
	if colors := AvailableColors(variants, nil); len(colors) > 0 {
		sel.Color = &colors[0]
	}
	if sizes := AvailableSizes(variants, nil); len(sizes) > 0 {
		sel.Size = &sizes[0]
	}
	return sel
}
