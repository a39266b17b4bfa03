package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func int64Ptr(v int64) *int64 { return &v }

func TestUnitPrice(t *testing.T) {
	t.Run("product price without discount", func(t *testing.T) {
		p := &Product{Price: 5000}
		final, original := UnitPrice(p, nil)
		assert.Equal(t, int64(5000), final)
		assert.Equal(t, int64(5000), original)
	})

	t.Run("product discount applies", func(t *testing.T) {
		p := &Product{Price: 5000, DiscountPct: 10}
		final, original := UnitPrice(p, nil)
		assert.Equal(t, int64(4500), final)
		assert.Equal(t, int64(5000), original)
	})

	t.Run("variant override replaces base", func(t *testing.T) {
		p := &Product{Price: 5000, DiscountPct: 10}
		v := &ProductVariant{Price: int64Ptr(6000)}
		final, _ := UnitPrice(p, v)
		assert.Equal(t, int64(5400), final, "discount applies to the override")
	})

	t.Run("zero variant price falls back to product price", func(t *testing.T) {
		p := &Product{Price: 5000}
		v := &ProductVariant{Price: int64Ptr(0)}
		final, _ := UnitPrice(p, v)
		assert.Equal(t, int64(5000), final)
	})

	t.Run("stored original price wins for strikethrough", func(t *testing.T) {
		p := &Product{Price: 5000, OriginalPrice: int64Ptr(7000)}
		_, original := UnitPrice(p, nil)
		assert.Equal(t, int64(7000), original)
	})

	t.Run("zero stored original reads as absent", func(t *testing.T) {
		// Rows without a recorded original scan as a pointer to zero when the
		// column defaults instead of going NULL.
		p := &Product{Price: 5000, OriginalPrice: int64Ptr(0)}
		final, original := UnitPrice(p, nil)
		assert.Equal(t, int64(5000), final)
		assert.Equal(t, int64(5000), original, "no zero strikethrough price")
	})

	t.Run("discount rounds to nearest cent", func(t *testing.T) {
		p := &Product{Price: 333, DiscountPct: 15}
		final, _ := UnitPrice(p, nil)
		assert.Equal(t, int64(283), final, "333 - round(49.95)")
	})
}

func TestActiveVariants(t *testing.T) {
	variants := []ProductVariant{
		{ID: "var-1", Active: true},
		{ID: "var-2", Active: false},
		{ID: "var-3", Active: true},
	}

	active := ActiveVariants(variants)
	assert.Len(t, active, 2)
	assert.Equal(t, "var-1", active[0].ID)
	assert.Equal(t, "var-3", active[1].ID)
	assert.Empty(t, ActiveVariants(nil))
}

func TestTotalActiveStock(t *testing.T) {
	variants := []ProductVariant{
		{Stock: 4, Active: true},
		{Stock: 3, Active: false},
		{Stock: 2, Active: true},
	}
	assert.Equal(t, 6, TotalActiveStock(variants))
	assert.Equal(t, 0, TotalActiveStock(nil))
}

func TestIsValidProductStatus(t *testing.T) {
	assert.True(t, IsValidProductStatus(ProductStatusActive))
	assert.True(t, IsValidProductStatus(ProductStatusDraft))
	assert.False(t, IsValidProductStatus("archived"))
}
