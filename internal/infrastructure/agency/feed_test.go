package agency

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func TestShapeInventory(t *testing.T) {
	a := NewFeedAgency(nil, nil)

	rows := []map[string]any{
		{"sku": "SKU-1", "warehouse": "EAST", "qty": "12.5"},
		{"sku": "SKU-1", "warehouse": "WEST", "qty": float64(0), "store_id": float64(2)},
		{"sku": "SKU-2", "warehouse": "EAST", "qty": "3", "full": false},
		// Duplicate pair, first row wins
		{"sku": "SKU-1", "warehouse": "EAST", "qty": "99"},
	}

	out, err := a.ShapeInventory(rows)
	require.NoError(t, err)
	require.Len(t, out, 2)

	sku1 := out["SKU-1"]
	require.Len(t, sku1, 2)
	assert.Equal(t, "EAST", sku1[0].Warehouse)
	assert.True(t, sku1[0].Qty.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, sku1[0].OnHand.Equal(sku1[0].Qty), "full snapshot copies qty to on_hand")
	assert.True(t, sku1[0].InStock)
	assert.True(t, sku1[0].Full)

	assert.Equal(t, "WEST", sku1[1].Warehouse)
	assert.Equal(t, 2, sku1[1].StoreID)
	assert.False(t, sku1[1].InStock, "zero qty is out of stock")

	sku2 := out["SKU-2"]
	require.Len(t, sku2, 1)
	assert.False(t, sku2[0].Full)
	assert.True(t, sku2[0].OnHand.IsZero(), "partial snapshot leaves on_hand alone")
	assert.True(t, sku2[0].InStock)
}

func TestShapeInventory_MalformedQty(t *testing.T) {
	a := NewFeedAgency(nil, nil)

	_, err := a.ShapeInventory([]map[string]any{
		{"sku": "SKU-1", "warehouse": "EAST", "qty": "not-a-number"},
	})
	assert.Error(t, err)
}

func TestShapeImageGallery(t *testing.T) {
	a := NewFeedAgency(nil, nil)

	rows := []map[string]any{
		{"sku": "SKU-1", "type": "image", "value": "/a.jpg", "position": float64(1)},
		{"sku": "SKU-1", "type": "thumbnail", "value": "/b.jpg", "position": float64(2), "label": "thumb"},
		// Same value again: fills the slot but does not duplicate the gallery
		{"sku": "SKU-1", "type": "small_image", "value": "/a.jpg"},
	}

	out := a.ShapeImageGallery(rows)
	require.Len(t, out, 1)

	g := out["SKU-1"]
	assert.Equal(t, "/a.jpg", g.Image)
	assert.Equal(t, "/a.jpg", g.SmallImage)
	assert.Equal(t, "/b.jpg", g.Thumbnail)
	assert.Equal(t, "/a.jpg", g.SwatchImage, "empty slot backfills from first gallery image")

	require.Len(t, g.MediaGallery, 2)
	assert.Equal(t, "/a.jpg", g.MediaGallery[0].Value)
	assert.Equal(t, "/b.jpg", g.MediaGallery[1].Value)
	assert.Equal(t, "thumb", g.MediaGallery[1].Label)
	assert.Equal(t, 2, g.MediaGallery[1].Position)
	assert.Equal(t, "SQS", g.MediaGallery[0].MediaSource)
	assert.Equal(t, "image", g.MediaGallery[0].MediaType)
}

func TestShapeImageGallery_NoTypedRows(t *testing.T) {
	a := NewFeedAgency(nil, nil)

	out := a.ShapeImageGallery([]map[string]any{
		{"sku": "SKU-1", "value": "/only.jpg"},
	})

	g := out["SKU-1"]
	assert.Equal(t, "/only.jpg", g.Image)
	assert.Equal(t, "/only.jpg", g.SmallImage)
	assert.Equal(t, "/only.jpg", g.Thumbnail)
	assert.Equal(t, "/only.jpg", g.SwatchImage)
}

func TestProductsExtData(t *testing.T) {
	clock := fixedClock{now: time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)}
	a := NewFeedAgency(nil, clock)

	feeds, err := a.ProductsExtData("MAGENTO", "inventory", []map[string]any{
		{"sku": "SKU-1", "warehouse": "EAST", "qty": "5"},
	})
	require.NoError(t, err)
	require.Len(t, feeds, 1)

	assert.Equal(t, "SKU-1", feeds[0].SKU)
	assert.Equal(t, "MAGENTO", feeds[0].Frontend)
	assert.Equal(t, "inventory", feeds[0].DataType)
	assert.Equal(t, "2025-03-01 10:30:00", feeds[0].CreateDt)
	assert.Equal(t, feeds[0].CreateDt, feeds[0].UpdateDt)
}

func TestProductsExtData_UnsupportedDataType(t *testing.T) {
	a := NewFeedAgency(nil, nil)

	_, err := a.ProductsExtData("MAGENTO", "pricing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}
