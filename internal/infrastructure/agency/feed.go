// Package agency shapes raw feed rows pulled off a work queue into the
// per-SKU extension payloads the product ext-data tables store.
package agency

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domain "github.com/datawald/hub/internal/domain/sync"
)

// Inventory is one warehouse-level stock snapshot for a SKU.
type Inventory struct {
	StoreID    int             `json:"store_id"`
	Warehouse  string          `json:"warehouse"`
	OnHand     decimal.Decimal `json:"on_hand"`
	PastOnHand decimal.Decimal `json:"past_on_hand"`
	Qty        decimal.Decimal `json:"qty"`
	Full       bool            `json:"full"`
	InStock    bool            `json:"in_stock"`
}

// MediaImage is one image in a product's media gallery.
type MediaImage struct {
	Value       string `json:"value"`
	StoreID     int    `json:"store_id"`
	Position    int    `json:"position"`
	Label       string `json:"label,omitempty"`
	MediaSource string `json:"media_source"`
	MediaType   string `json:"media_type"`
}

// ImageGallery is the full image payload for one SKU: the four named slots
// plus the ordered gallery.
type ImageGallery struct {
	Image        string       `json:"image,omitempty"`
	SmallImage   string       `json:"small_image,omitempty"`
	Thumbnail    string       `json:"thumbnail,omitempty"`
	SwatchImage  string       `json:"swatch_image,omitempty"`
	MediaGallery []MediaImage `json:"media_gallery"`
}

// ExtDataFeed is one shaped ext-data record ready for the entity store.
type ExtDataFeed struct {
	SKU      string `json:"sku"`
	Frontend string `json:"frontend"`
	DataType string `json:"data_type"`
	Data     any    `json:"data"`
	CreateDt string `json:"create_dt"`
	UpdateDt string `json:"update_dt"`
}

// FeedAgency turns raw queue rows into shaped ext-data feeds.
type FeedAgency struct {
	logger *zap.Logger
	clock  domain.Clock
}

// NewFeedAgency builds a feed agency
func NewFeedAgency(logger *zap.Logger, clock domain.Clock) *FeedAgency {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &FeedAgency{logger: logger, clock: clock}
}

// ProductsExtData shapes raw rows for the given data type and wraps them as
// per-SKU feed records. Unknown data types are rejected
func (a *FeedAgency) ProductsExtData(frontend, dataType string, rows []map[string]any) ([]ExtDataFeed, error) {
	var shaped map[string]any
	switch dataType {
	case "inventory":
		bySKU, err := a.ShapeInventory(rows)
		if err != nil {
			return nil, err
		}
		shaped = make(map[string]any, len(bySKU))
		for sku, inv := range bySKU {
			shaped[sku] = inv
		}
	case "imagegallery":
		bySKU := a.ShapeImageGallery(rows)
		shaped = make(map[string]any, len(bySKU))
		for sku, gallery := range bySKU {
			shaped[sku] = gallery
		}
	default:
		return nil, fmt.Errorf("data type (%s) is not supported", dataType)
	}

	now := a.clock.Now().Format(domain.DtLayout)
	feeds := make([]ExtDataFeed, 0, len(shaped))
	for sku, data := range shaped {
		feeds = append(feeds, ExtDataFeed{
			SKU:      sku,
			Frontend: frontend,
			DataType: dataType,
			Data:     data,
			CreateDt: now,
			UpdateDt: now,
		})
	}
	return feeds, nil
}

// ShapeInventory groups rows by SKU and warehouse. The first row wins per
// (sku, warehouse) pair. A full snapshot copies qty into on_hand, and
// in_stock derives from qty
func (a *FeedAgency) ShapeInventory(rows []map[string]any) (map[string][]Inventory, error) {
	type pairKey struct{ sku, warehouse string }
	seen := make(map[pairKey]bool)

	out := make(map[string][]Inventory)
	for _, row := range rows {
		sku := stringField(row, "sku")
		warehouse := stringField(row, "warehouse")
		key := pairKey{sku, warehouse}
		if seen[key] {
			continue
		}
		seen[key] = true

		qty, err := decimalField(row, "qty")
		if err != nil {
			a.logger.Error("malformed inventory row",
				zap.String("sku", sku), zap.String("warehouse", warehouse), zap.Error(err))
			return nil, err
		}

		inv := Inventory{
			Warehouse: warehouse,
			Qty:       qty,
			Full:      true,
		}
		if v, ok := row["store_id"]; ok {
			inv.StoreID = intValue(v)
		}
		if v, ok := row["full"]; ok {
			inv.Full = boolValue(v)
		}
		if inv.Full {
			inv.OnHand = inv.Qty
		}
		inv.InStock = inv.Qty.IsPositive()

		out[sku] = append(out[sku], inv)
	}
	return out, nil
}

// ShapeImageGallery groups rows by SKU. Every row with an unseen value joins
// the media gallery; rows whose type names one of the four slots also fill
// that slot. Empty slots are backfilled from the first gallery image
func (a *FeedAgency) ShapeImageGallery(rows []map[string]any) map[string]ImageGallery {
	bySKU := make(map[string][]map[string]any)
	var order []string
	for _, row := range rows {
		sku := stringField(row, "sku")
		if _, ok := bySKU[sku]; !ok {
			order = append(order, sku)
		}
		bySKU[sku] = append(bySKU[sku], row)
	}

	out := make(map[string]ImageGallery, len(bySKU))
	for _, sku := range order {
		gallery := ImageGallery{MediaGallery: []MediaImage{}}
		seenValues := make(map[string]bool)

		for _, row := range bySKU[sku] {
			value := stringField(row, "value")

			media := MediaImage{
				Value:       value,
				Position:    1,
				MediaSource: "SQS",
				MediaType:   "image",
			}
			if v, ok := row["store_id"]; ok {
				media.StoreID = intValue(v)
			}
			if v, ok := row["position"]; ok {
				media.Position = intValue(v)
			}
			if _, ok := row["label"]; ok {
				media.Label = stringField(row, "label")
			}
			if _, ok := row["media_type"]; ok {
				media.MediaType = stringField(row, "media_type")
			}

			if !seenValues[value] {
				gallery.MediaGallery = append(gallery.MediaGallery, media)
				seenValues[value] = true
			}

			switch stringField(row, "type") {
			case "image":
				gallery.Image = value
			case "small_image":
				gallery.SmallImage = value
			case "thumbnail":
				gallery.Thumbnail = value
			case "swatch_image":
				gallery.SwatchImage = value
			}
		}

		if len(gallery.MediaGallery) > 0 {
			first := gallery.MediaGallery[0].Value
			if gallery.Image == "" {
				gallery.Image = first
			}
			if gallery.SmallImage == "" {
				gallery.SmallImage = first
			}
			if gallery.Thumbnail == "" {
				gallery.Thumbnail = first
			}
			if gallery.SwatchImage == "" {
				gallery.SwatchImage = first
			}
		}

		out[sku] = gallery
	}
	return out
}

func stringField(row map[string]any, key string) string {
	if v, ok := row[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func boolValue(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "1"
	case float64:
		return b != 0
	case int:
		return b != 0
	}
	return false
}

func decimalField(row map[string]any, key string) (decimal.Decimal, error) {
	v, ok := row[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("missing %s", key)
	}
	switch n := v.(type) {
	case string:
		return decimal.NewFromString(n)
	case float64:
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	}
	return decimal.Zero, fmt.Errorf("unsupported %s value %v", key, v)
}
