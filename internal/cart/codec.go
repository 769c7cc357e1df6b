package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// StorageKey is where the cart is kept between page loads.
const StorageKey = "cart"

// MaxEncodedSize bounds the escaped Encode output so that the cookie,
// with its name and attributes, stays under the 4096 bytes browsers keep.
const MaxEncodedSize = 3800

var ErrTooLarge = errors.New("cart too large to persist")

// storedItem is the persisted form of a line item. Descriptions and images
// are left out; they come back with the menu.
type storedItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Encode serialises the line items; the total is derived on Decode. When
// the items do not fit MaxEncodedSize their names are dropped, and if that
// is still too much ErrTooLarge is returned.
func Encode(c domain.Cart) (string, error) {
	stored := make([]storedItem, 0, len(c.Items))
	for _, it := range c.Items {
		stored = append(stored, storedItem{ID: it.ID, Name: it.Name, Price: it.Price, Quantity: it.Quantity})
	}
	raw, err := marshalStored(stored)
	if err != nil || fits(raw) {
		return raw, err
	}

	for i := range stored {
		stored[i].Name = ""
	}
	raw, err = marshalStored(stored)
	if err != nil {
		return "", err
	}
	if !fits(raw) {
		return "", fmt.Errorf("encode cart with %d items: %w", len(stored), ErrTooLarge)
	}
	return raw, nil
}

func marshalStored(items []storedItem) (string, error) {
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode cart: %w", err)
	}
	return string(b), nil
}

func fits(raw string) bool {
	return len(url.QueryEscape(raw)) <= MaxEncodedSize
}

// Decode rebuilds a cart from Encode output. Entries with a non-positive
// quantity are dropped and duplicate ids are merged, so the result always
// satisfies the cart invariants.
func Decode(raw string) (domain.Cart, error) {
	if raw == "" || raw == "undefined" {
		return Empty(), nil
	}
	var items []storedItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return Empty(), fmt.Errorf("decode cart: %w", err)
	}

	out := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		if it.Quantity < 1 || it.ID == "" || it.Price.IsNegative() {
			continue
		}
		if i := indexOf(out, it.ID); i >= 0 {
			out[i].Quantity += it.Quantity
			continue
		}
		out = append(out, domain.LineItem{ID: it.ID, Name: it.Name, Price: it.Price, Quantity: it.Quantity})
	}
	return domain.Cart{Items: out, Total: Total(out)}, nil
}
