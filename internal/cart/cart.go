// Package cart implements the order cart: an ordered list of line items,
// one per dish, and a running total kept in step with every change.
package cart

import (
	"errors"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

var ErrItemNotFound = errors.New("item not in cart")

func Empty() domain.Cart {
	return domain.Cart{Items: []domain.LineItem{}, Total: decimal.Zero}
}

func indexOf(items []domain.LineItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func copyItems(items []domain.LineItem, extra int) []domain.LineItem {
	out := make([]domain.LineItem, len(items), len(items)+extra)
	copy(out, items)
	return out
}

// Add returns c with one more unit of dish. A dish already in the cart has
// its quantity bumped in place at the price it was first added with; a new
// dish is appended with quantity 1. A negative price leaves c unchanged.
func Add(c domain.Cart, dish domain.Dish) domain.Cart {
	if dish.Price.IsNegative() {
		return c
	}
	i := indexOf(c.Items, dish.ID)
	if i < 0 {
		items := copyItems(c.Items, 1)
		items = append(items, domain.NewLineItem(dish))
		return domain.Cart{Items: items, Total: c.Total.Add(dish.Price)}
	}

	items := copyItems(c.Items, 0)
	items[i].Quantity++
	return domain.Cart{Items: items, Total: c.Total.Add(items[i].Price)}
}

// Remove returns c with one unit of dish taken out, dropping the line item
// when its last unit goes. A dish not in the cart yields ErrItemNotFound
// and c unchanged.
func Remove(c domain.Cart, dish domain.Dish) (domain.Cart, error) {
	i := indexOf(c.Items, dish.ID)
	if i < 0 {
		return c, ErrItemNotFound
	}

	total := c.Total.Sub(dish.Price)
	if total.IsNegative() {
		total = decimal.Zero
	}

	if c.Items[i].Quantity > 1 {
		items := copyItems(c.Items, 0)
		items[i].Quantity--
		return domain.Cart{Items: items, Total: total}, nil
	}

	items := make([]domain.LineItem, 0, len(c.Items)-1)
	items = append(items, c.Items[:i]...)
	items = append(items, c.Items[i+1:]...)
	return domain.Cart{Items: items, Total: total}, nil
}

// Total recomputes the sum of price x quantity over items.
func Total(items []domain.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}

func Count(c domain.Cart) int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}
