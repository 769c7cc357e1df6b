package domain

import "github.com/shopspring/decimal"

// LineItem is one dish in the cart together with how many units were ordered.
type LineItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       *Image          `json:"image,omitempty"`
	Quantity    int             `json:"quantity"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Cart struct {
	Items []LineItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

func NewLineItem(d Dish) LineItem {
	var img *Image
	if d.Image != nil {
		cp := *d.Image
		img = &cp
	}
	return LineItem{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		Image:       img,
		Quantity:    1,
	}
}
