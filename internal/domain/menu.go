package domain

import "github.com/shopspring/decimal"

type Image struct {
	URL string `json:"url"`
}

type Dish struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       *Image          `json:"image,omitempty"`
}

type Restaurant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Dishes []Dish `json:"dishes"`
}
