package cart

import (
	"github.com/sirupsen/logrus"

	"storefront/internal/domain"
)

// Store holds the current cart of one tab. It is not safe for concurrent
// use; the owner serialises access.
type Store struct {
	cart domain.Cart
	log  logrus.FieldLogger
}

func NewStore(initial domain.Cart, logger logrus.FieldLogger) *Store {
	if initial.Items == nil {
		initial.Items = []domain.LineItem{}
	}
	return &Store{cart: initial, log: logger}
}

func (s *Store) Cart() domain.Cart {
	return s.cart
}

func (s *Store) AddItem(dish domain.Dish) domain.Cart {
	if dish.Price.IsNegative() {
		s.log.WithField("item", dish.ID).Warnf("Cart: ignoring item with negative price %s", dish.Price)
		return s.cart
	}
	s.cart = Add(s.cart, dish)
	s.log.WithFields(logrus.Fields{
		"item":  dish.ID,
		"total": s.cart.Total.StringFixed(2),
	}).Debug("Cart: item added")
	return s.cart
}

func (s *Store) RemoveItem(dish domain.Dish) (domain.Cart, error) {
	next, err := Remove(s.cart, dish)
	if err != nil {
		s.log.WithField("item", dish.ID).Warnf("Cart: remove failed: %v", err)
		return s.cart, err
	}
	s.cart = next
	s.log.WithFields(logrus.Fields{
		"item":  dish.ID,
		"total": s.cart.Total.StringFixed(2),
	}).Debug("Cart: item removed")
	return s.cart, nil
}

func (s *Store) Reset() {
	s.cart = Empty()
}
