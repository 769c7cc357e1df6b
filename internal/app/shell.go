// Package app is the application shell: it owns the per-tab cart and user
// and hands views a Context that joins them with the request-scoped token
// store and auth manager.
package app

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/domain"
)

// Shell is the state one browser tab keeps between requests.
type Shell struct {
	ID        string
	ProfileID string

	mu       sync.Mutex
	cart     *cart.Store
	user     *domain.User
	attempts auth.Attempts
	lastSeen time.Time
}

func newShell(id, profileID string, now time.Time, logger *logrus.Logger) *Shell {
	return &Shell{
		ID:        id,
		ProfileID: profileID,
		cart:      cart.NewStore(cart.Empty(), logger.WithField("tab", id)),
		lastSeen:  now,
	}
}

func (s *Shell) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Shell) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Shell) Cart() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Cart()
}

func (s *Shell) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Shell) SetUser(u *domain.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

func (s *Shell) IsAuthenticated() bool {
	return s.User() != nil
}
