// Package token keeps the auth credential the remote API hands out.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storefront/internal/platform"
	"storefront/internal/storage"
)

const Key = "token"

var ErrNoToken = errors.New("no auth token")

// Store persists the token client-side. Without a client every method is a
// no-op and Get reports the token as absent.
type Store struct {
	storage  storage.Storage
	platform platform.Context
}

func NewStore(s storage.Storage, p platform.Context) *Store {
	if p == nil {
		p = platform.Server
	}
	return &Store{storage: s, platform: p}
}

func (s *Store) active() bool {
	return s != nil && s.storage != nil && s.platform.HasClient()
}

func (s *Store) Set(token string) {
	if !s.active() {
		return
	}
	s.storage.Set(Key, token)
}

func (s *Store) Get() (string, bool) {
	if !s.active() {
		return "", false
	}
	return s.storage.Get(Key)
}

func (s *Store) Remove() {
	if !s.active() {
		return
	}
	s.storage.Remove(Key)
}

// Claims decodes the stored token's payload. The signature is not checked;
// only the remote API can do that.
func (s *Store) Claims() (jwt.MapClaims, error) {
	raw, ok := s.Get()
	if !ok {
		return nil, ErrNoToken
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Expired reports whether the stored token carries an exp claim in the past.
// Tokens without exp never expire client-side.
func (s *Store) Expired(now time.Time) (bool, error) {
	claims, err := s.Claims()
	if err != nil {
		return false, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false, err
	}
	if exp == nil {
		return false, nil
	}
	return !now.Before(exp.Time), nil
}
