package storage

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type CookieOptions struct {
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	// MaxAge in seconds; 0 keeps the cookie for the browser session.
	MaxAge int
}

func DefaultCookieOptions() CookieOptions {
	return CookieOptions{Path: "/", HTTPOnly: true}
}

// Cookies is a Storage bound to a single gin request. Values written during
// the request are visible to later reads of the same request.
type Cookies struct {
	c       *gin.Context
	opts    CookieOptions
	pending map[string]*string
}

func NewCookies(c *gin.Context, opts CookieOptions) *Cookies {
	if opts.Path == "" {
		opts.Path = "/"
	}
	return &Cookies{c: c, opts: opts, pending: make(map[string]*string)}
}

func (s *Cookies) Get(key string) (string, bool) {
	if v, ok := s.pending[key]; ok {
		if v == nil {
			return "", false
		}
		return *v, true
	}
	v, err := s.c.Cookie(key)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

func (s *Cookies) Set(key, value string) {
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(key, value, s.opts.MaxAge, s.opts.Path, s.opts.Domain, s.opts.Secure, s.opts.HTTPOnly)
	s.pending[key] = &value
}

func (s *Cookies) Remove(key string) {
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(key, "", -1, s.opts.Path, s.opts.Domain, s.opts.Secure, s.opts.HTTPOnly)
	s.pending[key] = nil
}
