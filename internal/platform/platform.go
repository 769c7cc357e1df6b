// Package platform answers whether code is running on behalf of a live
// browser tab. Speculative prefetch and prerender requests are rendered
// without a tab behind them, so client-only work (cookies, auth calls,
// navigation) must be skipped for them.
package platform

import (
	"net/http"
	"strings"
)

type Context interface {
	HasClient() bool
}

type static bool

func (s static) HasClient() bool { return bool(s) }

var (
	Client Context = static(true)
	Server Context = static(false)
)

// FromRequest reports Server for requests a browser issues speculatively
// (Sec-Purpose / Purpose: prefetch or prerender) and Client otherwise.
func FromRequest(r *http.Request) Context {
	if r == nil {
		return Server
	}
	for _, h := range []string{"Sec-Purpose", "Purpose", "X-Purpose"} {
		v := strings.ToLower(r.Header.Get(h))
		if strings.Contains(v, "prefetch") || strings.Contains(v, "prerender") || strings.Contains(v, "preview") {
			return Server
		}
	}
	return Client
}
