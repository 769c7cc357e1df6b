package app

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"storefront/internal/broadcast"
	"storefront/internal/clients"
	"storefront/internal/storage"
)

type Deps struct {
	AuthClient clients.AuthClient
	Channel    broadcast.Channel
	Profiles   *storage.Profiles
	Log        *logrus.Logger
	Now        func() time.Time
}

// Registry keeps the shell of every open tab, keyed by tab id. Shells idle
// for longer than the TTL are dropped by Sweep.
type Registry struct {
	deps   Deps
	ttl    time.Duration
	mu     sync.Mutex
	shells map[shellKey]*Shell
}

// A tab id is only meaningful within the profile that issued it.
type shellKey struct {
	profile string
	tab     string
}

func NewRegistry(deps Deps, ttl time.Duration) *Registry {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Profiles == nil {
		deps.Profiles = storage.NewProfiles()
	}
	return &Registry{deps: deps, ttl: ttl, shells: make(map[shellKey]*Shell)}
}

// Open returns the shell for tabID, creating it when the tab is new. The
// second result reports whether it was created. A tab id already open under
// another profile gets a separate shell; the other profile's state is left
// alone.
func (r *Registry) Open(tabID, profileID string) (*Shell, bool) {
	now := r.deps.Now()
	key := shellKey{profile: profileID, tab: tabID}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.shells[key]; ok {
		s.touch(now)
		return s, false
	}
	for k := range r.shells {
		if k.tab == tabID {
			r.deps.Log.WithFields(logrus.Fields{
				"tab":     tabID,
				"profile": profileID,
				"owner":   k.profile,
			}).Warn("Registry: tab id already open under another profile")
			break
		}
	}
	s := newShell(tabID, profileID, now, r.deps.Log)
	r.shells[key] = s
	r.deps.Log.WithFields(logrus.Fields{"tab": tabID, "profile": profileID}).Debug("Registry: opened tab")
	return s, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shells)
}

// Sweep drops shells idle for longer than the TTL and returns how many
// went.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.deps.Now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key, s := range r.shells {
		if s.idleSince().Before(cutoff) {
			delete(r.shells, key)
			n++
		}
	}
	return n
}

// RunJanitor sweeps every interval until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.deps.Log.Infof("Registry: dropped %d idle tabs, %d open", n, r.Len())
			}
		}
	}
}
