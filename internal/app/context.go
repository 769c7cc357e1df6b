package app

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/clients"
	"storefront/internal/domain"
	"storefront/internal/platform"
	"storefront/internal/storage"
	"storefront/internal/token"
)

// Env is what a single request contributes: the client's cookies, whether
// a live tab is behind it, and where navigation goes.
type Env struct {
	Cookies   storage.Storage
	Platform  platform.Context
	Navigator auth.Navigator
}

// Context is the shared value every view reads from and writes through.
type Context struct {
	shell  *Shell
	env    Env
	tokens *token.Store
	auth   *auth.Manager
	users  clients.AuthClient
	now    func() time.Time
	log    *logrus.Entry
}

func (r *Registry) Bind(s *Shell, env Env) *Context {
	if env.Platform == nil {
		env.Platform = platform.Server
	}
	tokens := token.NewStore(env.Cookies, env.Platform)
	mgr := auth.NewManager(auth.Deps{
		Client:    r.deps.AuthClient,
		Tokens:    tokens,
		Users:     s,
		Attempts:  &s.attempts,
		Signals:   r.deps.Profiles.For(s.ProfileID),
		Channel:   r.deps.Channel,
		Topic:     s.ProfileID,
		Origin:    s.ID,
		Navigator: env.Navigator,
		Platform:  env.Platform,
		Log:       r.deps.Log,
		Now:       r.deps.Now,
	})
	return &Context{
		shell:  s,
		env:    env,
		tokens: tokens,
		auth:   mgr,
		users:  r.deps.AuthClient,
		now:    r.deps.Now,
		log:    r.deps.Log.WithFields(logrus.Fields{"tab": s.ID, "profile": s.ProfileID}),
	}
}

func (c *Context) Cart() domain.Cart { return c.shell.Cart() }

func (c *Context) AddItem(d domain.Dish) domain.Cart {
	c.shell.mu.Lock()
	next := c.shell.cart.AddItem(d)
	c.shell.mu.Unlock()
	c.saveCart(next)
	return next
}

func (c *Context) RemoveItem(d domain.Dish) (domain.Cart, error) {
	c.shell.mu.Lock()
	next, err := c.shell.cart.RemoveItem(d)
	c.shell.mu.Unlock()
	if err != nil {
		return next, err
	}
	c.saveCart(next)
	return next, nil
}

func (c *Context) User() *domain.User     { return c.shell.User() }
func (c *Context) SetUser(u *domain.User) { c.shell.SetUser(u) }
func (c *Context) IsAuthenticated() bool  { return c.shell.IsAuthenticated() }
func (c *Context) Auth() *auth.Manager    { return c.auth }
func (c *Context) Tokens() *token.Store   { return c.tokens }
func (c *Context) Shell() *Shell          { return c.shell }

func (c *Context) Session() domain.Session {
	tok, _ := c.tokens.Get()
	return domain.Session{Token: tok, User: c.shell.User()}
}

func (c *Context) saveCart(next domain.Cart) {
	if c.env.Cookies == nil || !c.env.Platform.HasClient() {
		return
	}
	raw, err := cart.Encode(next)
	if errors.Is(err, cart.ErrTooLarge) {
		// a stale cookie would restore an outdated cart
		c.log.Warnf("Shell: cart not persisted: %v", err)
		c.env.Cookies.Remove(cart.StorageKey)
		return
	}
	if err != nil {
		c.log.Errorf("Shell: failed to persist cart: %v", err)
		return
	}
	c.env.Cookies.Set(cart.StorageKey, raw)
}

// Restore brings a newly opened tab up to date with what the browser kept:
// the cart cookie and the auth token. A token that is expired or rejected
// by the API is removed and the user cleared.
func (c *Context) Restore(ctx context.Context) {
	c.restoreCart()
	c.restoreUser(ctx)
}

func (c *Context) restoreCart() {
	if c.env.Cookies == nil || !c.env.Platform.HasClient() {
		return
	}
	raw, ok := c.env.Cookies.Get(cart.StorageKey)
	if !ok {
		return
	}
	restored, err := cart.Decode(raw)
	if err != nil {
		c.log.Warnf("Shell: discarding unreadable cart cookie: %v", err)
		c.env.Cookies.Remove(cart.StorageKey)
		return
	}
	c.shell.mu.Lock()
	c.shell.cart = cart.NewStore(restored, c.log)
	c.shell.mu.Unlock()
	c.log.Debugf("Shell: restored cart with %d items", len(restored.Items))
}

func (c *Context) restoreUser(ctx context.Context) {
	tok, ok := c.tokens.Get()
	if !ok {
		return
	}
	if expired, err := c.tokens.Expired(c.now()); err == nil && expired {
		c.log.Info("Shell: stored token expired, clearing session")
		c.tokens.Remove()
		c.SetUser(nil)
		return
	}

	user, err := c.users.Me(ctx, tok)
	if err != nil {
		if _, isAPI := clients.AsAPIError(err); isAPI {
			c.log.Infof("Shell: stored token rejected, clearing session: %v", err)
			c.tokens.Remove()
			c.SetUser(nil)
			return
		}
		c.log.Warnf("Shell: could not validate stored token: %v", err)
		return
	}
	c.SetUser(user)
}
