// Package auth runs the session lifecycle of a browser tab against the
// remote content API: register, login, logout, and following logouts
// triggered from other tabs of the same browser profile.
package auth

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"storefront/internal/broadcast"
	"storefront/internal/clients"
	"storefront/internal/domain"
	"storefront/internal/platform"
	"storefront/internal/storage"
	"storefront/internal/token"
)

const (
	LogoutKey = "logout"

	HomePath  = "/"
	LoginPath = "/login"
)

type Navigator interface {
	Push(path string)
}

// UserCache is whatever keeps the signed-in user around for the views.
type UserCache interface {
	SetUser(u *domain.User)
}

// Attempts orders the register/login calls of one tab so that a slow,
// superseded call cannot overwrite the outcome of a newer one.
type Attempts struct {
	latest atomic.Uint64
}

func (a *Attempts) begin() uint64 {
	return a.latest.Add(1)
}

func (a *Attempts) current(n uint64) bool {
	return a.latest.Load() == n
}

type Deps struct {
	Client    clients.AuthClient
	Tokens    *token.Store
	Users     UserCache
	Attempts  *Attempts
	Signals   storage.Storage
	Channel   broadcast.Channel
	Topic     string
	Origin    string
	Navigator Navigator
	Platform  platform.Context
	Log       *logrus.Logger
	Now       func() time.Time
}

type Manager struct {
	d Deps
}

func NewManager(d Deps) *Manager {
	if d.Platform == nil {
		d.Platform = platform.Server
	}
	if d.Attempts == nil {
		d.Attempts = &Attempts{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Manager{d: d}
}

// Register creates an account. Outside a client it returns (nil, nil)
// without touching the network.
func (m *Manager) Register(ctx context.Context, username, email, password string) (*domain.AuthResponse, error) {
	if !m.d.Platform.HasClient() {
		m.d.Log.Debug("AuthManager: register skipped, no client")
		return nil, nil
	}
	n := m.d.Attempts.begin()
	res, err := m.d.Client.Register(ctx, username, email, password)
	return m.complete(n, "register", res, err)
}

// Login authenticates identifier (username or email). Outside a client it
// returns (nil, nil) without touching the network.
func (m *Manager) Login(ctx context.Context, identifier, password string) (*domain.AuthResponse, error) {
	if !m.d.Platform.HasClient() {
		m.d.Log.Debug("AuthManager: login skipped, no client")
		return nil, nil
	}
	n := m.d.Attempts.begin()
	res, err := m.d.Client.Login(ctx, identifier, password)
	return m.complete(n, "login", res, err)
}

func (m *Manager) complete(n uint64, op string, res *domain.AuthResponse, err error) (*domain.AuthResponse, error) {
	if err != nil {
		m.d.Log.Warnf("AuthManager: %s failed: %v", op, err)
		return nil, err
	}
	if !m.d.Attempts.current(n) {
		m.d.Log.Infof("AuthManager: %s attempt %d superseded, keeping newer session", op, n)
		return res, nil
	}

	m.d.Tokens.Set(res.JWT)
	if m.d.Users != nil {
		m.d.Users.SetUser(res.User)
	}
	if res.User != nil {
		m.d.Log.Infof("AuthManager: %s succeeded for user %d", op, res.User.ID)
	}
	m.navigate(HomePath)
	return res, nil
}

// Logout ends the session in this tab and signals the other tabs of the
// profile to follow.
func (m *Manager) Logout(ctx context.Context) error {
	m.d.Tokens.Remove()
	if m.d.Users != nil {
		m.d.Users.SetUser(nil)
	}

	stamp := strconv.FormatInt(m.d.Now().UnixMilli(), 10)
	if m.d.Signals != nil {
		m.d.Signals.Set(LogoutKey, stamp)
	}

	var err error
	if m.d.Channel != nil && m.d.Topic != "" {
		err = m.d.Channel.Publish(ctx, m.d.Topic, broadcast.Message{Key: LogoutKey, Value: stamp, Origin: m.d.Origin})
		if err != nil {
			m.d.Log.Errorf("AuthManager: failed to broadcast logout on %s: %v", m.d.Topic, err)
		}
	}
	m.d.Log.Info("AuthManager: logged out")
	m.navigate(HomePath)
	return err
}

// LogoutWatch is a live subscription to the profile's logout signals.
// Signals published after SubscribeLogout returns are not missed, even if
// Run starts later.
type LogoutWatch struct {
	m      *Manager
	msgs   <-chan broadcast.Message
	cancel func()
}

func (m *Manager) SubscribeLogout(ctx context.Context) (*LogoutWatch, error) {
	msgs, cancel, err := m.d.Channel.Subscribe(ctx, m.d.Topic)
	if err != nil {
		return nil, err
	}
	return &LogoutWatch{m: m, msgs: msgs, cancel: cancel}, nil
}

// Run sends nav to the login view on every logout signal from another tab
// and clears the signal. It returns when ctx is done or the subscription
// ends, and unsubscribes on return.
func (w *LogoutWatch) Run(ctx context.Context, nav Navigator) error {
	m := w.m
	defer w.cancel()
	defer func() {
		if m.d.Signals != nil {
			m.d.Signals.Remove(LogoutKey)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-w.msgs:
			if !ok {
				return nil
			}
			if msg.Key != LogoutKey || (msg.Origin != "" && msg.Origin == m.d.Origin) {
				continue
			}
			m.d.Log.WithField("topic", m.d.Topic).Info("AuthManager: logout observed from another tab")
			nav.Push(LoginPath)
			if m.d.Signals != nil {
				m.d.Signals.Remove(LogoutKey)
			}
		}
	}
}

func (w *LogoutWatch) Close() { w.cancel() }

// WatchLogout follows logout signals for the profile until ctx is done.
// Every signal sends nav to the login view and clears the signal.
func (m *Manager) WatchLogout(ctx context.Context, nav Navigator) error {
	w, err := m.SubscribeLogout(ctx)
	if err != nil {
		return err
	}
	return w.Run(ctx, nav)
}

func (m *Manager) navigate(path string) {
	if m.d.Navigator != nil {
		m.d.Navigator.Push(path)
	}
}
