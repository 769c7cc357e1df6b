package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/auth"
	"storefront/internal/broadcast"
	"storefront/internal/cart"
	"storefront/internal/clients"
	"storefront/internal/domain"
	"storefront/internal/platform"
	"storefront/internal/storage"
	"storefront/internal/token"
)

type stubAuthClient struct {
	me      func(token string) (*domain.User, error)
	meCalls int
}

func (s *stubAuthClient) Register(context.Context, string, string, string) (*domain.AuthResponse, error) {
	return &domain.AuthResponse{JWT: "jwt-new", User: &domain.User{ID: 1}}, nil
}

func (s *stubAuthClient) Login(context.Context, string, string) (*domain.AuthResponse, error) {
	return &domain.AuthResponse{JWT: "jwt-new", User: &domain.User{ID: 1, Username: "ana"}}, nil
}

func (s *stubAuthClient) Me(_ context.Context, tok string) (*domain.User, error) {
	s.meCalls++
	return s.me(tok)
}

type pathNavigator struct{ paths []string }

func (n *pathNavigator) Push(p string) { n.paths = append(n.paths, p) }

var fixedNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newRegistry(client clients.AuthClient) *Registry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRegistry(Deps{
		AuthClient: client,
		Channel:    broadcast.NewHub(logger),
		Log:        logger,
		Now:        func() time.Time { return fixedNow },
	}, 30*time.Minute)
}

func jwtWithExp(t *testing.T, exp time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": 1, "exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

func dish(id, price string) domain.Dish {
	return domain.Dish{ID: id, Name: id, Price: decimal.RequireFromString(price)}
}

func TestRegistryOpenReusesShell(t *testing.T) {
	reg := newRegistry(&stubAuthClient{})
	a, created := reg.Open("tab-1", "p")
	assert.True(t, created)
	b, created := reg.Open("tab-1", "p")
	assert.False(t, created)
	assert.Same(t, a, b)

	assert.Equal(t, 1, reg.Len())
}

func TestRegistryOpenKeepsOtherProfilesTab(t *testing.T) {
	logger, hook := test.NewNullLogger()
	reg := NewRegistry(Deps{
		AuthClient: &stubAuthClient{},
		Channel:    broadcast.NewHub(logger),
		Log:        logger,
		Now:        func() time.Time { return fixedNow },
	}, 30*time.Minute)

	owner, _ := reg.Open("tab-1", "p")
	owner.cart.AddItem(domain.Dish{ID: "1", Price: decimal.NewFromInt(4)})
	owner.SetUser(&domain.User{ID: 9})

	other, created := reg.Open("tab-1", "other-profile")
	assert.True(t, created)
	assert.NotSame(t, owner, other)
	assert.Equal(t, 2, reg.Len())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	again, created := reg.Open("tab-1", "p")
	assert.False(t, created)
	assert.Same(t, owner, again)
	assert.Equal(t, "4", again.Cart().Total.String())
	assert.True(t, again.IsAuthenticated())
}

func TestRegistrySweep(t *testing.T) {
	now := fixedNow
	reg := newRegistry(&stubAuthClient{})
	reg.deps.Now = func() time.Time { return now }

	reg.Open("old", "p")
	now = now.Add(20 * time.Minute)
	reg.Open("fresh", "p")
	now = now.Add(15 * time.Minute)

	assert.Equal(t, 1, reg.Sweep())
	assert.Equal(t, 1, reg.Len())
	_, created := reg.Open("fresh", "p")
	assert.False(t, created)

	reg.ttl = 0
	assert.Equal(t, 0, reg.Sweep())
}

func TestContextCartPersistsToCookies(t *testing.T) {
	reg := newRegistry(&stubAuthClient{})
	shell, _ := reg.Open("tab", "p")
	cookies := storage.NewMemory()
	ctx := reg.Bind(shell, Env{Cookies: cookies, Platform: platform.Client})

	ctx.AddItem(dish("1", "10"))
	ctx.AddItem(dish("1", "10"))
	got := ctx.AddItem(dish("2", "5"))
	assert.True(t, got.Total.Equal(decimal.NewFromInt(25)))

	raw, ok := cookies.Get(cart.StorageKey)
	require.True(t, ok)
	decoded, err := cart.Decode(raw)
	require.NoError(t, err)
	assert.Len(t, decoded.Items, 2)

	got, err = ctx.RemoveItem(dish("1", "10"))
	require.NoError(t, err)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(15)))

	_, err = ctx.RemoveItem(dish("404", "1"))
	assert.ErrorIs(t, err, cart.ErrItemNotFound)
	assert.True(t, ctx.Cart().Total.Equal(decimal.NewFromInt(15)))
}

func TestContextCartWithoutClientIsNotPersisted(t *testing.T) {
	reg := newRegistry(&stubAuthClient{})
	shell, _ := reg.Open("tab", "p")
	cookies := storage.NewMemory()
	ctx := reg.Bind(shell, Env{Cookies: cookies, Platform: platform.Server})

	ctx.AddItem(dish("1", "1"))
	_, ok := cookies.Get(cart.StorageKey)
	assert.False(t, ok)
	assert.Len(t, ctx.Cart().Items, 1)
}

func TestRestoreCartFromCookie(t *testing.T) {
	reg := newRegistry(&stubAuthClient{})
	shell, _ := reg.Open("tab", "p")
	cookies := storage.NewMemory()
	cookies.Set(cart.StorageKey, `[{"id":"1","price":10,"quantity":2},{"id":"2","price":5,"quantity":1}]`)
	ctx := reg.Bind(shell, Env{Cookies: cookies, Platform: platform.Client})

	ctx.Restore(context.Background())
	assert.True(t, ctx.Cart().Total.Equal(decimal.NewFromInt(25)))
}

func TestRestoreDropsUnreadableCart(t *testing.T) {
	reg := newRegistry(&stubAuthClient{})
	shell, _ := reg.Open("tab", "p")
	cookies := storage.NewMemory()
	cookies.Set(cart.StorageKey, `{{`)
	ctx := reg.Bind(shell, Env{Cookies: cookies, Platform: platform.Client})

	ctx.Restore(context.Background())
	assert.Empty(t, ctx.Cart().Items)
	_, ok := cookies.Get(cart.StorageKey)
	assert.False(t, ok)
}

func TestRestoreUser(t *testing.T) {
	validUser := &domain.User{ID: 9, Username: "bo"}
	cases := []struct {
		name       string
		token      string
		me         func(string) (*domain.User, error)
		wantUser   *domain.User
		wantToken  bool
		wantMeCall bool
	}{
		{
			name:       "valid token",
			token:      jwtWithExp(t, fixedNow.Add(time.Hour)),
			me:         func(string) (*domain.User, error) { return validUser, nil },
			wantUser:   validUser,
			wantToken:  true,
			wantMeCall: true,
		},
		{
			name:       "expired token",
			token:      jwtWithExp(t, fixedNow.Add(-time.Hour)),
			me:         func(string) (*domain.User, error) { return validUser, nil },
			wantUser:   nil,
			wantToken:  false,
			wantMeCall: false,
		},
		{
			name:       "rejected token",
			token:      "opaque-token",
			me:         func(string) (*domain.User, error) { return nil, &clients.APIError{StatusCode: 401} },
			wantUser:   nil,
			wantToken:  false,
			wantMeCall: true,
		},
		{
			name:       "api unreachable",
			token:      "opaque-token",
			me:         func(string) (*domain.User, error) { return nil, errors.New("dial tcp: refused") },
			wantUser:   nil,
			wantToken:  true,
			wantMeCall: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &stubAuthClient{me: tc.me}
			reg := newRegistry(client)
			shell, _ := reg.Open("tab", "p")
			cookies := storage.NewMemory()
			cookies.Set(token.Key, tc.token)
			ctx := reg.Bind(shell, Env{Cookies: cookies, Platform: platform.Client})

			ctx.Restore(context.Background())

			assert.Equal(t, tc.wantUser, ctx.User())
			_, ok := cookies.Get(token.Key)
			assert.Equal(t, tc.wantToken, ok)
			assert.Equal(t, tc.wantMeCall, client.meCalls > 0)
		})
	}
}

func TestRestoreWithoutTokenSkipsAPI(t *testing.T) {
	client := &stubAuthClient{}
	reg := newRegistry(client)
	shell, _ := reg.Open("tab", "p")
	ctx := reg.Bind(shell, Env{Cookies: storage.NewMemory(), Platform: platform.Client})

	ctx.Restore(context.Background())
	assert.Equal(t, 0, client.meCalls)
	assert.False(t, ctx.IsAuthenticated())
}

func TestLoginThroughShellSetsUser(t *testing.T) {
	reg := newRegistry(&stubAuthClient{})
	shell, _ := reg.Open("tab", "p")
	nav := &pathNavigator{}
	cookies := storage.NewMemory()
	ctx := reg.Bind(shell, Env{Cookies: cookies, Platform: platform.Client, Navigator: nav})

	_, err := ctx.Auth().Login(context.Background(), "ana", "pw")
	require.NoError(t, err)

	assert.True(t, ctx.IsAuthenticated())
	assert.Equal(t, "ana", ctx.User().Username)
	assert.Equal(t, "jwt-new", ctx.Session().Token)
	assert.Equal(t, []string{auth.HomePath}, nav.paths)

	// a later request for the same tab sees the same user
	again, _ := reg.Open("tab", "p")
	assert.True(t, reg.Bind(again, Env{Cookies: cookies, Platform: platform.Client}).IsAuthenticated())
}

func TestLogoutReachesOtherTabOfProfile(t *testing.T) {
	reg := newRegistry(&stubAuthClient{})
	tabA, _ := reg.Open("tab-a", "profile")
	tabB, _ := reg.Open("tab-b", "profile")
	ctxA := reg.Bind(tabA, Env{Cookies: storage.NewMemory(), Platform: platform.Client, Navigator: &pathNavigator{}})
	ctxB := reg.Bind(tabB, Env{Cookies: storage.NewMemory(), Platform: platform.Client})

	watchCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	moved := make(chan string, 1)
	go func() { _ = ctxB.Auth().WatchLogout(watchCtx, navFunc(func(p string) { moved <- p })) }()
	hub := reg.deps.Channel.(*broadcast.Hub)
	require.Eventually(t, func() bool { return hub.Subscribers("profile") == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, ctxA.Auth().Logout(context.Background()))

	select {
	case p := <-moved:
		assert.Equal(t, auth.LoginPath, p)
	case <-time.After(time.Second):
		t.Fatal("other tab was not moved to login")
	}
}

type navFunc func(string)

func (f navFunc) Push(p string) { f(p) }

func TestSessionAgreesWithShell(t *testing.T) {
	reg := newRegistry(&stubAuthClient{})
	shell, _ := reg.Open("tab", "p")
	cookies := storage.NewMemory()
	cookies.Set(token.Key, "unchecked")
	ctx := reg.Bind(shell, Env{Cookies: cookies, Platform: platform.Client})

	assert.False(t, ctx.Session().IsAuthenticated())
	assert.Equal(t, ctx.IsAuthenticated(), ctx.Session().IsAuthenticated())

	ctx.SetUser(&domain.User{ID: 1})
	assert.True(t, ctx.Session().IsAuthenticated())
}

func TestOversizedCartDropsCookie(t *testing.T) {
	reg := newRegistry(&stubAuthClient{})
	shell, _ := reg.Open("tab", "p")
	cookies := storage.NewMemory()
	ctx := reg.Bind(shell, Env{Cookies: cookies, Platform: platform.Client})

	ctx.AddItem(domain.Dish{ID: "first", Price: decimal.NewFromInt(1)})
	_, ok := cookies.Get(cart.StorageKey)
	require.True(t, ok)

	for i := 0; i < 400; i++ {
		ctx.AddItem(domain.Dish{ID: fmt.Sprintf("dish-with-a-long-identifier-%d", i), Price: decimal.NewFromInt(1)})
	}
	_, ok = cookies.Get(cart.StorageKey)
	assert.False(t, ok)
	assert.Len(t, ctx.Cart().Items, 401)
}
