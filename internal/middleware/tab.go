package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storefront/internal/app"
	"storefront/internal/platform"
	"storefront/internal/storage"
)

const (
	ProfileCookie = "profile"
	TabHeader     = "X-Tab-ID"
	TabQuery      = "tab"

	appKey = "appContext"
	navKey = "navigation"
	tabKey = "tab"

	profileMaxAge = 365 * 24 * 60 * 60
)

// Navigation records where the auth flow wants the tab to go next; the
// handler turns it into a redirect hint in its response.
type Navigation struct {
	mu   sync.Mutex
	path string
}

func (n *Navigation) Push(path string) {
	n.mu.Lock()
	n.path = path
	n.mu.Unlock()
}

func (n *Navigation) Target() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path, n.path != ""
}

// Tab resolves the browser profile (cookie) and tab (X-Tab-ID header or
// ?tab= query, falling back to the profile) of the request, and binds the
// tab's application context for the handlers. A newly seen tab is restored
// from the browser's cookies first.
func Tab(reg *app.Registry, opts storage.CookieOptions, restoreTimeout time.Duration, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookies := storage.NewCookies(c, opts)

		profileID, ok := cookies.Get(ProfileCookie)
		if !ok || !validID(profileID) {
			profileID = uuid.NewString()
			long := opts
			long.MaxAge = profileMaxAge
			storage.NewCookies(c, long).Set(ProfileCookie, profileID)
			logger.WithField("profile", profileID).Debug("Middleware: issued new browser profile")
		}

		tabID := c.GetHeader(TabHeader)
		if tabID == "" {
			tabID = c.Query(TabQuery)
		}
		if !validID(tabID) {
			tabID = profileID
		}

		shell, created := reg.Open(tabID, profileID)
		nav := &Navigation{}
		appCtx := reg.Bind(shell, app.Env{
			Cookies:   cookies,
			Platform:  platform.FromRequest(c.Request),
			Navigator: nav,
		})
		if created {
			ctx, cancel := context.WithTimeout(c.Request.Context(), restoreTimeout)
			appCtx.Restore(ctx)
			cancel()
		}

		c.Set(appKey, appCtx)
		c.Set(navKey, nav)
		c.Set(tabKey, tabID)
		c.Next()
	}
}

func validID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func AppContext(c *gin.Context) (*app.Context, bool) {
	v, ok := c.Get(appKey)
	if !ok {
		return nil, false
	}
	appCtx, ok := v.(*app.Context)
	return appCtx, ok
}

func NavigationOf(c *gin.Context) *Navigation {
	if v, ok := c.Get(navKey); ok {
		if n, ok := v.(*Navigation); ok {
			return n
		}
	}
	return &Navigation{}
}

// RequireApp aborts requests that reached a handler without Tab in front.
func RequireApp() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := AppContext(c); !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "application context missing"})
			return
		}
		c.Next()
	}
}
