package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storefront/internal/middleware"
)

const keepAliveInterval = 25 * time.Second

type EventsHandler struct {
	log *logrus.Logger
}

func NewEventsHandler(logger *logrus.Logger) *EventsHandler {
	return &EventsHandler{log: logger}
}

func (h *EventsHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/events", h.Stream)
}

type streamNavigator chan string

func (n streamNavigator) Push(path string) {
	select {
	case n <- path:
	default:
	}
}

// Stream keeps a server-sent event stream open for an authenticated tab.
// While it is open the tab follows logouts made in the profile's other
// tabs: it receives a "navigate" event with the login path.
func (h *EventsHandler) Stream(c *gin.Context) {
	appCtx, _ := middleware.AppContext(c)
	if !appCtx.IsAuthenticated() {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "not signed in"})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	watch, err := appCtx.Auth().SubscribeLogout(ctx)
	if err != nil {
		h.log.Errorf("Events: failed to subscribe to logout signals: %v", err)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Event stream unavailable"})
		return
	}
	nav := make(streamNavigator, 1)
	watchErr := make(chan error, 1)
	go func() { watchErr <- watch.Run(ctx, nav) }()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	h.log.WithField("tab", appCtx.Shell().ID).Debug("Events: stream opened")
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case path := <-nav:
			appCtx.SetUser(nil)
			c.SSEvent("navigate", gin.H{"path": path})
			return false
		case err := <-watchErr:
			if err != nil {
				h.log.Errorf("Events: logout watch failed: %v", err)
			}
			return false
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
	h.log.WithField("tab", appCtx.Shell().ID).Debug("Events: stream closed")
}
