package handlers

import (
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storefront/internal/app"
	"storefront/internal/clients"
	"storefront/internal/middleware"
	"storefront/internal/proxy"
	"storefront/internal/storage"
)

type RouterDeps struct {
	Registry *app.Registry
	Menu     clients.MenuClient
	Uploads  *httputil.ReverseProxy
	Cookies  storage.CookieOptions
	Timeout  time.Duration
	Log      *logrus.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(d.Log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	RegisterPages(router)

	if d.Uploads != nil {
		router.GET("/uploads/*path", proxy.ProxyHandler(d.Uploads, d.Log))
	}

	api := router.Group("/api")
	api.Use(middleware.Tab(d.Registry, d.Cookies, d.Timeout, d.Log))
	api.Use(middleware.RequireApp())
	{
		NewAuthHandler(d.Timeout, d.Log).RegisterRoutes(api)
		NewCartHandler(d.Log).RegisterRoutes(api)
		NewMenuHandler(d.Menu, d.Timeout, d.Log).RegisterRoutes(api)
		NewEventsHandler(d.Log).RegisterRoutes(api)
	}
	return router
}
