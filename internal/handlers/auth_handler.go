package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storefront/internal/domain"
	"storefront/internal/middleware"
)

type AuthHandler struct {
	timeout time.Duration
	log     *logrus.Logger
}

func NewAuthHandler(timeout time.Duration, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{timeout: timeout, log: logger}
}

func (h *AuthHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/register", h.Register)
	router.POST("/login", h.Login)
	router.POST("/logout", h.Logout)
	router.GET("/session", h.Session)
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// AuthResult is the answer to the auth forms. Redirect is where the tab
// should go next.
type AuthResult struct {
	User     *domain.User `json:"user,omitempty"`
	Redirect string       `json:"redirect,omitempty"`
}

type SessionResponse struct {
	Authenticated bool         `json:"isAuthenticated"`
	User          *domain.User `json:"user"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	handlerLogger := h.log.WithField("handler", "Register")
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlerLogger.Warnf("Failed to bind register request: %v", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	appCtx, _ := middleware.AppContext(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	res, err := appCtx.Auth().Register(ctx, req.Username, req.Email, req.Password)
	h.finish(c, handlerLogger, res, err)
}

func (h *AuthHandler) Login(c *gin.Context) {
	handlerLogger := h.log.WithField("handler", "Login")
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlerLogger.Warnf("Failed to bind login request: %v", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	appCtx, _ := middleware.AppContext(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	res, err := appCtx.Auth().Login(ctx, req.Identifier, req.Password)
	h.finish(c, handlerLogger, res, err)
}

func (h *AuthHandler) finish(c *gin.Context, logger *logrus.Entry, res *domain.AuthResponse, err error) {
	if err != nil {
		respondError(c, logger, err)
		return
	}
	if res == nil {
		logger.Debug("Auth skipped for a request without a live tab")
		c.Status(http.StatusNoContent)
		return
	}
	out := AuthResult{User: res.User}
	out.Redirect, _ = middleware.NavigationOf(c).Target()
	c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	appCtx, _ := middleware.AppContext(c)
	if err := appCtx.Auth().Logout(c.Request.Context()); err != nil {
		// the local session is gone either way; other tabs just won't follow
		h.log.WithField("handler", "Logout").Warnf("Logout signal not delivered: %v", err)
	}
	out := AuthResult{}
	out.Redirect, _ = middleware.NavigationOf(c).Target()
	c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) Session(c *gin.Context) {
	appCtx, _ := middleware.AppContext(c)
	c.JSON(http.StatusOK, SessionResponse{
		Authenticated: appCtx.IsAuthenticated(),
		User:          appCtx.User(),
	})
}
