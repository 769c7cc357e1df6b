package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storefront/internal/clients"
	"storefront/internal/domain"
)

type MenuHandler struct {
	menu    clients.MenuClient
	timeout time.Duration
	log     *logrus.Logger
}

func NewMenuHandler(menu clients.MenuClient, timeout time.Duration, logger *logrus.Logger) *MenuHandler {
	return &MenuHandler{menu: menu, timeout: timeout, log: logger}
}

func (h *MenuHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/restaurants/:id/dishes", h.RestaurantDishes)
}

type MenuResponse struct {
	Message    string             `json:"message,omitempty"`
	Restaurant *domain.Restaurant `json:"restaurant,omitempty"`
}

func (h *MenuHandler) RestaurantDishes(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		h.log.Warnf("Invalid restaurant ID parameter: %s", idStr)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid restaurant ID format"})
		return
	}
	if id <= 0 {
		c.JSON(http.StatusOK, MenuResponse{Message: "Pick a Café"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	restaurant, err := h.menu.RestaurantDishes(ctx, idStr)
	if err != nil {
		if errors.Is(err, clients.ErrRestaurantNotFound) {
			respondError(c, h.log, err)
			return
		}
		h.log.Errorf("Failed to load menu of restaurant %d: %v", id, err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Error with Menu Items"})
		return
	}

	c.JSON(http.StatusOK, MenuResponse{Restaurant: restaurant})
}
