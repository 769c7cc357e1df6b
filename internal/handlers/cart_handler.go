package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/middleware"
)

type CartHandler struct {
	log *logrus.Logger
}

func NewCartHandler(logger *logrus.Logger) *CartHandler {
	return &CartHandler{log: logger}
}

func (h *CartHandler) RegisterRoutes(router gin.IRouter) {
	items := router.Group("/cart")
	{
		items.GET("", h.GetCart)
		items.POST("/items", h.AddItem)
		items.DELETE("/items/:id", h.RemoveItem)
	}
}

type AddItemRequest struct {
	ID          string          `json:"id" binding:"required"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       *domain.Image   `json:"image"`
}

type CartResponse struct {
	Items []domain.LineItem `json:"items"`
	Total string            `json:"total"`
	Count int               `json:"count"`
}

func cartResponse(c domain.Cart) CartResponse {
	items := c.Items
	if items == nil {
		items = []domain.LineItem{}
	}
	return CartResponse{Items: items, Total: c.Total.StringFixed(2), Count: cart.Count(c)}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	appCtx, _ := middleware.AppContext(c)
	c.JSON(http.StatusOK, cartResponse(appCtx.Cart()))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("Failed to bind add item request: %v", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	if req.Price.IsNegative() {
		h.log.Warnf("Rejected item %s with negative price %s", req.ID, req.Price)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: price must not be negative"})
		return
	}
	appCtx, _ := middleware.AppContext(c)

	updated := appCtx.AddItem(domain.Dish{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
	})
	h.log.Infof("Item %s added to cart, total %s", req.ID, updated.Total.StringFixed(2))
	c.JSON(http.StatusOK, cartResponse(updated))
}

// RemoveItem takes one unit of the dish out. The unit price comes from the
// cart's own line item, so the client only names the id.
func (h *CartHandler) RemoveItem(c *gin.Context) {
	id := c.Param("id")
	appCtx, _ := middleware.AppContext(c)

	var target *domain.LineItem
	current := appCtx.Cart()
	for i := range current.Items {
		if current.Items[i].ID == id {
			target = &current.Items[i]
			break
		}
	}
	if target == nil {
		h.log.Warnf("Item %s not in cart", id)
		respondError(c, h.log, cart.ErrItemNotFound)
		return
	}

	updated, err := appCtx.RemoveItem(domain.Dish{ID: target.ID, Price: target.Price})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.log.Infof("Item %s removed from cart, total %s", id, updated.Total.StringFixed(2))
	c.JSON(http.StatusOK, cartResponse(updated))
}
