package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storefront/internal/cart"
	"storefront/internal/clients"
)

type ErrorResponse struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details,omitempty"`
}

// respondError maps an error from the cart or the content API to an HTTP
// answer. API errors keep their status and raw payload so the form can
// show what the API said.
func respondError(c *gin.Context, logger logrus.FieldLogger, err error) {
	if errors.Is(err, cart.ErrItemNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	if errors.Is(err, clients.ErrRestaurantNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found"})
		return
	}

	if apiErr, ok := clients.AsAPIError(err); ok {
		status := apiErr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		logger.Warnf("Handler Error: content API answered %d: %s", apiErr.StatusCode, apiErr.Message)
		c.JSON(status, ErrorResponse{Error: apiErr.Message, Details: apiErr.Payload})
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		logger.Warnf("Handler Error: content API timed out: %v", err)
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: "Request timed out"})
		return
	}

	logger.Errorf("Handler Error: %v", err)
	c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Content service temporarily unavailable"})
}
