package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"storefront/internal/domain"
)

var ErrRestaurantNotFound = errors.New("restaurant not found")

const restaurantDishesQuery = `
query($id: ID!) {
  restaurant(id: $id) {
    id
    name
    dishes {
      id
      name
      description
      price
      image {
        url
      }
    }
  }
}`

type MenuClient interface {
	RestaurantDishes(ctx context.Context, restaurantID string) (*domain.Restaurant, error)
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type menuGraphQLClient struct {
	endpoint string
	client   *http.Client
	log      *logrus.Logger
}

func NewMenuGraphQLClient(baseURL string, timeout time.Duration, logger *logrus.Logger) MenuClient {
	return &menuGraphQLClient{
		endpoint: strings.TrimRight(baseURL, "/") + "/graphql",
		client: &http.Client{
			Timeout: timeout,
		},
		log: logger,
	}
}

func (c *menuGraphQLClient) RestaurantDishes(ctx context.Context, restaurantID string) (*domain.Restaurant, error) {
	c.log.Debugf("MenuClient: Querying dishes for restaurant %s", restaurantID)

	jsonData, err := json.Marshal(graphQLRequest{
		Query:     restaurantDishesQuery,
		Variables: map[string]any{"id": restaurantID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare menu query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create menu request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Errorf("MenuClient: Failed to execute query for restaurant %s: %v", restaurantID, err)
		return nil, fmt.Errorf("failed to communicate with content API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read menu response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := newAPIError(resp.StatusCode, body)
		c.log.Warnf("MenuClient: GraphQL endpoint answered %d for restaurant %s", resp.StatusCode, restaurantID)
		return nil, apiErr
	}

	var out struct {
		Data struct {
			Restaurant *domain.Restaurant `json:"restaurant"`
		} `json:"data"`
		Errors []graphQLError `json:"errors"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		c.log.Errorf("MenuClient: Failed to decode response for restaurant %s: %v", restaurantID, err)
		return nil, fmt.Errorf("failed to decode menu response: %w", err)
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		c.log.Warnf("MenuClient: GraphQL errors for restaurant %s: %s", restaurantID, strings.Join(msgs, "; "))
		return nil, fmt.Errorf("menu query failed: %s", strings.Join(msgs, "; "))
	}
	if out.Data.Restaurant == nil {
		return nil, ErrRestaurantNotFound
	}

	c.log.Infof("MenuClient: Restaurant %s has %d dishes", restaurantID, len(out.Data.Restaurant.Dishes))
	return out.Data.Restaurant, nil
}
