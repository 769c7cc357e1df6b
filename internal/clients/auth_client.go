package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"storefront/internal/domain"
)

type AuthClient interface {
	Register(ctx context.Context, username, email, password string) (*domain.AuthResponse, error)
	Login(ctx context.Context, identifier, password string) (*domain.AuthResponse, error)
	Me(ctx context.Context, token string) (*domain.User, error)
}

type authHTTPClient struct {
	baseURL string
	client  *http.Client
	log     *logrus.Logger
}

func NewAuthHTTPClient(baseURL string, timeout time.Duration, logger *logrus.Logger) AuthClient {
	return &authHTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		log: logger,
	}
}

func (c *authHTTPClient) Register(ctx context.Context, username, email, password string) (*domain.AuthResponse, error) {
	c.log.Debugf("AuthClient: Registering user %s", username)
	body := map[string]string{"username": username, "email": email, "password": password}
	return c.postAuth(ctx, "/auth/local/register", body)
}

func (c *authHTTPClient) Login(ctx context.Context, identifier, password string) (*domain.AuthResponse, error) {
	c.log.Debugf("AuthClient: Logging in %s", identifier)
	body := map[string]string{"identifier": identifier, "password": password}
	return c.postAuth(ctx, "/auth/local/", body)
}

func (c *authHTTPClient) postAuth(ctx context.Context, path string, payload map[string]string) (*domain.AuthResponse, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare auth request: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		c.log.Errorf("AuthClient: Failed to create request for %s: %v", url, err)
		return nil, fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out domain.AuthResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if out.JWT == "" {
		c.log.Errorf("AuthClient: %s answered without a jwt", path)
		return nil, fmt.Errorf("auth response from %s carried no token", path)
	}
	return &out, nil
}

func (c *authHTTPClient) Me(ctx context.Context, token string) (*domain.User, error) {
	url := c.baseURL + "/users/me"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var user domain.User
	if err := c.do(req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *authHTTPClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Errorf("AuthClient: %s %s failed: %v", req.Method, req.URL.Path, err)
		return fmt.Errorf("failed to communicate with content API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read content API response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, body)
		c.log.Warnf("AuthClient: %s %s answered %d: %s", req.Method, req.URL.Path, resp.StatusCode, apiErr.Message)
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.log.Errorf("AuthClient: Failed to decode response of %s: %v", req.URL.Path, err)
		return fmt.Errorf("failed to decode content API response: %w", err)
	}
	return nil
}
