package clients

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from the remote API. Payload keeps the raw
// body so forms can show whatever the API said.
type APIError struct {
	StatusCode int
	Message    string
	Payload    json.RawMessage
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote API returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote API returned status %d", e.StatusCode)
}

// AsAPIError unwraps err into an *APIError when there is one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status, Message: extractMessage(body)}
	if json.Valid(body) {
		e.Payload = append(json.RawMessage(nil), body...)
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// extractMessage understands both the v4 ({"error":{"message"}}) and the v3
// ({"message":[{"messages":[{"message"}]}]}) error shapes of the content API.
func extractMessage(body []byte) string {
	var v4 struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &v4); err == nil && v4.Error != nil && v4.Error.Message != "" {
		return v4.Error.Message
	}

	var v3 struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &v3); err != nil || len(v3.Message) == 0 {
		return ""
	}
	var plain string
	if err := json.Unmarshal(v3.Message, &plain); err == nil {
		return plain
	}
	var nested []struct {
		Messages []struct {
			Message string `json:"message"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(v3.Message, &nested); err == nil {
		for _, n := range nested {
			for _, m := range n.Messages {
				if m.Message != "" {
					return m.Message
				}
			}
		}
	}
	return ""
}
