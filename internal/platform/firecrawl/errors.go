package firecrawl

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrAgentUnsupported is returned when the provider has no agent endpoint.
var ErrAgentUnsupported = errors.New("agent is not supported by this provider")

// APIError is a non-2xx reply from the provider. The status code is part of
// the message text so string-based classification keeps working after the
// error has been flattened to a message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Request failed with status code %d. Error: %s", e.StatusCode, e.Message)
}

// newAPIError builds an APIError from a failed response body, preferring the
// provider's own "error" field.
func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = payload.Error
		if msg == "" {
			msg = payload.Message
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}
