package classify

import (
	"errors"
	"net/http"
	"strings"

	"github.com/DingDong039/sentinel-search/internal/platform/firecrawl"
)

type Type string

const (
	CreditsExhausted Type = "credits_exhausted"
	RateLimit        Type = "rate_limit"
	Unknown          Type = "unknown"
)

// Result is what the dashboard banner is keyed on. Message is the raw error
// text.
type Result struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

// Classify buckets a search failure. It only inspects the error; callers
// decide whether to re-issue the search.
func Classify(err error) Result {
	if err == nil {
		return Result{}
	}
	msg := err.Error()
	return Result{Type: classify(err, msg), Message: msg}
}

func classify(err error, msg string) Type {
	var apiErr *firecrawl.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusPaymentRequired:
			return CreditsExhausted
		case http.StatusTooManyRequests:
			return RateLimit
		}
	}
	switch {
	case strings.Contains(msg, "Insufficient credits"), strings.Contains(msg, "402"):
		return CreditsExhausted
	case strings.Contains(msg, "Rate limit"), strings.Contains(msg, "429"):
		return RateLimit
	default:
		return Unknown
	}
}

// HTTPStatus maps a classification to the status code the API answers with.
func (r Result) HTTPStatus() int {
	switch r.Type {
	case CreditsExhausted:
		return http.StatusPaymentRequired
	case RateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}
