package firecrawl

import (
	"encoding/json"
	"strings"
)

// Metadata is the provider's open-ended metadata bag (title, description,
// url, sourceURL, ogImage, statusCode, ...). Reads go through String and
// Number, so a value of any other shape behaves as if it were absent.
type Metadata map[string]any

// String returns the trimmed string stored under key. Empty strings count as
// absent.
func (m Metadata) String(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	s, ok := m[key].(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Number returns the numeric value stored under key.
func (m Metadata) Number(key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// FirstString walks keys in order and returns the first present string, or
// "" when none is.
func (m Metadata) FirstString(keys ...string) string {
	for _, k := range keys {
		if s, ok := m.String(k); ok {
			return s
		}
	}
	return ""
}

// StatusCode is the HTTP status the provider saw for the page, 0 if unknown.
func (m Metadata) StatusCode() int {
	f, ok := m.Number("statusCode")
	if !ok {
		return 0
	}
	return int(f)
}
