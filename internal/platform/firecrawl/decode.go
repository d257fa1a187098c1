package firecrawl

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Search and scrape answer in different shapes: search wraps its hits in a
// {success, data: [...]} envelope, a scrape is one document. They are kept as
// two decoders on purpose.

// decodeSearchResponse decodes a search reply. Missing data decodes to an
// empty result; data that is present but not an array is an error.
func decodeSearchResponse(body []byte) (*SearchResponse, error) {
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Warning string          `json:"warning"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	out := &SearchResponse{Success: raw.Success, Warning: raw.Warning}
	data := bytes.TrimSpace(raw.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return out, nil
	}
	if data[0] != '[' {
		return nil, fmt.Errorf("decode search response: data is not an array")
	}
	if err := json.Unmarshal(data, &out.Data); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return out, nil
}

// decodeDocument decodes a single scraped document. The REST endpoint nests
// it under "data"; a bare document with fields at the top level is accepted
// as well.
func decodeDocument(body []byte) (*Document, error) {
	var envelope struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if envelope.Success != nil && !*envelope.Success {
		msg := envelope.Error
		if msg == "" {
			msg = "provider reported failure"
		}
		return nil, fmt.Errorf("scrape failed: %s", msg)
	}

	payload := body
	if data := bytes.TrimSpace(envelope.Data); len(data) > 0 && data[0] == '{' {
		payload = data
	}
	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}
