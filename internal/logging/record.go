package logging

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// unknownModel is the partition label used when the request body carries no
// model field.
const unknownModel = "unknown"

// RequestInfo is the request half of an exchange record.
type RequestInfo struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers"`
	Body    any               `json:"body"`
}

// ResponseInfo is the response half of an exchange record.
type ResponseInfo struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Body       any               `json:"body"`
	Streaming  bool              `json:"streaming"`
}

// Record is one proxied request/response pair, serialized as a single JSON
// object per line in the destination partition.
type Record struct {
	Timestamp time.Time     `json:"timestamp"`
	CallerID  string        `json:"caller_id,omitempty"`
	Request   RequestInfo   `json:"request"`
	Response  *ResponseInfo `json:"response,omitempty"`
}

// ParseBody returns the structured form of raw for logging: the JSON value
// itself when raw parses, otherwise the text with invalid bytes replaced.
// Empty bodies become nil.
func ParseBody(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	if json.Valid(raw) {
		return json.RawMessage(raw)
	}
	return strings.ToValidUTF8(string(raw), "�")
}

// flattenHeaders collapses an http.Header to single values, the shape the
// record format uses.
func flattenHeaders(h http.Header) map[string]string {
	flat := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			flat[k] = v[0]
		}
	}
	return flat
}

// ExtractModel pulls the model field from a JSON request body, or returns
// the unknown placeholder.
func ExtractModel(requestBody []byte) string {
	model := gjson.GetBytes(requestBody, "model").String()
	if model == "" {
		return unknownModel
	}
	return model
}

// PartitionName computes the destination partition for a record:
// {model}_{YYYYMMDD}, with path separators in the model sanitized.
func PartitionName(model string, now time.Time) string {
	model = strings.ReplaceAll(model, "/", "_")
	return model + "_" + now.UTC().Format("20060102")
}
