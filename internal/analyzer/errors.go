package analyzer

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// APIError is a non-2xx answer of the analyzer.
type APIError struct {
	StatusCode int
	Status     string
	// Message comes from the response payload and may be empty.
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bad status: %s", e.Status)
	}
	return fmt.Sprintf("bad status: %s: %s", e.Status, e.Message)
}

// UserMessage is the payload message shown to the user.
func (e *APIError) UserMessage() string {
	return e.Message
}

type errorPayload struct {
	Error   any `mapstructure:"error"`
	Message any `mapstructure:"message"`
	Detail  any `mapstructure:"detail"`
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	return &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Message:    payloadMessage(body),
	}
}

// payloadMessage looks for error, message or detail in a JSON body. Nested objects
// are searched the same way, so {"error":{"message":"..."}} works too.
func payloadMessage(body []byte) string {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return ""
	}

	return messageOf(decoded, 0)
}

func messageOf(v any, depth int) string {
	if depth > 3 {
		return ""
	}

	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []any:
		for _, item := range val {
			if msg := messageOf(item, depth+1); msg != "" {
				return msg
			}
		}
	case map[string]any:
		var payload errorPayload
		if err := mapstructure.Decode(val, &payload); err != nil {
			return ""
		}
		for _, candidate := range []any{payload.Error, payload.Message, payload.Detail} {
			if msg := messageOf(candidate, depth+1); msg != "" {
				return msg
			}
		}
	}

	return ""
}
