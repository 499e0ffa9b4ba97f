// internal/transport/classify.go
package transport

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mwiater/foundrychat/internal/util"
)

const (
	badAllocationMessage = "Model memory allocation failed"
	badAllocationDetails = "The selected model cannot be loaded due to insufficient memory or incompatible configuration. Try:\n" +
		"• Selecting a smaller model\n" +
		"• Reducing max_tokens parameter\n" +
		"• Checking if the model is compatible with your hardware\n" +
		"• Restarting the Foundry server"
	rawBadAllocationDetails = "The model cannot be loaded. Try selecting a smaller model or reducing parameters."

	f16Message = "Model incompatible with your hardware"
	f16Details = "This model requires float16 (f16) support which is not available on your device. Try selecting a different model with CPU or DirectML runtime."

	internalErrorMessage = "Server internal error"
	internalDetailsLimit = 500
)

// optString is a JSON string that remembers whether it was set.
type optString struct {
	value string
	set   bool
}

func (o optString) orElse(fallback string) string {
	if o.set {
		return o.value
	}
	return fallback
}

func (o optString) containsFold(needle string) bool {
	return o.set && strings.Contains(strings.ToLower(o.value), needle)
}

// Classify turns a failed response body into a structured error. It depends
// only on the body and status so callers can feed canned payloads.
func Classify(status int, body string) *ErrorInfo {
	message, details, err := extractErrorFields(body)
	if err != nil {
		if strings.Contains(strings.ToLower(body), "bad allocation") {
			return NewStatusError(badAllocationMessage, rawBadAllocationDetails, status)
		}
		return NewStatusError(fmt.Sprintf("HTTP %d error", status), body, status)
	}

	switch {
	case message.containsFold("bad allocation") || details.containsFold("bad allocation") ||
		strings.Contains(strings.ToLower(body), "bad allocation"):
		message = optString{value: badAllocationMessage, set: true}
		details = optString{value: badAllocationDetails, set: true}
	case details.containsFold("f16") || details.containsFold("float16"):
		message = optString{value: f16Message, set: true}
		details = optString{value: f16Details, set: true}
	case status == 500 && message.value == "":
		message = optString{value: internalErrorMessage, set: true}
		details = optString{value: util.Truncate(body, internalDetailsLimit, "..."), set: true}
	}

	return NewStatusError(message.orElse(fmt.Sprintf("HTTP %d error", status)), details.orElse(body), status)
}

// extractErrorFields reads the message and details from the first error shape
// the body matches: problem details, an OpenAI error, or a bare message.
func extractErrorFields(body string) (message, details optString, err error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &root); err != nil {
		return message, details, err
	}
	if root == nil {
		return message, details, fmt.Errorf("error body is null")
	}

	if title, ok := root["title"]; ok {
		if message, err = decodeOptString(title); err != nil {
			return message, details, err
		}
		if detail, ok := root["detail"]; ok {
			details, err = decodeOptString(detail)
		}
		return message, details, err
	}

	if rawErr, ok := root["error"]; ok {
		trimmed := strings.TrimSpace(string(rawErr))
		switch {
		case strings.HasPrefix(trimmed, "{"):
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(rawErr, &obj); err != nil {
				return message, details, err
			}
			if m, ok := obj["message"]; ok {
				if message, err = decodeOptString(m); err != nil {
					return message, details, err
				}
			}
			if t, ok := obj["type"]; ok {
				details, err = decodeOptString(t)
			}
		case strings.HasPrefix(trimmed, `"`):
			message, err = decodeOptString(rawErr)
		}
		return message, details, err
	}

	if m, ok := root["message"]; ok {
		message, err = decodeOptString(m)
	}
	return message, details, err
}

// decodeOptString accepts a JSON string or null. Other types are an error.
func decodeOptString(raw json.RawMessage) (optString, error) {
	if strings.TrimSpace(string(raw)) == "null" {
		return optString{}, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return optString{}, err
	}
	return optString{value: s, set: true}, nil
}
