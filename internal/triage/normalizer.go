// Package triage turns the triage service's response into a flat analysis record.
//
// The service wraps its answer as {"result":{"Output":{"json_data":"<json text>"}}}. The inner
// record's priority is usually JSON-encoded a second time ("{\"priority\":\"High\"}"), but
// plain labels and already-decoded objects also occur and are accepted.
package triage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNormalization marks a response that does not have the expected shape.
var ErrNormalization = errors.New("malformed triage response")

// RawResponse is the undecoded body returned by the triage service.
type RawResponse = json.RawMessage

// Analysis is the normalized triage result.
type Analysis struct {
	Category   string   `json:"category"`
	Priority   string   `json:"priority"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type envelope struct {
	Result *struct {
		Output *struct {
			JSONData json.RawMessage `json:"json_data"`
		} `json:"Output"`
	} `json:"result"`
}

type record struct {
	Category   json.RawMessage `json:"category"`
	Priority   json.RawMessage `json:"priority"`
	Confidence json.RawMessage `json:"confidence"`
}

type priorityObject struct {
	Priority json.RawMessage `json:"priority"`
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNormalization, fmt.Sprintf(format, args...))
}

// Normalize extracts category, priority and optional confidence from a raw response.
// Every failure wraps ErrNormalization.
func Normalize(raw RawResponse) (*Analysis, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, malformed("response is not a JSON object: %v", err)
	}
	if env.Result == nil {
		return nil, malformed("missing result")
	}
	if env.Result.Output == nil {
		return nil, malformed("missing result.Output")
	}
	if isNull(env.Result.Output.JSONData) {
		return nil, malformed("missing result.Output.json_data")
	}

	var jsonData string
	if err := json.Unmarshal(env.Result.Output.JSONData, &jsonData); err != nil {
		return nil, malformed("result.Output.json_data is not a string")
	}

	var rec record
	if err := json.Unmarshal([]byte(jsonData), &rec); err != nil {
		return nil, malformed("json_data is not a JSON object: %v", err)
	}

	category, err := requiredString(rec.Category, "category")
	if err != nil {
		return nil, err
	}

	priority, err := resolvePriority(rec.Priority)
	if err != nil {
		return nil, err
	}

	confidence, err := parseConfidence(rec.Confidence)
	if err != nil {
		return nil, err
	}

	return &Analysis{
		Category:   category,
		Priority:   priority,
		Confidence: confidence,
	}, nil
}

// resolvePriority unwraps the second level of encoding when it is present.
func resolvePriority(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", malformed("missing priority")
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", malformed("priority: %v", err)
		}
		inner := strings.TrimSpace(s)
		if inner == "" {
			return "", malformed("empty priority")
		}
		switch inner[0] {
		case '{':
			var obj priorityObject
			if err := json.Unmarshal([]byte(inner), &obj); err != nil {
				return "", malformed("encoded priority is not valid JSON: %v", err)
			}
			return requiredString(obj.Priority, "encoded priority.priority")
		case '"':
			return requiredString(json.RawMessage(inner), "encoded priority")
		default:
			// Plain label, not encoded again.
			return inner, nil
		}
	case '{':
		var obj priorityObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", malformed("priority: %v", err)
		}
		return requiredString(obj.Priority, "priority.priority")
	case '[':
		return "", malformed("priority is an array")
	default:
		// Numbers and booleans are kept as their JSON text.
		return string(raw), nil
	}
}

func parseConfidence(raw json.RawMessage) (*float64, error) {
	if isNull(raw) {
		return nil, nil
	}

	var value float64
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, malformed("confidence: %v", err)
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, malformed("confidence %q is not a number", s)
		}
		value = parsed
	} else if err := json.Unmarshal(raw, &value); err != nil {
		return nil, malformed("confidence is not a number")
	}

	if value < 0 || value > 1 {
		return nil, malformed("confidence %v outside [0,1]", value)
	}
	return &value, nil
}

func requiredString(raw json.RawMessage, field string) (string, error) {
	if isNull(raw) {
		return "", malformed("missing %s", field)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", malformed("%s is not a string", field)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", malformed("empty %s", field)
	}
	return s, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
