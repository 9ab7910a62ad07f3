package predictor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/herbalscanner/backend/internal/domain"
)

// DefaultLabel is reported when the classifier names no class
const DefaultLabel = "Unknown"

// Accepted field names, in priority order. The upstream service renamed its
// fields more than once; every historical name is still honoured.
var (
	LabelAliases      = []string{"plant", "predicted_class", "class_name"}
	ConfidenceAliases = []string{"confidence", "confidence_score"}
)

// ParsePrediction converts a classifier response body into a Prediction.
// A field is present when its key exists with a non-null value; the first
// present alias wins. Missing label means DefaultLabel, missing confidence means 0.
//
// Valid JSON that is not an object (an array, string or number) has no fields
// and yields the defaults. Malformed JSON and a bare null are errors.
func ParsePrediction(body []byte) (*domain.Prediction, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrPredictionResponse, err)
		}
		return &domain.Prediction{Label: DefaultLabel}, nil
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: failed to decode response: body is null", domain.ErrPredictionResponse)
	}

	prediction := &domain.Prediction{Label: DefaultLabel}

	if raw, ok := firstPresent(fields, LabelAliases); ok {
		prediction.Label = decodeLabel(raw)
	}
	if raw, ok := firstPresent(fields, ConfidenceAliases); ok {
		prediction.Confidence = decodeConfidence(raw)
	}

	return prediction, nil
}

// firstPresent returns the value of the first alias that is set and not null
func firstPresent(fields map[string]json.RawMessage, aliases []string) (json.RawMessage, bool) {
	for _, alias := range aliases {
		raw, ok := fields[alias]
		if !ok || isNull(raw) {
			continue
		}
		return raw, true
	}
	return nil, false
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

// decodeLabel accepts a JSON string; any other JSON value is kept as its literal text
func decodeLabel(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// decodeConfidence accepts a JSON number or a numeric string; anything else is 0
func decodeConfidence(raw json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return 0
}
