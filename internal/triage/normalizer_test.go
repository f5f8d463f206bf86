package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		wantCategory   string
		wantPriority   string
		wantConfidence *float64
	}{
		{
			name:         "doubly encoded priority",
			raw:          `{"result":{"Output":{"json_data":"{\"category\":\"Hardware\",\"priority\":\"{\\\"priority\\\":\\\"High\\\"}\"}"}}}`,
			wantCategory: "Hardware",
			wantPriority: "High",
		},
		{
			name:         "plain string priority is unchanged",
			raw:          `{"result":{"Output":{"json_data":"{\"category\":\"Software\",\"priority\":\"Medium\"}"}}}`,
			wantCategory: "Software",
			wantPriority: "Medium",
		},
		{
			name:         "priority already decoded to an object",
			raw:          `{"result":{"Output":{"json_data":"{\"category\":\"Network\",\"priority\":{\"priority\":\"Low\"}}"}}}`,
			wantCategory: "Network",
			wantPriority: "Low",
		},
		{
			name:         "numeric label inside a string",
			raw:          `{"result":{"Output":{"json_data":"{\"category\":\"Billing\",\"priority\":\"1\"}"}}}`,
			wantCategory: "Billing",
			wantPriority: "1",
		},
		{
			name:         "non-string priority kept as JSON text",
			raw:          `{"result":{"Output":{"json_data":"{\"category\":\"Billing\",\"priority\":2}"}}}`,
			wantCategory: "Billing",
			wantPriority: "2",
		},
		{
			name:           "confidence number",
			raw:            `{"result":{"Output":{"json_data":"{\"category\":\"Hardware\",\"priority\":\"{\\\"priority\\\":\\\"Critical\\\"}\",\"confidence\":0.92}"}}}`,
			wantCategory:   "Hardware",
			wantPriority:   "Critical",
			wantConfidence: floatPtr(0.92),
		},
		{
			name:           "confidence as string",
			raw:            `{"result":{"Output":{"json_data":"{\"category\":\"Access\",\"priority\":\"Low\",\"confidence\":\"0.5\"}"}}}`,
			wantCategory:   "Access",
			wantPriority:   "Low",
			wantConfidence: floatPtr(0.5),
		},
		{
			name:         "extra fields ignored",
			raw:          `{"id":"run-1","result":{"Output":{"json_data":"{\"category\":\"Hardware\",\"priority\":\"High\",\"summary\":\"disk\"}"},"cost":3}}`,
			wantCategory: "Hardware",
			wantPriority: "High",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(RawResponse(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.wantCategory, got.Category)
			assert.Equal(t, tt.wantPriority, got.Priority)
			if tt.wantConfidence == nil {
				assert.Nil(t, got.Confidence)
			} else {
				require.NotNil(t, got.Confidence)
				assert.InDelta(t, *tt.wantConfidence, *got.Confidence, 1e-9)
			}
		})
	}
}

func TestNormalize_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `<html>bad gateway</html>`},
		{name: "missing result", raw: `{"Output":{}}`},
		{name: "missing Output", raw: `{"result":{}}`},
		{name: "missing json_data", raw: `{"result":{"Output":{}}}`},
		{name: "null json_data", raw: `{"result":{"Output":{"json_data":null}}}`},
		{name: "json_data is an object", raw: `{"result":{"Output":{"json_data":{"category":"Hardware","priority":"High"}}}}`},
		{name: "json_data not json", raw: `{"result":{"Output":{"json_data":"category=Hardware"}}}`},
		{name: "missing category", raw: `{"result":{"Output":{"json_data":"{\"priority\":\"High\"}"}}}`},
		{name: "empty category", raw: `{"result":{"Output":{"json_data":"{\"category\":\" \",\"priority\":\"High\"}"}}}`},
		{name: "missing priority", raw: `{"result":{"Output":{"json_data":"{\"category\":\"Hardware\"}"}}}`},
		{name: "empty priority", raw: `{"result":{"Output":{"json_data":"{\"category\":\"Hardware\",\"priority\":\"\"}"}}}`},
		{name: "encoded priority without member", raw: `{"result":{"Output":{"json_data":"{\"category\":\"Hardware\",\"priority\":\"{\\\"level\\\":\\\"High\\\"}\"}"}}}`},
		{name: "encoded priority truncated", raw: `{"result":{"Output":{"json_data":"{\"category\":\"Hardware\",\"priority\":\"{\\\"priority\\\":\"}"}}}`},
		{name: "priority array", raw: `{"result":{"Output":{"json_data":"{\"category\":\"Hardware\",\"priority\":[\"High\"]}"}}}`},
		{name: "confidence above one", raw: `{"result":{"Output":{"json_data":"{\"category\":\"Hardware\",\"priority\":\"High\",\"confidence\":1.2}"}}}`},
		{name: "confidence not numeric", raw: `{"result":{"Output":{"json_data":"{\"category\":\"Hardware\",\"priority\":\"High\",\"confidence\":\"sure\"}"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(RawResponse(tt.raw))
			assert.Nil(t, got)
			assert.ErrorIs(t, err, ErrNormalization)
		})
	}
}

func floatPtr(v float64) *float64 { return &v }
