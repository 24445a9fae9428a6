package urlintel

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msgguard/msgguard/internal/risk"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		raw        risk.RawSignals
		score      float64
		prediction string
		confidence float64
	}{
		{
			name:       "clean https page",
			raw:        risk.RawSignals{"url": "https://example.com", "is_https": true, "dns_resolved": true},
			score:      0.05,
			prediction: PredictionSafe,
			confidence: 0.95,
		},
		{
			name:       "blocklisted domain",
			raw:        risk.RawSignals{"url": "https://bad.example", "is_https": true, "blocklisted": true},
			score:      0.95,
			prediction: PredictionMalicious,
			confidence: 0.95,
		},
		{
			name: "credential harvest over http",
			raw: risk.RawSignals{
				"url":                 "http://10.0.0.1/login/verify/account",
				"is_https":            false,
				"has_ip_host":         true,
				"password_inputs":     1,
				"suspicious_keywords": []string{"login", "verify", "account"},
			},
			score:      0.89,
			prediction: PredictionMalicious,
			confidence: 0.89,
		},
		{
			name: "external form on odd tld",
			raw: risk.RawSignals{
				"url":                  "https://promo.example.xyz",
				"is_https":             true,
				"external_form_action": true,
				"suspicious_tld":       true,
			},
			score:      0.45,
			prediction: PredictionSuspicious,
			confidence: 0.55,
		},
		{
			name: "score is capped",
			raw: risk.RawSignals{
				"url":                  "http://1.2.3.4",
				"is_https":             false,
				"blocklisted":          true,
				"has_ip_host":          true,
				"external_form_action": true,
			},
			score:      0.99,
			prediction: PredictionMalicious,
			confidence: 0.99,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := (&Analyzer{}).Score(context.Background(), tt.raw)
			require.NoError(t, err)
			assert.InDelta(t, tt.score, got.MalwareScore, 1e-9)
			assert.Equal(t, tt.prediction, got.Prediction)
			assert.InDelta(t, tt.confidence, got.Confidence, 1e-9)
		})
	}
}

func TestScore_AfterJSONRoundTrip(t *testing.T) {
	raw := risk.RawSignals{
		"url":                 "http://10.0.0.1/login/verify/account",
		"is_https":            false,
		"has_ip_host":         true,
		"password_inputs":     1,
		"suspicious_keywords": []string{"login", "verify", "account"},
	}
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	var decoded risk.RawSignals
	require.NoError(t, json.Unmarshal(data, &decoded))

	a, err := (&Analyzer{}).Score(context.Background(), raw)
	require.NoError(t, err)
	b, err := (&Analyzer{}).Score(context.Background(), decoded)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestScore_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  risk.RawSignals
	}{
		{"nil signals", nil},
		{"missing url", risk.RawSignals{"is_https": true}},
		{"url wrong type", risk.RawSignals{"url": 42}},
		{"flag wrong type", risk.RawSignals{"url": "https://x.test", "blocklisted": "yes"}},
		{"number wrong type", risk.RawSignals{"url": "https://x.test", "redirect_count": "3"}},
		{"list wrong type", risk.RawSignals{"url": "https://x.test", "suspicious_keywords": "login"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&Analyzer{}).Score(context.Background(), tt.raw)
			assert.ErrorIs(t, err, risk.ErrScoring)
		})
	}
}
