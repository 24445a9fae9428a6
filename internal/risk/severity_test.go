package risk_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/msgguard/msgguard/internal/risk"
)

func TestBucketize(t *testing.T) {
	tests := []struct {
		confidence float64
		level      string
		icon       string
	}{
		{0, "Low", "😊"},
		{39.99, "Low", "😊"},
		{40.00, "Medium", "😐"},
		{64.99, "Medium", "😐"},
		{65.00, "High", "😟"},
		{84.99, "High", "😟"},
		{85.00, "Very High", "😱"},
		{100, "Very High", "😱"},
		{-5, "Low", "😊"},
		{250, "Very High", "😱"},
		{math.NaN(), "Low", "😊"},
	}

	for _, tt := range tests {
		level, icon := risk.Bucketize(tt.confidence)
		assert.Equal(t, tt.level, level, "confidence %v", tt.confidence)
		assert.Equal(t, tt.icon, icon, "confidence %v", tt.confidence)
	}
}

func TestConfidencePercent(t *testing.T) {
	tests := []struct {
		name        string
		probability float64
		expected    float64
	}{
		{"zero", 0, 0},
		{"one", 1, 100},
		{"two decimals", 0.92, 92.0},
		{"rounds half up", 0.123455, 12.35},
		{"rounds down", 0.123449, 12.34},
		{"smallest half", 0.00005, 0.01},
		{"clamps above one", 1.7, 100},
		{"clamps below zero", -0.2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, risk.ConfidencePercent(tt.probability), 1e-9)
		})
	}
}

func TestConfidencePercent_AlwaysInRange(t *testing.T) {
	for i := 0; i <= 1000; i++ {
		c := risk.ConfidencePercent(float64(i) / 1000)
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 100.0)
	}
}
