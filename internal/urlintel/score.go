package urlintel

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/msgguard/msgguard/internal/risk"
)

// Prediction labels and their score thresholds.
const (
	PredictionMalicious  = "MALICIOUS"
	PredictionSuspicious = "SUSPICIOUS"
	PredictionSafe       = "SAFE"

	maliciousThreshold  = 0.70
	suspiciousThreshold = 0.40

	baseScore = 0.05
	maxScore  = 0.99
)

// indicator is a weighted risk signal evaluated against raw signals.
type indicator struct {
	Name   string
	Weight float64
	Match  func(s signals) (float64, error) // returns the fraction of Weight applied
}

var indicators = []indicator{
	{Name: "blocklisted", Weight: 0.90, Match: flag("blocklisted")},
	{Name: "ip_host", Weight: 0.25, Match: flag("has_ip_host")},
	{Name: "userinfo_or_at", Weight: 0.20, Match: flag("has_at_symbol")},
	{Name: "punycode_host", Weight: 0.20, Match: flag("is_punycode")},
	{Name: "suspicious_tld", Weight: 0.15, Match: flag("suspicious_tld")},
	{Name: "external_form_action", Weight: 0.25, Match: flag("external_form_action")},
	{Name: "password_over_http", Weight: 0.30, Match: func(s signals) (float64, error) {
		pw, err := s.num("password_inputs")
		if err != nil || pw == 0 {
			return 0, err
		}
		https, err := s.flag("is_https")
		if err != nil || https {
			return 0, err
		}
		return 1, nil
	}},
	{Name: "suspicious_keywords", Weight: 0.24, Match: func(s signals) (float64, error) {
		n, err := s.listLen("suspicious_keywords")
		return math.Min(float64(n)/3, 1), err
	}},
	{Name: "hidden_iframes", Weight: 0.15, Match: atLeast("hidden_iframes", 1)},
	{Name: "deep_subdomains", Weight: 0.10, Match: atLeast("subdomain_count", 3)},
	{Name: "long_url", Weight: 0.10, Match: atLeast("url_length", 75)},
	{Name: "hyphenated_host", Weight: 0.10, Match: atLeast("hyphen_count", 3)},
	{Name: "redirect_chain", Weight: 0.10, Match: atLeast("redirect_count", 3)},
	{Name: "meta_refresh", Weight: 0.05, Match: flag("meta_refresh")},
	{Name: "unresolved_dns", Weight: 0.10, Match: func(s signals) (float64, error) {
		ok, err := s.flag("dns_resolved")
		if err != nil || ok || !s.has("dns_resolved") {
			return 0, err
		}
		return 1, nil
	}},
	{Name: "plain_http", Weight: 0.05, Match: func(s signals) (float64, error) {
		if !s.has("is_https") {
			return 0, nil
		}
		https, err := s.flag("is_https")
		if err != nil || https {
			return 0, err
		}
		return 1, nil
	}},
}

// Score combines the weighted indicators into a malware score in [0, 0.99].
// Raw signals lacking a url, or holding values of the wrong type, wrap risk.ErrScoring.
func (a *Analyzer) Score(_ context.Context, raw risk.RawSignals) (risk.MalwareScore, error) {
	s := signals(raw)
	if u, ok := s["url"].(string); !ok || u == "" {
		return risk.MalwareScore{}, fmt.Errorf("%w: raw signals missing url", risk.ErrScoring)
	}

	score := baseScore
	var hits []string
	for _, ind := range indicators {
		frac, err := ind.Match(s)
		if err != nil {
			return risk.MalwareScore{}, fmt.Errorf("%w: indicator %s: %v", risk.ErrScoring, ind.Name, err)
		}
		if frac > 0 {
			score += ind.Weight * frac
			hits = append(hits, ind.Name)
		}
	}
	score = math.Min(score, maxScore)

	rounded := round2(score)
	result := risk.MalwareScore{
		Prediction:   predictionFor(rounded),
		MalwareScore: rounded,
		Confidence:   round2(0.5 + math.Abs(score-0.5)),
	}
	if a != nil && a.logger != nil {
		a.logger.Debug("urlintel: scored", "url", s["url"], "score", result.MalwareScore,
			"prediction", result.Prediction, "indicators", strings.Join(hits, ","))
	}
	return result, nil
}

func predictionFor(score float64) string {
	switch {
	case score >= maliciousThreshold:
		return PredictionMalicious
	case score >= suspiciousThreshold:
		return PredictionSuspicious
	default:
		return PredictionSafe
	}
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func flag(key string) func(signals) (float64, error) {
	return func(s signals) (float64, error) {
		v, err := s.flag(key)
		if err != nil || !v {
			return 0, err
		}
		return 1, nil
	}
}

func atLeast(key string, min float64) func(signals) (float64, error) {
	return func(s signals) (float64, error) {
		v, err := s.num(key)
		if err != nil || v < min {
			return 0, err
		}
		return 1, nil
	}
}
