package risk

import "strings"

// DefaultCategory applies when no rule matches.
const DefaultCategory = "Personal / Informational"

// CategoryRule maps a keyword set to a topical label.
type CategoryRule struct {
	Name     string
	Keywords []string
}

// CategoryRules are evaluated in order and every matching rule overrides the
// previous result, so later entries take priority.
var CategoryRules = []CategoryRule{
	{
		Name:     "Promotional / Ads",
		Keywords: []string{"free", "win", "offer", "discount", "sale", "deal"},
	},
	{
		Name:     "Financial / Loan Scam",
		Keywords: []string{"loan", "credit", "invest", "upi", "bitcoin"},
	},
	{
		Name:     "Delivery Scam / Logistics",
		Keywords: []string{"package", "delivery", "customs", "shipment"},
	},
	{
		Name:     "Banking / Verification Scam",
		Keywords: []string{"account", "verify", "password", "otp", "kyc"},
	},
}

// Categorize returns the topical category of text. Keywords match as plain
// substrings of the lower-cased text, not as whole words.
func Categorize(text string) string {
	lower := strings.ToLower(text)
	category := DefaultCategory
	for _, rule := range CategoryRules {
		if rule.matches(lower) {
			category = rule.Name
		}
	}
	return category
}

func (r CategoryRule) matches(lower string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
