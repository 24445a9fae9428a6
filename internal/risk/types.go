package risk

import "context"

// Label is the binary decision reported by a text classifier.
type Label string

const (
	LabelSafe Label = "SAFE"
	LabelSpam Label = "SPAM"
)

// Classification is the classifier output for a single message.
type Classification struct {
	Label           Label
	SpamProbability float64
}

// Classifier scores free text. Implementations must be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// RawSignals is the opaque signal bag gathered for a URL.
type RawSignals map[string]any

// MalwareScore is the scoring output of a URLIntelligence collaborator.
type MalwareScore struct {
	Prediction   string  `json:"prediction"`
	MalwareScore float64 `json:"malware_score"`
	Confidence   float64 `json:"confidence"`
}

// URLIntelligence gathers signals for a URL and scores them.
// Fetch failures wrap ErrFetch, scoring failures wrap ErrScoring.
type URLIntelligence interface {
	Fetch(ctx context.Context, rawURL string) (RawSignals, error)
	Score(ctx context.Context, raw RawSignals) (MalwareScore, error)
}

// Verdict is the explainable risk assessment for a text message.
type Verdict struct {
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
	Risk       string  `json:"risk"`
	Icon       string  `json:"emoji"`
	Category   string  `json:"category"`
}

// MalwareVerdict is the assessment for a URL. Scores are reported as-is.
type MalwareVerdict struct {
	URL        string     `json:"url"`
	Prediction string     `json:"prediction"`
	Score      float64    `json:"score"`
	Confidence float64    `json:"confidence"`
	RawData    RawSignals `json:"raw_data"`
}
