package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strings"

	"github.com/msgguard/msgguard/internal/risk"
)

// tokenRE approximates the scikit-learn default token pattern (\b\w\w+\b)
// with Unicode word characters.
var tokenRE = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// artifact is the on-disk format of an exported TF-IDF + logistic regression model.
type artifact struct {
	Version     int            `json:"version"`
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf,omitempty"`
	Coef        []float64      `json:"coef"`
	Intercept   float64        `json:"intercept"`
	NGramRange  [2]int         `json:"ngram_range"`
	SublinearTF bool           `json:"sublinear_tf"`
	Threshold   *float64       `json:"threshold,omitempty"`
}

// Model is an immutable, pretrained text classifier. It is loaded once at
// startup and shared by all requests.
type Model struct {
	vocab       map[string]int
	idf         []float64
	coef        []float64
	intercept   float64
	minN, maxN  int
	sublinearTF bool
	threshold   float64
}

// LoadModel reads a model artifact from path. Every failure wraps
// risk.ErrClassifierUnavailable.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open model: %v", risk.ErrClassifierUnavailable, err)
	}
	defer f.Close()
	return ParseModel(f)
}

// ParseModel decodes and validates a model artifact.
func ParseModel(r io.Reader) (*Model, error) {
	var a artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: decode model: %v", risk.ErrClassifierUnavailable, err)
	}

	n := len(a.Coef)
	if n == 0 {
		return nil, fmt.Errorf("%w: model has no coefficients", risk.ErrClassifierUnavailable)
	}
	if len(a.Vocabulary) == 0 {
		return nil, fmt.Errorf("%w: model has empty vocabulary", risk.ErrClassifierUnavailable)
	}
	for term, idx := range a.Vocabulary {
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("%w: term %q index %d out of range", risk.ErrClassifierUnavailable, term, idx)
		}
	}

	idf := a.IDF
	switch {
	case len(idf) == 0:
		idf = make([]float64, n)
		for i := range idf {
			idf[i] = 1
		}
	case len(idf) != n:
		return nil, fmt.Errorf("%w: idf length %d does not match %d coefficients",
			risk.ErrClassifierUnavailable, len(idf), n)
	}

	minN, maxN := a.NGramRange[0], a.NGramRange[1]
	if minN == 0 && maxN == 0 {
		minN, maxN = 1, 1
	}
	if minN < 1 || maxN < minN {
		return nil, fmt.Errorf("%w: invalid ngram range %v", risk.ErrClassifierUnavailable, a.NGramRange)
	}

	threshold := 0.5
	if a.Threshold != nil {
		threshold = *a.Threshold
		if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
			return nil, fmt.Errorf("%w: threshold %v outside [0,1]", risk.ErrClassifierUnavailable, threshold)
		}
	}

	return &Model{
		vocab:       a.Vocabulary,
		idf:         idf,
		coef:        a.Coef,
		intercept:   a.Intercept,
		minN:        minN,
		maxN:        maxN,
		sublinearTF: a.SublinearTF,
		threshold:   threshold,
	}, nil
}

// Classify implements risk.Classifier.
func (m *Model) Classify(_ context.Context, text string) (risk.Classification, error) {
	p := m.Probability(text)
	label := risk.LabelSafe
	if p > m.threshold {
		label = risk.LabelSpam
	}
	return risk.Classification{Label: label, SpamProbability: p}, nil
}

// Probability returns the spam probability for text.
func (m *Model) Probability(text string) float64 {
	weights := m.vectorize(text)

	z := m.intercept
	for idx, w := range weights {
		z += w * m.coef[idx]
	}
	return 1 / (1 + math.Exp(-z))
}

// vectorize returns the L2-normalized TF-IDF weights keyed by feature index.
func (m *Model) vectorize(text string) map[int]float64 {
	counts := make(map[int]float64)
	for _, term := range m.terms(text) {
		if idx, ok := m.vocab[term]; ok {
			counts[idx]++
		}
	}

	var norm float64
	for idx, tf := range counts {
		if m.sublinearTF {
			tf = 1 + math.Log(tf)
		}
		w := tf * m.idf[idx]
		counts[idx] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range counts {
			counts[idx] /= norm
		}
	}
	return counts
}

func (m *Model) terms(text string) []string {
	tokens := tokenRE.FindAllString(strings.ToLower(text), -1)
	if m.minN == 1 && m.maxN == 1 {
		return tokens
	}

	var out []string
	for n := m.minN; n <= m.maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// Features returns the number of features the model was trained on.
func (m *Model) Features() int { return len(m.coef) }
