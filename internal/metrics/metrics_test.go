package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/msgguard/msgguard/internal/risk"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("text pipeline: %w", risk.ErrInvalidInput), "invalid_input"},
		{fmt.Errorf("text pipeline: %w", risk.ErrClassifierUnavailable), "classifier_unavailable"},
		{fmt.Errorf("url pipeline: %w", risk.ErrFetch), "fetch"},
		{fmt.Errorf("url pipeline: %w", risk.ErrScoring), "scoring"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), tt.err.Error())
	}
}

func TestObserveText(t *testing.T) {
	c := Verdicts.WithLabelValues(PipelineText, "SPAM", "Very High")
	before := testutil.ToFloat64(c)

	ObserveText(&risk.Verdict{Prediction: "SPAM", Risk: "Very High"}, 10*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestObserveURLAndError(t *testing.T) {
	v := Verdicts.WithLabelValues(PipelineURL, "MALICIOUS", "")
	e := Errors.WithLabelValues(PipelineURL, "fetch")
	beforeV, beforeE := testutil.ToFloat64(v), testutil.ToFloat64(e)

	ObserveURL(&risk.MalwareVerdict{Prediction: "MALICIOUS"}, time.Second)
	ObserveError(PipelineURL, fmt.Errorf("url pipeline: %w", risk.ErrFetch))

	assert.Equal(t, beforeV+1, testutil.ToFloat64(v))
	assert.Equal(t, beforeE+1, testutil.ToFloat64(e))
}
