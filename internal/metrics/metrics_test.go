package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveReport(t *testing.T) {
	sent := testutil.ToFloat64(ReportsSent.WithLabelValues("sent"))
	failed := testutil.ToFloat64(ReportsSent.WithLabelValues("error"))

	ObserveReport(nil)
	ObserveReport(errors.New("boom"))

	assert.Equal(t, sent+1, testutil.ToFloat64(ReportsSent.WithLabelValues("sent")))
	assert.Equal(t, failed+1, testutil.ToFloat64(ReportsSent.WithLabelValues("error")))
}

func TestObserveStep(t *testing.T) {
	ObserveStep("metrics-test", time.Now(), nil)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(PipelineDuration), 1)
}
