package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestJobStarted(t *testing.T) {
	done := JobStarted("metrics-test-ok")
	assert.Equal(t, 1.0, testutil.ToFloat64(WorkerJobsActive.WithLabelValues("metrics-test-ok")))

	done("")
	assert.Equal(t, 0.0, testutil.ToFloat64(WorkerJobsActive.WithLabelValues("metrics-test-ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(WorkerJobsCompleted.WithLabelValues("metrics-test-ok")))

	JobStarted("metrics-test-fail")("INPUT_PARSE_FAILED")
	assert.Equal(t, 1.0, testutil.ToFloat64(WorkerJobsFailed.WithLabelValues("metrics-test-fail", "INPUT_PARSE_FAILED")))
}

func TestRecordChartRecommendation(t *testing.T) {
	before := testutil.ToFloat64(ChartRecommendations.WithLabelValues("pie", "none"))
	RecordChartRecommendation("pie", "")
	assert.Equal(t, before+1, testutil.ToFloat64(ChartRecommendations.WithLabelValues("pie", "none")))
}

func TestRecordChartValidation(t *testing.T) {
	before := testutil.ToFloat64(ChartValidations.WithLabelValues("false"))
	RecordChartValidation(false)
	assert.Equal(t, before+1, testutil.ToFloat64(ChartValidations.WithLabelValues("false")))
}
