package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordPrediction(t *testing.T) {
	before := testutil.ToFloat64(PredictionsTotal.WithLabelValues("Melanoma (Malignant)"))
	RecordPrediction("Melanoma (Malignant)", 20*time.Millisecond)
	after := testutil.ToFloat64(PredictionsTotal.WithLabelValues("Melanoma (Malignant)"))
	require.Equal(t, before+1, after)
}

func TestRecordRecommendation_Miss(t *testing.T) {
	before := testutil.ToFloat64(RecommendationsTotal.WithLabelValues("none"))
	RecordRecommendation("")
	require.Equal(t, before+1, testutil.ToFloat64(RecommendationsTotal.WithLabelValues("none")))
}

func TestSetModelAvailable(t *testing.T) {
	SetModelAvailable(true)
	require.Equal(t, 1.0, testutil.ToFloat64(ModelAvailable))
	SetModelAvailable(false)
	require.Equal(t, 0.0, testutil.ToFloat64(ModelAvailable))
}
