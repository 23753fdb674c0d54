package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/safe-skin/internal/diagnosis"
	"github.com/Brownie44l1/safe-skin/internal/recommend"
	"github.com/Brownie44l1/safe-skin/internal/service"
)

func TestPrintLabels(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printLabels(&buf))

	out := buf.String()
	require.Contains(t, out, "Basal cell carcinoma")
	require.Contains(t, out, "Precancerous")
	require.Contains(t, out, "4–6 months")
}

func TestPrintPrediction(t *testing.T) {
	v := diagnosis.ProbabilityVector{0.1, 0.1, 0.1, 0.1, 0.1, 0.4, 0.1}
	res := diagnosis.Resolve(v)
	rec, ok := recommend.Resolve(res.Label)
	require.True(t, ok)

	var buf bytes.Buffer
	require.NoError(t, printPrediction(&buf, &service.Prediction{
		Result:         res,
		Series:         diagnosis.Series(v),
		Recommendation: &rec,
	}))

	out := buf.String()
	require.Contains(t, out, "Prediction: Vascular lesions (Benign)")
	require.Contains(t, out, "Recovery window: 2–4 weeks")
}

func TestClassify_RequiresImageArg(t *testing.T) {
	rootCmd.SetArgs([]string{"classify"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	require.Error(t, rootCmd.Execute())
}
