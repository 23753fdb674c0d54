package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/safe-skin/internal/diagnosis"
	"github.com/Brownie44l1/safe-skin/internal/imageproc"
	"github.com/Brownie44l1/safe-skin/internal/model"
	"github.com/Brownie44l1/safe-skin/internal/navigation"
	"github.com/Brownie44l1/safe-skin/internal/session"
	"github.com/Brownie44l1/safe-skin/internal/testutil"
)

var melanoma = diagnosis.ProbabilityVector{0.05, 0.7, 0.05, 0.05, 0.05, 0.05, 0.05}

func newService(t *testing.T, clf *testutil.MockClassifier, loadErr error) *Service {
	t.Helper()
	loader := &testutil.CountingLoader{Classifier: clf, Err: loadErr}
	svc := New(model.NewGateway(loader.Load), session.NewMemoryRepository(), imageproc.NewNormalizer(imageproc.DefaultSize))
	_ = svc.Start(context.Background())
	return svc
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 12, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 12; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 200, G: 120, B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPredict_MelanomaScenario(t *testing.T) {
	clf := testutil.NewMockClassifier(melanoma)
	svc := newService(t, clf, nil)
	ctx := context.Background()

	st, err := svc.Navigate(ctx, "s1", navigation.Prediction)
	require.NoError(t, err)
	require.False(t, st.PredictEnabled)

	st, err = svc.Upload(ctx, "s1", pngBytes(t))
	require.NoError(t, err)
	require.True(t, st.HasUpload)
	require.True(t, st.PredictEnabled)

	pred, err := svc.Predict(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "Melanoma (Malignant)", pred.Result.Label.String())
	require.InDelta(t, 0.70, pred.Result.Confidence, 1e-6)
	require.Len(t, pred.Series, diagnosis.Count)
	require.NotNil(t, pred.Recommendation)
	require.Equal(t, "4–6 months", pred.Recommendation.RecoveryWindow)
	require.Equal(t, []int64{1, 224, 224, 3}, clf.LastShape)

	st, err = svc.State(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, st.LastResult)
	require.Equal(t, 1, st.LastResult.Label.Index)
}

func TestPredict_VascularScenario(t *testing.T) {
	clf := testutil.NewMockClassifier(diagnosis.ProbabilityVector{0.1, 0.1, 0.1, 0.1, 0.1, 0.4, 0.1})
	svc := newService(t, clf, nil)
	ctx := context.Background()

	pred, err := svc.ClassifyImage(ctx, pngBytes(t))
	require.NoError(t, err)
	require.Equal(t, "Vascular lesions (Benign)", pred.Result.Label.String())
	require.Equal(t, "2–4 weeks", pred.Recommendation.RecoveryWindow)
}

func TestModelMissing_PredictionDisabledHomeWorks(t *testing.T) {
	svc := newService(t, nil, model.ErrModelNotFound)
	ctx := context.Background()

	require.False(t, svc.ModelAvailable())

	home, err := svc.State(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, navigation.Home, home.View)
	require.Empty(t, home.Message)

	st, err := svc.Navigate(ctx, "s1", navigation.Prediction)
	require.NoError(t, err)
	require.False(t, st.PredictEnabled)
	require.Contains(t, st.Message, "not found")

	_, err = svc.Upload(ctx, "s1", pngBytes(t))
	require.NoError(t, err)
	_, err = svc.Predict(ctx, "s1")
	require.ErrorIs(t, err, ErrPredictionUnavailable)

	_, err = svc.ClassifyImage(ctx, pngBytes(t))
	require.ErrorIs(t, err, ErrPredictionUnavailable)

	st, err = svc.Navigate(ctx, "s1", navigation.Solution)
	require.NoError(t, err)
	require.Len(t, st.Labels, diagnosis.Count)

	rec, err := svc.Recommend(ctx, "s1", diagnosis.All()[3])
	require.NoError(t, err)
	require.Equal(t, "2–4 months", rec.Record.RecoveryWindow)
}

func TestModelInvalid_Message(t *testing.T) {
	svc := newService(t, nil, &model.InvalidModelError{Msg: "bad"})

	st, err := svc.Navigate(context.Background(), "s1", navigation.Prediction)
	require.NoError(t, err)
	require.Contains(t, st.Message, "could not be loaded")
}

func TestUpload_NotAnImageStaysOnUploadStep(t *testing.T) {
	svc := newService(t, testutil.NewMockClassifier(melanoma), nil)
	ctx := context.Background()

	_, err := svc.Navigate(ctx, "s1", navigation.Prediction)
	require.NoError(t, err)

	_, err = svc.Upload(ctx, "s1", []byte("this is plain text"))
	require.ErrorIs(t, err, imageproc.ErrUnsupportedFormat)

	st, err := svc.State(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, navigation.Prediction, st.View)
	require.False(t, st.HasUpload)

	_, err = svc.Predict(ctx, "s1")
	require.ErrorIs(t, err, ErrNoUpload)
}

func TestViewGating(t *testing.T) {
	svc := newService(t, testutil.NewMockClassifier(melanoma), nil)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "s1", pngBytes(t))
	require.ErrorIs(t, err, ErrWrongView)

	_, err = svc.Predict(ctx, "s1")
	require.ErrorIs(t, err, ErrWrongView)

	_, err = svc.Recommend(ctx, "s1", diagnosis.All()[0])
	require.ErrorIs(t, err, ErrWrongView)

	_, err = svc.Navigate(ctx, "s1", navigation.View("summary"))
	require.ErrorIs(t, err, navigation.ErrUnknownView)

	st, err := svc.State(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, navigation.Home, st.View)
}

func TestNavigate_DropsUpload(t *testing.T) {
	svc := newService(t, testutil.NewMockClassifier(melanoma), nil)
	ctx := context.Background()

	_, err := svc.Navigate(ctx, "s1", navigation.Prediction)
	require.NoError(t, err)
	_, err = svc.Upload(ctx, "s1", pngBytes(t))
	require.NoError(t, err)

	_, err = svc.Navigate(ctx, "s1", navigation.Home)
	require.NoError(t, err)
	st, err := svc.Navigate(ctx, "s1", navigation.Prediction)
	require.NoError(t, err)
	require.False(t, st.HasUpload)
}

func TestPredict_NavigationDuringInferenceDiscardsResult(t *testing.T) {
	clf := testutil.NewMockClassifier(melanoma)
	svc := newService(t, clf, nil)
	ctx := context.Background()

	clf.ClassifyFunc = func(ctx context.Context, _ model.Tensor) (diagnosis.ProbabilityVector, error) {
		_, err := svc.Navigate(ctx, "s1", navigation.Solution)
		require.NoError(t, err)
		return melanoma, nil
	}

	_, err := svc.Navigate(ctx, "s1", navigation.Prediction)
	require.NoError(t, err)
	_, err = svc.Upload(ctx, "s1", pngBytes(t))
	require.NoError(t, err)

	_, err = svc.Predict(ctx, "s1")
	require.ErrorIs(t, err, ErrSuperseded)

	st, err := svc.State(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, navigation.Solution, st.View)
	require.Nil(t, st.LastResult)
}

func TestPredict_ReuploadDuringInferenceDiscardsResult(t *testing.T) {
	clf := testutil.NewMockClassifier(melanoma)
	svc := newService(t, clf, nil)
	ctx := context.Background()

	first := true
	clf.ClassifyFunc = func(ctx context.Context, _ model.Tensor) (diagnosis.ProbabilityVector, error) {
		if first {
			first = false
			_, err := svc.Upload(ctx, "s1", pngBytes(t))
			require.NoError(t, err)
		}
		return melanoma, nil
	}

	_, err := svc.Navigate(ctx, "s1", navigation.Prediction)
	require.NoError(t, err)
	_, err = svc.Upload(ctx, "s1", pngBytes(t))
	require.NoError(t, err)

	_, err = svc.Predict(ctx, "s1")
	require.ErrorIs(t, err, ErrSuperseded)

	st, err := svc.State(ctx, "s1")
	require.NoError(t, err)
	require.True(t, st.HasUpload)
	require.True(t, st.PredictEnabled)
	require.Nil(t, st.LastResult)

	// the second image classifies normally
	_, err = svc.Predict(ctx, "s1")
	require.NoError(t, err)
	st, err = svc.State(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, st.LastResult)
}

func TestPredict_LoadsClassifierWithoutStart(t *testing.T) {
	loader := &testutil.CountingLoader{Classifier: testutil.NewMockClassifier(melanoma)}
	svc := New(model.NewGateway(loader.Load), session.NewMemoryRepository(), imageproc.NewNormalizer(imageproc.DefaultSize))
	ctx := context.Background()

	require.False(t, svc.ModelAvailable())
	require.Equal(t, 0, loader.Loads())

	pred, err := svc.ClassifyImage(ctx, pngBytes(t))
	require.NoError(t, err)
	require.Equal(t, 1, pred.Result.Label.Index)
	require.True(t, svc.ModelAvailable())

	_, err = svc.Navigate(ctx, "s1", navigation.Prediction)
	require.NoError(t, err)
	_, err = svc.Upload(ctx, "s1", pngBytes(t))
	require.NoError(t, err)
	_, err = svc.Predict(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, 1, loader.Loads())
}

func TestPredict_LoadFailureWithoutStart(t *testing.T) {
	loader := &testutil.CountingLoader{Err: model.ErrModelNotFound}
	svc := New(model.NewGateway(loader.Load), session.NewMemoryRepository(), imageproc.NewNormalizer(imageproc.DefaultSize))

	_, err := svc.ClassifyImage(context.Background(), pngBytes(t))
	require.ErrorIs(t, err, ErrPredictionUnavailable)
	require.False(t, svc.ModelAvailable())
	require.Equal(t, 1, loader.Loads())
}

func TestPredict_InferenceError(t *testing.T) {
	clf := testutil.NewMockClassifier(melanoma)
	clf.ClassifyFunc = func(context.Context, model.Tensor) (diagnosis.ProbabilityVector, error) {
		return diagnosis.ProbabilityVector{}, model.ErrInference
	}
	svc := newService(t, clf, nil)
	ctx := context.Background()

	_, err := svc.Navigate(ctx, "s1", navigation.Prediction)
	require.NoError(t, err)
	_, err = svc.Upload(ctx, "s1", pngBytes(t))
	require.NoError(t, err)

	_, err = svc.Predict(ctx, "s1")
	require.ErrorIs(t, err, model.ErrInference)

	// still on the prediction view with the upload kept
	st, err := svc.State(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, navigation.Prediction, st.View)
	require.True(t, st.HasUpload)
}

func TestClassifyTensor(t *testing.T) {
	svc := newService(t, testutil.NewMockClassifier(melanoma), nil)
	ctx := context.Background()

	pred, err := svc.ClassifyTensor(ctx, make([]float32, 224*224*3))
	require.NoError(t, err)
	require.Equal(t, 1, pred.Result.Label.Index)

	_, err = svc.ClassifyTensor(ctx, make([]float32, 10))
	require.ErrorIs(t, err, model.ErrInference)
}

func TestRecommend_Miss(t *testing.T) {
	out := Recommend(diagnosis.Label{Name: "Psoriasis", Malignancy: "Unknown"})
	require.Nil(t, out.Record)
	require.Equal(t, "no recommendation available", out.Message)
}

func TestReset(t *testing.T) {
	svc := newService(t, testutil.NewMockClassifier(melanoma), nil)
	ctx := context.Background()

	_, err := svc.Navigate(ctx, "s1", navigation.Prediction)
	require.NoError(t, err)
	_, err = svc.Upload(ctx, "s1", pngBytes(t))
	require.NoError(t, err)

	st, err := svc.Reset(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, navigation.Prediction, st.View)
	require.False(t, st.HasUpload)
}
