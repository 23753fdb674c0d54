package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Brownie44l1/safe-skin/internal/diagnosis"
	"github.com/Brownie44l1/safe-skin/internal/imageproc"
	"github.com/Brownie44l1/safe-skin/internal/logging"
	"github.com/Brownie44l1/safe-skin/internal/metrics"
	"github.com/Brownie44l1/safe-skin/internal/model"
	"github.com/Brownie44l1/safe-skin/internal/navigation"
	"github.com/Brownie44l1/safe-skin/internal/recommend"
	"github.com/Brownie44l1/safe-skin/internal/session"
)

var (
	ErrWrongView             = errors.New("operation not available on this view")
	ErrNoUpload              = errors.New("no image uploaded")
	ErrPredictionUnavailable = errors.New("prediction unavailable: classifier not loaded")
	ErrSuperseded            = errors.New("result discarded: session changed during analysis")
)

// Prediction is what the Prediction view shows after a successful run.
type Prediction struct {
	Result         diagnosis.Result  `json:"result"`
	Series         []diagnosis.Point `json:"series"`
	Recommendation *recommend.Record `json:"recommendation,omitempty"`
}

// Recommendation is what the Solution view shows for a selected label.
type Recommendation struct {
	Label   diagnosis.Label   `json:"label"`
	Record  *recommend.Record `json:"record,omitempty"`
	Message string            `json:"message,omitempty"`
}

// State describes a session for rendering.
type State struct {
	SessionID      string            `json:"session_id"`
	View           navigation.View   `json:"view"`
	ModelAvailable bool              `json:"model_available"`
	PredictEnabled bool              `json:"predict_enabled"`
	HasUpload      bool              `json:"has_upload"`
	Message        string            `json:"message,omitempty"`
	LastResult     *diagnosis.Result `json:"last_result,omitempty"`
	Labels         []diagnosis.Label `json:"labels,omitempty"`
}

// Service is the session handler behind every presentation adapter.
type Service struct {
	gateway    *model.Gateway
	sessions   session.Repository
	normalizer *imageproc.Normalizer
	log        *slog.Logger
}

func New(gateway *model.Gateway, sessions session.Repository, normalizer *imageproc.Normalizer) *Service {
	return &Service{
		gateway:    gateway,
		sessions:   sessions,
		normalizer: normalizer,
		log:        logging.New("service"),
	}
}

// Start loads the classifier. A load failure leaves the service running with
// prediction disabled; the error is returned for the caller to report.
func (s *Service) Start(ctx context.Context) error {
	_, err := s.gateway.Initialize(ctx)
	metrics.SetModelAvailable(err == nil)
	if err != nil {
		s.log.Warn("prediction disabled", "error", err)
		return err
	}
	s.log.Info("classifier ready")
	return nil
}

// ModelAvailable reports whether the classifier has loaded. It never starts a
// load; Start or the first Predict, ClassifyImage or ClassifyTensor does.
func (s *Service) ModelAvailable() bool {
	return s.gateway.Available()
}

// ready loads the classifier on first use.
func (s *Service) ready(ctx context.Context) (model.Classifier, error) {
	clf, err := s.gateway.Initialize(ctx)
	metrics.SetModelAvailable(err == nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPredictionUnavailable, err)
	}
	return clf, nil
}

// Session returns (creating if needed) the session for id.
func (s *Service) Session(ctx context.Context, id string) (*session.Session, error) {
	return s.sessions.Get(ctx, id)
}

// State reports what the session's current view can show and do.
func (s *Service) State(ctx context.Context, id string) (*State, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	st := &State{
		SessionID:      sess.ID,
		View:           sess.View(),
		ModelAvailable: s.ModelAvailable(),
	}
	upload, _ := sess.Upload()
	st.HasUpload = upload != nil

	switch st.View {
	case navigation.Prediction:
		st.PredictEnabled = st.ModelAvailable && st.HasUpload
		if !st.ModelAvailable {
			st.Message = unavailableMessage(s.gateway.Err())
		}
		if res, ok := sess.Result(); ok {
			st.LastResult = &res
		}
	case navigation.Solution:
		st.Labels = diagnosis.All()
	}
	return st, nil
}

// Navigate moves the session to view.
func (s *Service) Navigate(ctx context.Context, id string, view navigation.View) (*State, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	changed, err := sess.Navigate(view)
	if err != nil {
		return nil, err
	}
	if changed {
		metrics.RecordNavigation(string(view))
		s.log.Debug("navigate", "session", sess.ID, "view", view)
	}
	return s.State(ctx, sess.ID)
}

// Reset drops the session's upload and result.
func (s *Service) Reset(ctx context.Context, id string) (*State, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Reset()
	return s.State(ctx, sess.ID)
}

// Upload decodes data and keeps it on the session for Predict.
func (s *Service) Upload(ctx context.Context, id string, data []byte) (*State, error) {
	sess, err := s.requireView(ctx, id, navigation.Prediction)
	if err != nil {
		return nil, err
	}

	img, format, err := imageproc.Decode(data)
	if err != nil {
		metrics.RecordError("unsupported_format")
		return nil, err
	}
	sess.SetUpload(&session.Upload{Image: img, Format: format, Size: len(data)})
	s.log.Debug("upload accepted", "session", sess.ID, "format", format,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())

	return s.State(ctx, sess.ID)
}

// Predict classifies the session's upload.
func (s *Service) Predict(ctx context.Context, id string) (*Prediction, error) {
	sess, err := s.requireView(ctx, id, navigation.Prediction)
	if err != nil {
		return nil, err
	}
	if _, err := s.ready(ctx); err != nil {
		return nil, err
	}

	upload, gen := sess.Upload()
	if upload == nil {
		return nil, ErrNoUpload
	}

	tensor, err := s.normalizer.Normalize(upload.Image)
	if err != nil {
		metrics.RecordError("unsupported_format")
		return nil, err
	}

	pred, err := s.classify(ctx, tensor)
	if err != nil {
		return nil, err
	}

	if !sess.StoreResult(gen, pred.Result) {
		s.log.Info("prediction discarded, session changed", "session", sess.ID)
		return nil, ErrSuperseded
	}
	return pred, nil
}

// Recommend resolves the record for a label selected on the Solution view.
func (s *Service) Recommend(ctx context.Context, id string, label diagnosis.Label) (*Recommendation, error) {
	if _, err := s.requireView(ctx, id, navigation.Solution); err != nil {
		return nil, err
	}
	return Recommend(label), nil
}

// Recommend is the session-free lookup used by Recommend and the CLI.
func Recommend(label diagnosis.Label) *Recommendation {
	out := &Recommendation{Label: label}
	rec, ok := recommend.Resolve(label)
	if !ok {
		out.Message = recommend.NoRecommendation
		metrics.RecordRecommendation("")
		return out
	}
	out.Record = &rec
	metrics.RecordRecommendation(rec.Key)
	return out
}

// ClassifyImage decodes, normalizes and classifies data without a session.
func (s *Service) ClassifyImage(ctx context.Context, data []byte) (*Prediction, error) {
	if _, err := s.ready(ctx); err != nil {
		return nil, err
	}
	tensor, err := s.normalizer.DecodeAndNormalize(data)
	if err != nil {
		metrics.RecordError("unsupported_format")
		return nil, err
	}
	return s.classify(ctx, tensor)
}

// ClassifyTensor classifies an already normalized NHWC input.
func (s *Service) ClassifyTensor(ctx context.Context, data []float32) (*Prediction, error) {
	clf, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	tensor := model.Tensor{Shape: clf.Metadata().InputShape, Data: data}
	return s.classify(ctx, tensor)
}

func (s *Service) classify(ctx context.Context, tensor model.Tensor) (*Prediction, error) {
	start := time.Now()
	v, err := s.gateway.Classify(ctx, tensor)
	if err != nil {
		metrics.RecordError("inference")
		s.log.Error("classification failed", "error", err)
		return nil, err
	}

	res := diagnosis.Resolve(v)
	metrics.RecordPrediction(res.Label.String(), time.Since(start))
	s.log.Info("prediction", "label", res.Label.String(), "confidence", res.Confidence,
		"took", time.Since(start))

	pred := &Prediction{
		Result: res,
		Series: diagnosis.Series(v),
	}
	if rec, ok := recommend.Resolve(res.Label); ok {
		pred.Recommendation = &rec
	}
	return pred, nil
}

func (s *Service) requireView(ctx context.Context, id string, want navigation.View) (*session.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v := sess.View(); v != want {
		return nil, fmt.Errorf("%w: on %s, need %s", ErrWrongView, v, want)
	}
	return sess, nil
}

func unavailableMessage(err error) string {
	var invalid *model.InvalidModelError
	switch {
	case errors.Is(err, model.ErrModelNotFound):
		return "Prediction is unavailable: the classifier model was not found."
	case errors.As(err, &invalid):
		return "Prediction is unavailable: the classifier model could not be loaded."
	default:
		return "Prediction is unavailable."
	}
}
