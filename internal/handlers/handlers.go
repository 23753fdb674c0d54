package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Brownie44l1/safe-skin/internal/diagnosis"
	"github.com/Brownie44l1/safe-skin/internal/imageproc"
	"github.com/Brownie44l1/safe-skin/internal/logging"
	"github.com/Brownie44l1/safe-skin/internal/model"
	"github.com/Brownie44l1/safe-skin/internal/navigation"
	"github.com/Brownie44l1/safe-skin/internal/recommend"
	"github.com/Brownie44l1/safe-skin/internal/service"
)

const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "safeskin_session"
)

type Handler struct {
	svc            *service.Service
	maxUploadBytes int64
	log            *slog.Logger
}

func NewHandler(svc *service.Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Handler{
		svc:            svc,
		maxUploadBytes: maxUploadBytes,
		log:            logging.New("http"),
	}
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/health", enableCORS(h.Health))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/labels", enableCORS(h.Labels))
	mux.HandleFunc("/api/session", enableCORS(h.State))
	mux.HandleFunc("/api/navigate", enableCORS(h.Navigate))
	mux.HandleFunc("/api/upload", enableCORS(h.Upload))
	mux.HandleFunc("/api/predict", enableCORS(h.Predict))
	mux.HandleFunc("/api/recommendation", enableCORS(h.Recommendation))
	mux.HandleFunc("/api/reset", enableCORS(h.Reset))
	mux.HandleFunc("/predict", enableCORS(h.PredictTensor))
	mux.HandleFunc("/predict/image", enableCORS(h.PredictFromImage))
}

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+SessionHeader)
		w.Header().Set("Access-Control-Expose-Headers", SessionHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"model_available": h.svc.ModelAvailable(),
	})
}

func (h *Handler) Labels(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"labels":              diagnosis.All(),
		"recommendation_keys": recommend.Keys(),
	})
}

func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	st, err := h.svc.State(r.Context(), sessionID(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	bindSession(w, st.SessionID)
	writeJSON(w, http.StatusOK, st)
}

type navigateRequest struct {
	View string `json:"view"`
}

func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	var req navigateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	view, err := navigation.ParseView(req.View)
	if err != nil {
		h.fail(w, err)
		return
	}

	st, err := h.svc.Navigate(r.Context(), sessionID(r), view)
	if err != nil {
		h.fail(w, err)
		return
	}
	bindSession(w, st.SessionID)
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	data, ok := h.readImage(w, r)
	if !ok {
		return
	}

	st, err := h.svc.Upload(r.Context(), sessionID(r), data)
	if err != nil {
		h.fail(w, err)
		return
	}
	bindSession(w, st.SessionID)
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	pred, err := h.svc.Predict(r.Context(), sessionID(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pred)
}

func (h *Handler) Recommendation(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	label, err := diagnosis.Parse(r.URL.Query().Get("label"))
	if err != nil {
		h.fail(w, err)
		return
	}
	rec, err := h.svc.Recommend(r.Context(), sessionID(r), label)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	st, err := h.svc.Reset(r.Context(), sessionID(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	bindSession(w, st.SessionID)
	writeJSON(w, http.StatusOK, st)
}

// PredictTensor classifies a raw, already normalized input array.
func (h *Handler) PredictTensor(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var req model.PredictionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	result, err := h.svc.ClassifyTensor(r.Context(), req.Image)
	if errors.Is(err, model.ErrInference) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PredictFromImage classifies a multipart upload without touching session state.
func (h *Handler) PredictFromImage(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	data, ok := h.readImage(w, r)
	if !ok {
		return
	}

	result, err := h.svc.ClassifyImage(r.Context(), data)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) readImage(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse form")
		return nil, false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided. Use 'image' as the form field name")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read image")
		return nil, false
	}
	h.log.Debug("received file", "name", header.Filename, "bytes", header.Size)
	return data, true
}

// fail maps service errors to the status and message the view shows.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var invalid *model.InvalidModelError
	switch {
	case errors.Is(err, imageproc.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, "unsupported image format. Supported: JPEG, PNG")
	case errors.Is(err, navigation.ErrUnknownView), errors.Is(err, diagnosis.ErrUnknownLabel):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrWrongView), errors.Is(err, service.ErrNoUpload),
		errors.Is(err, service.ErrSuperseded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrPredictionUnavailable), errors.Is(err, model.ErrModelNotFound),
		errors.As(err, &invalid):
		writeError(w, http.StatusServiceUnavailable, "prediction unavailable")
	case errors.Is(err, model.ErrInference):
		writeError(w, http.StatusInternalServerError, "analysis failed")
	default:
		h.log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

func sessionID(r *http.Request) string {
	if id := r.Header.Get(SessionHeader); id != "" {
		return id
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func bindSession(w http.ResponseWriter, id string) {
	w.Header().Set(SessionHeader, id)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
