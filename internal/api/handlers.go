package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Ngum12/africa-risk-intelligence-platform/internal/config"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/inference"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/model"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/models"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/refdata"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/training"
)

// Handler bundles the HTTP endpoints of the risk engine.
type Handler struct {
	svc      *inference.Service
	pipeline *training.Pipeline
	store    *model.Store
	ref      *refdata.Table
	cfg      config.Config
	logger   *slog.Logger
	started  time.Time
}

// NewHandler wires the endpoint set over the prediction service and the
// retraining pipeline.
func NewHandler(svc *inference.Service, pipeline *training.Pipeline, store *model.Store, ref *refdata.Table, cfg config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		svc:      svc,
		pipeline: pipeline,
		store:    store,
		ref:      ref,
		cfg:      cfg,
		logger:   logger,
		started:  time.Now(),
	}
}

// RegisterRoutes registers all endpoints on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Root)
	r.Get("/healthz", h.Health)
	r.Post("/predict", h.Predict)
	r.Get("/categories", h.Categories)
	r.Post("/upload-csv", h.UploadCSV)
	r.Get("/model/info", h.ModelInfo)
	r.Get("/model/verify-retraining", h.VerifyRetraining)
	r.Get("/model/retraining-history", h.RetrainingHistory)
}

// Root describes the service and its endpoints.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "Africa Risk Intelligence Platform",
		"status":  "operational",
		"endpoints": []string{
			"/healthz", "/predict", "/categories", "/upload-csv",
			"/model/info", "/model/verify-retraining", "/model/retraining-history",
		},
	})
}

// Health reports liveness and whether a trained artifact is being served.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	info := h.store.Info()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"model_loaded":   info.Exists,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"timestamp":      time.Now().UTC(),
	})
}

// Predict assesses one conflict event. This endpoint never fails: malformed
// requests get their fields defaulted, and the service degrades internally
// rather than erroring.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var ev models.ConflictEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("malformed predict request, using defaults", slog.Any("error", err))
		ev = models.ConflictEvent{}
	}
	writeJSON(w, http.StatusOK, h.svc.Predict(r.Context(), ev))
}

// Categories lists the recognised input vocabularies for form builders.
func (h *Handler) Categories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"countries":   h.ref.Countries,
		"event_types": h.ref.EventTypes,
		"actors":      h.ref.Actors,
		"regions":     h.ref.RegionsByCountry,
		"defaults": map[string]string{
			"country":    h.ref.Defaults.Country,
			"admin1":     h.ref.Defaults.Admin1,
			"event_type": h.ref.Defaults.EventType,
			"actor1":     h.ref.Defaults.Actor,
		},
	})
}

// UploadCSV accepts a training dataset and runs the retraining pipeline on it
// synchronously. Dataset problems come back as structured guidance rather
// than bare error strings.
func (h *Handler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Server.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.RetrainResult{
			Success: false,
			Error:   "upload a CSV file in the 'file' form field",
		})
		return
	}
	defer file.Close()

	path, err := h.saveUpload(file)
	if err != nil {
		h.logger.Error("failed to persist upload", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, models.RetrainResult{
			Success: false,
			Error:   "could not persist the uploaded dataset",
		})
		return
	}
	h.logger.Info("dataset uploaded",
		slog.String("filename", header.Filename),
		slog.Int64("bytes", header.Size),
		slog.String("saved_as", path))

	result := h.pipeline.Retrain(r.Context(), path)
	writeJSON(w, retrainStatus(result), result)
}

// ModelInfo reports the active artifact and serving latency.
func (h *Handler) ModelInfo(w http.ResponseWriter, _ *http.Request) {
	active := h.store.LoadActive()
	payload := map[string]any{
		"artifact":       h.store.Info(),
		"fallback":       active.Fallback,
		"latency_p95_ms": float64(h.svc.Percentile(95).Microseconds()) / 1000,
	}
	if active.Meta != nil {
		payload["metadata"] = inference.Nativize(map[string]any{
			"run_id":            active.Meta.RunID,
			"created":           active.Meta.Created.Format(time.RFC3339),
			"metrics":           active.Meta.Metrics,
			"num_samples":       active.Meta.NumSamples,
			"features":          active.Meta.Features,
			"risk_distribution": active.Meta.RiskDistribution,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

// VerifyRetraining cross-checks the last retraining attempt against the
// artifact actually being served.
func (h *Handler) VerifyRetraining(w http.ResponseWriter, _ *http.Request) {
	info := h.store.Info()
	active := h.store.LoadActive()
	payload := map[string]any{
		"model_exists":   info.Exists,
		"serving_backup": active.Fallback,
	}
	if active.Meta != nil {
		payload["active_run_id"] = active.Meta.RunID
		payload["trained_at"] = active.Meta.Created
	}
	if attempts := h.pipeline.Attempts(); len(attempts) > 0 {
		last := attempts[0]
		payload["last_attempt"] = last
		payload["verified"] = last.Success && active.Meta != nil && active.Meta.RunID == last.RunID
	} else {
		payload["verified"] = false
	}
	writeJSON(w, http.StatusOK, payload)
}

// RetrainingHistory returns the recent attempt log, newest first.
func (h *Handler) RetrainingHistory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"attempts": h.pipeline.Attempts(),
	})
}

// saveUpload persists the uploaded dataset under a fresh name so retraining
// inputs remain auditable after the request finishes.
func (h *Handler) saveUpload(src io.Reader) (string, error) {
	dir := h.cfg.Store.UploadsDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, uuid.NewString()+".csv")
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// retrainStatus maps pipeline outcomes onto HTTP statuses: dataset problems
// are client errors, an in-flight run is a conflict, the rest are internal.
func retrainStatus(result models.RetrainResult) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.Details.(type) {
	case *models.SchemaError, *models.TargetError, *models.InsufficientRowsError:
		return http.StatusBadRequest
	}
	if result.Error == training.ErrRunInProgress {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
