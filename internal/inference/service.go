// Package inference serves risk predictions. The service never fails a
// request: unrecognised inputs are repaired, missing artifacts fall back to
// the stand-in classifier, and any processing error degrades to a
// deterministic heuristic answer carrying a warning.
package inference

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/Ngum12/africa-risk-intelligence-platform/internal/advisory"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/encoder"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/metrics"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/model"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/models"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/refdata"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/utils"
)

const (
	// defaultConfidence is reported when the model cannot produce a
	// usable probability vector.
	defaultConfidence = 70.0

	// degradedLowConfidence and degradedHighConfidence are the fixed
	// confidences of the heuristic answer served when prediction
	// processing fails outright.
	degradedLowConfidence  = 65.0
	degradedHighConfidence = 75.0

	fallbackModelWarning = "No trained model artifact is available; prediction served by the built-in fallback model."
	degradedWarning      = "Model encountered an error; this is a heuristic fallback prediction."

	latencyWindow      = 1000
	latencyLogInterval = 100
)

// ActiveLoader resolves the currently served model/encoder pair.
// *model.Store is the production implementation.
type ActiveLoader interface {
	LoadActive() *model.Active
}

// Service answers risk assessment requests against the active model.
type Service struct {
	store     ActiveLoader
	ref       *refdata.Table
	advisor   *advisory.Generator
	logger    *slog.Logger
	latencies *utils.LatencyTracker
}

// NewService wires a prediction service over the given model store,
// reference data, and advisory generator.
func NewService(store ActiveLoader, ref *refdata.Table, advisor *advisory.Generator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		ref:       ref,
		advisor:   advisor,
		logger:    logger,
		latencies: utils.NewLatencyTracker(latencyWindow),
	}
}

// Predict assesses one conflict event and always returns a usable answer.
func (s *Service) Predict(ctx context.Context, ev models.ConflictEvent) (result models.Prediction) {
	start := time.Now()
	outcome := metrics.OutcomeSuccess

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("prediction processing failed, serving degraded answer",
				slog.Any("panic", r),
				slog.String("country", ev.Country))
			outcome = metrics.OutcomeDegraded
			result = s.degraded(ev)
		}
		elapsed := time.Since(start)
		s.latencies.Observe(elapsed)
		metrics.ObservePrediction(elapsed, outcome)
		if n := s.latencies.Count(); n%latencyLogInterval == 0 {
			s.logger.Info("prediction latency window",
				slog.Duration("p95", s.latencies.Percentile(95)),
				slog.Int("samples", n))
		}
	}()

	repaired := s.repair(ev)
	active := s.store.LoadActive()
	if active.Fallback {
		outcome = metrics.OutcomeFallbackModel
	}

	features, err := encoder.Encode(repaired, active.Encoders, s.ref, encoder.Lenient)
	if err != nil {
		// Lenient encoding only fails on malformed encoder state.
		panic(fmt.Sprintf("encode: %v", err))
	}

	label := classLabel(active.Model.Predict(features))
	confidence := s.confidence(active.Model, features)
	adv := s.advisor.Generate(repaired, label, confidence)

	result = models.Prediction{
		Prediction:       label,
		Confidence:       confidence,
		AIRecommendation: adv.AIRecommendation,
		IfNoAction:       adv.IfNoAction,
	}
	if active.Fallback {
		result.Warning = fallbackModelWarning
	}
	return result
}

// Percentile exposes the rolling latency percentile for the info endpoints.
func (s *Service) Percentile(p float64) time.Duration {
	return s.latencies.Percentile(p)
}

// repair substitutes documented defaults for unrecognised categorical inputs
// and resolves admin1 against the country's known regions. Every substitution
// is logged so repaired answers remain auditable.
func (s *Service) repair(ev models.ConflictEvent) models.ConflictEvent {
	if !s.ref.KnownCountry(ev.Country) {
		s.logger.Warn("unrecognised country, substituting default",
			slog.String("got", ev.Country),
			slog.String("using", s.ref.Defaults.Country))
		ev.Country = s.ref.Defaults.Country
	}
	if !s.ref.KnownEventType(ev.EventType) {
		s.logger.Warn("unrecognised event type, substituting default",
			slog.String("got", ev.EventType),
			slog.String("using", s.ref.Defaults.EventType))
		ev.EventType = s.ref.Defaults.EventType
	}
	if !s.ref.KnownActor(ev.Actor1) {
		s.logger.Warn("unrecognised actor, substituting default",
			slog.String("got", ev.Actor1),
			slog.String("using", s.ref.Defaults.Actor))
		ev.Actor1 = s.ref.Defaults.Actor
	}
	if region, kept := s.ref.RepairRegion(ev.Country, ev.Admin1); !kept {
		s.logger.Warn("unrecognised region, substituting known region",
			slog.String("got", ev.Admin1),
			slog.String("using", region),
			slog.String("country", ev.Country))
		ev.Admin1 = region
	}
	return ev
}

// confidence derives a percentage from the classifier's probability vector.
// Backend output shapes vary, so the vector is nativized before use; any
// failure yields the documented default.
func (s *Service) confidence(c model.Classifier, features []float64) (pct float64) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("confidence calculation failed, using default",
				slog.Any("panic", r))
			pct = defaultConfidence
		}
	}()

	vals, ok := Nativize(c.PredictProba(features)).([]any)
	if !ok || len(vals) == 0 {
		return defaultConfidence
	}
	best := 0.0
	seen := false
	for _, v := range vals {
		f, ok := toFloat(v)
		if !ok {
			continue
		}
		if !seen || f > best {
			best = f
			seen = true
		}
	}
	if !seen {
		return defaultConfidence
	}
	return clampPct(best * 100)
}

// degraded builds the deterministic heuristic answer served when prediction
// processing fails. The class is derived from a stable hash of the input so
// repeated identical requests degrade identically.
func (s *Service) degraded(ev models.ConflictEvent) models.Prediction {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%s|%s|%s|%g|%g|%d",
		ev.Country, ev.Admin1, ev.EventType, ev.Actor1,
		ev.Latitude, ev.Longitude, ev.Year)

	label := models.RiskHigh
	confidence := degradedHighConfidence
	if h.Sum32()%3 != 0 {
		label = models.RiskLow
		confidence = degradedLowConfidence
	}

	adv := s.advisor.Generate(ev, label, confidence)
	return models.Prediction{
		Prediction:       label,
		Confidence:       confidence,
		AIRecommendation: adv.AIRecommendation,
		IfNoAction:       adv.IfNoAction,
		Warning:          degradedWarning,
	}
}

func classLabel(class int) string {
	if class == model.ClassHigh {
		return models.RiskHigh
	}
	return models.RiskLow
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
