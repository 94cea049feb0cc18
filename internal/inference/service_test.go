package inference

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"github.com/Ngum12/africa-risk-intelligence-platform/internal/advisory"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/encoder"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/model"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/models"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/refdata"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeLoader struct {
	active *model.Active
}

func (f *fakeLoader) LoadActive() *model.Active { return f.active }

// brokenClassifier simulates a corrupted artifact that crashes mid-inference.
type brokenClassifier struct{}

func (brokenClassifier) Predict([]float64) int { panic("artifact mismatch") }

func (brokenClassifier) PredictProba([]float64) []float64 { panic("artifact mismatch") }

func newTestService(t *testing.T, active *model.Active) *Service {
	t.Helper()
	table := refdata.Default()
	advisor, err := advisory.NewGenerator("", discardLogger())
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	return NewService(&fakeLoader{active: active}, table, advisor, discardLogger())
}

// latitudeSplitForest trains a small forest whose positive class is fully
// determined by the latitude slot of the feature vector.
func latitudeSplitForest(t *testing.T) *model.Forest {
	t.Helper()
	rng := rand.New(rand.NewSource(11))
	xs := make([][]float64, 0, 160)
	ys := make([]int, 0, 160)
	for i := 0; i < 160; i++ {
		lat := 10 + rng.Float64()*5
		class := model.ClassHigh
		if i%2 == 0 {
			lat = -10 - rng.Float64()*5
			class = model.ClassLow
		}
		xs = append(xs, []float64{
			float64(rng.Intn(12)), float64(rng.Intn(100)), float64(rng.Intn(7)),
			float64(rng.Intn(8)), lat, rng.Float64() * 40, float64(1997 + rng.Intn(20)),
		})
		ys = append(ys, class)
	}
	f, err := model.TrainForest(context.Background(), xs, ys, model.ForestParams{
		Trees: 30, MaxDepth: 8, MinSamplesSplit: 2, Seed: 42,
	})
	if err != nil {
		t.Fatalf("TrainForest: %v", err)
	}
	return f
}

func TestPredictWithTrainedModel(t *testing.T) {
	svc := newTestService(t, &model.Active{
		Model:    latitudeSplitForest(t),
		Encoders: encoder.DefaultSet(refdata.Default()),
	})

	ev := models.ConflictEvent{
		Country: "Somalia", Admin1: "Mogadishu",
		EventType: "Violence against civilians", Actor1: "Al-Shabaab",
		Latitude: 12.0, Longitude: 45.3, Year: 2017,
	}
	got := svc.Predict(context.Background(), ev)
	if got.Prediction != models.RiskHigh {
		t.Fatalf("Prediction = %q, want %q", got.Prediction, models.RiskHigh)
	}
	if got.Confidence <= 50 || got.Confidence > 100 {
		t.Fatalf("Confidence = %v, want in (50, 100]", got.Confidence)
	}
	if got.Warning != "" {
		t.Fatalf("unexpected warning %q", got.Warning)
	}
	if !strings.Contains(got.AIRecommendation, "Mogadishu") {
		t.Fatalf("advisory does not mention region: %q", got.AIRecommendation)
	}

	ev.Latitude = -12.0
	if got := svc.Predict(context.Background(), ev); got.Prediction != models.RiskLow {
		t.Fatalf("Prediction = %q, want %q", got.Prediction, models.RiskLow)
	}
}

func TestPredictWithFallbackModelCarriesWarning(t *testing.T) {
	svc := newTestService(t, &model.Active{
		Model:    model.NewFallback(),
		Encoders: encoder.DefaultSet(refdata.Default()),
		Fallback: true,
	})

	got := svc.Predict(context.Background(), models.ConflictEvent{
		Country: "Somalia", Admin1: "Mogadishu",
		EventType: "Violence against civilians", Actor1: "Al-Shabaab",
		Year: 2017,
	})
	if got.Warning == "" {
		t.Fatal("expected a fallback warning")
	}
	if got.Prediction != models.RiskLow && got.Prediction != models.RiskHigh {
		t.Fatalf("Prediction = %q, want a risk class", got.Prediction)
	}
	if got.Confidence <= 0 || got.Confidence > 100 {
		t.Fatalf("Confidence = %v, want in (0, 100]", got.Confidence)
	}
	if got.AIRecommendation == "" || got.IfNoAction == "" {
		t.Fatal("expected advisory texts on fallback predictions")
	}
}

func TestPredictRepairsUnrecognisedInputs(t *testing.T) {
	svc := newTestService(t, &model.Active{
		Model:    model.NewFallback(),
		Encoders: encoder.DefaultSet(refdata.Default()),
		Fallback: true,
	})

	got := svc.Predict(context.Background(), models.ConflictEvent{
		Country: "Atlantis", Admin1: "Nowhere",
		EventType: "Picnic", Actor1: "Tourists",
		Year: 2017,
	})
	// Substituted defaults must flow through to the advisory text.
	if !strings.Contains(got.AIRecommendation, "Somalia") {
		t.Fatalf("advisory does not reflect default country: %q", got.AIRecommendation)
	}
	if !strings.Contains(got.AIRecommendation, "Al-Shabaab") &&
		!strings.Contains(got.IfNoAction, "Al-Shabaab") {
		t.Fatal("advisory does not reflect default actor")
	}
}

func TestPredictDegradesWhenModelPanics(t *testing.T) {
	svc := newTestService(t, &model.Active{
		Model:    brokenClassifier{},
		Encoders: encoder.DefaultSet(refdata.Default()),
	})

	ev := models.ConflictEvent{
		Country: "Nigeria", Admin1: "Borno",
		EventType: "Remote violence", Actor1: "Boko Haram",
		Latitude: 11.8, Longitude: 13.2, Year: 2015,
	}
	first := svc.Predict(context.Background(), ev)
	if first.Warning == "" {
		t.Fatal("expected a degraded warning")
	}
	if first.Confidence != degradedLowConfidence && first.Confidence != degradedHighConfidence {
		t.Fatalf("Confidence = %v, want a fixed degraded confidence", first.Confidence)
	}
	if first.AIRecommendation == "" || first.IfNoAction == "" {
		t.Fatal("degraded answers must still carry advisory texts")
	}

	// The degraded class derives from a hash of the input, so identical
	// requests must degrade identically.
	second := svc.Predict(context.Background(), ev)
	if first != second {
		t.Fatalf("degraded answers differ: %+v vs %+v", first, second)
	}
}

func TestConfidenceDefaultsOnEmptyProba(t *testing.T) {
	svc := newTestService(t, &model.Active{
		Model:    model.NewFallback(),
		Encoders: encoder.DefaultSet(refdata.Default()),
		Fallback: true,
	})
	if got := svc.confidence(emptyProbaClassifier{}, []float64{0, 0, 0, 0, 0, 0, 0}); got != defaultConfidence {
		t.Fatalf("confidence = %v, want %v", got, defaultConfidence)
	}
}

type emptyProbaClassifier struct{}

func (emptyProbaClassifier) Predict([]float64) int { return model.ClassLow }

func (emptyProbaClassifier) PredictProba([]float64) []float64 { return nil }
