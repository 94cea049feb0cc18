package training

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Ngum12/africa-risk-intelligence-platform/internal/config"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/model"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/models"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/refdata"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.RetrainingConfig {
	return config.RetrainingConfig{
		MinRows:         10,
		TestFraction:    0.2,
		Trees:           25,
		MaxDepth:        8,
		MinSamplesSplit: 2,
		Seed:            42,
		Timeout:         time.Minute,
	}
}

func newTestPipeline(t *testing.T) (*Pipeline, *model.Store) {
	t.Helper()
	store := model.NewStore(t.TempDir(), "", refdata.Default(), discardLogger())
	return NewPipeline(testConfig(), store, discardLogger()), store
}

func writeCSV(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.csv")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

// separableCSV builds rows whose risk label is fully determined by latitude.
func separableCSV(t *testing.T, n int) string {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	lines := []string{"COUNTRY,ADMIN1,EVENT_TYPE,ACTOR1,LATITUDE,LONGITUDE,YEAR,CONFLICT_RISK"}
	for i := 0; i < n; i++ {
		lat := 8 + rng.Float64()*4
		risk := 1
		country, actor := "Somalia", "Al-Shabaab"
		if i%2 == 0 {
			lat = -8 - rng.Float64()*4
			risk = 0
			country, actor = "Botswana", "Civilians"
		}
		lines = append(lines, fmt.Sprintf("%s,Region%d,Violence against civilians,%s,%.4f,%.4f,%d,%d",
			country, i%5, actor, lat, 20+rng.Float64()*10, 2000+i%15, risk))
	}
	return writeCSV(t, lines...)
}

func TestRetrainFromValidCSV(t *testing.T) {
	pipeline, store := newTestPipeline(t)

	result := pipeline.Retrain(context.Background(), separableCSV(t, 200))
	if !result.Success {
		t.Fatalf("Retrain failed: %s", result.Error)
	}
	if result.NumSamples != 200 {
		t.Fatalf("NumSamples = %d, want 200", result.NumSamples)
	}
	if result.Metrics == nil || result.Metrics.Accuracy < 0.8 {
		t.Fatalf("Metrics = %+v, want accuracy >= 0.8", result.Metrics)
	}
	if len(result.Features) != 7 {
		t.Fatalf("Features = %v, want the canonical 7-slot layout", result.Features)
	}

	active := store.LoadActive()
	if active.Fallback {
		t.Fatal("store still serves the fallback model after a successful run")
	}
	if active.Meta == nil || active.Meta.NumSamples != 200 {
		t.Fatalf("published metadata = %+v", active.Meta)
	}
	if active.Meta.RiskDistribution[models.RiskLow] != 100 ||
		active.Meta.RiskDistribution[models.RiskHigh] != 100 {
		t.Fatalf("RiskDistribution = %v", active.Meta.RiskDistribution)
	}

	attempts := pipeline.Attempts()
	if len(attempts) != 1 || !attempts[0].Success {
		t.Fatalf("Attempts = %+v, want one successful entry", attempts)
	}
	if attempts[0].ModelPath == "" || attempts[0].RunID == "" {
		t.Fatalf("attempt missing artifact path or run id: %+v", attempts[0])
	}
}

func TestRetrainMapsSynonymColumns(t *testing.T) {
	pipeline, store := newTestPipeline(t)

	rng := rand.New(rand.NewSource(3))
	lines := []string{"lat,lng,actor,type,risk"}
	for i := 0; i < 40; i++ {
		lat := 5.0
		risk := 1
		if i%2 == 0 {
			lat = -5.0
			risk = 0
		}
		lines = append(lines, fmt.Sprintf("%.4f,%.4f,Military Forces,Riots/Protests,%d",
			lat+rng.Float64(), 30+rng.Float64(), risk))
	}

	result := pipeline.Retrain(context.Background(), writeCSV(t, lines...))
	if !result.Success {
		t.Fatalf("Retrain failed: %s", result.Error)
	}

	mapping := store.LoadActive().Meta.ColumnMapping
	if mapping["LATITUDE"] != "lat" || mapping["LONGITUDE"] != "lng" ||
		mapping["ACTOR1"] != "actor" || mapping["EVENT_TYPE"] != "type" {
		t.Fatalf("ColumnMapping = %v", mapping)
	}
}

func TestRetrainReportsMissingColumns(t *testing.T) {
	pipeline, _ := newTestPipeline(t)

	result := pipeline.Retrain(context.Background(), writeCSV(t,
		"COUNTRY,ACTOR1,EVENT_TYPE,CONFLICT_RISK",
		"Somalia,Al-Shabaab,Riots/Protests,1",
	))
	if result.Success {
		t.Fatal("expected failure for missing coordinate columns")
	}
	schemaErr, ok := result.Details.(*models.SchemaError)
	if !ok {
		t.Fatalf("Details = %T, want *models.SchemaError", result.Details)
	}
	found := map[string]bool{}
	for _, c := range schemaErr.MissingColumns {
		found[c] = true
	}
	if !found["LATITUDE"] || !found["LONGITUDE"] {
		t.Fatalf("MissingColumns = %v", schemaErr.MissingColumns)
	}
}

func TestRetrainReportsMissingTarget(t *testing.T) {
	pipeline, _ := newTestPipeline(t)

	result := pipeline.Retrain(context.Background(), writeCSV(t,
		"LATITUDE,LONGITUDE,ACTOR1,EVENT_TYPE",
		"1.0,2.0,Al-Shabaab,Riots/Protests",
	))
	if result.Success {
		t.Fatal("expected failure for missing target column")
	}
	if _, ok := result.Details.(*models.TargetError); !ok {
		t.Fatalf("Details = %T, want *models.TargetError", result.Details)
	}
}

func TestRetrainReportsInsufficientRows(t *testing.T) {
	pipeline, _ := newTestPipeline(t)

	lines := []string{"LATITUDE,LONGITUDE,ACTOR1,EVENT_TYPE,CONFLICT_RISK"}
	for i := 0; i < 5; i++ {
		lines = append(lines, fmt.Sprintf("%d.0,2.0,Al-Shabaab,Riots/Protests,%d", i, i%2))
	}
	result := pipeline.Retrain(context.Background(), writeCSV(t, lines...))
	if result.Success {
		t.Fatal("expected failure for undersized dataset")
	}
	rowsErr, ok := result.Details.(*models.InsufficientRowsError)
	if !ok {
		t.Fatalf("Details = %T, want *models.InsufficientRowsError", result.Details)
	}
	if rowsErr.Rows != 5 || rowsErr.MinRows != 10 {
		t.Fatalf("rows error = %+v", rowsErr)
	}
}

func TestRetrainRejectsOverlappingRuns(t *testing.T) {
	pipeline, _ := newTestPipeline(t)

	pipeline.mu.Lock()
	defer pipeline.mu.Unlock()

	result := pipeline.Retrain(context.Background(), "ignored.csv")
	if result.Success {
		t.Fatal("expected rejection while another run holds the lock")
	}
	if !strings.Contains(result.Error, "in progress") {
		t.Fatalf("Error = %q", result.Error)
	}
}

func TestRetrainFailureIsLogged(t *testing.T) {
	pipeline, _ := newTestPipeline(t)

	pipeline.Retrain(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	attempts := pipeline.Attempts()
	if len(attempts) != 1 || attempts[0].Success {
		t.Fatalf("Attempts = %+v, want one failed entry", attempts)
	}
	if attempts[0].Error == "" {
		t.Fatal("failed attempt should carry an error message")
	}
}

func TestAttemptLogBoundAndOrder(t *testing.T) {
	log := NewAttemptLog()
	for i := 0; i < 25; i++ {
		log.Record(models.RetrainingAttempt{RunID: fmt.Sprintf("run-%d", i)})
	}
	got := log.List()
	if len(got) != maxAttempts {
		t.Fatalf("len = %d, want %d", len(got), maxAttempts)
	}
	if got[0].RunID != "run-24" {
		t.Fatalf("newest = %q, want run-24", got[0].RunID)
	}
	if got[len(got)-1].RunID != "run-5" {
		t.Fatalf("oldest = %q, want run-5", got[len(got)-1].RunID)
	}
}
