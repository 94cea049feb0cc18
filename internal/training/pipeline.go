// Package training implements the CSV retraining pipeline: dataset
// canonicalization, encoder fitting, forest training, held-out evaluation,
// and atomic artifact publication.
package training

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ngum12/africa-risk-intelligence-platform/internal/config"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/encoder"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/metrics"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/model"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/models"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/utils"
)

// ErrRunInProgress is the reported error when a retraining call is rejected
// because another run holds the pipeline.
const ErrRunInProgress = "a retraining run is already in progress"

// Pipeline runs retraining jobs. At most one job runs at a time; overlapping
// calls are rejected rather than queued so the uploader gets an immediate
// answer.
type Pipeline struct {
	cfg      config.RetrainingConfig
	store    *model.Store
	logger   *slog.Logger
	attempts *AttemptLog

	mu sync.Mutex
}

// NewPipeline wires a retraining pipeline over the given store.
func NewPipeline(cfg config.RetrainingConfig, store *model.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		attempts: NewAttemptLog(),
	}
}

// Attempts returns the recent retraining history, newest first.
func (p *Pipeline) Attempts() []models.RetrainingAttempt {
	return p.attempts.List()
}

// Retrain trains and publishes a new model from the CSV at path. It never
// returns an error: failures are reported inside the result so the API can
// relay structured guidance, and every call lands in the attempt log.
func (p *Pipeline) Retrain(ctx context.Context, path string) models.RetrainResult {
	if !p.mu.TryLock() {
		return models.RetrainResult{
			Success: false,
			Error:   ErrRunInProgress,
		}
	}
	defer p.mu.Unlock()

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	runID := uuid.NewString()
	result, published := p.run(ctx, runID, path)
	elapsed := time.Since(start)
	metrics.ObserveRetraining(elapsed, result.Success)

	attempt := models.RetrainingAttempt{
		Timestamp:  start.UTC(),
		RunID:      runID,
		Success:    result.Success,
		Error:      result.Error,
		Metrics:    result.Metrics,
		NumSamples: result.NumSamples,
	}
	if result.Success {
		attempt.ModelPath = published.ModelPath
		p.logger.Info("retraining succeeded",
			slog.String("run_id", runID),
			slog.Int("samples", result.NumSamples),
			slog.Float64("accuracy", result.Metrics.Accuracy),
			slog.Duration("elapsed", elapsed))
	} else {
		p.logger.Warn("retraining failed",
			slog.String("run_id", runID),
			slog.String("error", result.Error),
			slog.Duration("elapsed", elapsed))
	}
	p.attempts.Record(attempt)
	return result
}

func (p *Pipeline) run(ctx context.Context, runID, path string) (models.RetrainResult, model.Pointer) {
	ds, err := loadDataset(path, p.logger)
	if err != nil {
		return failure(err), model.Pointer{}
	}
	if len(ds.Records) < p.cfg.MinRows {
		return failure(&models.InsufficientRowsError{
			Rows:    len(ds.Records),
			MinRows: p.cfg.MinRows,
		}), model.Pointer{}
	}

	set := fitEncoders(ds.Records)
	xs, ys := encodeRecords(ds.Records, set)

	trainX, trainY, testX, testY := split(xs, ys, p.cfg.TestFraction, p.cfg.Seed)

	forest, err := model.TrainForest(ctx, trainX, trainY, model.ForestParams{
		Trees:           p.cfg.Trees,
		MaxDepth:        p.cfg.MaxDepth,
		MinSamplesSplit: p.cfg.MinSamplesSplit,
		Seed:            p.cfg.Seed,
	})
	if err != nil {
		return failure(utils.NewAppError("training.Retrain", "model training failed", err)), model.Pointer{}
	}

	scores := evaluate(forest, testX, testY)

	meta := models.TrainingMetadata{
		RunID:         runID,
		Created:       time.Now().UTC(),
		Metrics:       scores,
		NumSamples:    len(ds.Records),
		Features:      append([]string(nil), encoder.FeatureOrder...),
		ColumnMapping: ds.ColumnMapping,
		RiskDistribution: map[string]int{
			models.RiskLow:  count(ys, model.ClassLow),
			models.RiskHigh: count(ys, model.ClassHigh),
		},
	}
	ptr, err := p.store.Publish(forest, set, meta)
	if err != nil {
		return failure(utils.NewAppError("training.Retrain", "artifact publication failed", err)), model.Pointer{}
	}

	return models.RetrainResult{
		Success:    true,
		Metrics:    &scores,
		NumSamples: len(ds.Records),
		Features:   meta.Features,
	}, ptr
}

// failure shapes a typed pipeline error into a result. Structured errors keep
// their machine-readable detail in Details.
func failure(err error) models.RetrainResult {
	result := models.RetrainResult{Success: false, Error: err.Error()}
	switch e := err.(type) {
	case *models.SchemaError, *models.TargetError, *models.InsufficientRowsError:
		result.Details = e
	}
	return result
}

// fitEncoders builds label encoders from the distinct categorical values of
// the dataset. The fitted set is published with the model; the pair is only
// valid together.
func fitEncoders(records []record) encoder.Set {
	distinct := func(get func(record) string) []string {
		seen := make(map[string]struct{})
		var values []string
		for _, r := range records {
			v := get(r)
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			values = append(values, v)
		}
		return values
	}
	return encoder.Set{
		encoder.FeatureCountry:   encoder.NewLabelEncoder(distinct(func(r record) string { return r.Country })),
		encoder.FeatureAdmin1:    encoder.NewLabelEncoder(distinct(func(r record) string { return r.Admin1 })),
		encoder.FeatureEventType: encoder.NewLabelEncoder(distinct(func(r record) string { return r.EventType })),
		encoder.FeatureActor1:    encoder.NewLabelEncoder(distinct(func(r record) string { return r.Actor1 })),
	}
}

func encodeRecords(records []record, set encoder.Set) ([][]float64, []int) {
	xs := make([][]float64, 0, len(records))
	ys := make([]int, 0, len(records))
	for _, r := range records {
		country, _ := set[encoder.FeatureCountry].Transform(r.Country)
		admin1, _ := set[encoder.FeatureAdmin1].Transform(r.Admin1)
		eventType, _ := set[encoder.FeatureEventType].Transform(r.EventType)
		actor, _ := set[encoder.FeatureActor1].Transform(r.Actor1)
		xs = append(xs, []float64{
			float64(country), float64(admin1), float64(eventType), float64(actor),
			r.Latitude, r.Longitude, r.Year,
		})
		ys = append(ys, r.Target)
	}
	return xs, ys
}

// split partitions samples into train and test sets, stratified by class when
// both classes have at least two members.
func split(xs [][]float64, ys []int, testFraction float64, seed int64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	if testFraction <= 0 || testFraction >= 1 {
		testFraction = 0.2
	}
	rng := rand.New(rand.NewSource(seed))

	byClass := map[int][]int{}
	for i, y := range ys {
		byClass[y] = append(byClass[y], i)
	}
	stratify := true
	for _, idxs := range byClass {
		if len(idxs) < 2 {
			stratify = false
			break
		}
	}

	var testSet map[int]struct{}
	if stratify {
		testSet = make(map[int]struct{})
		for _, idxs := range byClass {
			rng.Shuffle(len(idxs), func(i, j int) { idxs[i], idxs[j] = idxs[j], idxs[i] })
			n := int(float64(len(idxs)) * testFraction)
			if n < 1 {
				n = 1
			}
			for _, i := range idxs[:n] {
				testSet[i] = struct{}{}
			}
		}
	} else {
		order := rng.Perm(len(ys))
		n := int(float64(len(ys)) * testFraction)
		if n < 1 {
			n = 1
		}
		testSet = make(map[int]struct{}, n)
		for _, i := range order[:n] {
			testSet[i] = struct{}{}
		}
	}

	for i := range ys {
		if _, ok := testSet[i]; ok {
			testX = append(testX, xs[i])
			testY = append(testY, ys[i])
		} else {
			trainX = append(trainX, xs[i])
			trainY = append(trainY, ys[i])
		}
	}
	return trainX, trainY, testX, testY
}

// evaluate scores the model on the held-out set with sample-weighted
// precision, recall, and F1. Degenerate denominators score zero rather than
// failing the run.
func evaluate(c model.Classifier, xs [][]float64, ys []int) models.TrainingMetrics {
	if len(xs) == 0 {
		return models.TrainingMetrics{}
	}

	classes := []int{model.ClassLow, model.ClassHigh}
	tp := map[int]int{}
	fp := map[int]int{}
	fn := map[int]int{}
	support := map[int]int{}
	correct := 0

	for i, x := range xs {
		pred := c.Predict(x)
		actual := ys[i]
		support[actual]++
		if pred == actual {
			correct++
			tp[actual]++
		} else {
			fp[pred]++
			fn[actual]++
		}
	}

	var precision, recall, f1 float64
	total := len(ys)
	for _, class := range classes {
		p := ratio(tp[class], tp[class]+fp[class])
		r := ratio(tp[class], tp[class]+fn[class])
		f := 0.0
		if p+r > 0 {
			f = 2 * p * r / (p + r)
		}
		weight := float64(support[class]) / float64(total)
		precision += p * weight
		recall += r * weight
		f1 += f * weight
	}

	return models.TrainingMetrics{
		Accuracy:  float64(correct) / float64(total),
		Precision: precision,
		Recall:    recall,
		F1:        f1,
	}
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func count(ys []int, class int) int {
	n := 0
	for _, y := range ys {
		if y == class {
			n++
		}
	}
	return n
}
