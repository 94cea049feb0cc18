// Package model owns the trained classifier artifact: its capability surface,
// the hand-rolled random forest implementation, the on-disk codec, and the
// store that resolves the currently active (model, encoders, metadata) triple.
package model

import "sync/atomic"

// Class indices used across training and inference. Index 0 maps to
// "Low Risk" and index 1 to "High Risk" at the service boundary.
const (
	ClassLow  = 0
	ClassHigh = 1
)

// Classifier is the narrow capability surface callers depend on. Both the
// trained forest and the fallback stand-in satisfy it; nothing outside this
// package may assume a concrete type except to detect the fallback.
type Classifier interface {
	// Predict returns the class index for one feature vector.
	Predict(features []float64) int
	// PredictProba returns the class probability vector for one feature vector.
	PredictProba(features []float64) []float64
}

// Fallback is the deterministic stand-in served when no real artifact can be
// loaded. It cycles a fixed two-label pattern so the service degrades
// gracefully instead of crashing; callers detect it with a type assertion.
type Fallback struct {
	calls atomic.Uint64
}

// NewFallback constructs the stand-in classifier.
func NewFallback() *Fallback {
	return &Fallback{}
}

// Predict advances the cycle: every third call reports the high-risk class.
func (f *Fallback) Predict(features []float64) int {
	if f.calls.Add(1)%3 == 0 {
		return ClassHigh
	}
	return ClassLow
}

// PredictProba returns a fixed-shape probability vector matching the phase of
// the most recent Predict call.
func (f *Fallback) PredictProba(features []float64) []float64 {
	if f.calls.Load()%3 == 0 {
		return []float64{0.3, 0.7}
	}
	return []float64{0.8, 0.2}
}
