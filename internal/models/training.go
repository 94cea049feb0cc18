package models

import "time"

// TrainingMetrics holds held-out evaluation scores for a trained classifier.
// Precision, recall, and F1 are sample-weighted across classes.
type TrainingMetrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// TrainingMetadata is the append-only record persisted alongside each training run.
type TrainingMetadata struct {
	RunID            string            `json:"run_id"`
	Created          time.Time         `json:"created"`
	Metrics          TrainingMetrics   `json:"metrics"`
	NumSamples       int               `json:"num_samples"`
	Features         []string          `json:"features"`
	ColumnMapping    map[string]string `json:"column_mapping"`
	RiskDistribution map[string]int    `json:"risk_distribution"`
	ModelPath        string            `json:"model_path"`
	EncoderPath      string            `json:"encoder_path"`
}

// RetrainResult is the outcome of one retraining call, shaped for the API.
type RetrainResult struct {
	Success    bool             `json:"success"`
	Metrics    *TrainingMetrics `json:"metrics,omitempty"`
	NumSamples int              `json:"num_samples,omitempty"`
	Features   []string         `json:"features,omitempty"`
	Error      string           `json:"error,omitempty"`
	Details    any              `json:"details,omitempty"`
}

// RetrainingAttempt is one entry in the bounded in-process attempt log.
type RetrainingAttempt struct {
	Timestamp  time.Time        `json:"timestamp"`
	RunID      string           `json:"run_id,omitempty"`
	Success    bool             `json:"success"`
	ModelPath  string           `json:"model_path,omitempty"`
	Error      string           `json:"error,omitempty"`
	Metrics    *TrainingMetrics `json:"metrics,omitempty"`
	NumSamples int              `json:"num_samples,omitempty"`
}
