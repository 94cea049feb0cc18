package models

// Risk class labels produced by the inference service.
const (
	RiskLow  = "Low Risk"
	RiskHigh = "High Risk"
)

// ConflictEvent is a raw input record submitted for risk assessment.
// It is immutable once received; implausible values are repaired, not rejected.
type ConflictEvent struct {
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1"`
	EventType string  `json:"event_type"`
	Actor1    string  `json:"actor1"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Year      int     `json:"year"`
}

// Prediction is the response shape for a single risk assessment.
// Warning is set only when the service answered via a degraded path.
type Prediction struct {
	Prediction       string  `json:"prediction"`
	Confidence       float64 `json:"confidence"`
	AIRecommendation string  `json:"ai_recommendation"`
	IfNoAction       string  `json:"if_no_action"`
	Warning          string  `json:"warning,omitempty"`
}

// Advisory carries the templated recommendation texts for a prediction.
type Advisory struct {
	AIRecommendation string `json:"ai_recommendation"`
	IfNoAction       string `json:"if_no_action"`
}
