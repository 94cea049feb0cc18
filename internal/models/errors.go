package models

import (
	"fmt"
	"strings"
)

// SchemaError reports required feature columns missing from an uploaded dataset.
// It marshals to a machine-readable structure rather than a bare string.
type SchemaError struct {
	MissingColumns    []string `json:"missing_columns"`
	AvailableColumns  []string `json:"available_columns"`
	RecommendedAction string   `json:"recommended_action"`
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s (available: %s)",
		strings.Join(e.MissingColumns, ", "), strings.Join(e.AvailableColumns, ", "))
}

// TargetError reports that no usable target column was found.
type TargetError struct {
	AcceptedColumns  []string `json:"accepted_columns"`
	ExpectedValues   string   `json:"expected_values"`
	AvailableColumns []string `json:"available_columns"`
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("no target column found; accepted names: %s; expected values: %s",
		strings.Join(e.AcceptedColumns, ", "), e.ExpectedValues)
}

// InsufficientRowsError reports a dataset below the minimum training size.
type InsufficientRowsError struct {
	Rows    int `json:"rows"`
	MinRows int `json:"min_rows"`
}

func (e *InsufficientRowsError) Error() string {
	return fmt.Sprintf("insufficient rows for training: got %d, need at least %d", e.Rows, e.MinRows)
}
