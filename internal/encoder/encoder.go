// Package encoder maps raw categorical inputs to the integer codes a trained
// classifier expects. Encoders are fit at training time and persisted with the
// model; the two are only valid as a pair.
package encoder

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"

	"github.com/Ngum12/africa-risk-intelligence-platform/internal/models"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/refdata"
)

// Canonical feature names, in vector order.
const (
	FeatureCountry   = "country"
	FeatureAdmin1    = "admin1"
	FeatureEventType = "event_type"
	FeatureActor1    = "actor1"
	FeatureLatitude  = "latitude"
	FeatureLongitude = "longitude"
	FeatureYear      = "year"
)

// FeatureOrder is the positional layout of an encoded feature vector.
var FeatureOrder = []string{
	FeatureCountry, FeatureAdmin1, FeatureEventType, FeatureActor1,
	FeatureLatitude, FeatureLongitude, FeatureYear,
}

// HashBuckets bounds the pseudo-codes derived for unseen free-text categories.
const HashBuckets = 100

// Mode selects how unseen categories are handled.
type Mode int

const (
	// Strict rejects unseen categories. Used for pipeline-internal
	// consistency checks where vocabularies must match exactly.
	Strict Mode = iota
	// Lenient substitutes defaults or hash buckets for unseen categories.
	// Default for the public inference path.
	Lenient
)

// UnseenCategoryError names a categorical field whose value was not seen during training.
type UnseenCategoryError struct {
	Field string
	Value string
}

func (e *UnseenCategoryError) Error() string {
	return fmt.Sprintf("value %q for field %q not seen during training", e.Value, e.Field)
}

// LabelEncoder is a bidirectional mapping between category strings and integer codes.
type LabelEncoder struct {
	Classes []string `json:"classes"`

	index map[string]int
}

// NewLabelEncoder fits an encoder over values: codes are assigned to the
// sorted set of distinct values.
func NewLabelEncoder(values []string) *LabelEncoder {
	seen := make(map[string]struct{}, len(values))
	classes := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)
	return RestoreLabelEncoder(classes)
}

// RestoreLabelEncoder rebuilds an encoder from persisted classes, preserving
// their stored order so codes stay stable across restarts.
func RestoreLabelEncoder(classes []string) *LabelEncoder {
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &LabelEncoder{Classes: classes, index: index}
}

// Transform returns the code for value and whether it was seen during fitting.
// The index is built at construction time; a zero-value encoder falls back to
// a linear scan so Transform stays safe for concurrent readers.
func (e *LabelEncoder) Transform(value string) (int, bool) {
	if e.index == nil {
		for i, c := range e.Classes {
			if c == value {
				return i, true
			}
		}
		return 0, false
	}
	code, ok := e.index[value]
	return code, ok
}

// Class returns the category for code, if in range.
func (e *LabelEncoder) Class(code int) (string, bool) {
	if code < 0 || code >= len(e.Classes) {
		return "", false
	}
	return e.Classes[code], true
}

// Set maps feature names to their fitted encoders.
type Set map[string]*LabelEncoder

// DefaultSet builds an encoder set over the reference-data vocabulary. The
// model store uses it alongside the fallback model when no fitted encoders
// can be loaded.
func DefaultSet(table *refdata.Table) Set {
	if table == nil {
		table = refdata.Default()
	}
	regions := make([]string, 0, 32)
	for _, rs := range table.RegionsByCountry {
		regions = append(regions, rs...)
	}
	regions = append(regions, refdata.GenericRegion)
	return Set{
		FeatureCountry:   NewLabelEncoder(table.Countries),
		FeatureAdmin1:    NewLabelEncoder(regions),
		FeatureEventType: NewLabelEncoder(table.EventTypes),
		FeatureActor1:    NewLabelEncoder(table.Actors),
	}
}

// Encode translates a conflict event into the 7-slot numeric feature vector.
// Unseen categories fail in Strict mode; in Lenient mode the table default is
// substituted, or a stable hash bucket when even the default is unknown.
func Encode(ev models.ConflictEvent, set Set, table *refdata.Table, mode Mode) ([]float64, error) {
	if table == nil {
		table = refdata.Default()
	}

	country, err := encodeCategorical(FeatureCountry, ev.Country, table.Defaults.Country, set, mode)
	if err != nil {
		return nil, err
	}
	admin1, err := encodeFreeText(FeatureAdmin1, ev.Admin1, set, mode)
	if err != nil {
		return nil, err
	}
	eventType, err := encodeCategorical(FeatureEventType, ev.EventType, table.Defaults.EventType, set, mode)
	if err != nil {
		return nil, err
	}
	actor, err := encodeCategorical(FeatureActor1, ev.Actor1, table.Defaults.Actor, set, mode)
	if err != nil {
		return nil, err
	}

	return []float64{
		country,
		admin1,
		eventType,
		actor,
		ev.Latitude,
		ev.Longitude,
		float64(ev.Year),
	}, nil
}

func encodeCategorical(field, value, fallback string, set Set, mode Mode) (float64, error) {
	enc := set[field]
	if enc != nil {
		if code, ok := enc.Transform(value); ok {
			return float64(code), nil
		}
	}
	if mode == Strict {
		return 0, &UnseenCategoryError{Field: field, Value: value}
	}
	if enc != nil {
		if code, ok := enc.Transform(fallback); ok {
			return float64(code), nil
		}
	}
	return float64(HashBucket(value)), nil
}

// Free-text fields skip the default substitution: a deterministic hash bucket
// keeps distinct unseen values distinct more often than a single default code.
func encodeFreeText(field, value string, set Set, mode Mode) (float64, error) {
	enc := set[field]
	if enc != nil {
		if code, ok := enc.Transform(value); ok {
			return float64(code), nil
		}
	}
	if mode == Strict {
		return 0, &UnseenCategoryError{Field: field, Value: value}
	}
	return float64(HashBucket(value)), nil
}

// HashBucket reduces a category value to a stable pseudo-code in [0, HashBuckets).
// The same input always lands in the same bucket; different inputs may collide.
func HashBucket(value string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	return int(h.Sum32() % HashBuckets)
}

// CleanFloat parses a possibly dirty numeric string, stripping everything but
// digits, the decimal point, and a leading minus sign before parsing.
func CleanFloat(value string) (float64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("empty numeric value")
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f, nil
	}

	var b strings.Builder
	for i, r := range trimmed {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == '-' && i == 0:
			b.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("malformed numeric value %q", value)
	}
	return f, nil
}
