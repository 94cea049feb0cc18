package training

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Ngum12/africa-risk-intelligence-platform/internal/encoder"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/models"
)

// Canonical column names used throughout the pipeline. Uploaded datasets are
// renamed to these before any further processing.
const (
	colCountry    = "COUNTRY"
	colAdmin1     = "ADMIN1"
	colEventType  = "EVENT_TYPE"
	colActor1     = "ACTOR1"
	colLatitude   = "LATITUDE"
	colLongitude  = "LONGITUDE"
	colYear       = "YEAR"
	colFatalities = "FATALITIES"
)

// featureSynonyms maps canonical columns to accepted upload spellings,
// compared case-insensitively.
var featureSynonyms = map[string][]string{
	colLatitude:   {"latitude", "lat", "y", "latitud", "breitengrad"},
	colLongitude:  {"longitude", "long", "lon", "lng", "x", "longitud"},
	colActor1:     {"actor1", "actor_1", "actor", "actors", "primary_actor", "inter1", "side_a"},
	colEventType:  {"event_type", "eventtype", "type", "event", "inter2", "conflict_type"},
	colCountry:    {"country", "nation", "state_name"},
	colAdmin1:     {"admin1", "admin_1", "region", "province", "state"},
	colYear:       {"year", "yr", "event_year"},
	colFatalities: {"fatalities", "deaths", "casualties", "killed"},
}

// requiredColumns must resolve for training to proceed; the rest are imputed.
var requiredColumns = []string{colLatitude, colLongitude, colActor1, colEventType}

// targetSynonyms are accepted names for the binary risk label column.
var targetSynonyms = []string{"CONFLICT_RISK", "RISK", "RISK_LABEL", "LABEL", "TARGET"}

// record is one canonicalized training row.
type record struct {
	Country   string
	Admin1    string
	EventType string
	Actor1    string
	Latitude  float64
	Longitude float64
	Year      float64
	Target    int
}

// dataset is the cleaned, canonical view of an uploaded CSV.
type dataset struct {
	Records       []record
	ColumnMapping map[string]string // canonical -> original header
	TargetColumn  string
}

// loadDataset reads, canonicalizes, and imputes an uploaded CSV. It returns
// typed errors (SchemaError, TargetError) that the API layer can surface as
// structured guidance.
func loadDataset(path string, logger *slog.Logger) (*dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty dataset")
	}

	header := rows[0]
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	mapping := resolveColumns(header, logger)

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := mapping[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &models.SchemaError{
			MissingColumns:    missing,
			AvailableColumns:  header,
			RecommendedAction: "Rename your columns to the ACLED-style names or their common synonyms and re-upload.",
		}
	}

	targetCol, targetIdx := resolveTarget(header)
	if targetIdx < 0 {
		return nil, &models.TargetError{
			AcceptedColumns:  targetSynonyms,
			ExpectedValues:   "binary 0 (low risk) or 1 (high risk)",
			AvailableColumns: header,
		}
	}

	index := make(map[string]int, len(mapping))
	for canonical, original := range mapping {
		for i, h := range header {
			if h == original {
				index[canonical] = i
				break
			}
		}
	}

	ds := &dataset{ColumnMapping: mapping, TargetColumn: targetCol}
	var latSum, lonSum, yearSum float64
	var latN, lonN, yearN int
	type parsedRow struct {
		rec     record
		hasLat  bool
		hasLon  bool
		hasYear bool
	}
	parsed := make([]parsedRow, 0, len(rows)-1)

	dropped := 0
	for _, row := range rows[1:] {
		target, ok := parseTarget(cell(row, targetIdx))
		if !ok {
			dropped++
			continue
		}
		pr := parsedRow{rec: record{Target: target}}
		pr.rec.Country = cellOr(row, index, colCountry, "Unknown")
		pr.rec.Admin1 = cellOr(row, index, colAdmin1, "Unknown")
		pr.rec.EventType = cellOr(row, index, colEventType, "Other")
		pr.rec.Actor1 = cellOr(row, index, colActor1, "Unknown")
		if v, err := encoder.CleanFloat(cell(row, index[colLatitude])); err == nil {
			pr.rec.Latitude, pr.hasLat = v, true
			latSum += v
			latN++
		}
		if v, err := encoder.CleanFloat(cell(row, index[colLongitude])); err == nil {
			pr.rec.Longitude, pr.hasLon = v, true
			lonSum += v
			lonN++
		}
		if i, ok := index[colYear]; ok {
			if v, err := encoder.CleanFloat(cell(row, i)); err == nil {
				pr.rec.Year, pr.hasYear = v, true
				yearSum += v
				yearN++
			}
		}
		parsed = append(parsed, pr)
	}
	if dropped > 0 {
		logger.Warn("dropped rows with non-binary target values",
			slog.Int("dropped", dropped),
			slog.String("target_column", targetCol))
	}
	if len(parsed) == 0 {
		return nil, &models.TargetError{
			AcceptedColumns:  targetSynonyms,
			ExpectedValues:   "binary 0 (low risk) or 1 (high risk)",
			AvailableColumns: header,
		}
	}

	// Mean-impute missing numerics so one bad cell never drops a row.
	latMean := mean(latSum, latN)
	lonMean := mean(lonSum, lonN)
	yearMean := mean(yearSum, yearN)
	for _, pr := range parsed {
		rec := pr.rec
		if !pr.hasLat {
			rec.Latitude = latMean
		}
		if !pr.hasLon {
			rec.Longitude = lonMean
		}
		if !pr.hasYear {
			rec.Year = yearMean
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

// resolveColumns matches uploaded headers against the synonym table. Every
// rename is logged so dataset audits can trace what the pipeline consumed.
func resolveColumns(header []string, logger *slog.Logger) map[string]string {
	mapping := make(map[string]string)
	for _, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))
		for canonical, synonyms := range featureSynonyms {
			if _, taken := mapping[canonical]; taken {
				continue
			}
			for _, syn := range synonyms {
				if lower == syn {
					mapping[canonical] = h
					if !strings.EqualFold(h, canonical) {
						logger.Info("mapped dataset column",
							slog.String("from", h),
							slog.String("to", canonical))
					}
					break
				}
			}
		}
	}
	return mapping
}

func resolveTarget(header []string) (string, int) {
	for i, h := range header {
		upper := strings.ToUpper(strings.TrimSpace(h))
		for _, syn := range targetSynonyms {
			if upper == syn {
				return upper, i
			}
		}
	}
	return "", -1
}

// parseTarget accepts 0/1 in integer or float spelling; anything else is rejected.
func parseTarget(value string) (int, bool) {
	v, err := encoder.CleanFloat(value)
	if err != nil {
		return 0, false
	}
	switch v {
	case 0:
		return 0, true
	case 1:
		return 1, true
	}
	return 0, false
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func cellOr(row []string, index map[string]int, canonical, fallback string) string {
	i, ok := index[canonical]
	if !ok {
		return fallback
	}
	if v := cell(row, i); v != "" {
		return v
	}
	return fallback
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
