package model

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Ngum12/africa-risk-intelligence-platform/internal/encoder"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/models"
	"github.com/Ngum12/africa-risk-intelligence-platform/internal/refdata"
)

const (
	pointerFile     = "latest.json"
	migratedShipped = "conflict_model_final.json"
)

// Pointer identifies the currently active (model, encoder, metadata) triple.
// Updating it is always the final step of a publish.
type Pointer struct {
	ModelPath    string `json:"model_path"`
	EncoderPath  string `json:"encoder_path"`
	MetadataPath string `json:"metadata_path"`
}

// Active is the resolved model/encoder/metadata triple served to inference.
// Fallback reports whether the stand-in classifier is being served.
type Active struct {
	Model    Classifier
	Encoders encoder.Set
	Meta     *models.TrainingMetadata
	Fallback bool
}

// ArtifactInfo summarises the active artifact for the info endpoints.
type ArtifactInfo struct {
	Exists     bool      `json:"exists"`
	Type       string    `json:"type,omitempty"`
	SizeBytes  int64     `json:"size_bytes,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
	Trees      int       `json:"trees,omitempty"`
	MaxDepth   int       `json:"max_depth,omitempty"`
}

// Store owns the on-disk model artifacts. It caches the loaded pair and
// re-resolves whenever the pointer file changes, so concurrent inference
// requests share one classifier and observe a published model at the first
// load after the pointer swap, never mid-write.
type Store struct {
	mu         sync.Mutex
	dir        string
	legacyPath string
	ref        *refdata.Table
	logger     *slog.Logger

	fallback *Fallback
	cached   *Active
	pointerM time.Time
	pointerS int64

	// afterArtifactWrite runs between artifact writes and the pointer swap.
	// Tests use it to hold a publish mid-flight.
	afterArtifactWrite func()
}

// NewStore creates a store rooted at dir. legacyPath may name a pre-layout
// artifact to migrate; it is optional.
func NewStore(dir, legacyPath string, ref *refdata.Table, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if ref == nil {
		ref = refdata.Default()
	}
	return &Store{
		dir:        dir,
		legacyPath: legacyPath,
		ref:        ref,
		logger:     logger,
		fallback:   NewFallback(),
	}
}

// PointerPath returns the location of the active-pointer record.
func (s *Store) PointerPath() string {
	return filepath.Join(s.dir, pointerFile)
}

// LoadActive resolves the active model. It never fails: when the pointer is
// missing or an artifact cannot be read, it serves the fallback classifier
// with reference-data encoders and logs a warning.
func (s *Store) LoadActive() *Active {
	s.mu.Lock()
	defer s.mu.Unlock()

	stat, err := os.Stat(s.PointerPath())
	if err != nil {
		if migrated := s.migrateLegacy(); migrated {
			stat, err = os.Stat(s.PointerPath())
		}
		if err != nil {
			return s.fallbackActive("no model artifact found")
		}
	}

	if s.cached != nil && stat.ModTime().Equal(s.pointerM) && stat.Size() == s.pointerS {
		return s.cached
	}

	active, err := s.loadFromPointer()
	if err != nil {
		return s.fallbackActive(err.Error())
	}

	s.cached = active
	s.pointerM = stat.ModTime()
	s.pointerS = stat.Size()
	return active
}

func (s *Store) loadFromPointer() (*Active, error) {
	data, err := os.ReadFile(s.PointerPath())
	if err != nil {
		return nil, fmt.Errorf("read active pointer: %w", err)
	}
	var ptr Pointer
	if err := json.Unmarshal(data, &ptr); err != nil {
		return nil, fmt.Errorf("decode active pointer: %w", err)
	}

	classifier, err := LoadClassifier(ptr.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	active := &Active{Model: classifier}

	if ptr.EncoderPath != "" {
		set, err := LoadEncoders(ptr.EncoderPath)
		if err != nil {
			s.logger.Warn("encoder artifact unreadable, using reference-data encoders", slog.Any("error", err))
			set = encoder.DefaultSet(s.ref)
		}
		active.Encoders = set
	} else {
		active.Encoders = encoder.DefaultSet(s.ref)
	}

	if ptr.MetadataPath != "" {
		if meta, err := loadMetadata(ptr.MetadataPath); err != nil {
			s.logger.Warn("training metadata unreadable", slog.Any("error", err))
		} else {
			active.Meta = meta
		}
	}

	return active, nil
}

func (s *Store) fallbackActive(reason string) *Active {
	s.logger.Warn("serving fallback model", slog.String("reason", reason))
	return &Active{
		Model:    s.fallback,
		Encoders: encoder.DefaultSet(s.ref),
		Fallback: true,
	}
}

// migrateLegacy moves a pre-layout artifact into the canonical directory and
// synthesises a pointer for it.
func (s *Store) migrateLegacy() bool {
	if s.legacyPath == "" {
		return false
	}
	if _, err := os.Stat(s.legacyPath); err != nil {
		return false
	}

	dest := filepath.Join(s.dir, migratedShipped)
	if err := copyFile(s.legacyPath, dest); err != nil {
		s.logger.Warn("legacy model migration failed", slog.Any("error", err))
		return false
	}
	ptr := Pointer{ModelPath: dest}
	if err := writeJSONAtomic(s.PointerPath(), ptr); err != nil {
		s.logger.Warn("legacy pointer write failed", slog.Any("error", err))
		return false
	}
	s.logger.Info("migrated legacy model artifact", slog.String("from", s.legacyPath), slog.String("to", dest))
	return true
}

// Publish writes the new artifacts under timestamped names, then swaps the
// active pointer. The pointer update is the last step: concurrent readers see
// either the previous complete triple or the new one.
func (s *Store) Publish(f *Forest, set encoder.Set, meta models.TrainingMetadata) (Pointer, error) {
	if f == nil {
		return Pointer{}, fmt.Errorf("publish: nil model")
	}
	if len(set) == 0 {
		return Pointer{}, fmt.Errorf("publish: empty encoder set")
	}

	if meta.Created.IsZero() {
		meta.Created = time.Now().UTC()
	}
	stamp := meta.Created.Format("20060102_150405")

	ptr := Pointer{
		ModelPath:    filepath.Join(s.dir, fmt.Sprintf("conflict_model_%s.json", stamp)),
		EncoderPath:  filepath.Join(s.dir, fmt.Sprintf("encoders_%s.json", stamp)),
		MetadataPath: filepath.Join(s.dir, fmt.Sprintf("metadata_%s.json", stamp)),
	}
	meta.ModelPath = ptr.ModelPath
	meta.EncoderPath = ptr.EncoderPath

	if err := SaveForest(ptr.ModelPath, f); err != nil {
		return Pointer{}, fmt.Errorf("write model artifact: %w", err)
	}
	if err := SaveEncoders(ptr.EncoderPath, set); err != nil {
		return Pointer{}, fmt.Errorf("write encoder artifact: %w", err)
	}
	if err := writeJSONAtomic(ptr.MetadataPath, meta); err != nil {
		return Pointer{}, fmt.Errorf("write training metadata: %w", err)
	}

	if s.afterArtifactWrite != nil {
		s.afterArtifactWrite()
	}

	if err := writeJSONAtomic(s.PointerPath(), ptr); err != nil {
		return Pointer{}, fmt.Errorf("swap active pointer: %w", err)
	}

	s.mu.Lock()
	s.cached = &Active{Model: f, Encoders: set, Meta: &meta}
	if stat, err := os.Stat(s.PointerPath()); err == nil {
		s.pointerM = stat.ModTime()
		s.pointerS = stat.Size()
	}
	s.mu.Unlock()

	s.logger.Info("published model artifact",
		slog.String("model", ptr.ModelPath),
		slog.String("run_id", meta.RunID),
		slog.Int("samples", meta.NumSamples))
	return ptr, nil
}

// Info reports artifact facts for the info endpoints.
func (s *Store) Info() ArtifactInfo {
	active := s.LoadActive()
	if active.Fallback {
		return ArtifactInfo{Exists: false}
	}

	info := ArtifactInfo{Exists: true, Type: "RandomForestClassifier"}
	if forest, ok := active.Model.(*Forest); ok {
		info.Trees = len(forest.Trees)
		info.MaxDepth = forest.Params.MaxDepth
	}

	if data, err := os.ReadFile(s.PointerPath()); err == nil {
		var ptr Pointer
		if json.Unmarshal(data, &ptr) == nil {
			if stat, err := os.Stat(ptr.ModelPath); err == nil {
				info.SizeBytes = stat.Size()
				info.ModifiedAt = stat.ModTime()
			}
		}
	}
	return info
}

func loadMetadata(path string) (*models.TrainingMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta models.TrainingMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode training metadata %s: %w", path, err)
	}
	return &meta, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
