package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tiendata/ordercast/internal/estimator/esterr"
	"github.com/tiendata/ordercast/internal/estimator/gbm"
)

// On-disk file names inside the current model directory.
const (
	currentDir      = "current"
	schemaFile      = "feature_schema.json"
	metaFile        = "training_meta.json"
	importanceFile  = "feature_importance.json"
	modelFilePrefix = "model_"
)

// Store reads and writes model sets under a root directory. Publication is
// atomic: a new set is staged in a sibling directory and swapped in with
// renames, so a reader never observes a half-written set.
type Store struct {
	root   string
	logger *zap.SugaredLogger
}

// NewStore returns a store rooted at dir.
func NewStore(dir string, logger *zap.SugaredLogger) *Store {
	return &Store{root: dir, logger: logger}
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// ModelDir returns the directory holding the current model set.
func (s *Store) ModelDir() string { return filepath.Join(s.root, currentDir) }

func modelFile(key string) string { return modelFilePrefix + key + ".json" }

// Save stages a complete model set and swaps it into place. The previous set,
// if any, is removed only after the swap succeeds.
func (s *Store) Save(set *ModelSet) error {
	for _, key := range QuantileKeys {
		if set.Models[key] == nil {
			return fmt.Errorf("artifact: model set is missing quantile %q", key)
		}
	}

	stage := filepath.Join(s.root, ".stage-"+set.Meta.RunID)
	if err := os.MkdirAll(stage, 0o755); err != nil {
		return fmt.Errorf("artifact: create staging dir: %w", err)
	}
	defer os.RemoveAll(stage)

	for _, key := range QuantileKeys {
		if err := writeJSON(filepath.Join(stage, modelFile(key)), set.Models[key]); err != nil {
			return err
		}
	}
	if err := writeJSON(filepath.Join(stage, schemaFile), set.Schema); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(stage, metaFile), set.Meta); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(stage, importanceFile), set.Importance); err != nil {
		return err
	}

	cur := s.ModelDir()
	old := filepath.Join(s.root, ".old-"+uuid.NewString())
	hadPrevious := false
	if _, err := os.Stat(cur); err == nil {
		hadPrevious = true
		if err := os.Rename(cur, old); err != nil {
			return fmt.Errorf("artifact: retire previous model set: %w", err)
		}
	}
	if err := os.Rename(stage, cur); err != nil {
		if hadPrevious {
			// best effort restore
			_ = os.Rename(old, cur)
		}
		return fmt.Errorf("artifact: publish model set: %w", err)
	}
	if hadPrevious {
		_ = os.RemoveAll(old)
	}

	if s.logger != nil {
		s.logger.Infow("model set published",
			"run_id", set.Meta.RunID,
			"dir", cur,
			"n_rows", set.Meta.NumRows,
		)
	}
	return nil
}

// Load reads the current model set. A missing or incomplete set yields
// ArtifactMissingError; prediction has no partial-load mode.
func (s *Store) Load() (*ModelSet, error) {
	dir := s.ModelDir()
	if _, err := os.Stat(dir); err != nil {
		return nil, &esterr.ArtifactMissingError{Path: dir}
	}

	set := &ModelSet{Models: make(map[string]*gbm.Booster, len(QuantileKeys))}
	for _, key := range QuantileKeys {
		var b gbm.Booster
		if err := readJSON(filepath.Join(dir, modelFile(key)), &b); err != nil {
			return nil, &esterr.ArtifactMissingError{Path: dir}
		}
		set.Models[key] = &b
	}
	if err := readJSON(filepath.Join(dir, schemaFile), &set.Schema); err != nil {
		return nil, &esterr.ArtifactMissingError{Path: dir}
	}
	if err := readJSON(filepath.Join(dir, metaFile), &set.Meta); err != nil {
		return nil, &esterr.ArtifactMissingError{Path: dir}
	}
	if err := readJSON(filepath.Join(dir, importanceFile), &set.Importance); err != nil {
		return nil, &esterr.ArtifactMissingError{Path: dir}
	}
	return set, nil
}

// LastDataHash returns the data hash of the current model set, or "" when no
// set exists. Train uses it to skip redundant retraining.
func (s *Store) LastDataHash() string {
	var meta TrainingMeta
	if err := readJSON(filepath.Join(s.ModelDir(), metaFile), &meta); err != nil {
		return ""
	}
	return meta.DataHash
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("artifact: encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("artifact: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("artifact: decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
