// Package session holds per-client training state: a model manager and the
// preprocessing fitted alongside it.
package session

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"datalab/dataset"
	"datalab/ml"
)

// DefaultID is used when a request names no session.
const DefaultID = "default"

// Session is one isolated train/predict context. Callers hold Lock for the
// whole of a train, predict, save or load.
type Session struct {
	sync.Mutex

	ID           string
	Manager      *ml.Manager
	Preprocessor *dataset.Preprocessor
	TargetColumn string

	seed int64
}

func New(id string, seed int64) *Session {
	return &Session{
		ID:           id,
		Manager:      ml.NewManager(ml.WithSeed(seed)),
		Preprocessor: dataset.NewPreprocessor(),
		seed:         seed,
	}
}

// TrainRequest describes one training call.
type TrainRequest struct {
	Kind     ml.Kind
	Target   string
	TestSize float64
	Params   ml.Params
}

// TrainResult is what a successful Train produced.
type TrainResult struct {
	Split      *ml.Split
	Metrics    *ml.Metrics
	Importance []ml.FeatureImportance
	Rows       int
	Features   int
}

// Train preprocesses the table, splits, fits and evaluates. The session's
// manager and preprocessor are replaced only when every step succeeds.
func (s *Session) Train(table *dataset.Table, req TrainRequest) (*TrainResult, error) {
	pre := dataset.NewPreprocessor()
	features, err := pre.Preprocess(table, req.Target)
	if err != nil {
		return nil, err
	}
	mgr := ml.NewManager(ml.WithSeed(s.seed))
	split, err := mgr.PrepareData(ml.Matrix{Columns: features.Columns, Rows: features.Rows}, features.Target, req.TestSize)
	if err != nil {
		return nil, err
	}
	if err := mgr.Train(req.Kind, req.Params); err != nil {
		return nil, err
	}
	metrics, err := mgr.Evaluate()
	if err != nil {
		return nil, err
	}
	importance, err := mgr.FeatureImportance()
	if err != nil {
		return nil, err
	}

	s.Manager = mgr
	s.Preprocessor = pre
	s.TargetColumn = req.Target
	return &TrainResult{
		Split:      split,
		Metrics:    metrics,
		Importance: importance,
		Rows:       len(features.Rows),
		Features:   len(features.Columns),
	}, nil
}

// Predict encodes the table with the fitted preprocessing and predicts with
// the held model.
func (s *Session) Predict(table *dataset.Table) ([]string, error) {
	if _, ok := s.Manager.Kind(); !ok {
		return nil, ml.ErrNotTrained
	}
	if s.TargetColumn != "" {
		table = table.Drop(s.TargetColumn)
	}
	features, err := s.Preprocessor.Transform(table, s.Manager.Features())
	if err != nil {
		return nil, err
	}
	return s.Manager.Predict(ml.Matrix{Columns: features.Columns, Rows: features.Rows})
}

type archive struct {
	Model        []byte
	Prep         dataset.State
	TargetColumn string
}

// Encode writes the model bundle together with the preprocessing state.
func (s *Session) Encode(w io.Writer) error {
	var model bytes.Buffer
	if err := s.Manager.Encode(&model); err != nil {
		return err
	}
	a := archive{Model: model.Bytes(), Prep: s.Preprocessor.State(), TargetColumn: s.TargetColumn}
	if err := gob.NewEncoder(w).Encode(&a); err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return nil
}

// Decode restores a session written by Encode.
func (s *Session) Decode(r io.Reader) error {
	var a archive
	if err := gob.NewDecoder(r).Decode(&a); err != nil {
		return fmt.Errorf("%w: %v", ml.ErrCorruptArtifact, err)
	}
	mgr := ml.NewManager(ml.WithSeed(s.seed))
	if err := mgr.Decode(bytes.NewReader(a.Model)); err != nil {
		return err
	}
	s.Manager = mgr
	s.Preprocessor = dataset.RestorePreprocessor(a.Prep)
	s.TargetColumn = a.TargetColumn
	return nil
}

func (s *Session) Save(path string) error {
	if _, ok := s.Manager.Kind(); !ok {
		return ml.ErrNotTrained
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := s.Encode(file); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Session) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ml.ErrCorruptArtifact, err)
	}
	defer file.Close()
	return s.Decode(file)
}
