package ml

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const bundleFormat = "datalab-model/1"

// Bundle is the persisted form of a trained Manager slot.
type Bundle struct {
	Format    string
	Kind      Kind
	Params    Params
	Features  []string
	Classes   []string
	Model     Classifier
	CreatedAt time.Time
}

// Encode writes the held model as a gob bundle.
func (m *Manager) Encode(w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.model == nil {
		return ErrNotTrained
	}
	bundle := Bundle{
		Format:    bundleFormat,
		Kind:      m.kind,
		Params:    m.params,
		Features:  m.features,
		Classes:   m.classes,
		Model:     m.model,
		CreatedAt: time.Now().UTC(),
	}
	if err := gob.NewEncoder(w).Encode(&bundle); err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	return nil
}

// Decode replaces the held model with the bundle read from r. The split is
// cleared, so Evaluate needs a fresh PrepareData.
func (m *Manager) Decode(r io.Reader) error {
	var bundle Bundle
	if err := gob.NewDecoder(r).Decode(&bundle); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}
	if err := bundle.validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.kind = bundle.Kind
	m.params = bundle.Params
	m.model = bundle.Model
	m.features = bundle.Features
	m.classes = bundle.Classes
	m.split = nil
	return nil
}

func (b *Bundle) validate() error {
	if b.Format != bundleFormat {
		return fmt.Errorf("%w: unknown format %q", ErrCorruptArtifact, b.Format)
	}
	if !b.Kind.Valid() || b.Model == nil || len(b.Classes) == 0 {
		return fmt.Errorf("%w: missing kind, model or classes", ErrCorruptArtifact)
	}
	if kind, ok := kindOf(b.Model); !ok || kind != b.Kind {
		return fmt.Errorf("%w: model does not match kind %s", ErrCorruptArtifact, b.Kind)
	}
	return nil
}

// Save writes the bundle to path, creating parent directories.
func (m *Manager) Save(path string) error {
	if _, ok := m.Kind(); !ok {
		return ErrNotTrained
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.Encode(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Load reads a bundle written by Save.
func (m *Manager) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}
	defer file.Close()
	return m.Decode(file)
}
