/*
File: model.go
Version: 1.2.0
Description: Persisted model artifact: the fitted forest plus the metadata needed to use it
             (feature order, class labels, training run id and scores). Gob encoded and
             written atomically.
*/

package main

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

const modelFormatVersion = 1

type ModelArtifact struct {
	Version      int
	RunID        string
	TrainedAt    time.Time
	Features     []string
	Classes      []string
	Params       ForestParams
	Forest       *RandomForest
	TestAccuracy float64
	CVScores     []float64
}

func NewModelArtifact(forest *RandomForest, features SelectedFeatures, classes []string) *ModelArtifact {
	return &ModelArtifact{
		Version:   modelFormatVersion,
		RunID:     uuid.NewString(),
		TrainedAt: time.Now().UTC(),
		Features:  append([]string(nil), features...),
		Classes:   append([]string(nil), classes...),
		Params:    forest.Params,
		Forest:    forest,
	}
}

func (m *ModelArtifact) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *ModelArtifact) Save(path string) error {
	data, err := m.encode()
	if err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	return nil
}

// SaveArtifacts writes the model and its selected-feature list as a pair: neither
// file is replaced unless both were written.
func SaveArtifacts(modelPath, featuresPath string, m *ModelArtifact, features SelectedFeatures) error {
	data, err := m.encode()
	if err != nil {
		return &PersistenceError{Path: modelPath, Err: err}
	}
	return writeFilesAtomic(
		pendingFile{path: modelPath, data: data},
		pendingFile{path: featuresPath, data: features.encode()},
	)
}

// LoadModel reads and sanity-checks a model artifact.
func LoadModel(path string) (*ModelArtifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &PersistenceError{Path: path, Err: err}
	}
	defer f.Close()

	var m ModelArtifact
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return nil, &PersistenceError{Path: path, Err: fmt.Errorf("decode model: %w", err)}
	}
	if m.Version != modelFormatVersion {
		return nil, &PersistenceError{Path: path, Err: fmt.Errorf("unsupported model format version %d", m.Version)}
	}
	if m.Forest == nil || len(m.Forest.Trees) == 0 {
		return nil, &PersistenceError{Path: path, Err: fmt.Errorf("model has no trees")}
	}
	if m.Forest.NFeatures != len(m.Features) || m.Forest.NClasses != len(m.Classes) {
		return nil, &PersistenceError{Path: path, Err: fmt.Errorf("model metadata does not match forest shape")}
	}
	return &m, nil
}
