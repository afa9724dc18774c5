/*
File: feature_list.go
Version: 1.1.0
Description: The selected-feature list: persisted one name per line at training time and
             applied verbatim at inference to pick and order the classifier inputs.
*/

package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// SelectedFeatures is the ordered list of column names the model was fitted on.
type SelectedFeatures []string

// Save writes the names joined by newlines, without a trailing newline.
func (s SelectedFeatures) Save(path string) error {
	if err := writeFileAtomic(path, s.encode()); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	return nil
}

func (s SelectedFeatures) encode() []byte {
	return []byte(strings.Join(s, "\n"))
}

func LoadSelectedFeatures(path string) (SelectedFeatures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PersistenceError{Path: path, Err: err}
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil, &PersistenceError{Path: path, Err: errors.New("selected feature list is empty")}
	}
	return SelectedFeatures(strings.Split(text, "\n")), nil
}

// Validate rejects names the schema cannot produce.
func (s SelectedFeatures) Validate(schema FeatureSchema) error {
	var missing []string
	for _, name := range s {
		if !schema.Contains(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Op: "validate features", Missing: missing, Reason: "unknown feature"}
	}
	return nil
}

// Equal reports whether both lists name the same columns in the same order.
func (s SelectedFeatures) Equal(other []string) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Apply subsets and reorders t to the selected columns and returns its rows as
// classifier input.
func (s SelectedFeatures) Apply(t *Table) ([][]float64, error) {
	sub, err := t.Select("apply features", s)
	if err != nil {
		return nil, err
	}
	return sub.Matrix()
}

// pendingFile is an artifact staged for writeFilesAtomic.
type pendingFile struct {
	path string
	data []byte
}

// writeFileAtomic writes through a temp file in the target directory and renames it
// into place, so readers never observe a partial artifact.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := stageFile(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// writeFilesAtomic stages every file first and renames them into place only once all
// of them were written. A failed write leaves every target untouched.
func writeFilesAtomic(files ...pendingFile) error {
	tmps := make([]string, len(files))
	cleanup := func() {
		for _, tmp := range tmps {
			if tmp != "" {
				os.Remove(tmp)
			}
		}
	}
	for i, f := range files {
		tmp, err := stageFile(f.path, f.data)
		if err != nil {
			cleanup()
			return &PersistenceError{Path: f.path, Err: err}
		}
		tmps[i] = tmp
	}
	for i, f := range files {
		if err := os.Rename(tmps[i], f.path); err != nil {
			cleanup()
			return &PersistenceError{Path: f.path, Err: err}
		}
		tmps[i] = ""
	}
	return nil
}

// stageFile writes data to a temp file next to path and returns its name.
func stageFile(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	return tmpName, nil
}
