/*
File: dataset.go
Version: 2.0.0
Description: Loading labelled URL datasets from delimited text, with column kind inference,
             an optional gob disk cache of parsed datasets, and the train/test split.
*/

package main

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Dataset is a feature table plus one raw label per row.
type Dataset struct {
	Features *Table
	Labels   []string
	Source   string
}

func (d *Dataset) Len() int { return len(d.Labels) }

// LoadDataset reads the dataset at path. When cacheDir is set, a parsed copy keyed
// by path, size and modification time is reused across runs.
func LoadDataset(path string, cfg DatasetConfig) (*Dataset, error) {
	start := time.Now()
	info, err := os.Stat(path)
	if err != nil {
		return nil, &PersistenceError{Path: path, Err: err}
	}

	cacheKey := fmt.Sprintf("%s|%d|%d|%s|%s", path, info.Size(), info.ModTime().UnixNano(), cfg.LabelColumn, cfg.Delimiter)
	if cfg.CacheDir != "" {
		if ds := loadDatasetCache(cfg.CacheDir, cacheKey); ds != nil {
			LogInfo("[DATASET] Loaded %d rows x %d columns from cache (%v)", ds.Len(), ds.Features.Width(), time.Since(start))
			return ds, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &PersistenceError{Path: path, Err: err}
	}
	defer f.Close()

	ds, err := ParseDataset(f, cfg)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	ds.Source = path

	if cfg.CacheDir != "" {
		if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
			LogWarn("[DATASET] Failed to create cache dir %s: %v", cfg.CacheDir, err)
		} else {
			saveDatasetCache(cfg.CacheDir, cacheKey, ds)
		}
	}

	LogInfo("[DATASET] Data loaded. Shape: (%d, %d) in %v", ds.Len(), ds.Features.Width()+1, time.Since(start))
	return ds, nil
}

// ParseDataset reads a header row and records, infers column kinds and splits off
// the label column.
func ParseDataset(r io.Reader, cfg DatasetConfig) (*Dataset, error) {
	reader := csv.NewReader(r)
	if cfg.Delimiter != "" {
		d, _ := utf8.DecodeRuneInString(cfg.Delimiter)
		reader.Comma = d
	}

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty dataset")
		}
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	labelIdx := -1
	for i, h := range header {
		if h == cfg.LabelColumn {
			labelIdx = i
			break
		}
	}
	if labelIdx < 0 {
		return nil, missingColumns("load dataset", cfg.LabelColumn)
	}

	cells := make([][]string, len(header))
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for i, v := range rec {
			cells[i] = append(cells[i], v)
		}
	}

	rows := len(cells[labelIdx])
	t := NewTable(rows)
	for i, name := range header {
		if i == labelIdx {
			continue
		}
		if err := t.Set(inferColumn(name, cells[i])); err != nil {
			return nil, err
		}
	}
	return &Dataset{Features: t, Labels: cells[labelIdx]}, nil
}

// inferColumn: all cells numeric (empty -> NaN) gives a numeric column, all cells
// True/False a bool column, anything else text.
func inferColumn(name string, vals []string) *Column {
	num := make([]float64, len(vals))
	isNumeric := true
	for i, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			num[i] = math.NaN()
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			isNumeric = false
			break
		}
		num[i] = f
	}
	if isNumeric {
		return &Column{Name: name, Kind: KindNumeric, Num: num}
	}

	isBool := len(vals) > 0
	for i, v := range vals {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			num[i] = 1
		case "false":
			num[i] = 0
		default:
			isBool = false
		}
		if !isBool {
			break
		}
	}
	if isBool {
		return &Column{Name: name, Kind: KindBool, Num: num}
	}
	return &Column{Name: name, Kind: KindText, Text: vals}
}

// TrainTestSplit shuffles 0..n-1 with seed and returns (train, test) indices with
// ceil(n*testSize) test rows.
func TrainTestSplit(n int, testSize float64, seed uint64) ([]int, []int, error) {
	nTest := int(math.Ceil(float64(n) * testSize))
	nTrain := n - nTest
	if nTest <= 0 || nTrain <= 0 {
		return nil, nil, fmt.Errorf("cannot split %d rows with test_size=%v", n, testSize)
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// --- Disk Cache Logic ---

func getDatasetCacheFilename(cacheDir, key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(cacheDir, "dataset_"+hex.EncodeToString(hash[:])+".gob")
}

func loadDatasetCache(cacheDir, key string) *Dataset {
	filename := getDatasetCacheFilename(cacheDir, key)
	f, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer f.Close()

	var ds Dataset
	if err := gob.NewDecoder(f).Decode(&ds); err != nil || ds.Features == nil {
		LogWarn("[DATASET] Discarding unreadable cache %s: %v", filename, err)
		os.Remove(filename)
		return nil
	}
	ds.Features.reindex()
	return &ds
}

func saveDatasetCache(cacheDir, key string, ds *Dataset) {
	filename := getDatasetCacheFilename(cacheDir, key)
	tmpFile, err := os.CreateTemp(cacheDir, "tmp_dataset_*")
	if err != nil {
		LogWarn("[DATASET] Failed to create cache file: %v", err)
		return
	}

	if err := gob.NewEncoder(tmpFile).Encode(ds); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		LogWarn("[DATASET] Failed to encode cache: %v", err)
		return
	}
	tmpFile.Close()
	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		os.Remove(tmpFile.Name())
		LogWarn("[DATASET] Failed to store cache: %v", err)
	}
}
