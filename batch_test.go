package main

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestReadURLs(t *testing.T) {
	in := "https://a.example\n\n   \n# comment\n  http://b.example  \r\nhttp://c.example\r\n"
	got, err := ReadURLs(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"https://a.example", "  http://b.example  ", "http://c.example"}) {
		t.Errorf("ReadURLs = %v", got)
	}

	path := filepath.Join(t.TempDir(), "empty.txt")
	os.WriteFile(path, []byte("\n# nothing\n"), 0644)
	if _, err := ReadURLsFromFile(path); err == nil {
		t.Error("empty URL file accepted")
	}
}

func TestCSVWriterResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "predictions.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	results := []BatchResult{
		{URL: "https://a.example", Prediction: &Prediction{Label: "1", Probability: 0.875, RegisteredDomain: "a.example"}},
		{URL: "http://[x", Err: errors.New("malformed url")},
	}
	if err := w.WriteResults(results); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		batchHeader,
		{"https://a.example", "1", "false", "0.8750", "a.example", ""},
		{"http://[x", "", "", "", "", "malformed url"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v", rows)
	}
}
