/*
File: batch.go
Version: 1.0.0
Description: Batch classification I/O: URL list input (one per line) and CSV output.
*/

package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var batchHeader = []string{"url", "label", "phishing", "probability", "registered_domain", "error"}

// ReadURLs reads one URL per line. Only the line ending is stripped, so a URL keeps
// the exact characters its features are computed over. Blank lines and lines
// starting with '#' are skipped.
func ReadURLs(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading urls: %w", err)
	}
	return urls, nil
}

func ReadURLsFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer f.Close()

	urls, err := ReadURLs(f)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%s contained no URLs", path)
	}
	return urls, nil
}

// CSVWriter wraps csv.Writer around an output file.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the file at path.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV file: %w", err)
	}
	return &CSVWriter{file: file, writer: csv.NewWriter(file)}, nil
}

func (cw *CSVWriter) WriteRow(row []string) error {
	return cw.writer.Write(row)
}

// Close flushes buffered rows and closes the file, reporting the flush error first.
func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	flushErr := cw.writer.Error()
	closeErr := cw.file.Close()

	if flushErr != nil {
		return fmt.Errorf("error flushing CSV writer: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("error closing CSV file: %w", closeErr)
	}
	return nil
}

// WriteResults writes the header and one row per result.
func (cw *CSVWriter) WriteResults(results []BatchResult) error {
	if err := cw.WriteRow(batchHeader); err != nil {
		return err
	}
	for _, r := range results {
		if err := cw.WriteRow(batchRow(r)); err != nil {
			return err
		}
	}
	return nil
}

func batchRow(r BatchResult) []string {
	if r.Err != nil {
		return []string{r.URL, "", "", "", "", r.Err.Error()}
	}
	p := r.Prediction
	return []string{
		r.URL,
		p.Label,
		strconv.FormatBool(p.Phishing),
		strconv.FormatFloat(p.Probability, 'f', 4, 64),
		p.RegisteredDomain,
		"",
	}
}
