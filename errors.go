/*
File: errors.go
Version: 1.0.0
Description: Error taxonomy for the feature pipeline and the train/predict harness.
             Schema, malformed-input, numeric-precondition and persistence failures.
*/

package main

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSchema            = errors.New("schema error")
	ErrMalformedURL      = errors.New("malformed url")
	ErrNegativeFeature   = errors.New("input features must be non-negative")
	ErrInvalidFeature    = errors.New("input features contain NaN or infinity")
	ErrNoNumericFeatures = errors.New("no numeric feature columns")
	ErrPersistence       = errors.New("persistence error")
)

// SchemaError reports columns that are required but absent (or unusable) in a table.
type SchemaError struct {
	Op      string
	Missing []string
	Reason  string
}

func (e *SchemaError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "missing required column"
	}
	if len(e.Missing) == 0 {
		return fmt.Sprintf("%s: %s", e.Op, reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, reason, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// PersistenceError wraps failures reading or writing training artifacts.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("artifact %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func missingColumns(op string, names ...string) error {
	return &SchemaError{Op: op, Missing: names}
}
