/*
File: table.go
Version: 1.1.0
Description: Column-oriented table used as the feature record and dataset container.
             Numeric, boolean (stored as 0/1) and text columns in a fixed order.
*/

package main

import (
	"fmt"
	"math"
)

type ColumnKind uint8

const (
	KindNumeric ColumnKind = iota
	KindBool
	KindText
)

func (k ColumnKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Column holds one named field for every row. Numeric and bool columns use Num,
// text columns use Text.
type Column struct {
	Name string
	Kind ColumnKind
	Num  []float64
	Text []string
}

func (c *Column) Len() int {
	if c.Kind == KindText {
		return len(c.Text)
	}
	return len(c.Num)
}

// Float returns the numeric value of row i. Bools are 0/1, text is NaN.
func (c *Column) Float(i int) float64 {
	if c.Kind == KindText {
		return math.NaN()
	}
	return c.Num[i]
}

func (c *Column) take(idx []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == KindText {
		out.Text = make([]string, len(idx))
		for i, j := range idx {
			out.Text[i] = c.Text[j]
		}
		return out
	}
	out.Num = make([]float64, len(idx))
	for i, j := range idx {
		out.Num[i] = c.Num[j]
	}
	return out
}

// Table is an ordered set of equally sized columns.
type Table struct {
	Columns []*Column
	NRows   int

	index map[string]int
}

func NewTable(rows int) *Table {
	return &Table{NRows: rows, index: make(map[string]int)}
}

func (t *Table) Len() int { return t.NRows }

func (t *Table) Width() int { return len(t.Columns) }

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c.Name] = i
	}
}

func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

func (t *Table) Has(name string) bool {
	_, ok := t.Column(name)
	return ok
}

func (t *Table) Column(name string) (*Column, bool) {
	if t.index == nil {
		t.reindex()
	}
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.Columns[i], true
}

// Set appends the column, or replaces an existing column of the same name in place.
func (t *Table) Set(c *Column) error {
	if c.Len() != t.NRows {
		return fmt.Errorf("column %s has %d rows, table has %d", c.Name, c.Len(), t.NRows)
	}
	if t.index == nil {
		t.reindex()
	}
	if i, ok := t.index[c.Name]; ok {
		t.Columns[i] = c
		return nil
	}
	t.index[c.Name] = len(t.Columns)
	t.Columns = append(t.Columns, c)
	return nil
}

func (t *Table) SetNumeric(name string, vals []float64) error {
	return t.Set(&Column{Name: name, Kind: KindNumeric, Num: vals})
}

func (t *Table) SetBool(name string, vals []bool) error {
	num := make([]float64, len(vals))
	for i, v := range vals {
		if v {
			num[i] = 1
		}
	}
	return t.Set(&Column{Name: name, Kind: KindBool, Num: num})
}

func (t *Table) SetText(name string, vals []string) error {
	return t.Set(&Column{Name: name, Kind: KindText, Text: vals})
}

// Drop returns a table without the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) *Table {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	out := NewTable(t.NRows)
	for _, c := range t.Columns {
		if _, ok := skip[c.Name]; ok {
			continue
		}
		out.index[c.Name] = len(out.Columns)
		out.Columns = append(out.Columns, c)
	}
	return out
}

// Select returns the named columns in the given order. Every missing name is
// reported in a single SchemaError.
func (t *Table) Select(op string, names []string) (*Table, error) {
	out := NewTable(t.NRows)
	var missing []string
	for _, n := range names {
		c, ok := t.Column(n)
		if !ok {
			missing = append(missing, n)
			continue
		}
		out.index[n] = len(out.Columns)
		out.Columns = append(out.Columns, c)
	}
	if len(missing) > 0 {
		return nil, missingColumns(op, missing...)
	}
	return out, nil
}

// NumericOnly keeps numeric columns, dropping bool and text columns.
func (t *Table) NumericOnly() *Table {
	out := NewTable(t.NRows)
	for _, c := range t.Columns {
		if c.Kind != KindNumeric {
			continue
		}
		out.index[c.Name] = len(out.Columns)
		out.Columns = append(out.Columns, c)
	}
	return out
}

// Take returns the rows at idx, in that order.
func (t *Table) Take(idx []int) *Table {
	out := NewTable(len(idx))
	for _, c := range t.Columns {
		out.index[c.Name] = len(out.Columns)
		out.Columns = append(out.Columns, c.take(idx))
	}
	return out
}

// Matrix converts the table to row-major float rows. Text columns cannot be fed
// to the classifier and are reported as a schema error.
func (t *Table) Matrix() ([][]float64, error) {
	var text []string
	for _, c := range t.Columns {
		if c.Kind == KindText {
			text = append(text, c.Name)
		}
	}
	if len(text) > 0 {
		return nil, &SchemaError{Op: "matrix", Missing: text, Reason: "non-numeric column"}
	}
	rows := make([][]float64, t.NRows)
	for i := range rows {
		row := make([]float64, len(t.Columns))
		for j, c := range t.Columns {
			row[j] = c.Num[i]
		}
		rows[i] = row
	}
	return rows, nil
}

// Row returns a name -> value view of row i, mostly for logging.
func (t *Table) Row(i int) map[string]any {
	out := make(map[string]any, len(t.Columns))
	for _, c := range t.Columns {
		switch c.Kind {
		case KindText:
			out[c.Name] = c.Text[i]
		case KindBool:
			out[c.Name] = c.Num[i] != 0
		default:
			out[c.Name] = c.Num[i]
		}
	}
	return out
}
