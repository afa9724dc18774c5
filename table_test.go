package main

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestTableSetReplacesInPlace(t *testing.T) {
	tbl := NewTable(2)
	tbl.SetNumeric("a", []float64{1, 2})
	tbl.SetNumeric("b", []float64{3, 4})
	tbl.SetNumeric("a", []float64{5, 6})
	if !reflect.DeepEqual(tbl.Names(), []string{"a", "b"}) {
		t.Errorf("names = %v", tbl.Names())
	}
	c, _ := tbl.Column("a")
	if c.Num[0] != 5 {
		t.Errorf("a = %v", c.Num)
	}
	if err := tbl.SetNumeric("c", []float64{1}); err == nil {
		t.Error("short column accepted")
	}
}

func TestTableSelectReportsAllMissing(t *testing.T) {
	tbl := NewTable(1)
	tbl.SetNumeric("a", []float64{1})
	_, err := tbl.Select("op", []string{"x", "a", "y"})
	var se *SchemaError
	if !errors.As(err, &se) || !reflect.DeepEqual(se.Missing, []string{"x", "y"}) {
		t.Errorf("err = %v", err)
	}
}

func TestTableDropTakeMatrix(t *testing.T) {
	tbl := NewTable(3)
	tbl.SetText(FieldURL, []string{"u0", "u1", "u2"})
	tbl.SetNumeric("n", []float64{0, 1, 2})
	tbl.SetBool("b", []bool{true, false, true})

	if _, err := tbl.Matrix(); !errors.Is(err, ErrSchema) {
		t.Errorf("Matrix with text column: err = %v", err)
	}

	dropped := tbl.Drop(FieldURL, "unknown")
	if !reflect.DeepEqual(dropped.Names(), []string{"n", "b"}) {
		t.Errorf("Drop names = %v", dropped.Names())
	}
	if tbl.Width() != 3 {
		t.Error("Drop modified the source table")
	}

	taken := dropped.Take([]int{2, 0})
	m, err := taken.Matrix()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(m, [][]float64{{2, 1}, {0, 1}}) {
		t.Errorf("Matrix = %v", m)
	}

	if got := tbl.NumericOnly().Names(); !reflect.DeepEqual(got, []string{"n"}) {
		t.Errorf("NumericOnly = %v", got)
	}
}

func TestColumnFloat(t *testing.T) {
	text := &Column{Name: "t", Kind: KindText, Text: []string{"x"}}
	if !math.IsNaN(text.Float(0)) {
		t.Error("text Float is not NaN")
	}
	row := func() map[string]any {
		tbl := NewTable(1)
		tbl.SetBool("b", []bool{true})
		tbl.SetText("t", []string{"x"})
		return tbl.Row(0)
	}()
	if row["b"] != true || row["t"] != "x" {
		t.Errorf("Row = %v", row)
	}
}
