package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunPredictPrompts(t *testing.T) {
	cfg, _ := trainFixture(t)
	var out bytes.Buffer
	url := legitURL(1)
	if err := runPredict(cfg, nil, strings.NewReader(url+"\n"), &out); err != nil {
		t.Fatal(err)
	}
	want := "Prediction for URL '" + url + "': 1\n"
	if !strings.HasSuffix(out.String(), want) {
		t.Errorf("output = %q, want suffix %q", out.String(), want)
	}
}

func TestRunPredictFlag(t *testing.T) {
	cfg, _ := trainFixture(t)
	var out bytes.Buffer
	url := phishURL(3)
	if err := runPredict(cfg, []string{"-url", url}, strings.NewReader(""), &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "Prediction for URL '"+url+"': 0\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestFormatScores(t *testing.T) {
	if got := formatScores([]float64{1, 0.5}); got != "[1.00000000 0.50000000]" {
		t.Errorf("formatScores = %q", got)
	}
}
