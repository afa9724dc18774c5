/*
File: metrics.go
Version: 1.0.0
Description: Classification metrics: accuracy and a per-class precision/recall/f1 report.
*/

package main

import (
	"fmt"
	"strings"
)

func AccuracyScore(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue))
}

type ClassMetrics struct {
	Label     string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

type ClassificationReport struct {
	Classes     []ClassMetrics
	Accuracy    float64
	MacroAvg    ClassMetrics
	WeightedAvg ClassMetrics
	Support     int
}

// NewClassificationReport computes per-class metrics. Undefined ratios (no
// predictions or no support for a class) are reported as 0.
func NewClassificationReport(yTrue, yPred []int, labels []string) *ClassificationReport {
	n := len(labels)
	tp := make([]int, n)
	predicted := make([]int, n)
	actual := make([]int, n)
	for i := range yTrue {
		actual[yTrue[i]]++
		predicted[yPred[i]]++
		if yTrue[i] == yPred[i] {
			tp[yTrue[i]]++
		}
	}

	r := &ClassificationReport{
		Accuracy: AccuracyScore(yTrue, yPred),
		Support:  len(yTrue),
	}
	r.MacroAvg.Label = "macro avg"
	r.WeightedAvg.Label = "weighted avg"

	for k, label := range labels {
		m := ClassMetrics{
			Label:     label,
			Precision: ratio(tp[k], predicted[k]),
			Recall:    ratio(tp[k], actual[k]),
			Support:   actual[k],
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.Classes = append(r.Classes, m)

		r.MacroAvg.Precision += m.Precision / float64(n)
		r.MacroAvg.Recall += m.Recall / float64(n)
		r.MacroAvg.F1 += m.F1 / float64(n)
		if r.Support > 0 {
			w := float64(m.Support) / float64(r.Support)
			r.WeightedAvg.Precision += m.Precision * w
			r.WeightedAvg.Recall += m.Recall * w
			r.WeightedAvg.F1 += m.F1 * w
		}
	}
	r.MacroAvg.Support = r.Support
	r.WeightedAvg.Support = r.Support
	return r
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// String renders the report as a fixed-width table with two decimals.
func (r *ClassificationReport) String() string {
	width := len("weighted avg")
	for _, c := range r.Classes {
		if len(c.Label) > width {
			width = len(c.Label)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%*s  %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	row := func(m ClassMetrics) {
		fmt.Fprintf(&sb, "%*s  %9.2f %9.2f %9.2f %9d\n", width, m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}
	for _, c := range r.Classes {
		row(c)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%*s  %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.Support)
	row(r.MacroAvg)
	row(r.WeightedAvg)
	return sb.String()
}
