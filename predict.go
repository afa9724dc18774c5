/*
File: predict.go
Version: 1.1.0
Description: Inference: URL -> lexical features -> augmentation -> selected columns ->
             forest vote. The Predictor is read-only after construction and safe for
             concurrent use.
*/

package main

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Prediction is the classification of one URL.
type Prediction struct {
	URL              string  `json:"url"`
	Label            string  `json:"label"`
	Phishing         bool    `json:"phishing"`
	Probability      float64 `json:"probability"`
	RegisteredDomain string  `json:"registered_domain,omitempty"`
}

type Predictor struct {
	model         *ModelArtifact
	features      SelectedFeatures
	phishingLabel string
}

// NewPredictor loads the selected-feature list and the model artifact named in cfg
// and checks that they belong together.
func NewPredictor(cfg *Config) (*Predictor, error) {
	features, err := LoadSelectedFeatures(cfg.Paths.SelectedFeatures)
	if err != nil {
		return nil, err
	}
	if err := features.Validate(AugmentedSchema()); err != nil {
		return nil, err
	}

	model, err := LoadModel(cfg.Paths.Model)
	if err != nil {
		return nil, err
	}
	if !features.Equal(model.Features) {
		return nil, &SchemaError{
			Op:      "load model",
			Missing: diffNames(model.Features, features),
			Reason:  "model was trained on a different feature list",
		}
	}

	LogInfo("[PREDICT] Loaded model run %s (%d trees, %d features, classes %v)",
		model.RunID, len(model.Forest.Trees), len(features), model.Classes)
	return newPredictor(model, features, cfg.Dataset.PhishingLabel), nil
}

func newPredictor(model *ModelArtifact, features SelectedFeatures, phishingLabel string) *Predictor {
	return &Predictor{model: model, features: features, phishingLabel: phishingLabel}
}

func (p *Predictor) Model() *ModelArtifact { return p.model }

// Features builds the model input row for url.
func (p *Predictor) Features(url string) ([]float64, error) {
	t, err := ExtractFeatures(url)
	if err != nil {
		return nil, err
	}
	if err := AugmentFeatures(t); err != nil {
		return nil, err
	}
	rows, err := p.features.Apply(t.Drop(FieldURL))
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

func (p *Predictor) Predict(url string) (*Prediction, error) {
	row, err := p.Features(url)
	if err != nil {
		return nil, err
	}
	proba := p.model.Forest.PredictProba(row)
	k := argmax(proba)
	label := p.model.Classes[k]

	pred := &Prediction{
		URL:         url,
		Label:       label,
		Phishing:    label == p.phishingLabel,
		Probability: proba[k],
	}
	if parts, err := splitURL(url); err == nil {
		pred.RegisteredDomain = registeredDomain(parts.Netloc)
	}
	if IsDebugEnabled() {
		LogDebug("[PREDICT] %s -> %s (p=%.3f)", url, label, proba[k])
	}
	return pred, nil
}

// BatchResult pairs a URL with its prediction or the error that prevented one.
type BatchResult struct {
	URL        string
	Prediction *Prediction
	Err        error
}

// PredictBatch classifies urls in order. A failing URL is reported in its result
// and does not stop the batch; cancelling ctx does.
func (p *Predictor) PredictBatch(ctx context.Context, urls []string) ([]BatchResult, error) {
	out := make([]BatchResult, 0, len(urls))
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		pred, err := p.Predict(u)
		out = append(out, BatchResult{URL: u, Prediction: pred, Err: err})
	}
	return out, nil
}

// registeredDomain returns the eTLD+1 of the host in netloc, or "" when the host
// is an IP address or has no registrable part.
func registeredDomain(netloc string) string {
	host := strings.ToLower(hostFromNetloc(netloc))
	if host == "" || IsIP(host) || strings.HasPrefix(host, "[") {
		return ""
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(strings.TrimSuffix(host, "."))
	if err != nil {
		return ""
	}
	return d
}

// diffNames lists the names present in only one of a and b.
func diffNames(a, b []string) []string {
	in := func(list []string, s string) bool {
		for _, v := range list {
			if v == s {
				return true
			}
		}
		return false
	}
	var out []string
	for _, s := range a {
		if !in(b, s) {
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !in(a, s) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = []string{fmt.Sprintf("order differs: %v", b)}
	}
	return out
}
