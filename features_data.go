/*
File: features_data.go
Version: 1.0.0
Description: Static data for the feature pipeline.
             Separated from features.go to keep the extraction logic readable.
*/

package main

// --- 1. Content placeholders ---
// Fixed stand-ins for signals that need the page itself (title, favicon, forms,
// resources). Pages are never fetched, so the values below are emitted verbatim for
// every URL. They must not change: a trained model was fitted against them.
type placeholderFeature struct {
	Name string
	Kind ColumnKind
	Num  float64
	Text string
}

var placeholderFeatures = []placeholderFeature{
	{Name: "LineOfCode", Num: 1000},
	{Name: "LargestLineLength", Num: 100},
	{Name: "HasTitle", Num: 1},
	{Name: "Title", Kind: KindText, Text: "Example Title"},
	{Name: "DomainTitleMatchScore", Num: 50.0},
	{Name: "URLTitleMatchScore", Num: 50.0},

	// Favicon, robots, responsiveness
	{Name: "HasFavicon", Num: 1},
	{Name: "Robots", Num: 1},
	{Name: "IsResponsive", Num: 1},

	// Redirects and pop-ups
	{Name: "NoOfURLRedirect", Num: 0},
	{Name: "NoOfSelfRedirect", Num: 0},
	{Name: "HasDescription", Num: 1},
	{Name: "NoOfPopup", Num: 0},
	{Name: "NoOfiFrame", Num: 0},

	// Forms and social networks
	{Name: "HasExternalFormSubmit", Num: 0},
	{Name: "HasSocialNet", Num: 1},
	{Name: "HasSubmitButton", Num: 1},
	{Name: "HasHiddenFields", Num: 0},
	{Name: "HasPasswordField", Num: 1},

	// Financial keywords
	{Name: "Bank", Num: 0},
	{Name: "Pay", Num: 0},
	{Name: "Crypto", Num: 0},

	// Copyright and resources
	{Name: "HasCopyrightInfo", Num: 1},
	{Name: "NoOfImage", Num: 5},
	{Name: "NoOfCSS", Num: 3},
	{Name: "NoOfJS", Num: 10},
	{Name: "NoOfSelfRef", Num: 5},
	{Name: "NoOfEmptyRef", Num: 0},
	{Name: "NoOfExternalRef", Num: 2},
}

// URLSimilarityIndex and TLDLegitimateProb sit between derived fields in the schema.
const (
	placeholderURLSimilarityIndex = 0.5
	placeholderTLDLegitimateProb  = 0.05
)

// --- 2. Augmenter vocabularies ---

var phishingKeywords = []string{"login", "bank", "secure", "account", "signin"}

const specialChars = "!@#$%^&*()"
