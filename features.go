/*
File: features.go
Version: 1.2.0
Description: Lexical feature extraction: URL string -> one-row feature table.
             Field order is part of the contract and matches the training datasets.
*/

package main

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Feature names. Spelling (Degits, Spacial) follows the dataset headers.
const (
	FieldURL                        = "URL"
	FieldURLLength                  = "URLLength"
	FieldDomain                     = "Domain"
	FieldDomainLength               = "DomainLength"
	FieldIsDomainIP                 = "IsDomainIP"
	FieldTLD                        = "TLD"
	FieldNoOfSubDomain              = "NoOfSubDomain"
	FieldURLSimilarityIndex         = "URLSimilarityIndex"
	FieldCharContinuationRate       = "CharContinuationRate"
	FieldTLDLegitimateProb          = "TLDLegitimateProb"
	FieldURLCharProb                = "URLCharProb"
	FieldTLDLength                  = "TLDLength"
	FieldHasObfuscation             = "HasObfuscation"
	FieldNoOfObfuscatedChar         = "NoOfObfuscatedChar"
	FieldObfuscationRatio           = "ObfuscationRatio"
	FieldNoOfLettersInURL           = "NoOfLettersInURL"
	FieldLetterRatioInURL           = "LetterRatioInURL"
	FieldNoOfDegitsInURL            = "NoOfDegitsInURL"
	FieldDegitRatioInURL            = "DegitRatioInURL"
	FieldNoOfEqualsInURL            = "NoOfEqualsInURL"
	FieldNoOfQMarkInURL             = "NoOfQMarkInURL"
	FieldNoOfAmpersandInURL         = "NoOfAmpersandInURL"
	FieldNoOfOtherSpecialCharsInURL = "NoOfOtherSpecialCharsInURL"
	FieldSpacialCharRatioInURL      = "SpacialCharRatioInURL"
	FieldIsHTTPS                    = "IsHTTPS"
)

// FeatureSchema is an ordered list of field names.
type FeatureSchema []string

func (s FeatureSchema) Contains(name string) bool {
	for _, n := range s {
		if n == name {
			return true
		}
	}
	return false
}

var lexicalFields = FeatureSchema{
	FieldURL, FieldURLLength, FieldDomain, FieldDomainLength, FieldIsDomainIP, FieldTLD,
	FieldNoOfSubDomain, FieldURLSimilarityIndex, FieldCharContinuationRate,
	FieldTLDLegitimateProb, FieldURLCharProb, FieldTLDLength, FieldHasObfuscation,
	FieldNoOfObfuscatedChar, FieldObfuscationRatio, FieldNoOfLettersInURL,
	FieldLetterRatioInURL, FieldNoOfDegitsInURL, FieldDegitRatioInURL, FieldNoOfEqualsInURL,
	FieldNoOfQMarkInURL, FieldNoOfAmpersandInURL, FieldNoOfOtherSpecialCharsInURL,
	FieldSpacialCharRatioInURL, FieldIsHTTPS,
}

// LexicalSchema returns the fields emitted by ExtractFeatures, in order.
func LexicalSchema() FeatureSchema {
	out := make(FeatureSchema, 0, len(lexicalFields)+len(placeholderFeatures))
	out = append(out, lexicalFields...)
	for _, p := range placeholderFeatures {
		out = append(out, p.Name)
	}
	return out
}

// AugmentedSchema is LexicalSchema followed by the augmenter columns.
func AugmentedSchema() FeatureSchema {
	return append(LexicalSchema(), augmentFields...)
}

var ipPattern = regexp.MustCompile(`^\p{Nd}{1,3}(\.\p{Nd}{1,3}){3}$`)

// IsIP reports whether domain is a dotted quad. Octet ranges are not checked.
func IsIP(domain string) bool {
	return ipPattern.MatchString(domain)
}

// urlCounts holds the per-character tallies shared by several features.
type urlCounts struct {
	length  int
	letters int
	digits  int
	other   int
	at      int
	equals  int
	qmarks  int
	amps    int
}

func countURL(url string) urlCounts {
	var c urlCounts
	for _, r := range url {
		c.length++
		switch {
		case isASCIILetter(r):
			c.letters++
		case isASCIIDigit(r):
			c.digits++
		default:
			c.other++
			if unicode.IsDigit(r) {
				c.digits++
			}
		}
		switch r {
		case '@':
			c.at++
		case '=':
			c.equals++
		case '?':
			c.qmarks++
		case '&':
			c.amps++
		}
	}
	return c
}

func tldOf(domain string) string {
	if i := strings.LastIndexByte(domain, '.'); i >= 0 {
		return domain[i+1:]
	}
	return domain
}

// ExtractFeatures derives the full lexical feature record for url. The result is a
// one-row table carrying every field of LexicalSchema.
func ExtractFeatures(url string) (*Table, error) {
	parts, err := splitURL(url)
	if err != nil {
		return nil, err
	}

	c := countURL(url)
	denom := float64(c.length + 1)
	domain := parts.Netloc
	tld := tldOf(domain)

	t := NewTable(1)
	num := func(name string, v float64) {
		_ = t.SetNumeric(name, []float64{v})
	}
	flag := func(name string, v bool) {
		_ = t.SetBool(name, []bool{v})
	}
	text := func(name, v string) {
		_ = t.SetText(name, []string{v})
	}

	text(FieldURL, url)
	num(FieldURLLength, float64(c.length))
	text(FieldDomain, domain)
	num(FieldDomainLength, float64(utf8.RuneCountInString(domain)))
	flag(FieldIsDomainIP, IsIP(domain))
	text(FieldTLD, tld)
	num(FieldNoOfSubDomain, float64(strings.Count(domain, ".")))
	num(FieldURLSimilarityIndex, placeholderURLSimilarityIndex)
	num(FieldCharContinuationRate, float64(utf8.RuneCountInString(parts.Path))/denom)
	num(FieldTLDLegitimateProb, placeholderTLDLegitimateProb)
	num(FieldURLCharProb, float64(c.letters)/denom)
	num(FieldTLDLength, float64(utf8.RuneCountInString(tld)))
	flag(FieldHasObfuscation, c.at > 0)
	num(FieldNoOfObfuscatedChar, float64(c.at))
	num(FieldObfuscationRatio, float64(c.at)/denom)
	num(FieldNoOfLettersInURL, float64(c.letters))
	num(FieldLetterRatioInURL, float64(c.letters)/denom)
	num(FieldNoOfDegitsInURL, float64(c.digits))
	num(FieldDegitRatioInURL, float64(c.digits)/denom)
	num(FieldNoOfEqualsInURL, float64(c.equals))
	num(FieldNoOfQMarkInURL, float64(c.qmarks))
	num(FieldNoOfAmpersandInURL, float64(c.amps))
	num(FieldNoOfOtherSpecialCharsInURL, float64(c.other))
	num(FieldSpacialCharRatioInURL, float64(c.other)/denom)
	if parts.Scheme == "https" {
		num(FieldIsHTTPS, 1)
	} else {
		num(FieldIsHTTPS, 0)
	}

	for _, p := range placeholderFeatures {
		if p.Kind == KindText {
			text(p.Name, p.Text)
			continue
		}
		num(p.Name, p.Num)
	}
	return t, nil
}
