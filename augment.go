/*
File: augment.go
Version: 1.1.0
Description: Auxiliary features appended to any table carrying URL and Domain columns
             (a single extracted record or a whole dataset).
*/

package main

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	FieldEntropy          = "entropy"
	FieldHasKeyword       = "has_keyword"
	FieldNumericCharCount = "numeric_char_count"
	FieldSpecialCharCount = "special_char_count"
	FieldLongSubdomain    = "long_subdomain"
)

var augmentFields = FeatureSchema{
	FieldEntropy, FieldHasKeyword, FieldNumericCharCount, FieldSpecialCharCount, FieldLongSubdomain,
}

// URLEntropy is the natural-log Shannon entropy of the distinct-character count
// distribution of s. Counts are summed in sorted order so that any permutation of
// s yields the same bits.
func URLEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := make(map[rune]int)
	total := 0
	for _, r := range s {
		freq[r]++
		total++
	}
	counts := make([]int, 0, len(freq))
	for _, n := range freq {
		counts = append(counts, n)
	}
	sort.Ints(counts)

	var entropy float64
	for _, n := range counts {
		p := float64(n) / float64(total)
		entropy -= p * math.Log(p)
	}
	return entropy
}

func HasKeyword(url string) bool {
	lower := strings.ToLower(url)
	for _, kw := range phishingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func CountNumericChars(url string) int {
	n := 0
	for _, r := range url {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

func CountSpecialChars(url string) int {
	n := 0
	for _, r := range url {
		if strings.ContainsRune(specialChars, r) {
			n++
		}
	}
	return n
}

// HasLongSubdomain checks the third label from the right, e.g. "login" in
// login.example.com.
func HasLongSubdomain(domain string) bool {
	parts := strings.Split(domain, ".")
	if len(parts) <= 2 {
		return false
	}
	return utf8.RuneCountInString(parts[len(parts)-3]) > 5
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// AugmentFeatures appends the auxiliary columns to t. Existing columns are kept;
// running it twice recomputes the derived columns in place.
func AugmentFeatures(t *Table) error {
	urls, okURL := t.Column(FieldURL)
	domains, okDomain := t.Column(FieldDomain)
	var missing []string
	if !okURL {
		missing = append(missing, FieldURL)
	}
	if !okDomain {
		missing = append(missing, FieldDomain)
	}
	if len(missing) > 0 {
		return missingColumns("augment", missing...)
	}
	if urls.Kind != KindText || domains.Kind != KindText {
		return &SchemaError{Op: "augment", Missing: []string{FieldURL, FieldDomain}, Reason: "column must be text"}
	}

	n := t.Len()
	entropy := make([]float64, n)
	keyword := make([]float64, n)
	digits := make([]float64, n)
	special := make([]float64, n)
	longSub := make([]float64, n)

	for i := 0; i < n; i++ {
		u := urls.Text[i]
		entropy[i] = URLEntropy(u)
		keyword[i] = boolFloat(HasKeyword(u))
		digits[i] = float64(CountNumericChars(u))
		special[i] = float64(CountSpecialChars(u))
		longSub[i] = boolFloat(HasLongSubdomain(domains.Text[i]))
	}

	for _, col := range []*Column{
		{Name: FieldEntropy, Kind: KindNumeric, Num: entropy},
		{Name: FieldHasKeyword, Kind: KindNumeric, Num: keyword},
		{Name: FieldNumericCharCount, Kind: KindNumeric, Num: digits},
		{Name: FieldSpecialCharCount, Kind: KindNumeric, Num: special},
		{Name: FieldLongSubdomain, Kind: KindNumeric, Num: longSub},
	} {
		if err := t.Set(col); err != nil {
			return err
		}
	}
	return nil
}
