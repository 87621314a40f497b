package query

import (
	"regexp"
	"strings"
)

// SmartKeywords are the salient terms of a query.
type SmartKeywords struct {
	Entities []string `json:"entities"`
	Numbers  []string `json:"numbers"`
	Concepts []string `json:"concepts"`
	// All is Entities, Numbers and Concepts concatenated, duplicates kept.
	All []string `json:"all"`
}

var (
	entityPattern  = regexp.MustCompile(`\b[A-Z][\p{L}\d'&-]*(?:\s+[A-Z][\p{L}\d'&-]*)*`)
	numberPattern  = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	conceptPattern = regexp.MustCompile(`\b\p{L}{4,}\b`)
)

// ExtractSmartKeywords pulls capitalized runs, numeric literals and words of
// four or more letters out of q.
func ExtractSmartKeywords(q string) SmartKeywords {
	kw := SmartKeywords{
		Entities: entityPattern.FindAllString(q, -1),
		Numbers:  numberPattern.FindAllString(q, -1),
		Concepts: conceptPattern.FindAllString(q, -1),
	}
	for i, c := range kw.Concepts {
		kw.Concepts[i] = strings.ToLower(c)
	}
	kw.All = make([]string, 0, len(kw.Entities)+len(kw.Numbers)+len(kw.Concepts))
	kw.All = append(kw.All, kw.Entities...)
	kw.All = append(kw.All, kw.Numbers...)
	kw.All = append(kw.All, kw.Concepts...)
	return kw
}
