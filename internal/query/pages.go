package query

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	pageRefPattern   = regexp.MustCompile(`(?i)(?:\bpages?|\bp\.|\bpg\.?)\s*(\d+(?:\s*(?:,|&|\band\b)\s*\d+)*)`)
	pageDigits       = regexp.MustCompile(`\d+`)
	fileNamePattern  = regexp.MustCompile(`(?i)\bwhat(?:'s|\s+is)\s+in\s+(.+)$`)
	fileNameTrimming = "\"'`?.!,; \t"
)

// ExtractPageNumbers returns the page numbers referenced in q, in first-seen
// order without duplicates. No reference yields an empty slice.
func ExtractPageNumbers(q string) []int {
	pages := []int{}
	seen := make(map[int]bool)
	for _, m := range pageRefPattern.FindAllStringSubmatch(q, -1) {
		for _, d := range pageDigits.FindAllString(m[1], -1) {
			n, err := strconv.Atoi(d)
			if err != nil || n <= 0 || seen[n] {
				continue
			}
			seen[n] = true
			pages = append(pages, n)
		}
	}
	return pages
}

// SpecificFileName returns X for questions shaped like "what is in X".
func SpecificFileName(q string) (string, bool) {
	m := fileNamePattern.FindStringSubmatch(strings.TrimSpace(q))
	if m == nil {
		return "", false
	}
	name := strings.Trim(m[1], fileNameTrimming)
	if name == "" {
		return "", false
	}
	return name, true
}
