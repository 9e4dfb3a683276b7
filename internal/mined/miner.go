// Package mined extracts date-like values from unstructured text. It is
// the free-text mining collaborator behind layer date enrichment.
package mined

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	isoDateRe = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	yearRe    = regexp.MustCompile(`\b([12]\d{3})\b`)
)

// Miner implements harvest.DateMiner over a pair of regular expressions.
type Miner struct{}

// New constructs a Miner.
func New() *Miner {
	return &Miner{}
}

// Mine returns the dates found in text as ISO YYYY-MM-DD strings: explicit
// dates verbatim, bare years anchored to January 1st. Results are
// deduplicated in order of first appearance.
func (m *Miner) Mine(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(date string) {
		if _, ok := seen[date]; ok {
			return
		}
		seen[date] = struct{}{}
		out = append(out, date)
	}

	coveredYears := make(map[string]struct{})
	for _, match := range isoDateRe.FindAllStringSubmatch(text, -1) {
		month, _ := strconv.Atoi(match[2])
		day, _ := strconv.Atoi(match[3])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}
		add(match[0])
		coveredYears[match[1]] = struct{}{}
	}
	for _, year := range yearRe.FindAllString(text, -1) {
		if _, ok := coveredYears[year]; ok {
			continue
		}
		add(fmt.Sprintf("%s-01-01", year))
	}
	return out
}
