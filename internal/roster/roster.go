// Package roster loads candidate rosters from exported files so operators
// can dry-run a rule set offline, without touching the user service or any
// backend. Supported formats: csv and xlsx.
package roster

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/taskdesk/eligibility-service/internal/rules"
)

// Expected columns. Header matching is diacritics- and case-insensitive so
// rosters exported by HR tooling in different locales load unchanged.
const (
	colID         = "id"
	colDepartment = "department"
	colExperience = "experience_years"
	colActive     = "active_task_count"
)

// Load reads a roster file, dispatching on extension.
func Load(path string) ([]rules.Candidate, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".xlsx", ".xls":
		return LoadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported roster format %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

// columnIndexes maps the expected columns onto header positions. Unknown
// columns are ignored; missing required columns are an error.
func columnIndexes(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[normalizeHeader(h)] = i
	}

	for _, col := range []string{colID, colDepartment, colExperience, colActive} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("roster is missing required column %q", col)
		}
	}
	return idx, nil
}

// candidateFromRow builds one candidate from a data row. Rows with a
// non-integer id are rejected; malformed numeric cells degrade to zero the
// way an absent value would.
func candidateFromRow(row []string, idx map[string]int) (rules.Candidate, error) {
	cell := func(col string) string {
		i := idx[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	id, err := strconv.Atoi(cell(colID))
	if err != nil {
		return rules.Candidate{}, fmt.Errorf("invalid candidate id %q", cell(colID))
	}

	exp, _ := strconv.Atoi(cell(colExperience))
	active, _ := strconv.Atoi(cell(colActive))
	if exp < 0 {
		exp = 0
	}
	if active < 0 {
		active = 0
	}

	return rules.Candidate{
		ID:              id,
		Department:      cell(colDepartment),
		ExperienceYears: exp,
		ActiveTaskCount: active,
	}, nil
}

// normalizeHeader lowercases a header cell, strips diacritics and collapses
// separators to underscores, so "Experience Years" and "experience_years"
// match the same column.
func normalizeHeader(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	normalized, _, _ := transform.String(t, strings.TrimSpace(s))
	normalized = strings.ToLower(normalized)
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	return normalized
}
