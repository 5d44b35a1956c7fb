package roster

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/taskdesk/eligibility-service/internal/rules"
)

// LoadXLSX reads an xlsx roster from the first sheet. The first row must be
// a header; rows with a malformed id are skipped.
func LoadXLSX(path string) ([]rules.Candidate, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("error opening roster: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("roster workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("error reading roster sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("roster sheet is empty")
	}

	idx, err := columnIndexes(rows[0])
	if err != nil {
		return nil, err
	}

	var candidates []rules.Candidate
	for _, row := range rows[1:] {
		c, err := candidateFromRow(row, idx)
		if err != nil {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}
