package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/taskdesk/eligibility-service/internal/rules"
)

// LoadCSV reads a csv roster. The first row must be a header; rows with a
// malformed id are skipped rather than failing the whole load.
func LoadCSV(path string) ([]rules.Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening roster: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading roster header: %w", err)
	}
	idx, err := columnIndexes(header)
	if err != nil {
		return nil, err
	}

	var candidates []rules.Candidate
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading roster row: %w", err)
		}

		c, err := candidateFromRow(row, idx)
		if err != nil {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}
