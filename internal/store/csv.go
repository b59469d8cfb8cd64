package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mlawson/shepard/internal/model"
)

// ImportStats reports what a CSV import loaded and skipped
type ImportStats struct {
	Imported int
	Skipped  int
}

// csvRows reads a headered CSV file and yields each row as a
// column-name map. Short rows are padded with empty strings.
func csvRows(path string, fn func(row map[string]string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", path, err)
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// ImportOpinionsCSV loads opinions from a CSV with columns
// id, case_name, plain_text. Rows without a valid id are skipped.
func (s *SQLite) ImportOpinionsCSV(ctx context.Context, path string) (ImportStats, error) {
	var stats ImportStats
	err := csvRows(path, func(row map[string]string) error {
		id, err := strconv.ParseInt(row["id"], 10, 64)
		if err != nil || id <= 0 {
			stats.Skipped++
			return nil
		}
		if err := s.AddOpinion(ctx, id, row["case_name"], row["plain_text"]); err != nil {
			return fmt.Errorf("opinion %d: %w", id, err)
		}
		stats.Imported++
		return nil
	})
	return stats, err
}

// ImportCitationsCSV loads citation edges from a CSV with columns
// citing_opinion_id, cited_opinion_id. Edges are grouped per citing
// opinion so file order becomes the graph-store ordering.
func (s *SQLite) ImportCitationsCSV(ctx context.Context, path string) (ImportStats, error) {
	var stats ImportStats
	edges := make(map[int64][]int64)
	var citingOrder []int64

	err := csvRows(path, func(row map[string]string) error {
		citing, err1 := strconv.ParseInt(row["citing_opinion_id"], 10, 64)
		cited, err2 := strconv.ParseInt(row["cited_opinion_id"], 10, 64)
		if err1 != nil || err2 != nil || citing <= 0 || cited <= 0 {
			stats.Skipped++
			return nil
		}
		if _, seen := edges[citing]; !seen {
			citingOrder = append(citingOrder, citing)
		}
		edges[citing] = append(edges[citing], cited)
		stats.Imported++
		return nil
	})
	if err != nil {
		return stats, err
	}

	for _, citing := range citingOrder {
		if err := s.AddCitations(ctx, citing, edges[citing]); err != nil {
			return stats, fmt.Errorf("citations for %d: %w", citing, err)
		}
	}
	return stats, nil
}

// ImportParentheticalsCSV loads parentheticals from a CSV with columns
// described_opinion_id, describing_opinion_id, text.
func (s *SQLite) ImportParentheticalsCSV(ctx context.Context, path string) (ImportStats, error) {
	var stats ImportStats
	err := csvRows(path, func(row map[string]string) error {
		described, err1 := strconv.ParseInt(row["described_opinion_id"], 10, 64)
		describing, err2 := strconv.ParseInt(row["describing_opinion_id"], 10, 64)
		if err1 != nil || err2 != nil || row["text"] == "" {
			stats.Skipped++
			return nil
		}
		p := model.Parenthetical{
			Text:         row["text"],
			DescribedID:  described,
			DescribingID: describing,
		}
		if err := s.AddParenthetical(ctx, p); err != nil {
			return fmt.Errorf("parenthetical for %d: %w", described, err)
		}
		stats.Imported++
		return nil
	})
	return stats, err
}
