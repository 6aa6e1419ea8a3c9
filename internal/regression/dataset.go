package regression

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// DefaultTarget is the emission column of the training CSV
const DefaultTarget = "CarbonEmission"

// Dataset is a design matrix with its target
type Dataset struct {
	X *mat.Dense
	Y []float64
}

// ReadCSV loads the named feature columns (in the given order) and the target
// column from a CSV file with a header row.
func ReadCSV(path string, columns []string, target string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()
	return readCSV(f, columns, target)
}

func readCSV(r io.Reader, columns []string, target string) (*Dataset, error) {
	if target == "" {
		target = DefaultTarget
	}

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	featureIdx := make([]int, len(columns))
	for i, col := range columns {
		idx, ok := index[col]
		if !ok {
			return nil, fmt.Errorf("dataset is missing column %q", col)
		}
		featureIdx[i] = idx
	}
	targetIdx, ok := index[target]
	if !ok {
		return nil, fmt.Errorf("dataset is missing target column %q", target)
	}

	var data, y []float64
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		for j, idx := range featureIdx {
			v, err := parseCell(record[idx])
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, columns[j], err)
			}
			data = append(data, v)
		}
		v, err := parseCell(record[targetIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d target: %w", line, err)
		}
		y = append(y, v)
	}

	if len(y) == 0 {
		return nil, ErrEmptyDataset
	}
	return &Dataset{
		X: mat.NewDense(len(y), len(columns), data),
		Y: y,
	}, nil
}

// parseCell reads a numeric cell; booleans from one-hot exports count as 0/1
func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "true":
		return 1, nil
	case "false", "":
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
