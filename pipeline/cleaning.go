package pipeline

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"cancerscreen/ml"
)

// DroppedColumns are removed by name before training when present.
var DroppedColumns = []string{"Unnamed: 0", "id", "Unnamed: 32"}

const (
	DiagnosisMalignant = "M"
	DiagnosisBenign    = "B"
)

type TrainingSet struct {
	Columns  []string
	Features [][]float64
	Labels   []string
}

// ReadTrainingSet drops index and unlabeled columns, takes the first
// remaining column as the diagnosis and every other column as a feature.
// Blank header cells are named "Unnamed: <position>" so an unnamed index
// column is dropped like any other.
func ReadTrainingSet(r io.Reader) (*TrainingSet, error) {
	reader := OpenCSV(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("dataset is empty")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}

	var keep []int
	var columns []string
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if isDropped(name) {
			continue
		}
		keep = append(keep, i)
		columns = append(columns, name)
	}
	if len(keep) < 2 {
		return nil, errors.Newf("dataset needs a diagnosis and at least one feature column, got %v", columns)
	}

	set := &TrainingSet{Columns: columns}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read line %d", line)
		}
		if len(record) <= keep[len(keep)-1] {
			return nil, errors.Newf("line %d has %d fields, header has %d", line, len(record), len(header))
		}

		features := make([]float64, len(keep)-1)
		for j, idx := range keep[1:] {
			value, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d column %s", line, columns[j+1])
			}
			features[j] = value
		}
		set.Labels = append(set.Labels, strings.TrimSpace(record[keep[0]]))
		set.Features = append(set.Features, features)
	}
	if len(set.Features) == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return set, nil
}

func isDropped(name string) bool {
	for _, dropped := range DroppedColumns {
		if name == dropped {
			return true
		}
	}
	return false
}

// Row is one labeled case of the dataset.
type Row struct {
	ID        string
	Diagnosis string
	Features  []float64
}

type LoadStats struct {
	Rows       int
	Short      int
	Unparsable int
	Unlabeled  int
}

// LoadCases partitions the dataset into malignant and benign rows. Each row
// is laid out as id, diagnosis, then the features. Rows that are too short,
// whose features do not parse, or whose diagnosis is neither M nor B are
// skipped and counted in the stats.
func LoadCases(r io.Reader) (malignant, benign []Row, stats LoadStats, err error) {
	reader := OpenCSV(r)
	if _, err := reader.Read(); err == io.EOF {
		return nil, nil, stats, nil
	} else if err != nil {
		return nil, nil, stats, errors.Wrap(err, "read header")
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, stats, errors.Wrapf(err, "read row %d", stats.Rows+1)
		}
		stats.Rows++

		if len(record) < 2+ml.FeatureCount {
			stats.Short++
			continue
		}
		features, ok := parseFeatures(record[2 : 2+ml.FeatureCount])
		if !ok {
			stats.Unparsable++
			continue
		}

		row := Row{ID: record[0], Diagnosis: record[1], Features: features}
		switch row.Diagnosis {
		case DiagnosisMalignant:
			malignant = append(malignant, row)
		case DiagnosisBenign:
			benign = append(benign, row)
		default:
			stats.Unlabeled++
		}
	}
	return malignant, benign, stats, nil
}

func parseFeatures(fields []string) ([]float64, bool) {
	features := make([]float64, len(fields))
	for i, field := range fields {
		value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, false
		}
		features[i] = value
	}
	return features, true
}
