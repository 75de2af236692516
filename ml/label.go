package ml

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// LabelEncoder maps string labels to indexes in sorted order, so the
// diagnoses B and M encode to 0 and 1.
type LabelEncoder struct {
	Classes []string
}

func (e *LabelEncoder) FitTransform(labels []string) ([]int, error) {
	if len(labels) == 0 {
		return nil, errors.New("labels is empty")
	}
	seen := make(map[string]struct{})
	for _, label := range labels {
		seen[label] = struct{}{}
	}
	e.Classes = make([]string, 0, len(seen))
	for label := range seen {
		e.Classes = append(e.Classes, label)
	}
	sort.Strings(e.Classes)

	index := make(map[string]int, len(e.Classes))
	for i, class := range e.Classes {
		index[class] = i
	}
	encoded := make([]int, len(labels))
	for i, label := range labels {
		encoded[i] = index[label]
	}
	return encoded, nil
}
