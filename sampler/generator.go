// Package sampler writes single-patient feature files drawn from the labeled
// dataset, for feeding the prediction endpoint by hand.
package sampler

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"cancerscreen/pipeline"
)

var ErrEmptyDataset = errors.New("Failed to load data or data is empty.")

// Load reads the dataset at path and splits it by diagnosis.
func Load(path string) (malignant, benign []pipeline.Row, stats pipeline.LoadStats, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, stats, errors.Wrapf(err, "Could not find data file at %s", path)
	}
	defer file.Close()
	return pipeline.LoadCases(file)
}

type Generator struct {
	Malignant []pipeline.Row
	Benign    []pipeline.Row
	OutputDir string
	Rand      *rand.Rand
	In        io.Reader
	Out       io.Writer
	Logger    *zap.Logger
}

// NewGenerator refuses to start unless both diagnoses have rows to draw from.
func NewGenerator(malignant, benign []pipeline.Row, outputDir string, seed int64) (*Generator, error) {
	if len(malignant) == 0 || len(benign) == 0 {
		return nil, ErrEmptyDataset
	}
	return &Generator{
		Malignant: malignant,
		Benign:    benign,
		OutputDir: outputDir,
		Rand:      rand.New(rand.NewSource(seed)),
		In:        os.Stdin,
		Out:       os.Stdout,
		Logger:    zap.NewNop(),
	}, nil
}

// FileName is the sample file written for a case id.
func FileName(id string) string {
	return fmt.Sprintf("sample_patient_%s.csv", id)
}

// SaveCase writes the row's features as one comma separated line. An empty
// id falls back to the row's own id. Existing files are overwritten.
func (g *Generator) SaveCase(row pipeline.Row, id string) (string, error) {
	if id == "" {
		id = row.ID
	}
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", errors.Newf("invalid case id %q", id)
	}
	path := filepath.Join(g.OutputDir, FileName(id))
	if err := os.WriteFile(path, []byte(pipeline.JoinFeatures(row.Features)), 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	g.logger().Debug("sample written", zap.String("path", path), zap.String("source_id", row.ID))
	return path, nil
}

// Generate draws one random row with the given diagnosis and saves it.
func (g *Generator) Generate(diagnosis, id string) (string, error) {
	var rows []pipeline.Row
	switch diagnosis {
	case pipeline.DiagnosisMalignant:
		rows = g.Malignant
	case pipeline.DiagnosisBenign:
		rows = g.Benign
	default:
		return "", errors.Newf("unknown diagnosis %q, want M or B", diagnosis)
	}
	if len(rows) == 0 {
		return "", ErrEmptyDataset
	}
	return g.SaveCase(rows[g.Rand.Intn(len(rows))], id)
}

// Run prompts for case ids until the operator enters nothing, picks 3 or
// closes the input.
func (g *Generator) Run() error {
	in := bufio.NewScanner(g.In)
	out := g.Out

	fmt.Fprintf(out, "Found %d Malignant and %d Benign cases.\n", len(g.Malignant), len(g.Benign))
	for {
		fmt.Fprintln(out, "\n--- New Case Generation ---")
		fmt.Fprint(out, "Enter Case ID (or press Enter to exit): ")
		id, ok := readLine(in)
		if !ok || id == "" {
			return in.Err()
		}

		fmt.Fprintf(out, "Selected ID: %s\n", id)
		fmt.Fprintln(out, "Choose data source:")
		fmt.Fprintln(out, "1. Random Malignant Case")
		fmt.Fprintln(out, "2. Random Benign Case")
		fmt.Fprintln(out, "3. Exit")
		fmt.Fprint(out, "Enter choice (1-3): ")
		choice, ok := readLine(in)
		if !ok {
			return in.Err()
		}

		var diagnosis string
		switch choice {
		case "1":
			diagnosis = pipeline.DiagnosisMalignant
		case "2":
			diagnosis = pipeline.DiagnosisBenign
		case "3":
			return nil
		default:
			fmt.Fprintln(out, "Invalid choice.")
			continue
		}

		if _, err := g.Generate(diagnosis, id); err != nil {
			fmt.Fprintf(out, "Error writing file %s: %v\n", FileName(id), err)
			continue
		}
		fmt.Fprintf(out, "Generated %s case: %s\n", diagnosis, FileName(id))
	}
}

func readLine(in *bufio.Scanner) (string, bool) {
	if !in.Scan() {
		return "", false
	}
	return strings.TrimSpace(in.Text()), true
}

func (g *Generator) logger() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}
