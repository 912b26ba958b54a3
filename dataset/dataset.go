// Package dataset implements the data-preparation pipeline: parsing
// aspect-annotated lines, assembling fixed-shape feature records with
// local-context weighting, and batching them for the training loop.
package dataset

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/happyhackingspace/absa/depdist"
	"github.com/happyhackingspace/absa/model"
	"github.com/happyhackingspace/absa/tokenize"
)

// Dataset is an ordered, index-addressable sequence of feature records
// together with the tokenizer and configuration that built them. Reloading
// replaces the records wholesale.
type Dataset struct {
	Records []model.Record
	builder *Builder
}

// NewDataset wires an empty dataset around a feature assembler.
func NewDataset(tok tokenize.Tokenizer, est depdist.Estimator, cfg Config) *Dataset {
	return &Dataset{builder: NewBuilder(tok, est, cfg)}
}

// Builder exposes the underlying feature assembler.
func (d *Dataset) Builder() *Builder { return d.builder }

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.Records) }

// LoadFile reads an annotated corpus file, parses every line and rebuilds
// the record list.
func (d *Dataset) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("dataset: read %s: %w", path, err)
	}

	records, err := d.builder.BuildAll(ParseLines(lines))
	if err != nil {
		return fmt.Errorf("dataset: build %s: %w", path, err)
	}
	d.Records = records
	return nil
}

// PrepareSample rebuilds the record list from a single annotated line,
// used by single-text inference.
func (d *Dataset) PrepareSample(text string) error {
	records, err := d.builder.BuildAll(ParseSample(text))
	if err != nil {
		return fmt.Errorf("dataset: build sample: %w", err)
	}
	d.Records = records
	return nil
}

// FindFiles locates corpus files in a data folder by filename substring:
// the first file containing "train", "test" and "infer" respectively.
// Missing roles come back empty; a missing train file is an error.
func FindFiles(dir string) (train, test, infer string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", "", fmt.Errorf("dataset: read dir %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		lower := strings.ToLower(name)
		full := filepath.Join(dir, name)
		switch {
		case train == "" && strings.Contains(lower, "train"):
			train = full
		case test == "" && strings.Contains(lower, "test"):
			test = full
		case infer == "" && strings.Contains(lower, "infer"):
			infer = full
		}
	}
	if train == "" {
		return "", "", "", fmt.Errorf("dataset: no train file found in %s", dir)
	}
	return train, test, infer, nil
}

// Loader batches records for the training and evaluation loops. Each call
// to Batches reshuffles when shuffling is enabled, giving per-epoch
// shuffling.
type Loader struct {
	records   []model.Record
	batchSize int
	shuffle   bool
	rng       *rand.Rand
}

// NewLoader creates a loader. A non-positive batch size defaults to 16.
func NewLoader(records []model.Record, batchSize int, shuffle bool, seed int64) *Loader {
	if batchSize <= 0 {
		batchSize = 16
	}
	return &Loader{
		records:   records,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Len returns the number of records behind the loader.
func (l *Loader) Len() int { return len(l.records) }

// Records returns the backing record slice.
func (l *Loader) Records() []model.Record { return l.records }

// Batches returns the records grouped into batches.
func (l *Loader) Batches() [][]model.Record {
	order := make([]model.Record, len(l.records))
	copy(order, l.records)
	if l.shuffle {
		l.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	var batches [][]model.Record
	for start := 0; start < len(order); start += l.batchSize {
		end := min(start+l.batchSize, len(order))
		batches = append(batches, order[start:end])
	}
	return batches
}
