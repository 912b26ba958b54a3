package dataset

import (
	"fmt"

	"github.com/happyhackingspace/absa/model"
)

// Config controls feature assembly.
type Config struct {
	Variant model.Variant
	LCFMode model.LCFMode
	// MaxSeqLen is the fixed tokenized sequence length.
	MaxSeqLen int
	// SRD is the semantic-relative-distance threshold: positions within it
	// of the aspect count as local context.
	SRD int
	// IgnoreError skips records that fail to build instead of aborting.
	IgnoreError bool
}

// DefaultConfig returns the defaults shared by the benchmark setups.
func DefaultConfig() Config {
	return Config{
		Variant:   model.LCFBert,
		LCFMode:   model.CDW,
		MaxSeqLen: 80,
		SRD:       3,
	}
}

// Validate rejects configurations that cannot produce features.
func (c Config) Validate() error {
	if c.MaxSeqLen <= 0 {
		return fmt.Errorf("dataset: max seq len must be positive, got %d", c.MaxSeqLen)
	}
	if c.SRD < 0 {
		return fmt.Errorf("dataset: SRD must be non-negative, got %d", c.SRD)
	}
	return nil
}
