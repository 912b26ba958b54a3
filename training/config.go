// Package training drives the fold/epoch/step loop: batching, periodic
// evaluation, best-of-fold checkpointing and cross-validation summaries.
package training

import (
	"fmt"
	"time"
)

// Config holds the training-loop hyperparameters.
type Config struct {
	Epochs    int
	BatchSize int
	// LogStep is the global-step period of the test-set evaluation.
	LogStep int
	// EvaluateBegin is the first epoch (zero-based) at which periodic
	// evaluation runs.
	EvaluateBegin int
	// CrossValidateFold enables k-fold cross validation when > 0: train and
	// test records are pooled and re-partitioned per fold.
	CrossValidateFold int
	// CheckpointRoot is the directory best checkpoints are written under.
	// Empty disables checkpointing.
	CheckpointRoot string
	// RetryInterval is the fixed backoff between model construction
	// attempts after a transient failure.
	RetryInterval time.Duration
	Seed          int64
	Verbose       bool
}

// DefaultConfig returns the settings used by the benchmark runs.
func DefaultConfig() Config {
	return Config{
		Epochs:        10,
		BatchSize:     16,
		LogStep:       5,
		RetryInterval: 60 * time.Second,
		Seed:          1,
	}
}

// Validate rejects settings the loop cannot run with.
func (c Config) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("training: epochs must be positive, got %d", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("training: batch size must be positive, got %d", c.BatchSize)
	}
	if c.LogStep <= 0 {
		return fmt.Errorf("training: log step must be positive, got %d", c.LogStep)
	}
	if c.EvaluateBegin < 0 {
		return fmt.Errorf("training: evaluate begin must be non-negative, got %d", c.EvaluateBegin)
	}
	if c.RetryInterval < 0 {
		return fmt.Errorf("training: retry interval must be non-negative, got %s", c.RetryInterval)
	}
	return nil
}
