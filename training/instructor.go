package training

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v2"
	"gonum.org/v1/gonum/stat"

	"github.com/happyhackingspace/absa/dataset"
	"github.com/happyhackingspace/absa/internal/metrics"
	"github.com/happyhackingspace/absa/model"
	"github.com/happyhackingspace/absa/tokenize"
)

// BuildFunc constructs the model. It is called again after the fixed
// backoff when it fails with a transient connection-class error.
type BuildFunc func() (*model.Model, error)

// FoldResult holds the best test metrics reached within one fold.
type FoldResult struct {
	Fold       int
	MaxAcc     float64
	MaxF1      float64
	Checkpoint string
}

// Result aggregates the run: per-fold bests, their means, the global
// best across folds and the surviving checkpoint paths.
type Result struct {
	Folds   []FoldResult
	MeanAcc float64
	MeanF1  float64
	MaxAcc  float64
	MaxF1   float64
	// BestCheckpoint is the checkpoint of the fold that reached MaxAcc.
	BestCheckpoint string
	// FinalCheckpoint is set only when no evaluation ever ran and a
	// fallback checkpoint of the live model was written instead.
	FinalCheckpoint string
}

// Instructor owns one training run: the model, the train/test records and
// the loop state. It is not safe for concurrent use.
type Instructor struct {
	cfg   Config
	dcfg  dataset.Config
	tok   tokenize.Tokenizer
	train []model.Record
	test  []model.Record
	m     *model.Model
	rng   *rand.Rand

	// sleep is swapped out by tests to observe the construction backoff.
	sleep func(time.Duration)
}

// NewInstructor builds the model (retrying transient construction
// failures with the configured fixed backoff, indefinitely) and prepares
// the run. Any non-transient construction error aborts immediately.
func NewInstructor(cfg Config, dcfg dataset.Config, tok tokenize.Tokenizer, train, test []model.Record, build BuildFunc) (*Instructor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := dcfg.Validate(); err != nil {
		return nil, err
	}
	if len(train) == 0 {
		return nil, fmt.Errorf("training: no training records")
	}

	ins := &Instructor{
		cfg:   cfg,
		dcfg:  dcfg,
		tok:   tok,
		train: train,
		test:  test,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		sleep: time.Sleep,
	}

	for {
		m, err := build()
		if err == nil {
			ins.m = m
			break
		}
		if !isTransient(err) {
			return nil, fmt.Errorf("training: build model: %w", err)
		}
		slog.Warn("model construction failed, retrying",
			"interval", cfg.RetryInterval,
			"error", err)
		ins.sleep(cfg.RetryInterval)
	}
	return ins, nil
}

// Model returns the live model; after Run it carries the weights of the
// last fold's final step.
func (ins *Instructor) Model() *model.Model { return ins.m }

// Run executes the full fold/epoch/step loop and returns the aggregated
// metrics.
func (ins *Instructor) Run() (*Result, error) {
	folds := ins.foldCount()

	var initial *model.TrainingState
	if ins.cfg.CrossValidateFold > 0 {
		st := ins.m.State()
		initial = &st
	}

	var pool []model.Record
	var parts [][]int
	if ins.cfg.CrossValidateFold > 0 {
		pool = append(append([]model.Record{}, ins.train...), ins.test...)
		parts = partitions(len(pool), folds, ins.rng)
	}

	res := &Result{}
	for fold := 0; fold < folds; fold++ {
		if fold > 0 && initial != nil {
			ins.m.Restore(*initial)
		}

		trainRecs, testRecs := ins.train, ins.test
		if parts != nil {
			trainRecs, testRecs = foldSplit(pool, parts[fold])
		}
		if folds > 1 {
			slog.Info("fold started", "fold", fold, "train", len(trainRecs), "test", len(testRecs))
		}

		fr, err := ins.runFold(fold, trainRecs, testRecs)
		if err != nil {
			return nil, err
		}
		res.Folds = append(res.Folds, fr)
		if fr.MaxAcc > res.MaxAcc {
			res.MaxAcc = fr.MaxAcc
			res.BestCheckpoint = fr.Checkpoint
		}
		if fr.MaxF1 > res.MaxF1 {
			res.MaxF1 = fr.MaxF1
		}
	}

	accs := make([]float64, len(res.Folds))
	f1s := make([]float64, len(res.Folds))
	for i, fr := range res.Folds {
		accs[i] = fr.MaxAcc
		f1s[i] = fr.MaxF1
	}
	res.MeanAcc = stat.Mean(accs, nil)
	res.MeanF1 = stat.Mean(f1s, nil)

	if res.BestCheckpoint == "" && ins.cfg.CheckpointRoot != "" {
		// no evaluation ever ran; keep the live model anyway
		name := fmt.Sprintf("%s_%s", ins.m.Variant(), ins.m.LCFMode())
		dir, err := SaveCheckpoint(ins.cfg.CheckpointRoot, name, ins.m, ins.tok, ins.dcfg, ins.m.Dim())
		if err != nil {
			return nil, err
		}
		res.FinalCheckpoint = dir
	}

	slog.Info("training finished",
		"folds", folds,
		"mean_acc", res.MeanAcc,
		"mean_f1", res.MeanF1,
		"max_acc", res.MaxAcc,
		"max_f1", res.MaxF1)
	return res, nil
}

func (ins *Instructor) foldCount() int {
	if ins.cfg.CrossValidateFold > 0 {
		return ins.cfg.CrossValidateFold
	}
	return 1
}

// runFold trains on trainRecs for the configured epochs, evaluating on
// testRecs every LogStep steps once past EvaluateBegin. A checkpoint is
// written only when accuracy strictly improves over the fold's running
// maximum; the new directory is written before the previous best is
// removed.
func (ins *Instructor) runFold(fold int, trainRecs, testRecs []model.Record) (FoldResult, error) {
	fr := FoldResult{Fold: fold}
	loader := dataset.NewLoader(trainRecs, ins.cfg.BatchSize, true, ins.cfg.Seed+int64(fold))

	step := 0
	for epoch := 0; epoch < ins.cfg.Epochs; epoch++ {
		batches := loader.Batches()
		var bar *progressbar.ProgressBar
		if ins.cfg.Verbose {
			bar = progressbar.New(len(batches))
		}

		var sumLoss float64
		for _, batch := range batches {
			if bar != nil {
				_ = bar.Add(1)
			}
			loss, err := ins.m.Step(batch)
			if err != nil {
				return fr, fmt.Errorf("training: fold %d epoch %d: %w", fold, epoch, err)
			}
			sumLoss += loss
			step++

			if step%ins.cfg.LogStep != 0 || epoch < ins.cfg.EvaluateBegin || len(testRecs) == 0 {
				continue
			}
			acc, f1, err := ins.evaluate(testRecs)
			if err != nil {
				return fr, err
			}
			if f1 > fr.MaxF1 {
				fr.MaxF1 = f1
			}
			if acc > fr.MaxAcc {
				fr.MaxAcc = acc
				if err := ins.replaceCheckpoint(&fr, acc, f1); err != nil {
					return fr, err
				}
			}
		}

		avgLoss := 0.0
		if len(batches) > 0 {
			avgLoss = sumLoss / float64(len(batches))
		}
		slog.Info("epoch finished",
			"fold", fold,
			"epoch", epoch,
			"loss", avgLoss,
			"max_acc", fr.MaxAcc,
			"max_f1", fr.MaxF1)
	}
	return fr, nil
}

// replaceCheckpoint writes the new best checkpoint first, then removes
// the fold's previous best so a crash in between keeps at least one.
func (ins *Instructor) replaceCheckpoint(fr *FoldResult, acc, f1 float64) error {
	if ins.cfg.CheckpointRoot == "" {
		return nil
	}
	name := checkpointName(ins.m.Variant(), ins.m.LCFMode(), acc, f1)
	dir, err := SaveCheckpoint(ins.cfg.CheckpointRoot, name, ins.m, ins.tok, ins.dcfg, ins.m.Dim())
	if err != nil {
		return err
	}
	if fr.Checkpoint != "" && fr.Checkpoint != dir {
		if err := os.RemoveAll(fr.Checkpoint); err != nil {
			slog.Warn("failed to remove previous checkpoint", "dir", fr.Checkpoint, "error", err)
		}
	}
	fr.Checkpoint = dir
	return nil
}

// evaluate scores the labeled test records.
func (ins *Instructor) evaluate(records []model.Record) (acc, f1 float64, err error) {
	var targets, preds []int
	for _, rec := range records {
		target, ok := rec.Label()
		if !ok {
			continue
		}
		pred, _, err := ins.m.Predict(rec)
		if err != nil {
			return 0, 0, fmt.Errorf("training: evaluate: %w", err)
		}
		targets = append(targets, target)
		preds = append(preds, pred)
	}
	if len(targets) == 0 {
		return 0, 0, nil
	}
	return metrics.Accuracy(targets, preds), metrics.MacroF1(targets, preds, model.NumPolarities), nil
}

// Evaluate runs a single evaluation pass of the live model over records.
func (ins *Instructor) Evaluate(records []model.Record) (acc, f1 float64, err error) {
	return ins.evaluate(records)
}

// isTransient reports whether a model construction error looks like a
// connection failure worth retrying.
func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection")
}
