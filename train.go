package absa

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/happyhackingspace/absa/dataset"
	"github.com/happyhackingspace/absa/depdist"
	"github.com/happyhackingspace/absa/internal/metrics"
	"github.com/happyhackingspace/absa/model"
	"github.com/happyhackingspace/absa/tokenize"
	"github.com/happyhackingspace/absa/training"
)

// TrainConfig holds configuration for training a sentiment classifier on
// an annotated corpus.
type TrainConfig struct {
	// Variant names the architecture: bert_base, bert_spc, lcf_bert,
	// lcfs_bert, lca_bert, slide_lcf_bert or slide_lcfs_bert.
	Variant string
	// LCFMode selects the local-context weighting: cdm or cdw.
	LCFMode   string
	MaxSeqLen int
	SRD       int

	Epochs        int
	BatchSize     int
	LogStep       int
	EvaluateBegin int
	// Folds > 0 enables k-fold cross validation over train+test pooled.
	Folds int
	// CheckpointDir is where best checkpoints go; empty disables saving.
	CheckpointDir string
	// IgnoreError skips records that fail feature assembly.
	IgnoreError bool
	Seed        int64
	Verbose     bool

	// Tokenizer and Encoder inject pretrained components. When nil, a
	// wordpiece tokenizer built from the training corpus and a
	// deterministic hash encoder are used instead, which trains the heads
	// without any pretrained artifacts.
	Tokenizer  tokenize.Tokenizer
	Encoder    model.Encoder
	EncoderDim int
}

// DefaultTrainConfig returns the defaults shared by the benchmark runs.
func DefaultTrainConfig() *TrainConfig {
	d := dataset.DefaultConfig()
	t := training.DefaultConfig()
	return &TrainConfig{
		Variant:    d.Variant.String(),
		LCFMode:    d.LCFMode.String(),
		MaxSeqLen:  d.MaxSeqLen,
		SRD:        d.SRD,
		Epochs:     t.Epochs,
		BatchSize:  t.BatchSize,
		LogStep:    t.LogStep,
		Seed:       t.Seed,
		EncoderDim: 32,
	}
}

// Train trains a classifier on the corpus files in dataDir (located by
// filename: the first files containing "train" and "test"). It returns
// the trained classifier and the run metrics.
func Train(dataDir string, cfg *TrainConfig) (*SentimentClassifier, *training.Result, error) {
	if cfg == nil {
		cfg = DefaultTrainConfig()
	}

	variant, err := model.ParseVariant(cfg.Variant)
	if err != nil {
		return nil, nil, fmt.Errorf("absa: %w", err)
	}
	mode, err := model.ParseLCFMode(cfg.LCFMode)
	if err != nil {
		return nil, nil, fmt.Errorf("absa: %w", err)
	}

	trainPath, testPath, _, err := dataset.FindFiles(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("absa: %w", err)
	}

	tok := cfg.Tokenizer
	if tok == nil {
		lines, err := readLines(trainPath)
		if err != nil {
			return nil, nil, fmt.Errorf("absa: %w", err)
		}
		// aspect markers glue onto their words; strip them so the aspect
		// words themselves land in the vocabulary
		for i, line := range lines {
			lines[i] = strings.ReplaceAll(line, dataset.AspectMarker, " ")
		}
		tok = tokenize.StaticFromCorpus(lines, cfg.MaxSeqLen)
	}
	enc := cfg.Encoder
	if enc == nil {
		enc = model.NewCachedEncoder(model.NewHashEncoder(cfg.EncoderDim, cfg.Seed))
	}

	dcfg := dataset.Config{
		Variant:     variant,
		LCFMode:     mode,
		MaxSeqLen:   cfg.MaxSeqLen,
		SRD:         cfg.SRD,
		IgnoreError: cfg.IgnoreError,
	}
	if err := dcfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("absa: %w", err)
	}

	trainDS := dataset.NewDataset(tok, depdist.NewHeuristic(), dcfg)
	trainDS.Builder().Progress = cfg.Verbose
	if err := trainDS.LoadFile(trainPath); err != nil {
		return nil, nil, fmt.Errorf("absa: %w", err)
	}
	var testRecs []model.Record
	if testPath != "" {
		testDS := dataset.NewDataset(tok, depdist.NewHeuristic(), dcfg)
		testDS.Builder().Progress = cfg.Verbose
		if err := testDS.LoadFile(testPath); err != nil {
			return nil, nil, fmt.Errorf("absa: %w", err)
		}
		testRecs = testDS.Records
	}

	tcfg := training.DefaultConfig()
	tcfg.Epochs = cfg.Epochs
	tcfg.BatchSize = cfg.BatchSize
	if cfg.LogStep > 0 {
		tcfg.LogStep = cfg.LogStep
	}
	tcfg.EvaluateBegin = cfg.EvaluateBegin
	tcfg.CrossValidateFold = cfg.Folds
	tcfg.CheckpointRoot = cfg.CheckpointDir
	tcfg.Seed = cfg.Seed
	tcfg.Verbose = cfg.Verbose

	mcfg := model.DefaultConfig()
	mcfg.Variant = variant
	mcfg.LCFMode = mode
	ins, err := training.NewInstructor(tcfg, dcfg, tok, trainDS.Records, testRecs, func() (*model.Model, error) {
		return model.New(mcfg, enc)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("absa: %w", err)
	}

	res, err := ins.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("absa: %w", err)
	}

	sc, err := NewSentimentClassifier(ins.Model(), tok, dcfg)
	if err != nil {
		return nil, nil, err
	}
	return sc, res, nil
}

// Evaluate scores a trained classifier against the test file in dataDir.
func Evaluate(dataDir string, sc *SentimentClassifier) (acc, f1 float64, err error) {
	_, testPath, _, err := dataset.FindFiles(dataDir)
	if err != nil {
		return 0, 0, fmt.Errorf("absa: %w", err)
	}
	if testPath == "" {
		return 0, 0, fmt.Errorf("absa: no test file found in %s", dataDir)
	}
	results, err := sc.BatchInfer(testPath, "")
	if err != nil {
		return 0, 0, err
	}
	return scoreResults(results)
}

func scoreResults(results []Result) (acc, f1 float64, err error) {
	s := Summarize(results)
	if s.Labeled == 0 {
		return 0, 0, fmt.Errorf("absa: no labeled records to evaluate")
	}
	// macro F1 over labeled results
	targets := make([]int, 0, s.Labeled)
	preds := make([]int, 0, s.Labeled)
	for _, r := range results {
		if r.RefSentiment == "" {
			continue
		}
		preds = append(preds, r.Sentiment)
		targets = append(targets, refClass(r))
	}
	return s.Accuracy, metrics.MacroF1(targets, preds, model.NumPolarities), nil
}

func refClass(r Result) int {
	for class, label := range sentiments {
		if label == r.RefSentiment {
			return class
		}
	}
	return -1
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
