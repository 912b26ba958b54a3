package training

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/happyhackingspace/absa/dataset"
	"github.com/happyhackingspace/absa/model"
)

func toyConfig() Config {
	cfg := DefaultConfig()
	cfg.Epochs = 3
	cfg.BatchSize = 4
	cfg.LogStep = 1
	cfg.RetryInterval = 0
	return cfg
}

func toyDatasetConfig() dataset.Config {
	return dataset.Config{Variant: model.BertBase, LCFMode: model.CDW, MaxSeqLen: 8, SRD: 3}
}

// toyRecords encodes the class in the leading token so the head can
// separate the batch.
func toyRecords(n int) []model.Record {
	recs := make([]model.Record, n)
	for i := range recs {
		p := i%3 + 1
		recs[i] = model.Record{
			Polarity: p,
			Inputs:   model.BaseInputs{TextRawIndices: []int64{int64(p + 1), 10, 20, 0, 0, 0, 0, 0}},
		}
	}
	return recs
}

func toyBuild() (*model.Model, error) {
	cfg := model.DefaultConfig()
	cfg.Variant = model.BertBase
	cfg.LearningRate = 0.05
	return model.New(cfg, model.NewHashEncoder(16, 7))
}

func TestInstructorTransientRetry(t *testing.T) {
	attempts := 0
	ins, err := NewInstructor(toyConfig(), toyDatasetConfig(), nil, toyRecords(6), nil,
		func() (*model.Model, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("dial tcp: connection refused")
			}
			return toyBuild()
		})
	if err != nil {
		t.Fatal(err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if ins.Model() == nil {
		t.Error("model not built")
	}
}

func TestInstructorNonTransientAborts(t *testing.T) {
	attempts := 0
	_, err := NewInstructor(toyConfig(), toyDatasetConfig(), nil, toyRecords(6), nil,
		func() (*model.Model, error) {
			attempts++
			return nil, errors.New("invalid hyperparameter")
		})
	if err == nil {
		t.Fatal("non-transient construction error should abort")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestInstructorRunSingleSplit(t *testing.T) {
	train := toyRecords(12)
	test := toyRecords(6)

	cfg := toyConfig()
	cfg.Epochs = 10
	ins, err := NewInstructor(cfg, toyDatasetConfig(), nil, train, test, toyBuild)
	if err != nil {
		t.Fatal(err)
	}
	res, err := ins.Run()
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Folds) != 1 {
		t.Fatalf("folds = %d, want 1", len(res.Folds))
	}
	if res.MaxAcc != res.Folds[0].MaxAcc {
		t.Errorf("MaxAcc = %v, fold max = %v", res.MaxAcc, res.Folds[0].MaxAcc)
	}
	// the toy batch is separable; training should reach full accuracy
	if res.MaxAcc != 1 {
		t.Errorf("MaxAcc = %v, want 1", res.MaxAcc)
	}
}

func TestInstructorCheckpointRetention(t *testing.T) {
	root := t.TempDir()
	cfg := toyConfig()
	cfg.CheckpointRoot = root

	ins, err := NewInstructor(cfg, toyDatasetConfig(), nil, toyRecords(12), toyRecords(6), toyBuild)
	if err != nil {
		t.Fatal(err)
	}
	res, err := ins.Run()
	if err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("retained %d checkpoints, want 1", len(entries))
	}
	if res.BestCheckpoint == "" || !strings.Contains(res.BestCheckpoint, entries[0].Name()) {
		t.Errorf("BestCheckpoint = %q, dir = %q", res.BestCheckpoint, entries[0].Name())
	}
	if !strings.Contains(entries[0].Name(), "bert_base_cdw_acc_") {
		t.Errorf("checkpoint name = %q", entries[0].Name())
	}
}

func TestInstructorCrossValidation(t *testing.T) {
	cfg := toyConfig()
	cfg.CrossValidateFold = 3

	ins, err := NewInstructor(cfg, toyDatasetConfig(), nil, toyRecords(30), nil, toyBuild)
	if err != nil {
		t.Fatal(err)
	}
	res, err := ins.Run()
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Folds) != 3 {
		t.Fatalf("folds = %d, want 3", len(res.Folds))
	}
	var sum float64
	for _, fr := range res.Folds {
		sum += fr.MaxAcc
	}
	if got := sum / 3; got != res.MeanAcc {
		t.Errorf("MeanAcc = %v, want %v", res.MeanAcc, got)
	}
}

func TestInstructorNoEvalFallback(t *testing.T) {
	root := t.TempDir()
	cfg := toyConfig()
	cfg.CheckpointRoot = root
	cfg.EvaluateBegin = cfg.Epochs + 1 // periodic evaluation never fires

	ins, err := NewInstructor(cfg, toyDatasetConfig(), nil, toyRecords(12), toyRecords(6), toyBuild)
	if err != nil {
		t.Fatal(err)
	}
	res, err := ins.Run()
	if err != nil {
		t.Fatal(err)
	}
	if res.BestCheckpoint != "" {
		t.Errorf("BestCheckpoint = %q, want empty", res.BestCheckpoint)
	}
	if res.FinalCheckpoint == "" {
		t.Fatal("expected a fallback final checkpoint")
	}
	if !strings.HasSuffix(res.FinalCheckpoint, "bert_base_cdw") {
		t.Errorf("FinalCheckpoint = %q", res.FinalCheckpoint)
	}
	if _, err := os.Stat(res.FinalCheckpoint); err != nil {
		t.Error(err)
	}
}

func TestInstructorEvaluate(t *testing.T) {
	ins, err := NewInstructor(toyConfig(), toyDatasetConfig(), nil, toyRecords(12), nil, toyBuild)
	if err != nil {
		t.Fatal(err)
	}
	acc, f1, err := ins.Evaluate(toyRecords(6))
	if err != nil {
		t.Fatal(err)
	}
	if acc < 0 || acc > 1 || f1 < 0 || f1 > 1 {
		t.Errorf("acc = %v, f1 = %v", acc, f1)
	}
}
