package absa

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/happyhackingspace/absa/model"
)

var trainCorpus = []string{
	"the [ASP]battery[ASP] life is great !sent! 2",
	"the [ASP]battery[ASP] lasts forever !sent! 2",
	"amazing [ASP]battery[ASP] on this one !sent! 2",
	"the [ASP]screen[ASP] is dim !sent! 0",
	"a dim and cheap [ASP]screen[ASP] !sent! 0",
	"the [ASP]screen[ASP] looks washed out !sent! 0",
	"the [ASP]keyboard[ASP] is fine !sent! 1",
	"an ordinary [ASP]keyboard[ASP] overall !sent! 1",
}

var testCorpus = []string{
	"the [ASP]battery[ASP] is great !sent! 2",
	"the [ASP]screen[ASP] is dim !sent! 0",
	"the [ASP]keyboard[ASP] is fine !sent! 1",
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	write := func(name string, lines []string) {
		var data []byte
		for _, l := range lines {
			data = append(data, l...)
			data = append(data, '\n')
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("toy_train.dat", trainCorpus)
	write("toy_test.dat", testCorpus)
	return dir
}

func smallTrainConfig() *TrainConfig {
	cfg := DefaultTrainConfig()
	cfg.MaxSeqLen = 16
	cfg.Epochs = 5
	cfg.BatchSize = 4
	cfg.LogStep = 1
	return cfg
}

func TestTrainAndInfer(t *testing.T) {
	dir := writeCorpus(t)
	sc, res, err := Train(dir, smallTrainConfig())
	if err != nil {
		t.Fatal(err)
	}
	if res.MaxAcc < 0 || res.MaxAcc > 1 {
		t.Errorf("MaxAcc = %v", res.MaxAcc)
	}

	results, err := sc.Infer("the [ASP]battery[ASP] is great but the [ASP]screen[ASP] is dim !sent! 2 0")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Aspect != "battery" || results[1].Aspect != "screen" {
		t.Errorf("aspects = %q, %q", results[0].Aspect, results[1].Aspect)
	}
	for i, r := range results {
		if r.RefSentiment == "" || r.InferResult == "" {
			t.Errorf("result %d lost its reference label: %+v", i, r)
		}
	}
}

func TestTrainFusionFailsFast(t *testing.T) {
	dir := writeCorpus(t)
	cfg := smallTrainConfig()
	cfg.LCFMode = "fusion"
	_, _, err := Train(dir, cfg)
	if !errors.Is(err, model.ErrFusionUnsupported) {
		t.Fatalf("err = %v, want ErrFusionUnsupported", err)
	}
}

func TestTrainCheckpointAndLoad(t *testing.T) {
	dir := writeCorpus(t)
	cfg := smallTrainConfig()
	cfg.CheckpointDir = filepath.Join(dir, "checkpoints")

	sc, res, err := Train(dir, cfg)
	if err != nil {
		t.Fatal(err)
	}
	ckpt := res.BestCheckpoint
	if ckpt == "" {
		ckpt = res.FinalCheckpoint
	}
	if ckpt == "" {
		t.Fatal("no checkpoint written")
	}

	enc := model.NewHashEncoder(cfg.EncoderDim, cfg.Seed)
	loaded, err := Load(ckpt, enc)
	if err != nil {
		t.Fatal(err)
	}

	text := "the [ASP]battery[ASP] is great"
	want, err := sc.Infer(text)
	if err != nil {
		t.Fatal(err)
	}
	got, err := loaded.Infer(text)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Sentiment != want[0].Sentiment {
		t.Errorf("loaded sentiment = %d, live = %d", got[0].Sentiment, want[0].Sentiment)
	}
}

func TestBatchInferSavesResults(t *testing.T) {
	dir := writeCorpus(t)
	sc, _, err := Train(dir, smallTrainConfig())
	if err != nil {
		t.Fatal(err)
	}

	savePath := filepath.Join(dir, "out.results")
	results, err := sc.BatchInfer(filepath.Join(dir, "toy_test.dat"), savePath)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(testCorpus) {
		t.Fatalf("results = %d, want %d", len(results), len(testCorpus))
	}
	if _, err := os.Stat(savePath); err != nil {
		t.Error(err)
	}

	s := Summarize(results)
	if s.Total != len(testCorpus) || s.Labeled != len(testCorpus) {
		t.Errorf("summary = %+v", s)
	}
}

func TestEvaluate(t *testing.T) {
	dir := writeCorpus(t)
	sc, _, err := Train(dir, smallTrainConfig())
	if err != nil {
		t.Fatal(err)
	}
	acc, f1, err := Evaluate(dir, sc)
	if err != nil {
		t.Fatal(err)
	}
	if acc < 0 || acc > 1 || f1 < 0 || f1 > 1 {
		t.Errorf("acc = %v, f1 = %v", acc, f1)
	}
}

func TestSentimentLabel(t *testing.T) {
	if SentimentLabel(0) != "Negative" || SentimentLabel(1) != "Neutral" || SentimentLabel(2) != "Positive" {
		t.Error("label mapping wrong")
	}
	if SentimentLabel(9) != "9" {
		t.Errorf("unknown class label = %q", SentimentLabel(9))
	}
}
