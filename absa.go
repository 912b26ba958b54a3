// Package absa classifies the sentiment of aspects inside a sentence.
//
// It implements the local-context-focus family of BERT aspect polarity
// classifiers: a frozen encoder produces per-token hidden states, the
// positions near the aspect are emphasized with a dynamic mask or a
// distance-decayed weighting, and a trainable head predicts one of three
// polarities per aspect.
//
//	sc, _ := absa.Load("checkpoints/lcf_bert_cdw_acc_81.25_f1_77.90", enc)
//	results, _ := sc.Infer("the [ASP]battery[ASP] life is great")
//	for _, r := range results {
//	    fmt.Println(r.Aspect, r.Sentiment) // "battery" "Positive"
//	}
package absa

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/happyhackingspace/absa/dataset"
	"github.com/happyhackingspace/absa/depdist"
	"github.com/happyhackingspace/absa/model"
	"github.com/happyhackingspace/absa/tokenize"
	"github.com/happyhackingspace/absa/training"
)

// sentiments maps predicted class indices to human-readable labels.
var sentiments = map[int]string{
	0: "Negative",
	1: "Neutral",
	2: "Positive",
}

// SentimentLabel returns the human-readable label for a class index, or
// the index itself when unknown.
func SentimentLabel(class int) string {
	if s, ok := sentiments[class]; ok {
		return s
	}
	return fmt.Sprintf("%d", class)
}

// Result is the outcome of classifying one aspect.
type Result struct {
	Text      string `json:"text"`
	Aspect    string `json:"aspect"`
	Sentiment int    `json:"sentiment"`
	// RefSentiment is the human-readable reference label, empty when the
	// input carried none.
	RefSentiment string `json:"ref_sentiment,omitempty"`
	// InferResult is "Correct" or "Wrong" against the reference, empty
	// when unlabeled.
	InferResult string `json:"infer_result,omitempty"`
}

// SentimentClassifier runs inference with a trained model and the feature
// pipeline it was trained with.
type SentimentClassifier struct {
	m   *model.Model
	tok tokenize.Tokenizer
	ds  *dataset.Dataset
}

// NewSentimentClassifier wraps a live trained model.
func NewSentimentClassifier(m *model.Model, tok tokenize.Tokenizer, dcfg dataset.Config) (*SentimentClassifier, error) {
	if m == nil {
		return nil, fmt.Errorf("absa: nil model")
	}
	if tok == nil {
		return nil, fmt.Errorf("absa: nil tokenizer")
	}
	dcfg.Variant = m.Variant()
	dcfg.LCFMode = m.LCFMode()
	dcfg.IgnoreError = true
	return &SentimentClassifier{
		m:   m,
		tok: tok,
		ds:  dataset.NewDataset(tok, depdist.NewHeuristic(), dcfg),
	}, nil
}

// Load restores a classifier from a checkpoint directory written during
// training. The encoder is supplied by the caller and must match the
// dimension the checkpoint was trained with. The tokenizer is loaded from
// the checkpoint itself: vocab.txt or tokenizer.json, whichever is there.
func Load(dir string, enc model.Encoder) (*SentimentClassifier, error) {
	m, dcfg, err := training.LoadCheckpoint(dir, enc)
	if err != nil {
		return nil, fmt.Errorf("absa: %w", err)
	}
	tok, err := loadTokenizer(dir, dcfg.MaxSeqLen)
	if err != nil {
		return nil, fmt.Errorf("absa: %w", err)
	}
	return NewSentimentClassifier(m, tok, dcfg)
}

func loadTokenizer(dir string, maxSeqLen int) (tokenize.Tokenizer, error) {
	if vocab := filepath.Join(dir, "vocab.txt"); fileExists(vocab) {
		return tokenize.LoadVocab(vocab, maxSeqLen)
	}
	if tj := filepath.Join(dir, "tokenizer.json"); fileExists(tj) {
		return tokenize.NewBert(tj, maxSeqLen)
	}
	return nil, fmt.Errorf("no tokenizer found in %s", dir)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Infer classifies every aspect in a single annotated line. Aspects are
// delimited with [ASP]...[ASP]; optional reference polarities follow a
// !sent! separator.
func (sc *SentimentClassifier) Infer(text string) ([]Result, error) {
	if err := sc.ds.PrepareSample(text); err != nil {
		return nil, fmt.Errorf("absa: %w", err)
	}
	return sc.classify(sc.ds.Records)
}

// BatchInfer classifies every line of an annotated file. When savePath is
// non-empty the results are additionally written there, one per line;
// write failures are logged and do not abort inference.
func (sc *SentimentClassifier) BatchInfer(path, savePath string) ([]Result, error) {
	if err := sc.ds.LoadFile(path); err != nil {
		return nil, fmt.Errorf("absa: %w", err)
	}
	results, err := sc.classify(sc.ds.Records)
	if err != nil {
		return nil, err
	}
	if savePath != "" {
		if err := saveResults(savePath, results); err != nil {
			slog.Error("failed to save inference results", "path", savePath, "error", err)
		}
	}
	return results, nil
}

func (sc *SentimentClassifier) classify(records []model.Record) ([]Result, error) {
	results := make([]Result, 0, len(records))
	for _, rec := range records {
		pred, _, err := sc.m.Predict(rec)
		if err != nil {
			return nil, fmt.Errorf("absa: predict aspect %q: %w", rec.Aspect, err)
		}
		r := Result{
			Text:      rec.TextRaw,
			Aspect:    rec.Aspect,
			Sentiment: pred,
		}
		if ref, ok := rec.Label(); ok {
			r.RefSentiment = SentimentLabel(ref)
			if pred == ref {
				r.InferResult = "Correct"
			} else {
				r.InferResult = "Wrong"
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// Summary condenses a batch of results: total aspects, how many carried a
// reference label, and accuracy over the labeled ones.
type Summary struct {
	Total    int
	Labeled  int
	Accuracy float64
}

// Summarize computes the labeled-accuracy summary over results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	correct := 0
	for _, r := range results {
		if r.InferResult == "" {
			continue
		}
		s.Labeled++
		if r.InferResult == "Correct" {
			correct++
		}
	}
	if s.Labeled > 0 {
		s.Accuracy = float64(correct) / float64(s.Labeled)
	}
	return s
}

func saveResults(path string, results []Result) error {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%s\t%s\t%s", r.Text, r.Aspect, SentimentLabel(r.Sentiment))
		if r.RefSentiment != "" {
			fmt.Fprintf(&b, "\t%s\t%s", r.RefSentiment, r.InferResult)
		}
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
