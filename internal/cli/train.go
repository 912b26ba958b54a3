package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/absa"
	"github.com/happyhackingspace/absa/model"
	"github.com/happyhackingspace/absa/model/onnxenc"
	"github.com/happyhackingspace/absa/tokenize"
)

// encoderFlags groups the flags selecting the frozen encoder and
// tokenizer. Without an ONNX model a deterministic hash encoder and a
// corpus-built tokenizer are used, which needs no pretrained artifacts.
type encoderFlags struct {
	onnxModel string
	ortLib    string
	tokenizer string
	hiddenDim int
	maxSeqLen int
}

func (ef *encoderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ef.onnxModel, "onnx-model", "", "Path to an ONNX encoder model (empty: hash encoder)")
	cmd.Flags().StringVar(&ef.ortLib, "ort-lib", "", "Path to the onnxruntime shared library")
	cmd.Flags().StringVar(&ef.tokenizer, "tokenizer", "", "Path to tokenizer.json or vocab.txt (empty: corpus vocabulary)")
	cmd.Flags().IntVar(&ef.hiddenDim, "hidden-dim", 768, "Encoder hidden dimension")
}

// build returns the configured encoder and tokenizer; both may be nil,
// meaning the library picks its artifact-free defaults.
func (ef *encoderFlags) build() (model.Encoder, tokenize.Tokenizer, func(), error) {
	cleanup := func() {}

	var enc model.Encoder
	if ef.onnxModel != "" {
		oe, err := onnxenc.New(onnxenc.Config{
			OrtDLL:    ef.ortLib,
			ModelPath: ef.onnxModel,
			MaxSeqLen: ef.maxSeqLen,
			HiddenDim: ef.hiddenDim,
		})
		if err != nil {
			return nil, nil, cleanup, err
		}
		enc = model.NewCachedEncoder(oe)
		cleanup = func() { _ = oe.Close() }
	}

	var tok tokenize.Tokenizer
	if ef.tokenizer != "" {
		var err error
		switch {
		case strings.HasSuffix(ef.tokenizer, ".json"):
			tok, err = tokenize.NewBert(ef.tokenizer, ef.maxSeqLen)
		default:
			tok, err = tokenize.LoadVocab(ef.tokenizer, ef.maxSeqLen)
		}
		if err != nil {
			cleanup()
			return nil, nil, func() {}, err
		}
	}
	return enc, tok, cleanup, nil
}

func (c *CLI) newTrainCommand() *cobra.Command {
	var dataFolder string
	cfg := absa.DefaultTrainConfig()
	ef := &encoderFlags{}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a sentiment classifier on an annotated corpus",
		Example: `  absa train --data-folder data --model lcf_bert --lcf cdw
  absa train --data-folder data --cv 5 --checkpoint-dir checkpoints
  absa train --data-folder data --onnx-model bert.onnx --tokenizer tokenizer.json -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ef.maxSeqLen = cfg.MaxSeqLen
			enc, tok, cleanup, err := ef.build()
			if err != nil {
				return err
			}
			defer cleanup()
			cfg.Encoder = enc
			cfg.Tokenizer = tok
			cfg.Verbose = c.verbose
			if ef.onnxModel != "" {
				cfg.EncoderDim = ef.hiddenDim
			}

			slog.Info("Training classifier",
				"data-folder", dataFolder,
				"model", cfg.Variant,
				"lcf", cfg.LCFMode)
			start := time.Now()
			_, res, err := absa.Train(dataFolder, cfg)
			if err != nil {
				return err
			}
			slog.Debug("Training completed", "duration", time.Since(start))

			fmt.Printf("Accuracy: %.2f%% (max %.2f%%)  F1: %.2f%% (max %.2f%%)\n",
				res.MeanAcc*100, res.MaxAcc*100, res.MeanF1*100, res.MaxF1*100)
			switch {
			case res.BestCheckpoint != "":
				fmt.Printf("Best checkpoint: %s\n", filepath.Clean(res.BestCheckpoint))
			case res.FinalCheckpoint != "":
				fmt.Printf("Final checkpoint: %s\n", filepath.Clean(res.FinalCheckpoint))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataFolder, "data-folder", "data", "Path to corpus folder (train/test files located by name)")
	cmd.Flags().StringVar(&cfg.Variant, "model", cfg.Variant, "Model variant: bert_base, bert_spc, lcf_bert, lcfs_bert, lca_bert, slide_lcf_bert, slide_lcfs_bert")
	cmd.Flags().StringVar(&cfg.LCFMode, "lcf", cfg.LCFMode, "Local context focus mode: cdm or cdw")
	cmd.Flags().IntVar(&cfg.MaxSeqLen, "max-seq-len", cfg.MaxSeqLen, "Tokenized sequence length")
	cmd.Flags().IntVar(&cfg.SRD, "srd", cfg.SRD, "Semantic relative distance threshold")
	cmd.Flags().IntVar(&cfg.Epochs, "epochs", cfg.Epochs, "Training epochs")
	cmd.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Batch size")
	cmd.Flags().IntVar(&cfg.LogStep, "log-step", cfg.LogStep, "Steps between test-set evaluations")
	cmd.Flags().IntVar(&cfg.EvaluateBegin, "evaluate-begin", cfg.EvaluateBegin, "First epoch with periodic evaluation")
	cmd.Flags().IntVar(&cfg.Folds, "cv", 0, "Cross-validation folds (0: plain train/test split)")
	cmd.Flags().StringVar(&cfg.CheckpointDir, "checkpoint-dir", "", "Directory for best checkpoints (empty: no checkpoints)")
	cmd.Flags().BoolVar(&cfg.IgnoreError, "ignore-error", false, "Skip records that fail feature assembly")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	ef.register(cmd)
	return cmd
}
