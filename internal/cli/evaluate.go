package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/absa"
	"github.com/happyhackingspace/absa/model"
)

func (c *CLI) newEvaluateCommand() *cobra.Command {
	var dataFolder string
	var checkpoint string
	var hiddenDim int
	var seed int64

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a trained checkpoint against a test corpus",
		Example: `  absa evaluate --data-folder data --checkpoint checkpoints/lcf_bert_cdw_acc_81.25_f1_77.90`,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Evaluating", "checkpoint", checkpoint, "data-folder", dataFolder)
			start := time.Now()

			enc := model.NewCachedEncoder(model.NewHashEncoder(hiddenDim, seed))
			sc, err := absa.Load(checkpoint, enc)
			if err != nil {
				return err
			}
			acc, f1, err := absa.Evaluate(dataFolder, sc)
			if err != nil {
				return err
			}
			slog.Debug("Evaluation completed", "duration", time.Since(start))

			fmt.Printf("Accuracy: %.2f%%  Macro F1: %.2f%%\n", acc*100, f1*100)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataFolder, "data-folder", "data", "Path to corpus folder")
	cmd.Flags().StringVar(&checkpoint, "checkpoint", "", "Checkpoint directory to load")
	cmd.Flags().IntVar(&hiddenDim, "hidden-dim", 32, "Hash encoder dimension (must match training)")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Hash encoder seed (must match training)")
	_ = cmd.MarkFlagRequired("checkpoint")
	return cmd
}
