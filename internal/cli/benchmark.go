package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/happyhackingspace/absa"
)

func (c *CLI) newBenchmarkCommand() *cobra.Command {
	var dataRoot string
	cfg := absa.DefaultTrainConfig()

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Train and evaluate one variant across every dataset folder",
		Long: `Runs a full train/evaluate cycle for the chosen variant on each
subfolder of the data root that contains a train file, then reports
per-dataset and aggregate accuracy/F1.`,
		Example: `  absa benchmark --data-root datasets --model lcf_bert --lcf cdm
  absa benchmark --data-root datasets --model bert_base --epochs 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, err := datasetDirs(dataRoot)
			if err != nil {
				return err
			}
			if len(dirs) == 0 {
				return fmt.Errorf("no dataset folders under %s", dataRoot)
			}
			cfg.Verbose = c.verbose

			var accs, f1s []float64
			for _, dir := range dirs {
				slog.Info("Benchmarking", "dataset", filepath.Base(dir), "model", cfg.Variant, "lcf", cfg.LCFMode)
				start := time.Now()
				_, res, err := absa.Train(dir, cfg)
				if err != nil {
					return fmt.Errorf("benchmark %s: %w", filepath.Base(dir), err)
				}
				slog.Debug("Benchmark run completed", "dataset", filepath.Base(dir), "duration", time.Since(start))
				fmt.Printf("%-20s acc %.2f%%  f1 %.2f%%\n", filepath.Base(dir), res.MaxAcc*100, res.MaxF1*100)
				accs = append(accs, res.MaxAcc)
				f1s = append(f1s, res.MaxF1)
			}

			fmt.Printf("%-20s acc %.2f%%  f1 %.2f%%\n", "mean",
				stat.Mean(accs, nil)*100, stat.Mean(f1s, nil)*100)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataRoot, "data-root", "datasets", "Folder whose subfolders each hold one corpus")
	cmd.Flags().StringVar(&cfg.Variant, "model", cfg.Variant, "Model variant to benchmark")
	cmd.Flags().StringVar(&cfg.LCFMode, "lcf", cfg.LCFMode, "Local context focus mode: cdm or cdw")
	cmd.Flags().IntVar(&cfg.Epochs, "epochs", cfg.Epochs, "Training epochs per dataset")
	cmd.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Batch size")
	cmd.Flags().IntVar(&cfg.LogStep, "log-step", cfg.LogStep, "Steps between test-set evaluations")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	return cmd
}

// datasetDirs lists subfolders of root that look like corpora: those with
// a file whose name contains "train".
func datasetDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read data root %s: %w", root, err)
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		sub, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range sub {
			if !f.IsDir() && strings.Contains(strings.ToLower(f.Name()), "train") {
				dirs = append(dirs, dir)
				break
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}
