package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/absa"
	"github.com/happyhackingspace/absa/model"
)

func (c *CLI) newInferCommand() *cobra.Command {
	var checkpoint string
	var inputFile string
	var savePath string
	var hiddenDim int
	var seed int64

	cmd := &cobra.Command{
		Use:   "infer [text]",
		Short: "Classify aspect sentiment in annotated text",
		Args:  cobra.MaximumNArgs(1),
		Example: `  # Single annotated sentence
  absa infer "the [ASP]battery[ASP] life is great" --checkpoint checkpoints/lcf_bert_cdw_acc_81.25_f1_77.90

  # Whole file, saving results next to it
  absa infer --file data/rest16_infer.dat --save results.txt --checkpoint ...

  # Pipe from stdin
  echo "the [ASP]screen[ASP] is dim" | absa infer --checkpoint ...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := model.NewCachedEncoder(model.NewHashEncoder(hiddenDim, seed))
			sc, err := absa.Load(checkpoint, enc)
			if err != nil {
				return err
			}

			var results []absa.Result
			switch {
			case inputFile != "":
				results, err = sc.BatchInfer(inputFile, savePath)
			case len(args) == 1:
				results, err = sc.Infer(args[0])
			default:
				text, rerr := readStdin()
				if rerr != nil {
					return rerr
				}
				results, err = sc.Infer(text)
			}
			if err != nil {
				return err
			}

			printResults(results)
			return nil
		},
	}

	cmd.Flags().StringVar(&checkpoint, "checkpoint", "", "Checkpoint directory to load")
	cmd.Flags().StringVar(&inputFile, "file", "", "Annotated file to classify line by line")
	cmd.Flags().StringVar(&savePath, "save", "", "Write results to this file as well")
	cmd.Flags().IntVar(&hiddenDim, "hidden-dim", 32, "Hash encoder dimension (must match training)")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Hash encoder seed (must match training)")
	_ = cmd.MarkFlagRequired("checkpoint")
	return cmd
}

func printResults(results []absa.Result) {
	for _, r := range results {
		line := fmt.Sprintf("%s -> %s", r.Aspect, absa.SentimentLabel(r.Sentiment))
		if r.RefSentiment != "" {
			line += fmt.Sprintf(" (ref: %s, %s)", r.RefSentiment, r.InferResult)
		}
		if _, err := fmt.Println(line); err != nil {
			slog.Error("failed to print result", "error", err)
		}
	}
	s := absa.Summarize(results)
	if s.Labeled > 0 {
		fmt.Printf("\n%d aspects, %d labeled, accuracy %.2f%%\n", s.Total, s.Labeled, s.Accuracy*100)
	} else {
		fmt.Printf("\n%d aspects\n", s.Total)
	}
}

func readStdin() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no input text")
	}
	return text, nil
}
