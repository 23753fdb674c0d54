package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/safe-skin/internal/diagnosis"
	"github.com/Brownie44l1/safe-skin/internal/recommend"
	"github.com/Brownie44l1/safe-skin/internal/service"
)

var classifyJSON bool

var classifyCmd = &cobra.Command{
	Use:   "classify <image>",
	Short: "Classify one JPEG or PNG image and print the recommendation",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassify,
}

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List the diagnostic classes in model output order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printLabels(cmd.OutOrStdout())
	},
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "print the prediction as JSON")
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	svc, gateway := newService(cfg)
	defer gateway.Close()

	if err := svc.Start(cmd.Context()); err != nil {
		return err
	}

	pred, err := svc.ClassifyImage(cmd.Context(), data)
	if err != nil {
		return fmt.Errorf("classify %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if classifyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(pred)
	}
	return printPrediction(out, pred)
}

func printPrediction(w io.Writer, pred *service.Prediction) error {
	fmt.Fprintf(w, "Prediction: %s\n", pred.Result.Label)
	fmt.Fprintf(w, "Confidence: %.2f%%\n\n", pred.Result.Confidence*100)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, pt := range pred.Series {
		fmt.Fprintf(tw, "%s\t%.4f\n", pt.Label, pt.Probability)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if pred.Recommendation == nil {
		_, err := fmt.Fprintf(w, "\n%s\n", recommend.NoRecommendation)
		return err
	}
	fmt.Fprintf(w, "\nRecovery window: %s\n", pred.Recommendation.RecoveryWindow)
	for i, step := range pred.Recommendation.Steps {
		fmt.Fprintf(w, "  %d. %s\n", i+1, step)
	}
	return nil
}

func printLabels(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tLABEL\tMALIGNANCY\tRECOVERY")
	for _, l := range diagnosis.All() {
		window := "-"
		if rec, ok := recommend.Resolve(l); ok {
			window = rec.RecoveryWindow
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", l.Index, l.Name, l.Malignancy, window)
	}
	return tw.Flush()
}
