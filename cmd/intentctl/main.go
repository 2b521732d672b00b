// intentctl classifies prompts offline and evaluates the rule classifier
// against labelled datasets.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/af-corp/imagerouter/internal/classifier"
	"github.com/af-corp/imagerouter/internal/evaluation"
	"github.com/af-corp/imagerouter/internal/extractor"
	"github.com/af-corp/imagerouter/internal/lexicon"
	"github.com/af-corp/imagerouter/internal/router"
	"github.com/af-corp/imagerouter/internal/types"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var lexiconPath string

	root := &cobra.Command{
		Use:           "intentctl",
		Short:         "Classify image prompts with the rule-based intent router",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&lexiconPath, "lexicon", "", "lexicon YAML file (default: embedded lexicon)")

	loadLexicon := func() (lexicon.Lexicon, error) {
		if lexiconPath == "" {
			return lexicon.Default(), nil
		}
		return lexicon.Load(lexiconPath)
	}

	root.AddCommand(newClassifyCmd(loadLexicon), newEvalCmd(loadLexicon))
	return root
}

func newClassifyCmd(loadLexicon func() (lexicon.Lexicon, error)) *cobra.Command {
	var override string

	cmd := &cobra.Command{
		Use:   "classify <prompt>",
		Short: "Route a single prompt and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lex, err := loadLexicon()
			if err != nil {
				return err
			}
			r := router.New(classifier.NewRuleClassifier(lex), extractor.New(lex))

			req := types.RouterRequest{Prompt: args[0]}
			if cmd.Flags().Changed("override") {
				it := types.Intent(override)
				req.Override = &it
			}

			res, err := r.Route(cmd.Context(), req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&override, "override", "", "force an intent (create_image, edit_image, unknown)")
	return cmd
}

func newEvalCmd(loadLexicon func() (lexicon.Lexicon, error)) *cobra.Command {
	var (
		minAccuracy float64
		workers     int
		showMisses  bool
	)

	cmd := &cobra.Command{
		Use:   "eval <dataset.yaml>",
		Short: "Measure classifier accuracy on a labelled dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lex, err := loadLexicon()
			if err != nil {
				return err
			}
			ds, err := evaluation.Load(args[0])
			if err != nil {
				return err
			}

			c := classifier.NewRuleClassifier(lex)
			report, err := evaluation.Run(cmd.Context(), ds, func(ctx context.Context, p string) (types.Intent, error) {
				return c.Classify(ctx, p).Intent, nil
			}, workers)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printReport(out, report)
			if showMisses {
				for _, m := range report.Misses {
					fmt.Fprintf(out, "  miss [%s] want=%s got=%s %q\n", m.Sample.Lang, m.Sample.Intent, m.Got, m.Sample.Prompt)
				}
			}

			if acc := report.Overall.Accuracy(); acc < minAccuracy {
				return fmt.Errorf("accuracy %.3f below threshold %.3f", acc, minAccuracy)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&minAccuracy, "min-accuracy", 0.95, "fail when overall accuracy is below this value")
	cmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "concurrent classifications")
	cmd.Flags().BoolVar(&showMisses, "misses", false, "list misclassified samples")
	return cmd
}

func printReport(w io.Writer, r *evaluation.Report) {
	fmt.Fprintf(w, "overall  %3d/%-3d  %.3f\n", r.Overall.Hit, r.Overall.Total, r.Overall.Accuracy())
	for _, key := range r.GroupKeys() {
		g := r.Groups[key]
		fmt.Fprintf(w, "%-20s %3d/%-3d  %.3f\n", key, g.Hit, g.Total, g.Accuracy())
	}
}
