package main

import (
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/comps-valuation/internal/model"
)

var (
	analyzeDescription string
	analyzeFile        string
	analyzeDepth       string
	analyzeMethods     string
	analyzeFormat      string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a full valuation analysis for a company description",
	Example: `  comps-valuation analyze --description "Acme builds workflow automation software..."
  comps-valuation analyze --file acme.txt --depth investment-grade --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		description, err := readDescription(analyzeDescription, analyzeFile, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if err := checkFormat(analyzeFormat); err != nil {
			return err
		}

		env, err := initEnv(ctx, "analysis")
		if err != nil {
			return err
		}
		defer env.Close()

		a, err := env.Pipeline.Run(ctx, model.AnalysisRequest{
			CompanyDescription: description,
			AnalysisDepth:      model.AnalysisDepth(analyzeDepth),
			ValuationMethods:   model.ValuationMethods(analyzeMethods),
		})
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		if analyzeFormat == "json" {
			return writeJSON(cmd.OutOrStdout(), a)
		}
		return renderAnalysis(cmd.OutOrStdout(), a)
	},
}

// readDescription returns the description from the flag, or from file when
// set. A file of "-" reads stdin.
func readDescription(flagValue, file string, stdin io.Reader) (string, error) {
	if flagValue != "" && file != "" {
		return "", eris.New("use either --description or --file, not both")
	}
	if file == "" {
		if strings.TrimSpace(flagValue) == "" {
			return "", eris.New("a company description is required (--description or --file)")
		}
		return flagValue, nil
	}

	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", eris.Wrapf(err, "read description from %s", file)
	}
	return string(data), nil
}

func checkFormat(format string) error {
	switch format {
	case "json", "table":
		return nil
	default:
		return eris.Errorf("unsupported output format %q (want json or table)", format)
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeDescription, "description", "", "company description (at least 50 characters)")
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "read the description from a file (- for stdin)")
	analyzeCmd.Flags().StringVar(&analyzeDepth, "depth", "", "analysis depth: standard, comprehensive or investment-grade")
	analyzeCmd.Flags().StringVar(&analyzeMethods, "methods", "", "valuation methods: all, revenue-multiple, earnings-multiple or custom")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "table", "output format: table or json")
	rootCmd.AddCommand(analyzeCmd)
}
