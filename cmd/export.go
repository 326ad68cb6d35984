package main

import (
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/comps-valuation/internal/export"
)

var (
	exportID     string
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a stored analysis as CSV or XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		a, err := st.GetAnalysis(ctx, exportID)
		if err != nil {
			return err
		}

		now := time.Now()
		out := exportOut
		if out == "" {
			out = export.Filename(a.ID, format, now)
		}

		var w io.Writer
		if out == "-" {
			w = cmd.OutOrStdout()
		} else {
			f, err := os.Create(out)
			if err != nil {
				return eris.Wrap(err, "export: create file")
			}
			defer f.Close() //nolint:errcheck
			w = f
		}

		if err := export.Write(w, a, format, now); err != nil {
			return err
		}
		if out != "-" {
			zap.L().Info("export written", zap.String("path", out), zap.String("format", string(format)))
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportID, "id", "", "analysis id")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "export format: csv or xlsx")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (- for stdout; default analysis_<id>_<ts>.<format>)")
	_ = exportCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(exportCmd)
}
