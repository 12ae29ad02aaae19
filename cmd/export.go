package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/mailercloud-sync/internal/sink"
	"github.com/sells-group/mailercloud-sync/internal/syncer"
)

var (
	exportOutput string
	exportFormat string
	exportBOM    bool
	exportWindow windowFlags
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Fetch campaigns and write them to a CSV or XLSX file",
	Long:  "Fetches the campaign page for the window, maps every campaign and writes one row per record. An existing file is overwritten; with no campaigns the file is left alone.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportOutput != "" {
			cfg.Export.Path = exportOutput
		}
		if exportFormat != "" {
			cfg.Export.Format = exportFormat
		}
		if cmd.Flags().Changed("bom") {
			cfg.Export.BOM = exportBOM
		}
		if err := cfg.RequireAPIKey(); err != nil {
			return err
		}
		if err := cfg.RequireExport(); err != nil {
			return err
		}

		window, err := exportWindow.resolve(cfg, time.Now())
		if err != nil {
			return err
		}

		sum, err := newRunner(cfg).RunExport(cmd.Context(), window, syncer.ExportOptions{
			Path:   cfg.Export.Path,
			Format: cfg.Export.Format,
			BOM:    cfg.Export.BOM,
		})
		if errors.Is(err, sink.ErrNoData) {
			fmt.Fprintf(cmd.OutOrStdout(), "no campaign data for %s..%s, nothing written\n", window.From, window.To)
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s (%d skipped)\n", sum.Rows, sum.Path, sum.Skipped)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default from config)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "file format: csv or xlsx (default from config)")
	exportCmd.Flags().BoolVar(&exportBOM, "bom", false, "prefix CSV output with a UTF-8 byte order mark")
	exportWindow.register(exportCmd)
	rootCmd.AddCommand(exportCmd)
}
