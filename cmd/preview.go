package main

import (
	"fmt"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/mailercloud-sync/internal/campaign"
)

var (
	previewLimit  int
	previewWindow windowFlags
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Fetch and map campaigns, printing the records as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireAPIKey(); err != nil {
			return err
		}

		window, err := previewWindow.resolve(cfg, time.Now())
		if err != nil {
			return err
		}

		report, _, err := newRunner(cfg).Collect(cmd.Context(), window)
		if err != nil {
			return err
		}

		for _, f := range report.Skipped {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped campaign %d (%s): %v\n", f.Index, f.CampaignID, f.Err)
		}
		return writePreview(cmd.OutOrStdout(), report.Records, previewLimit)
	},
}

// writePreview encodes up to limit records as a YAML sequence. A limit of
// zero or less prints everything.
func writePreview(w io.Writer, records []campaign.Record, limit int) error {
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "# no campaigns")
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return eris.Wrap(err, "preview: encode yaml")
	}
	return eris.Wrap(enc.Close(), "preview: flush yaml")
}

func init() {
	previewCmd.Flags().IntVar(&previewLimit, "limit", 5, "maximum records to print (0 for all)")
	previewWindow.register(previewCmd)
	rootCmd.AddCommand(previewCmd)
}
