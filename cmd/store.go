package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/mailercloud-sync/internal/sink"
)

var (
	storeDriver string
	storeWindow windowFlags
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Fetch campaigns and insert one document per campaign",
	Long:  "Fetches the campaign page for the window, maps every campaign and appends it to the configured document store. Re-running inserts duplicates.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if storeDriver != "" {
			cfg.Store.Driver = storeDriver
		}
		if err := cfg.RequireAPIKey(); err != nil {
			return err
		}
		if err := cfg.RequireStore(); err != nil {
			return err
		}

		window, err := storeWindow.resolve(cfg, time.Now())
		if err != nil {
			return err
		}

		// The store is connected only after the fetch succeeds.
		sum, err := newRunner(cfg).RunStore(ctx, window, func(ctx context.Context) (sink.DocumentStore, error) {
			return openStore(ctx, cfg.Store)
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "inserted %d documents into %s (%d skipped, %d failed) for %s..%s\n",
			sum.Inserted, sum.Sink, sum.Skipped, sum.Failed, window.From, window.To)
		return nil
	},
}

func init() {
	storeCmd.Flags().StringVar(&storeDriver, "driver", "", "document store: mongo, postgres or sqlite (default from config)")
	storeWindow.register(storeCmd)
	rootCmd.AddCommand(storeCmd)
}
