package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mailercloud-sync/internal/config"
)

var (
	cfg     *config.Config
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:          "mailercloud-sync",
	Short:        "Pull Mailercloud campaign reports into a document store or a file",
	Long:         "Fetches one page of Mailercloud campaigns for a date window, flattens each into a fixed record with derived rates, and writes the records to MongoDB, Postgres, SQLite, CSV or XLSX.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// setup populates cfg and the global logger. The .env file is loaded first so
// its variables are visible to config.Load.
func setup() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	c, err := config.Load()
	if err != nil {
		return err
	}
	if err := config.InitLogger(c.Log); err != nil {
		return eris.Wrap(err, "init logger")
	}
	cfg = c
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
