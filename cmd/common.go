package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/mailercloud-sync/internal/config"
	"github.com/sells-group/mailercloud-sync/internal/daterange"
	"github.com/sells-group/mailercloud-sync/internal/sink"
	"github.com/sells-group/mailercloud-sync/internal/syncer"
	"github.com/sells-group/mailercloud-sync/pkg/mailercloud"
)

// windowFlags are the date window overrides shared by every sync command.
type windowFlags struct {
	from         string
	to           string
	currentMonth bool
}

func (w *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&w.from, "from", "", "window start YYYY-MM-DD (default from config)")
	cmd.Flags().StringVar(&w.to, "to", "", "window end YYYY-MM-DD (default from config)")
	cmd.Flags().BoolVar(&w.currentMonth, "current-month", false, "query the current calendar month instead of the configured window")
}

// apply layers the flags over the configured window.
func (w *windowFlags) apply(wc config.WindowConfig) config.WindowConfig {
	if w.from != "" {
		wc.From = w.from
	}
	if w.to != "" {
		wc.To = w.to
	}
	if w.currentMonth {
		wc.CurrentMonth = true
	}
	return wc
}

func (w *windowFlags) resolve(c *config.Config, today time.Time) (daterange.Range, error) {
	return daterange.Resolve(today, w.apply(c.Window).Override())
}

// newRunner wires a Mailercloud client into a sync runner.
func newRunner(c *config.Config) *syncer.Runner {
	opts := []mailercloud.Option{mailercloud.WithTimeout(c.Mailercloud.Timeout())}
	if c.Mailercloud.BaseURL != "" {
		opts = append(opts, mailercloud.WithBaseURL(c.Mailercloud.BaseURL))
	}
	client := mailercloud.NewClient(c.Mailercloud.APIKey, opts...)
	return syncer.New(syncer.ClientFetcher(client))
}

// openStore connects the document store selected by sc.Driver. For the SQL
// drivers the collection name is used as the table name.
func openStore(ctx context.Context, sc config.StoreConfig) (sink.DocumentStore, error) {
	switch sc.Driver {
	case config.DriverMongo:
		s, err := sink.NewMongo(ctx, sc.URI, sc.Database, sc.Collection)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		s, err := sink.NewPostgres(ctx, sc.URI, sc.Collection)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverSQLite:
		s, err := sink.NewSQLite(ctx, sc.URI, sc.Collection)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("unsupported store driver %q", sc.Driver)
	}
}
