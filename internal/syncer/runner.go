// Package syncer composes the fetch, map and sink steps of one sync run.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mailercloud-sync/internal/campaign"
	"github.com/sells-group/mailercloud-sync/internal/daterange"
	"github.com/sells-group/mailercloud-sync/internal/sink"
	"github.com/sells-group/mailercloud-sync/pkg/mailercloud"
)

// Fetcher returns the raw campaigns for a date window. mailercloud.Client
// satisfies it through ClientFetcher; tests inject canned responses.
type Fetcher interface {
	Fetch(ctx context.Context, r daterange.Range) ([]json.RawMessage, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, r daterange.Range) ([]json.RawMessage, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, r daterange.Range) ([]json.RawMessage, error) {
	return f(ctx, r)
}

// ClientFetcher issues the fixed first-page list request through a
// Mailercloud client.
func ClientFetcher(c mailercloud.Client) Fetcher {
	return FetcherFunc(func(ctx context.Context, r daterange.Range) ([]json.RawMessage, error) {
		return c.ListCampaigns(ctx, mailercloud.NewListRequest(r.From, r.To))
	})
}

// Runner runs one sequential pass: fetch, map every campaign, write.
type Runner struct {
	fetcher Fetcher
}

// New creates a Runner around f.
func New(f Fetcher) *Runner {
	return &Runner{fetcher: f}
}

// MapSummary describes the mapping step of a run.
type MapSummary struct {
	Window  daterange.Range `json:"window"`
	Fetched int             `json:"fetched"`
	Mapped  int             `json:"mapped"`
	Skipped int             `json:"skipped"`
}

// StoreSummary is the outcome of RunStore.
type StoreSummary struct {
	MapSummary
	Sink     string `json:"sink"`
	Inserted int    `json:"inserted"`
	Failed   int    `json:"failed"`
}

// ExportSummary is the outcome of RunExport.
type ExportSummary struct {
	MapSummary
	Path    string `json:"path"`
	Format  string `json:"format"`
	Rows    int    `json:"rows"`
	Written bool   `json:"written"`
}

// ExportOptions selects the file written by RunExport.
type ExportOptions struct {
	Path   string
	Format string
	BOM    bool
}

// Collect fetches and maps campaigns. A fetch error is returned as is and
// nothing is mapped.
func (r *Runner) Collect(ctx context.Context, window daterange.Range) (campaign.Report, MapSummary, error) {
	start := time.Now()
	raws, err := r.fetcher.Fetch(ctx, window)
	if err != nil {
		zap.L().Error("sync: fetch failed",
			zap.String("from", window.From),
			zap.String("to", window.To),
			zap.Error(err),
		)
		return campaign.Report{}, MapSummary{Window: window}, err
	}

	report := campaign.MapAll(raws)
	sum := MapSummary{
		Window:  window,
		Fetched: len(raws),
		Mapped:  len(report.Records),
		Skipped: len(report.Skipped),
	}
	zap.L().Info("sync: campaigns mapped",
		zap.String("from", window.From),
		zap.String("to", window.To),
		zap.Int("fetched", sum.Fetched),
		zap.Int("mapped", sum.Mapped),
		zap.Int("skipped", sum.Skipped),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report, sum, nil
}

// StoreOpener connects the document store for one run.
type StoreOpener func(ctx context.Context) (sink.DocumentStore, error)

// RunStore fetches and maps campaigns, then opens the store and inserts
// every record. The store is not opened when the fetch fails and is closed
// before RunStore returns. Per-record insert failures are counted, not
// returned.
func (r *Runner) RunStore(ctx context.Context, window daterange.Range, open StoreOpener) (StoreSummary, error) {
	report, ms, err := r.Collect(ctx, window)
	sum := StoreSummary{MapSummary: ms}
	if err != nil {
		return sum, err
	}

	store, err := open(ctx)
	if err != nil {
		return sum, eris.Wrap(err, "sync: open store")
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			zap.L().Warn("sync: close store failed", zap.String("sink", store.Name()), zap.Error(cerr))
		}
	}()
	sum.Sink = store.Name()

	res, err := sink.WriteDocuments(ctx, store, report.Records)
	sum.Inserted = res.Inserted
	sum.Failed = len(res.Failed)
	if err != nil {
		return sum, eris.Wrap(err, "sync: write documents")
	}

	zap.L().Info("sync: documents inserted",
		zap.String("sink", sum.Sink),
		zap.Int("inserted", sum.Inserted),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}

// RunExport fetches, maps and writes all records to one file. With no
// records the file is left alone, Written is false and sink.ErrNoData is
// returned.
func (r *Runner) RunExport(ctx context.Context, window daterange.Range, opts ExportOptions) (ExportSummary, error) {
	report, ms, err := r.Collect(ctx, window)
	sum := ExportSummary{MapSummary: ms, Path: opts.Path, Format: opts.Format}
	if err != nil {
		return sum, err
	}

	switch opts.Format {
	case "xlsx":
		err = sink.WriteXLSX(opts.Path, report.Records)
	default:
		sum.Format = "csv"
		err = sink.WriteCSV(opts.Path, report.Records, sink.CSVOptions{BOM: opts.BOM})
	}
	if errors.Is(err, sink.ErrNoData) {
		zap.L().Warn("sync: no campaign data, file not written", zap.String("path", opts.Path))
		return sum, err
	}
	if err != nil {
		return sum, err
	}

	sum.Rows = len(report.Records)
	sum.Written = true
	zap.L().Info("sync: file written",
		zap.String("path", opts.Path),
		zap.String("format", sum.Format),
		zap.Int("rows", sum.Rows),
	)
	return sum, nil
}
