// Package sink persists flat campaign records to document stores and tabular files.
package sink

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/mailercloud-sync/internal/campaign"
	"github.com/sells-group/mailercloud-sync/internal/failure"
)

// ErrNoData is returned by the file writers when there is nothing to write.
// The destination file is left untouched.
var ErrNoData = errors.New("sink: no campaign data")

// DocumentStore appends one document per record. Implementations never
// deduplicate or upsert.
type DocumentStore interface {
	// Name identifies the backend in logs and errors.
	Name() string
	// InsertRecord stores rec as a new document.
	InsertRecord(ctx context.Context, rec campaign.Record) error
	// Close releases the connection.
	Close() error
}

// StoreResult summarises a WriteDocuments pass.
type StoreResult struct {
	Inserted int
	Failed   []error
}

// WriteDocuments inserts every record in order. A record that fails to
// insert is logged as a SinkWriteError and skipped; the rest are still
// attempted. A cancelled context stops the pass early.
func WriteDocuments(ctx context.Context, store DocumentStore, records []campaign.Record) (StoreResult, error) {
	var res StoreResult
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := store.InsertRecord(ctx, rec); err != nil {
			werr := &failure.SinkWriteError{Sink: store.Name(), CampaignID: rec.CampaignID(), Err: err}
			zap.L().Error("sink: insert failed, skipping record",
				zap.String("sink", store.Name()),
				zap.String("campaign_id", rec.CampaignID()),
				zap.Error(err),
			)
			res.Failed = append(res.Failed, werr)
			continue
		}
		res.Inserted++
	}
	return res, nil
}
