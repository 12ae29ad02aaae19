package sink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mailercloud-sync/internal/campaign"
	"github.com/sells-group/mailercloud-sync/internal/failure"
)

// fakeStore records inserted campaign ids and fails on the ids in failOn.
type fakeStore struct {
	inserted []string
	failOn   map[string]bool
	closed   bool
}

func (f *fakeStore) Name() string { return "fake" }

func (f *fakeStore) InsertRecord(_ context.Context, rec campaign.Record) error {
	if f.failOn[rec.CampaignID()] {
		return errors.New("duplicate key")
	}
	f.inserted = append(f.inserted, rec.CampaignID())
	return nil
}

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

func testRecords(t *testing.T, raws ...string) []campaign.Record {
	t.Helper()
	var out []campaign.Record
	for _, raw := range raws {
		rec, err := campaign.Map(json.RawMessage(raw))
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func TestWriteDocuments_AllSucceed(t *testing.T) {
	store := &fakeStore{}
	records := testRecords(t, `{"id":"c1"}`, `{"id":"c2"}`, `{"id":"c3"}`)

	res, err := WriteDocuments(context.Background(), store, records)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Inserted)
	assert.Empty(t, res.Failed)
	assert.Equal(t, []string{"c1", "c2", "c3"}, store.inserted)
}

func TestWriteDocuments_IsolatesFailures(t *testing.T) {
	store := &fakeStore{failOn: map[string]bool{"c2": true}}
	records := testRecords(t, `{"id":"c1"}`, `{"id":"c2"}`, `{"id":"c3"}`)

	res, err := WriteDocuments(context.Background(), store, records)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, []string{"c1", "c3"}, store.inserted)

	require.Len(t, res.Failed, 1)
	var se *failure.SinkWriteError
	require.True(t, errors.As(res.Failed[0], &se))
	assert.Equal(t, "fake", se.Sink)
	assert.Equal(t, "c2", se.CampaignID)
}

func TestWriteDocuments_Empty(t *testing.T) {
	res, err := WriteDocuments(context.Background(), &fakeStore{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
}

func TestWriteDocuments_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &fakeStore{}
	res, err := WriteDocuments(ctx, store, testRecords(t, `{"id":"c1"}`))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Inserted)
	assert.Empty(t, store.inserted)
}
