package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mailercloud-sync/internal/campaign"
	"github.com/sells-group/mailercloud-sync/internal/config"
	"github.com/sells-group/mailercloud-sync/internal/daterange"
	"github.com/sells-group/mailercloud-sync/internal/failure"
	"github.com/sells-group/mailercloud-sync/internal/sink"
	"github.com/sells-group/mailercloud-sync/internal/syncer"
)

type recordingStore struct {
	mu      sync.Mutex
	records []campaign.Record
	opened  bool
	closed  bool
}

func (s *recordingStore) Name() string { return "recording" }

func (s *recordingStore) InsertRecord(_ context.Context, rec campaign.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingStore) Close() error {
	s.closed = true
	return nil
}

func newTestServer(t *testing.T, f syncer.Fetcher, store *recordingStore) (*syncServer, http.Handler) {
	t.Helper()
	c := testConfig()
	c.Store = config.StoreConfig{Driver: config.DriverSQLite, URI: "unused"}
	c.Export = config.ExportConfig{Path: filepath.Join(t.TempDir(), "out.csv"), Format: config.FormatCSV}

	s := &syncServer{
		cfg:    c,
		runner: syncer.New(f),
		openStore: func(context.Context, config.StoreConfig) (sink.DocumentStore, error) {
			store.opened = true
			return store, nil
		},
		now: func() time.Time { return time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC) },
	}
	return s, buildRouter(s, []string{"https://app.example.com"})
}

func staticFetcher(raws ...string) syncer.Fetcher {
	return syncer.FetcherFunc(func(context.Context, daterange.Range) ([]json.RawMessage, error) {
		out := make([]json.RawMessage, len(raws))
		for i, r := range raws {
			out[i] = json.RawMessage(r)
		}
		return out, nil
	})
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestBuildRouter_HealthEndpoint(t *testing.T) {
	_, h := newTestServer(t, staticFetcher(), &recordingStore{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestBuildRouter_CORSPreflight(t *testing.T) {
	_, h := newTestServer(t, staticFetcher(), &recordingStore{})

	req := httptest.NewRequest(http.MethodOptions, "/sync/export", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestSyncStore_InsertsRecords(t *testing.T) {
	store := &recordingStore{}
	_, h := newTestServer(t, staticFetcher(`{"id": "c1"}`, `{"id": "c2"}`), store)

	rr := post(t, h, "/sync/store", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var sum syncer.StoreSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sum))
	assert.Equal(t, 2, sum.Inserted)
	assert.Equal(t, "recording", sum.Sink)
	assert.Equal(t, "2024-01-01", sum.Window.From)
	assert.Len(t, store.records, 2)
	assert.True(t, store.closed)
}

func TestSyncExport_WritesFileWithRequestWindow(t *testing.T) {
	var got daterange.Range
	f := syncer.FetcherFunc(func(_ context.Context, r daterange.Range) ([]json.RawMessage, error) {
		got = r
		return []json.RawMessage{json.RawMessage(`{"id": "c1"}`)}, nil
	})
	s, h := newTestServer(t, f, &recordingStore{})

	rr := post(t, h, "/sync/export", `{"current_month": true}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var sum syncer.ExportSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sum))
	assert.True(t, sum.Written)
	assert.Equal(t, 1, sum.Rows)
	assert.Equal(t, s.cfg.Export.Path, sum.Path)
	assert.Equal(t, daterange.Range{From: "2025-06-01", To: "2025-06-30"}, got)
}

func TestSyncExport_NoDataIsNotAnError(t *testing.T) {
	_, h := newTestServer(t, staticFetcher(), &recordingStore{})

	rr := post(t, h, "/sync/export", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var sum syncer.ExportSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sum))
	assert.False(t, sum.Written)
}

func TestSync_InvalidBody(t *testing.T) {
	_, h := newTestServer(t, staticFetcher(), &recordingStore{})

	rr := post(t, h, "/sync/export", "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

func TestSync_InvalidWindow(t *testing.T) {
	_, h := newTestServer(t, staticFetcher(), &recordingStore{})

	rr := post(t, h, "/sync/store", `{"from": "2025-06-30", "to": "2025-06-01"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "configuration")
}

func TestSync_MissingAPIKey(t *testing.T) {
	s, h := newTestServer(t, staticFetcher(), &recordingStore{})
	s.cfg.Mailercloud.APIKey = ""

	rr := post(t, h, "/sync/store", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSync_RemoteErrorIsBadGateway(t *testing.T) {
	f := syncer.FetcherFunc(func(context.Context, daterange.Range) ([]json.RawMessage, error) {
		return nil, &failure.RemoteAPIError{StatusCode: 503, Body: "down"}
	})
	store := &recordingStore{}
	_, h := newTestServer(t, f, store)

	rr := post(t, h, "/sync/store", "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "remote_api")
	assert.Empty(t, store.records)
	assert.False(t, store.opened)
}

func TestSync_OpenStoreError(t *testing.T) {
	s, h := newTestServer(t, staticFetcher(`{"id": "c1"}`), &recordingStore{})
	s.openStore = func(context.Context, config.StoreConfig) (sink.DocumentStore, error) {
		return nil, errors.New("connection refused")
	}

	rr := post(t, h, "/sync/store", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestSync_ConcurrentRunConflict(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	f := syncer.FetcherFunc(func(context.Context, daterange.Range) ([]json.RawMessage, error) {
		close(entered)
		<-release
		return nil, nil
	})
	_, h := newTestServer(t, f, &recordingStore{})

	done := make(chan int)
	go func() {
		done <- post(t, h, "/sync/store", "").Code
	}()
	<-entered

	rr := post(t, h, "/sync/export", "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
}
