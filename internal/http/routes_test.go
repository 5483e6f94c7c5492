package httpapp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/spimanov/prdbd/internal/constants"
	"github.com/spimanov/prdbd/internal/domain"
	"github.com/spimanov/prdbd/internal/fingerprint"
	"github.com/spimanov/prdbd/internal/library"
	"github.com/spimanov/prdbd/internal/logger"
	"github.com/spimanov/prdbd/internal/peer"
	"github.com/spimanov/prdbd/internal/reconcile"
	"github.com/spimanov/prdbd/internal/store"
)

type stubProvider struct{}

func (stubProvider) Compute(ctx context.Context, path string) (fingerprint.Fingerprint, error) {
	return fingerprint.Fingerprint{Digest: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", Hash: 1}, nil
}

func setupServer(t *testing.T) (*httptest.Server, *store.DB, *library.MemoryLibrary) {
	t.Helper()

	db, err := store.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() {
		if cErr := db.Close(); cErr != nil {
			t.Logf("db.Close error: %v", cErr)
		}
	})

	log := logger.Default()
	lib := library.NewMemoryLibrary()
	rc := reconcile.New(db, lib, stubProvider{}, 1, log)
	handler := NewHandler(rc, db, store.NewSettingsRepo(db), log)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, db, lib
}

func doJSON(t *testing.T, method, url string, body []byte, out interface{}) int {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck // test cleanup
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, db, _ := setupServer(t)

	if _, err := db.Upsert(&domain.SongRecord{Fingerprint: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	var body map[string]interface{}
	status := doJSON(t, http.MethodGet, srv.URL+"/api/health", nil, &body)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body["status"])
	}
	if body["records"].(float64) != 1 {
		t.Errorf("Expected 1 record, got %v", body["records"])
	}
}

func TestRunPassEndpoint(t *testing.T) {
	srv, db, lib := setupServer(t)

	lib.Add("/music/a.mp3", domain.Stats{Rating: 500, PlayCount: 2})

	var summary domain.PassSummary
	status := doJSON(t, http.MethodPost, srv.URL+"/api/pass", nil, &summary)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if summary.Processed != 1 || summary.Merged != 1 {
		t.Errorf("Unexpected summary: %+v", summary)
	}

	count, _ := db.Count()
	if count != 1 {
		t.Errorf("Expected 1 record after pass, got %d", count)
	}

	// Last pass now available.
	var last domain.PassSummary
	status = doJSON(t, http.MethodGet, srv.URL+"/api/pass/last", nil, &last)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if last.ID != summary.ID {
		t.Errorf("Expected last pass %s, got %s", summary.ID, last.ID)
	}
}

func TestLastPass_NoneYet(t *testing.T) {
	srv, _, _ := setupServer(t)

	status := doJSON(t, http.MethodGet, srv.URL+"/api/pass/last", nil, nil)
	if status != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", status)
	}
}

func TestListRecords(t *testing.T) {
	srv, db, _ := setupServer(t)

	if _, err := db.Upsert(&domain.SongRecord{Fingerprint: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", Rating: 700}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	var recs []*domain.SongRecord
	status := doJSON(t, http.MethodGet, srv.URL+"/api/records", nil, &recs)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if len(recs) != 1 || recs[0].Rating != 700 {
		t.Errorf("Unexpected records: %+v", recs)
	}
}

func TestDuplicates_BadDistance(t *testing.T) {
	srv, _, _ := setupServer(t)

	for _, q := range []string{"abc", "-1", "33"} {
		status := doJSON(t, http.MethodGet, srv.URL+"/api/duplicates?distance="+q, nil, nil)
		if status != http.StatusBadRequest {
			t.Errorf("Expected 400 for distance=%s, got %d", q, status)
		}
	}
}

func TestSyncEndpoints(t *testing.T) {
	srv, db, _ := setupServer(t)

	// Import a batch.
	in := peer.NewBatch([]*domain.SongRecord{
		{Fingerprint: "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", Rating: 400, PlayCount: 3},
	})
	data, err := peer.EncodeBatch(in)
	if err != nil {
		t.Fatalf("EncodeBatch failed: %v", err)
	}

	var result map[string]interface{}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/sync/import", data, &result)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if result["applied"].(float64) != 1 {
		t.Errorf("Expected 1 applied, got %v", result["applied"])
	}

	// Operation id recorded for audit.
	opID, err := store.NewSettingsRepo(db).Get(constants.SettingLastSyncOperation)
	if err != nil {
		t.Fatalf("Settings get failed: %v", err)
	}
	if opID != in.OperationID {
		t.Errorf("Expected recorded operation id %s, got %s", in.OperationID, opID)
	}

	// Export round-trips the imported record.
	var out peer.Batch
	status = doJSON(t, http.MethodGet, srv.URL+"/api/sync/export", nil, &out)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if len(out.Records) != 1 || out.Records[0].Rating != 400 {
		t.Errorf("Unexpected export: %+v", out.Records)
	}
}

func TestImport_Malformed(t *testing.T) {
	srv, _, _ := setupServer(t)

	status := doJSON(t, http.MethodPost, srv.URL+"/api/sync/import", []byte("garbage"), nil)
	if status != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed batch, got %d", status)
	}
}

func TestPeerEndpoints(t *testing.T) {
	srv, _, _ := setupServer(t)

	// Nothing configured yet.
	var cfg struct {
		URL  string `json:"url"`
		File string `json:"file"`
	}
	status := doJSON(t, http.MethodGet, srv.URL+"/api/peer", nil, &cfg)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if cfg.URL != "" || cfg.File != "" {
		t.Errorf("Expected empty peer config, got %+v", cfg)
	}

	// Configure a file peer.
	status = doJSON(t, http.MethodPut, srv.URL+"/api/peer", []byte(`{"file": "/tmp/batch.json"}`), nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}

	status = doJSON(t, http.MethodGet, srv.URL+"/api/peer", nil, &cfg)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if cfg.File != "/tmp/batch.json" {
		t.Errorf("Expected persisted peer file, got %+v", cfg)
	}

	// URL and file together are rejected.
	status = doJSON(t, http.MethodPut, srv.URL+"/api/peer",
		[]byte(`{"url": "http://peer:8537", "file": "/tmp/batch.json"}`), nil)
	if status != http.StatusBadRequest {
		t.Errorf("Expected 400 for ambiguous peer config, got %d", status)
	}
}
