// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/playlog/internal/auth"
	"github.com/tomtom215/playlog/internal/config"
	"github.com/tomtom215/playlog/internal/database"
	"github.com/tomtom215/playlog/internal/dedup"
	"github.com/tomtom215/playlog/internal/importer"
	"github.com/tomtom215/playlog/internal/models"
)

const testPassword = "correct horse battery staple"

type fakeSyncManager struct {
	result *models.SyncResult
	err    error
}

func (f *fakeSyncManager) TriggerSync(context.Context) (*models.SyncResult, error) {
	return f.result, f.err
}

func (f *fakeSyncManager) Status() (bool, *models.SyncResult) {
	return f.result != nil, f.result
}

type testServer struct {
	server *httptest.Server
	db     *database.DB
	token  string
}

// newTestServer stands up the full route tree against an in-memory
// database and returns a client-ready server plus a valid session token.
func newTestServer(t *testing.T, syncMgr SyncManager) *testServer {
	t.Helper()

	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	cfg := &config.Config{
		Spotify: config.SpotifyConfig{UserID: "alice"},
		Import: config.ImportConfig{
			BatchSize:    100,
			MaxFileBytes: 1 << 20,
			MatchWindow:  5 * time.Second,
		},
		Auth: config.AuthConfig{
			JWTSecret:    "0123456789abcdef0123456789abcdef",
			PasswordHash: hash,
			TokenTTL:     time.Hour,
		},
	}

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	jwtManager, err := auth.NewJWTManager(&cfg.Auth)
	if err != nil {
		t.Fatalf("failed to create jwt manager: %v", err)
	}

	reconciler := dedup.NewReconciler(db, cfg.Import.MatchWindow)
	importSvc := importer.NewService(db, reconciler, &cfg.Import)
	handler := NewHandler(db, importSvc, reconciler, syncMgr, cfg, jwtManager)
	router := NewRouter(handler, auth.NewMiddleware(jwtManager))

	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)

	token, err := jwtManager.GenerateToken("alice")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	return &testServer{server: server, db: db, token: token}
}

func (ts *testServer) request(t *testing.T, method, path string, body *bytes.Buffer, contentType string) *http.Response {
	t.Helper()

	if body == nil {
		body = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, ts.server.URL+path, body)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+ts.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := ts.server.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response) *models.APIResponse {
	t.Helper()
	defer resp.Body.Close()

	var envelope models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return &envelope
}

// exportBody builds a multipart upload for the given export content.
func exportBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

const exportContent = `[
	{"endTime": "2024-06-01 12:00", "artistName": "Boards of Canada", "trackName": "Roygbiv", "msPlayed": 158000},
	{"endTime": "2024-06-01 12:05", "artistName": "Autechre", "trackName": "Amber", "msPlayed": 221000}
]`

func TestLogin(t *testing.T) {
	ts := newTestServer(t, &fakeSyncManager{})

	t.Run("valid password issues token", func(t *testing.T) {
		body := bytes.NewBufferString(fmt.Sprintf(`{"password": %q}`, testPassword))
		resp, err := ts.server.Client().Post(ts.server.URL+"/api/v1/auth/token", "application/json", body)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		envelope := decodeResponse(t, resp)

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		data, _ := envelope.Data.(map[string]interface{})
		token, _ := data["token"].(string)
		if token == "" {
			t.Error("response should carry a token")
		}
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		body := bytes.NewBufferString(`{"password": "wrong"}`)
		resp, err := ts.server.Client().Post(ts.server.URL+"/api/v1/auth/token", "application/json", body)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	ts := newTestServer(t, &fakeSyncManager{})

	resp, err := ts.server.Client().Get(ts.server.URL + "/api/v1/stats")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without token", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeSyncManager{})

	resp, err := ts.server.Client().Get(ts.server.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestImportEndpoint(t *testing.T) {
	ts := newTestServer(t, &fakeSyncManager{})

	t.Run("accepts a valid export", func(t *testing.T) {
		body, contentType := exportBody(t, "StreamingHistory0.json", exportContent)
		resp := ts.request(t, http.MethodPost, "/api/v1/import", body, contentType)
		envelope := decodeResponse(t, resp)

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		data, _ := envelope.Data.(map[string]interface{})
		if inserted, _ := data["inserted_plays"].(float64); inserted != 2 {
			t.Errorf("inserted_plays = %v, want 2", data["inserted_plays"])
		}
	})

	t.Run("re-upload of identical content is a conflict", func(t *testing.T) {
		body, contentType := exportBody(t, "StreamingHistory0.json", exportContent)
		resp := ts.request(t, http.MethodPost, "/api/v1/import", body, contentType)
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusConflict {
			t.Errorf("status = %d, want 409", resp.StatusCode)
		}
	})

	t.Run("invalid format is a bad request", func(t *testing.T) {
		body, contentType := exportBody(t, "StreamingHistory1.json", "not json")
		resp := ts.request(t, http.MethodPost, "/api/v1/import", body, contentType)
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("missing file field is a bad request", func(t *testing.T) {
		resp := ts.request(t, http.MethodPost, "/api/v1/import", bytes.NewBufferString("{}"), "application/json")
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestStatsAndRecentPlays(t *testing.T) {
	ts := newTestServer(t, &fakeSyncManager{})

	body, contentType := exportBody(t, "StreamingHistory0.json", exportContent)
	resp := ts.request(t, http.MethodPost, "/api/v1/import", body, contentType)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import status = %d, want 200", resp.StatusCode)
	}

	t.Run("stats counts imported plays", func(t *testing.T) {
		resp := ts.request(t, http.MethodGet, "/api/v1/stats", nil, "")
		envelope := decodeResponse(t, resp)

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		data, _ := envelope.Data.(map[string]interface{})
		if imported, _ := data["imported"].(float64); imported != 2 {
			t.Errorf("imported = %v, want 2", data["imported"])
		}
	})

	t.Run("recent plays returns newest first", func(t *testing.T) {
		resp := ts.request(t, http.MethodGet, "/api/v1/plays/recent?limit=10", nil, "")
		envelope := decodeResponse(t, resp)

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		plays, _ := envelope.Data.([]interface{})
		if len(plays) != 2 {
			t.Fatalf("plays = %d, want 2", len(plays))
		}
		first, _ := plays[0].(map[string]interface{})
		if name, _ := first["track_name"].(string); name != "Amber" {
			t.Errorf("first play = %q, want the later one (Amber)", name)
		}
	})

	t.Run("invalid limit is rejected", func(t *testing.T) {
		resp := ts.request(t, http.MethodGet, "/api/v1/plays/recent?limit=abc", nil, "")
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestUploadsEndpoint(t *testing.T) {
	ts := newTestServer(t, &fakeSyncManager{})

	body, contentType := exportBody(t, "StreamingHistory0.json", exportContent)
	resp := ts.request(t, http.MethodPost, "/api/v1/import", body, contentType)
	resp.Body.Close()

	resp = ts.request(t, http.MethodGet, "/api/v1/uploads", nil, "")
	envelope := decodeResponse(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	uploads, _ := envelope.Data.([]interface{})
	if len(uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(uploads))
	}
	record, _ := uploads[0].(map[string]interface{})
	if filename, _ := record["filename"].(string); filename != "StreamingHistory0.json" {
		t.Errorf("filename = %q", filename)
	}
}

func TestReconcileEndpoint(t *testing.T) {
	ts := newTestServer(t, &fakeSyncManager{})

	body, contentType := exportBody(t, "StreamingHistory0.json", exportContent)
	resp := ts.request(t, http.MethodPost, "/api/v1/import", body, contentType)
	resp.Body.Close()

	// A live play lands within the window of the first imported play.
	livePlay := models.Play{
		UserID:     "alice",
		TrackID:    strPtr("live-track"),
		TrackName:  "Roygbiv",
		ArtistName: "Boards of Canada",
		DurationMS: 158000,
		PlayedAt:   time.Date(2024, 6, 1, 12, 0, 3, 0, time.UTC),
		Source:     models.SourceLive,
	}
	if _, _, err := ts.db.InsertPlaysBatch(context.Background(), []models.Play{livePlay}); err != nil {
		t.Fatalf("failed to seed live play: %v", err)
	}

	resp = ts.request(t, http.MethodPost, "/api/v1/reconcile", nil, "")
	envelope := decodeResponse(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data, _ := envelope.Data.(map[string]interface{})
	if removed, _ := data["removed"].(float64); removed != 1 {
		t.Errorf("removed = %v, want 1", data["removed"])
	}
	if remaining, _ := data["remaining"].(float64); remaining != 1 {
		t.Errorf("remaining = %v, want 1", data["remaining"])
	}
}

func TestSyncEndpoints(t *testing.T) {
	t.Run("trigger is rejected when sync is disabled", func(t *testing.T) {
		ts := newTestServer(t, &fakeSyncManager{})

		resp := ts.request(t, http.MethodPost, "/api/v1/sync", nil, "")
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusConflict {
			t.Errorf("status = %d, want 409", resp.StatusCode)
		}
	})

	t.Run("status reports last run", func(t *testing.T) {
		last := &models.SyncResult{Fetched: 10, Inserted: 3, Duplicates: 7, SyncedAt: time.Now().UTC()}
		ts := newTestServer(t, &fakeSyncManager{result: last})

		resp := ts.request(t, http.MethodGet, "/api/v1/sync/status", nil, "")
		envelope := decodeResponse(t, resp)

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		data, _ := envelope.Data.(map[string]interface{})
		lastSync, _ := data["last_sync"].(map[string]interface{})
		if inserted, _ := lastSync["inserted"].(float64); inserted != 3 {
			t.Errorf("last_sync.inserted = %v, want 3", lastSync["inserted"])
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, &fakeSyncManager{})

	resp, err := ts.server.Client().Get(ts.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/plain") {
		t.Errorf("content type = %q, want Prometheus exposition format", ct)
	}
}

func strPtr(s string) *string {
	return &s
}
