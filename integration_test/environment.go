package integration_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bloomdesk/internal/database"
	"bloomdesk/internal/migrations"
	"bloomdesk/internal/service"
	"bloomdesk/pkg/adminapi"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// TestEnvironment wires a real local store and either a scripted upstream or
// none at all, mirroring a production deployment in miniature.
type TestEnvironment struct {
	DB         *database.Database
	Upstream   *fakeUpstream
	Moderation service.ModerationService
	Submission service.SubmissionService
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// NewTestEnvironment builds an isolated environment with a fresh database.
// withRemote controls whether a scripted upstream backend is attached.
func NewTestEnvironment(t *testing.T, withRemote bool) *TestEnvironment {
	t.Helper()

	t.Setenv("BLOOMDESK_ENABLE_ENCRYPTION", "false")
	t.Setenv("BLOOMDESK_ENCRYPTION_SECRET", "")

	origDir := migrations.MigrationsDir
	migrations.MigrationsDir = filepath.Join("..", "scripts", "migrations")
	t.Cleanup(func() { migrations.MigrationsDir = origDir })

	db, err := database.New(filepath.Join(t.TempDir(), "bloomdesk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	env := &TestEnvironment{DB: db}
	logger := testLogger()

	var remote service.RemoteAPI
	if withRemote {
		env.Upstream = newFakeUpstream(t)
		remote = adminapi.NewClientWithLogger(env.Upstream.URL(), "upstream-token",
			&http.Client{Timeout: 2 * time.Second}, logger)
	}

	env.Moderation = service.NewModerationService(remote, db, logger)
	env.Submission = service.NewSubmissionService(remote, db, nil, logger)
	return env
}

// fakeUpstream is a scripted stand-in for the hosted moderation API. Its
// behavior per request is controlled by mode.
type fakeUpstream struct {
	mu       sync.Mutex
	server   *httptest.Server
	mode     string // "ok", "down", "unauthorized"
	reviews  adminapi.ReviewBuckets
	messages []adminapi.Message
	calls    []string
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	u := &fakeUpstream{mode: "ok"}
	u.server = httptest.NewServer(http.HandlerFunc(u.handle))
	t.Cleanup(u.server.Close)
	return u
}

func (u *fakeUpstream) URL() string { return u.server.URL }

func (u *fakeUpstream) SetMode(mode string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.mode = mode
}

func (u *fakeUpstream) SetReviews(buckets adminapi.ReviewBuckets) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.reviews = buckets
}

func (u *fakeUpstream) Calls() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.calls...)
}

func (u *fakeUpstream) handle(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.calls = append(u.calls, r.Method+" "+r.URL.Path)

	switch u.mode {
	case "down":
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	case "unauthorized":
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/admin/reviews":
		_ = json.NewEncoder(w).Encode(u.reviews)
	case "/api/admin/messages":
		_ = json.NewEncoder(w).Encode(adminapi.MessageList{Messages: u.messages})
	default:
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}
}
