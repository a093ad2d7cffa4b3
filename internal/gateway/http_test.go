package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auctionhq/gavel/internal/auction"
	"github.com/auctionhq/gavel/internal/auditlog"
	"github.com/auctionhq/gavel/internal/models"
)

type stubAdmin struct {
	calls     []string
	selectErr error
	commitErr error
}

func (s *stubAdmin) SelectPlayer(playerID string) error {
	s.calls = append(s.calls, "select:"+playerID)
	return s.selectErr
}

func (s *stubAdmin) SelectNext() (*models.Player, error) {
	s.calls = append(s.calls, "next")
	return &models.Player{ID: "p1"}, nil
}

func (s *stubAdmin) CommitCurrent() error {
	s.calls = append(s.calls, "commit")
	return s.commitErr
}

func (s *stubAdmin) MarkUnsold() error  { s.calls = append(s.calls, "unsold"); return nil }
func (s *stubAdmin) Undo() error        { s.calls = append(s.calls, "undo"); return nil }
func (s *stubAdmin) NextRound() error   { s.calls = append(s.calls, "round"); return nil }
func (s *stubAdmin) Pause(reason string) { s.calls = append(s.calls, "pause:"+reason) }
func (s *stubAdmin) Resume()            { s.calls = append(s.calls, "resume") }
func (s *stubAdmin) Reset()             { s.calls = append(s.calls, "reset") }

func testServer(admin *stubAdmin) *http.Server {
	cm := NewConnectionManager(DefaultConnectionConfig(), func(models.BidEvent) {})
	state := func() models.SyncSnapshot {
		return models.SyncSnapshot{LastUpdate: 7, SessionID: "s1"}
	}
	return NewHTTPServer("0", cm, state, auditlog.New(), admin)
}

func TestStateEndpoint(t *testing.T) {
	srv := testServer(&stubAdmin{})

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var snap models.SyncSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if snap.LastUpdate != 7 || snap.SessionID != "s1" {
		t.Fatalf("state = %+v", snap)
	}
}

func TestAdminRoutes(t *testing.T) {
	admin := &stubAdmin{}
	srv := testServer(admin)

	paths := []string{
		"/admin/select?player_id=p1",
		"/admin/next",
		"/admin/commit",
		"/admin/unsold",
		"/admin/undo",
		"/admin/round",
		"/admin/pause?reason=break",
		"/admin/resume",
		"/admin/reset",
	}
	for _, path := range paths {
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("POST %s status = %d, want 200", path, rec.Code)
		}
	}

	want := []string{
		"select:p1", "next", "commit", "unsold", "undo",
		"round", "pause:break", "resume", "reset",
	}
	if len(admin.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", admin.calls, want)
	}
	for i := range want {
		if admin.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", admin.calls, want)
		}
	}
}

func TestAdminRejectsGet(t *testing.T) {
	srv := testServer(&stubAdmin{})
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/commit", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestAdminDomainErrorMapsToConflict(t *testing.T) {
	admin := &stubAdmin{commitErr: auction.ErrNoTeamSelected}
	srv := testServer(admin)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/commit", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"] != auction.ErrNoTeamSelected.Error() {
		t.Fatalf("error = %q", body["error"])
	}
}

func TestAdminSelectRequiresPlayerID(t *testing.T) {
	admin := &stubAdmin{}
	srv := testServer(admin)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/select", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if len(admin.calls) != 0 {
		t.Fatalf("admin invoked without player_id: %v", admin.calls)
	}
}
