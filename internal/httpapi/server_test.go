package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coopco/wishbot/internal/docstore"
	"github.com/coopco/wishbot/internal/identity"
	"github.com/coopco/wishbot/internal/schedule"
	"github.com/coopco/wishbot/internal/store"
	"github.com/coopco/wishbot/internal/wish"
)

const (
	testSecret = "0123456789abcdef0123456789abcdef"
	owner      = "15550001111@s.whatsapp.net"
	alice      = "15552223333@s.whatsapp.net"
)

type fakeTicker struct{ calls int }

func (f *fakeTicker) Tick(context.Context) schedule.Report {
	f.calls++
	return schedule.Report{Sent: 2, Failed: 1}
}

func setup(t *testing.T) (*httptest.Server, *store.Store, *docstore.Memory, *fakeTicker, string) {
	t.Helper()
	mem := docstore.NewMemory()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	st := store.New(mem, store.Options{Owner: identity.Owner{Address: owner}, Now: func() time.Time { return now }})
	if err := st.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	ticker := &fakeTicker{}
	tokens := NewTokens(testSecret)
	srv := httptest.NewServer(New(st, ticker, tokens).Handler())
	t.Cleanup(srv.Close)

	tok, err := tokens.Sign("ops", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return srv, st, mem, ticker, tok
}

func do(t *testing.T, method, url, token string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func TestHealthNeedsNoToken(t *testing.T) {
	srv, _, _, _, _ := setup(t)
	resp, body := do(t, http.MethodGet, srv.URL+"/v1/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"ok"`) {
		t.Errorf("unexpected body %s", body)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _, _, _, _ := setup(t)

	expired := NewTokens(testSecret)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Sign("ops", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	forged, err := NewTokens("another-secret-entirely").Sign("ops", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
		{"expired", old},
		{"wrong secret", forged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := do(t, http.MethodGet, srv.URL+"/v1/status", tt.token)
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", resp.StatusCode)
			}
		})
	}
}

func TestVerifyReturnsSubject(t *testing.T) {
	tokens := NewTokens(testSecret)
	tok, err := tokens.Sign("ops", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	sub, err := tokens.Verify(tok)
	if err != nil || sub != "ops" {
		t.Errorf("Verify = %q, %v", sub, err)
	}
}

func TestStatus(t *testing.T) {
	srv, st, _, _, tok := setup(t)
	if _, err := st.AddWish(context.Background(), "25/12/2025", "09:00", alice, "hi", owner); err != nil {
		t.Fatal(err)
	}

	resp, body := do(t, http.MethodGet, srv.URL+"/v1/status", tok)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got statusResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if !got.Active || got.Owner != owner || got.Counts.Wishes != 1 {
		t.Errorf("unexpected status %+v", got)
	}
}

func TestWishesAndArchives(t *testing.T) {
	srv, st, _, _, tok := setup(t)
	ctx := context.Background()
	w1, err := st.AddWish(ctx, "25/12/2025", "09:00", alice, "one", owner)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.AddWish(ctx, "26/12/2025", "09:00", owner, "two", alice); err != nil {
		t.Fatal(err)
	}
	if _, err := st.ArchiveWish(ctx, w1, wish.ReasonSent); err != nil {
		t.Fatal(err)
	}

	_, body := do(t, http.MethodGet, srv.URL+"/v1/wishes", tok)
	var ws []wish.Wish
	if err := json.Unmarshal(body, &ws); err != nil {
		t.Fatal(err)
	}
	if len(ws) != 1 || ws[0].Message != "two" {
		t.Errorf("unexpected wishes %+v", ws)
	}

	_, body = do(t, http.MethodGet, srv.URL+"/v1/wishes?created_by="+owner, tok)
	if err := json.Unmarshal(body, &ws); err != nil {
		t.Fatal(err)
	}
	if len(ws) != 0 {
		t.Errorf("expected no wishes created by the owner, got %d", len(ws))
	}

	var arch []wish.ArchivedWish
	_, body = do(t, http.MethodGet, srv.URL+"/v1/archives?reason=sent", tok)
	if err := json.Unmarshal(body, &arch); err != nil {
		t.Fatal(err)
	}
	if len(arch) != 1 || arch[0].ID != w1.ID {
		t.Errorf("unexpected archives %+v", arch)
	}
	_, body = do(t, http.MethodGet, srv.URL+"/v1/archives?reason=manual", tok)
	if err := json.Unmarshal(body, &arch); err != nil {
		t.Fatal(err)
	}
	if len(arch) != 0 {
		t.Errorf("expected no manual archives, got %d", len(arch))
	}
}

func TestBackupEndpoint(t *testing.T) {
	srv, _, mem, _, tok := setup(t)
	resp, body := do(t, http.MethodPost, srv.URL+"/v1/backups", tok)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	var got map[string]string
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got["file"] != "backup_2025-06-01_12-00-00.json" {
		t.Errorf("unexpected file %q", got["file"])
	}
	if _, ok := mem.Raw("backups/backup_2025-06-01_12-00-00"); !ok {
		t.Error("backup document was not written")
	}
}

func TestBackupFailure(t *testing.T) {
	srv, _, mem, _, tok := setup(t)
	mem.FailSave = func(name string) error {
		if strings.HasPrefix(name, "backups/") {
			return errors.New("disk full")
		}
		return nil
	}
	resp, _ := do(t, http.MethodPost, srv.URL+"/v1/backups", tok)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
}

func TestManualTick(t *testing.T) {
	srv, _, _, ticker, tok := setup(t)
	resp, body := do(t, http.MethodPost, srv.URL+"/v1/scheduler/tick", tok)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ticker.calls != 1 {
		t.Errorf("expected one tick, got %d", ticker.calls)
	}
	var rep schedule.Report
	if err := json.Unmarshal(body, &rep); err != nil {
		t.Fatal(err)
	}
	if rep.Sent != 2 || rep.Failed != 1 {
		t.Errorf("unexpected report %+v", rep)
	}

	resp, _ = do(t, http.MethodGet, srv.URL+"/v1/scheduler/tick", tok)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", resp.StatusCode)
	}
}

func TestListenAndServeStopsWithContext(t *testing.T) {
	mem := docstore.NewMemory()
	st := store.New(mem, store.Options{Owner: identity.Owner{Address: owner}})
	s := New(st, &fakeTicker{}, NewTokens(testSecret))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
