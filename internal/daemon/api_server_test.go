package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gamedeck/internal/artwork"
	"gamedeck/internal/catalog"
	"gamedeck/internal/events"
	"gamedeck/internal/installer"
	"gamedeck/internal/library"
	"gamedeck/internal/testsupport"
)

type scannerStub struct {
	mu     sync.Mutex
	titles []library.Title
	calls  int
}

func (s *scannerStub) Scan(context.Context, []string) []library.Title {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return append([]library.Title(nil), s.titles...)
}

type catalogStub struct{}

func (catalogStub) Search(_ context.Context, query string, _ artwork.Policy) []catalog.Entry {
	return []catalog.Entry{{Title: "Result for " + query, DetailURL: "https://catalog.example/x/"}}
}

func (catalogStub) FetchDetails(_ context.Context, detailURL string) (catalog.Details, bool) {
	if strings.Contains(detailURL, "missing") {
		return catalog.Details{}, false
	}
	return catalog.Details{Description: "desc", SizeLabel: "1 GB", AllLinks: map[string]string{}}, true
}

type installerStub struct {
	mu       sync.Mutex
	lastURL  string
	lastName string
	lastDest string
}

func (i *installerStub) DirectInstall(_ context.Context, url, name, dest string) installer.Outcome {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.lastURL, i.lastName, i.lastDest = url, name, dest
	return installer.Outcome{Success: true, Message: "ok", ItemsInstalled: 1}
}

func (i *installerStub) BatchInstall(_ context.Context, downloads, dest string) installer.Outcome {
	return installer.Outcome{Success: true, Message: "No new games found in downloads."}
}

func newTestServer(t *testing.T, token string) (*Daemon, *httptest.Server, *installerStub) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	inst := &installerStub{}
	d, err := New(cfg, nil, Deps{
		Scanner: &scannerStub{titles: []library.Title{
			{ID: "hollowknight", Name: "Hollow Knight"},
			{ID: "celeste", Name: "Celeste"},
		}},
		Catalog:   catalogStub{},
		Installer: inst,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.Rescan(context.Background())
	server := httptest.NewServer(d.api.routes(token))
	t.Cleanup(server.Close)
	return d, server, inst
}

func doRequest(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAPIRequiresToken(t *testing.T) {
	_, server, _ := newTestServer(t, "secret")

	if resp := doRequest(t, http.MethodGet, server.URL+"/api/status", "", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if resp := doRequest(t, http.MethodGet, server.URL+"/api/status", "wrong", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if resp := doRequest(t, http.MethodGet, server.URL+"/api/status", "secret", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAPILibraryFilter(t *testing.T) {
	_, server, _ := newTestServer(t, "")

	resp := doRequest(t, http.MethodGet, server.URL+"/api/library?q=hk", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var snap LibrarySnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Titles) != 1 || snap.Titles[0].ID != "hollowknight" {
		t.Fatalf("unexpected titles %+v", snap.Titles)
	}
}

func TestAPIRescanRequiresPost(t *testing.T) {
	_, server, _ := newTestServer(t, "")
	if resp := doRequest(t, http.MethodGet, server.URL+"/api/library/rescan", "", ""); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
	if resp := doRequest(t, http.MethodPost, server.URL+"/api/library/rescan", "", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAPICatalogEndpoints(t *testing.T) {
	_, server, _ := newTestServer(t, "")

	if resp := doRequest(t, http.MethodGet, server.URL+"/api/catalog/search", "", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without query, got %d", resp.StatusCode)
	}
	resp := doRequest(t, http.MethodGet, server.URL+"/api/catalog/search?q=celeste", "", "")
	var payload struct {
		Entries []catalog.Entry `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Entries) != 1 || payload.Entries[0].Title != "Result for celeste" {
		t.Fatalf("unexpected entries %+v", payload.Entries)
	}

	if resp := doRequest(t, http.MethodGet, server.URL+"/api/catalog/details?url=https://c.example/missing", "", ""); resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	if resp := doRequest(t, http.MethodGet, server.URL+"/api/catalog/details?url=https://c.example/ok", "", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAPIDirectInstallUsesInstallDir(t *testing.T) {
	d, server, inst := newTestServer(t, "")

	if resp := doRequest(t, http.MethodPost, server.URL+"/api/install/direct", "", `{"url":""}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp := doRequest(t, http.MethodPost, server.URL+"/api/install/direct", "",
		`{"url":"https://pixeldrain.com/api/file/abc","name":"Celeste"}`)
	var outcome installer.Outcome
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.lastURL != "https://pixeldrain.com/api/file/abc" || inst.lastName != "Celeste" {
		t.Fatalf("unexpected install args %q %q", inst.lastURL, inst.lastName)
	}
	if inst.lastDest != d.cfg.Paths.InstallDir {
		t.Fatalf("expected install dir %q, got %q", d.cfg.Paths.InstallDir, inst.lastDest)
	}
}

func TestAPIEventsStream(t *testing.T) {
	d, server, _ := newTestServer(t, "")
	d.Bus().Publish(events.Event{Kind: events.KindInstallFailed, Reason: "direct_install"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	var kinds []events.Kind
	for scanner.Scan() {
		var evt events.Event
		if err := json.Unmarshal(scanner.Bytes(), &evt); err != nil {
			t.Fatalf("decode line %q: %v", scanner.Text(), err)
		}
		kinds = append(kinds, evt.Kind)
		if evt.Kind == "hello" {
			d.Bus().Publish(events.Event{Kind: events.KindLibraryChanged, Reason: "batch_install"})
		}
		if evt.Kind == events.KindLibraryChanged {
			break
		}
	}
	want := []events.Kind{events.KindInstallFailed, "hello", events.KindLibraryChanged}
	if len(kinds) != len(want) {
		t.Fatalf("unexpected stream %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("unexpected stream %v", kinds)
		}
	}
}
