package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/pagetrans/internal/db"
	"horse.fit/pagetrans/internal/engine"
	"horse.fit/pagetrans/internal/panel"
	"horse.fit/pagetrans/internal/settings"
)

type fakeTranslator struct {
	mu    sync.Mutex
	cache map[string]string
	fail  bool
	calls []string
}

func newFakeTranslator() *fakeTranslator {
	return &fakeTranslator{cache: map[string]string{}}
}

func (f *fakeTranslator) Lookup(text, targetLang string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.cache[targetLang+"|"+text]
	return value, ok
}

func (f *fakeTranslator) Translate(_ context.Context, text, _, targetLang string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, targetLang+"|"+text)
	if f.fail {
		return "", errors.New("upstream unavailable")
	}
	out := "[" + targetLang + "] " + text
	f.cache[targetLang+"|"+text] = out
	return out, nil
}

type fakeRunStore struct {
	rows []db.PageRunRow
}

func (f *fakeRunStore) ListRecentPageRuns(_ context.Context, limit int) ([]db.PageRunRow, error) {
	if limit < len(f.rows) {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

func (f *fakeRunStore) CountPageRuns(context.Context) (int64, error) {
	return int64(len(f.rows)), nil
}

type testEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, translator *fakeTranslator, runs RunStore) (*Server, *engine.Registry, settings.Store) {
	t.Helper()
	registry := engine.NewRegistry(translator, engine.Options{TargetLang: "zh", BatchDelay: 0}, 0, zerolog.Nop())
	t.Cleanup(registry.Close)
	store := settings.NewMemoryStore()
	server := NewServer(registry, translator, store, runs, zerolog.Nop(), Options{DefaultTargetLang: "zh"})
	return server, registry, store
}

func doRequest(t *testing.T, server *Server, method, path, body string) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	var env testEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, env
}

func TestHealthAndPing(t *testing.T) {
	t.Parallel()

	server, _, _ := newTestServer(t, newFakeTranslator(), nil)

	rec, env := doRequest(t, server, http.MethodGet, "/api/v1/ping", "")
	if rec.Code != http.StatusOK || env.Status != "success" || !strings.Contains(string(env.Data), `"pong":true`) {
		t.Fatalf("unexpected ping response: %d %s", rec.Code, rec.Body.String())
	}

	rec, env = doRequest(t, server, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), `"service":"pagetrans"`) {
		t.Fatalf("unexpected health response: %d %s", rec.Code, rec.Body.String())
	}

	rec, env = doRequest(t, server, http.MethodGet, "/api/v1/missing", "")
	if rec.Code != http.StatusNotFound || env.Status != "fail" {
		t.Fatalf("expected jsend 404, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Parallel()

	server, _, _ := newTestServer(t, newFakeTranslator(), nil)

	rec, _ := doRequest(t, server, http.MethodPut, "/api/v1/settings", `{"last_target_lang":"not a language"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected validation failure, got %d", rec.Code)
	}
	rec, _ = doRequest(t, server, http.MethodPut, "/api/v1/settings", `{"theme":"dark"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected unknown field to be rejected, got %d", rec.Code)
	}

	rec, _ = doRequest(t, server, http.MethodPut, "/api/v1/settings", `{"last_target_lang":"ja-JP"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	_, env := doRequest(t, server, http.MethodGet, "/api/v1/settings", "")
	var data struct {
		Settings settingsResponse `json:"settings"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if data.Settings.LastTargetLang != "ja" {
		t.Fatalf("expected ja, got %q", data.Settings.LastTargetLang)
	}

	_, env = doRequest(t, server, http.MethodGet, "/api/v1/languages", "")
	if !strings.Contains(string(env.Data), `"current":"ja"`) || !strings.Contains(string(env.Data), `"code":"ko"`) {
		t.Fatalf("unexpected languages payload: %s", env.Data)
	}
}

func TestTranslateEndpoint(t *testing.T) {
	t.Parallel()

	translator := newFakeTranslator()
	server, _, store := newTestServer(t, translator, nil)

	rec, env := doRequest(t, server, http.MethodPost, "/api/v1/translate", `{"text":"   "}`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(string(env.Data), panel.EmptyInputText) {
		t.Fatalf("expected empty input message, got %d %s", rec.Code, rec.Body.String())
	}

	rec, env = doRequest(t, server, http.MethodPost, "/api/v1/translate", `{"text":"Good morning","target_lang":"fr"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var data translateResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode translate response: %v", err)
	}
	if data.TranslatedText != "[fr] Good morning" || data.SourceLang != "auto" {
		t.Fatalf("unexpected translation %+v", data)
	}
	if got, _ := settings.LastTargetLang(context.Background(), store, "zh"); got != "fr" {
		t.Fatalf("expected target change to be persisted, got %q", got)
	}

	translator.mu.Lock()
	translator.fail = true
	translator.mu.Unlock()
	rec, env = doRequest(t, server, http.MethodPost, "/api/v1/translate", `{"text":"Good night"}`)
	if rec.Code != http.StatusBadGateway || env.Message != panel.FailedText {
		t.Fatalf("expected failure message, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestDocumentLifecycle(t *testing.T) {
	t.Parallel()

	server, registry, _ := newTestServer(t, newFakeTranslator(), nil)

	rec, env := doRequest(t, server, http.MethodPost, "/api/v1/documents",
		`{"html":"<html><head></head><body><p>Hello world</p></body></html>","target_lang":"de"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Document documentResponse `json:"document"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode created document: %v", err)
	}
	id := created.Document.ID
	if id == "" || created.Document.Mode != "hover" || created.Document.TargetLang != "de" {
		t.Fatalf("unexpected document %+v", created.Document)
	}

	rec, _ = doRequest(t, server, http.MethodPost, "/api/v1/documents/"+id+"/messages", `{"type":"explode"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected invalid message to be rejected, got %d", rec.Code)
	}

	rec, env = doRequest(t, server, http.MethodPost, "/api/v1/documents/"+id+"/messages", `{"type":"ping"}`)
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), `"pong":true`) {
		t.Fatalf("unexpected ping reply %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = doRequest(t, server, http.MethodPost, "/api/v1/documents/"+id+"/messages", `{"type":"begin_page_translate"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	eng, err := registry.Get(id)
	if err != nil {
		t.Fatalf("get engine: %v", err)
	}
	eng.Wait()

	rec, env = doRequest(t, server, http.MethodPost, "/api/v1/documents/"+id+"/messages", `{"type":"begin_page_translate"}`)
	if rec.Code != http.StatusConflict || !strings.Contains(string(env.Data), engine.MsgAlreadyTranslated) {
		t.Fatalf("expected rejection with notice, got %d %s", rec.Code, rec.Body.String())
	}

	_, env = doRequest(t, server, http.MethodGet, "/api/v1/documents/"+id, "")
	var detail struct {
		Document documentResponse `json:"document"`
	}
	if err := json.Unmarshal(env.Data, &detail); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if detail.Document.State != "completed" || !strings.Contains(detail.Document.HTML, `data-translation="[de] Hello world"`) {
		t.Fatalf("unexpected document detail %+v", detail.Document)
	}

	_, env = doRequest(t, server, http.MethodGet, "/api/v1/documents/"+id+"/annotations", "")
	if !strings.Contains(string(env.Data), `"original":"Hello world"`) {
		t.Fatalf("unexpected annotations %s", env.Data)
	}

	rec, _ = doRequest(t, server, http.MethodGet, "/api/v1/documents/"+id+"/panel", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected unopened panel to be missing, got %d", rec.Code)
	}

	rec, _ = doRequest(t, server, http.MethodDelete, "/api/v1/documents/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected delete status %d", rec.Code)
	}
	rec, _ = doRequest(t, server, http.MethodGet, "/api/v1/documents/"+id, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected deleted document to be gone, got %d", rec.Code)
	}
}

func TestCreateDocumentValidation(t *testing.T) {
	t.Parallel()

	server, _, _ := newTestServer(t, newFakeTranslator(), nil)

	cases := map[string]string{
		"empty":     `{}`,
		"both":      `{"html":"<p>hi</p>","url":"https://example.com"}`,
		"file url":  `{"url":"/etc/passwd"}`,
		"bad mode":  `{"html":"<p>hi</p>","mode":"sideways"}`,
		"bad lang":  `{"html":"<p>hi</p>","target_lang":"auto"}`,
		"trailing":  `{"html":"<p>hi</p>"} {}`,
		"not json":  `<p>hi</p>`,
		"extra key": `{"html":"<p>hi</p>","force":true}`,
	}
	for name, body := range cases {
		rec, _ := doRequest(t, server, http.MethodPost, "/api/v1/documents", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d %s", name, rec.Code, rec.Body.String())
		}
	}
}

func TestSelectionPanelOverHTTP(t *testing.T) {
	t.Parallel()

	server, registry, _ := newTestServer(t, newFakeTranslator(), nil)
	_, env := doRequest(t, server, http.MethodPost, "/api/v1/documents", `{"html":"<p>Body text here</p>"}`)
	var created struct {
		Document documentResponse `json:"document"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode created document: %v", err)
	}
	id := created.Document.ID

	rec, _ := doRequest(t, server, http.MethodPost, "/api/v1/documents/"+id+"/messages", `{"type":"panel_copy"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected nothing to copy, got %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = doRequest(t, server, http.MethodPost, "/api/v1/documents/"+id+"/messages",
		`{"type":"begin_selection_translate","text":"Selected","anchor":{"x":780,"y":40},"viewport":{"width":800,"height":600}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	eng, _ := registry.Get(id)
	eng.Wait()

	_, env = doRequest(t, server, http.MethodGet, "/api/v1/documents/"+id+"/panel", "")
	var data struct {
		Panel  panel.View `json:"panel"`
		Markup string     `json:"markup"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode panel: %v", err)
	}
	if data.Panel.Status != panel.StatusDone || data.Panel.Result != "[zh] Selected" || data.Panel.Position.X != 460 {
		t.Fatalf("unexpected panel %+v", data.Panel)
	}
	if !strings.Contains(data.Markup, "translate-panel") {
		t.Fatalf("expected panel markup, got %q", data.Markup)
	}
}

func TestRunsEndpoint(t *testing.T) {
	t.Parallel()

	server, _, _ := newTestServer(t, newFakeTranslator(), nil)
	rec, _ := doRequest(t, server, http.MethodGet, "/api/v1/runs", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected runs to require a database, got %d", rec.Code)
	}

	store := &fakeRunStore{rows: []db.PageRunRow{
		{RunUUID: "a", DocumentID: "d1", Mode: "hover", TargetLang: "zh", Outcome: "completed", Units: 3, StartedAt: time.Unix(100, 0).UTC()},
		{RunUUID: "b", DocumentID: "d2", Mode: "inline", TargetLang: "ja", Outcome: "restored", Units: 5, StartedAt: time.Unix(50, 0).UTC()},
	}}
	server, _, _ = newTestServer(t, newFakeTranslator(), store)

	rec, _ = doRequest(t, server, http.MethodGet, "/api/v1/runs?limit=0", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected limit validation, got %d", rec.Code)
	}

	rec, env := doRequest(t, server, http.MethodGet, "/api/v1/runs?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var data struct {
		Items []pageRunItem `json:"items"`
		Total int64         `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(data.Items) != 1 || data.Items[0].RunUUID != "a" || data.Total != 2 {
		t.Fatalf("unexpected runs %+v", data)
	}
}
