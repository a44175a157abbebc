package translation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGoogleProviderJoinsSegments(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("client") != "gtx" || query.Get("tl") != "zh" || query.Get("sl") != "auto" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if query.Get("q") != "Hello. World." {
			t.Errorf("unexpected q: %q", query.Get("q"))
		}
		_, _ = w.Write([]byte(`[[["你好。","Hello.",null,null,1],["","",null],["世界。","World.",null,null,1]],null,"en"]`))
	}))
	defer server.Close()

	provider := NewGoogleProvider(server.URL)
	resp, err := provider.Translate(context.Background(), TranslateRequest{Text: "Hello. World.", SourceLang: "auto", TargetLang: "zh"})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if resp.Text != "你好。\n世界。" {
		t.Fatalf("unexpected translation: %q", resp.Text)
	}
	if resp.SourceLang != "en" {
		t.Fatalf("expected detected source language en, got %q", resp.SourceLang)
	}
}

func TestGoogleProviderTransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewGoogleProvider(server.URL).Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "ja"})
	var transportErr *ProviderTransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if transportErr.StatusCode != http.StatusTooManyRequests || transportErr.Body != "quota exceeded" {
		t.Fatalf("unexpected transport error fields: %+v", transportErr)
	}
}

func TestParseGooglePayloadShapeErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not json":        `<html>`,
		"object":          `{"a":1}`,
		"empty array":     `[]`,
		"no segments":     `[null]`,
		"empty segments":  `[[["",""]]]`,
		"wrong first ele": `["text"]`,
	}
	for name, body := range cases {
		_, _, err := parseGooglePayload([]byte(body))
		var shapeErr *ProviderShapeError
		if !errors.As(err, &shapeErr) {
			t.Fatalf("%s: expected shape error, got %v", name, err)
		}
	}
}

func TestRegistryFromConfig(t *testing.T) {
	t.Parallel()

	registry := NewRegistryFromConfig(ProviderConfig{Default: "LOCAL"})
	if registry.DefaultProvider() != "local" {
		t.Fatalf("expected local default, got %q", registry.DefaultProvider())
	}
	if _, err := registry.Provider("google"); err != nil {
		t.Fatalf("expected google provider to be registered: %v", err)
	}
	if _, err := registry.Provider("deepl"); err == nil {
		t.Fatalf("expected unknown provider to fail")
	}

	fallback := NewRegistryFromConfig(ProviderConfig{Default: "missing"})
	if fallback.DefaultProvider() != DefaultProviderName {
		t.Fatalf("expected fallback to %q, got %q", DefaultProviderName, fallback.DefaultProvider())
	}
}
