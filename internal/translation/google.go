package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"horse.fit/pagetrans/internal/language"
)

// DefaultGoogleURL is the public gtx endpoint used by browser extensions.
const DefaultGoogleURL = "https://translate.googleapis.com/translate_a/single"

// GoogleProvider calls the keyless Google Translate gtx endpoint.
type GoogleProvider struct {
	baseURL string
	client  *http.Client
}

func NewGoogleProvider(baseURL string) *GoogleProvider {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		trimmed = DefaultGoogleURL
	}
	return &GoogleProvider{
		baseURL: trimmed,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *GoogleProvider) Name() string {
	return "google"
}

func (p *GoogleProvider) SupportedLanguages() []string {
	return PopupLanguageCodes()
}

func (p *GoogleProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	if p == nil {
		return nil, fmt.Errorf("google provider is nil")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}
	targetLang := language.NormalizeCode(req.TargetLang)
	if targetLang == "" {
		return nil, fmt.Errorf("target language is required")
	}
	sourceLang := language.NormalizeCode(req.SourceLang)
	if sourceLang == "" {
		sourceLang = language.Auto
	}

	endpoint, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse google endpoint: %w", err)
	}
	query := endpoint.Query()
	query.Set("client", "gtx")
	query.Set("sl", sourceLang)
	query.Set("tl", targetLang)
	query.Set("dt", "t")
	query.Set("q", text)
	endpoint.RawQuery = query.Encode()

	started := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build translation request: %w", err)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderTransportError{Provider: p.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderTransportError{Provider: p.Name(), StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderTransportError{
			Provider:   p.Name(),
			StatusCode: resp.StatusCode,
			Body:       bodyExcerpt(body),
		}
	}

	translated, detected, err := parseGooglePayload(body)
	if err != nil {
		return nil, err
	}
	if detected != "" && sourceLang == language.Auto {
		sourceLang = detected
	}

	return &TranslateResponse{
		Text:         translated,
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		ProviderName: p.Name(),
		LatencyMs:    time.Since(started).Milliseconds(),
	}, nil
}

// parseGooglePayload pulls segment text out of the gtx array-of-arrays body.
// data[0] holds [translated, original, ...] segments; data[2] is the detected
// source language.
func parseGooglePayload(body []byte) (string, string, error) {
	var data []json.RawMessage
	if err := json.Unmarshal(body, &data); err != nil {
		return "", "", &ProviderShapeError{Provider: "google", Reason: "body is not an array", Err: err}
	}
	if len(data) == 0 {
		return "", "", &ProviderShapeError{Provider: "google", Reason: "empty payload"}
	}

	var segments []json.RawMessage
	if err := json.Unmarshal(data[0], &segments); err != nil {
		return "", "", &ProviderShapeError{Provider: "google", Reason: "first element is not a segment list", Err: err}
	}

	parts := make([]string, 0, len(segments))
	for _, raw := range segments {
		var segment []json.RawMessage
		if err := json.Unmarshal(raw, &segment); err != nil || len(segment) == 0 {
			continue
		}
		var piece string
		if err := json.Unmarshal(segment[0], &piece); err != nil {
			continue
		}
		if piece == "" {
			continue
		}
		parts = append(parts, piece)
	}
	if len(parts) == 0 {
		return "", "", &ProviderShapeError{Provider: "google", Reason: "no translated segments"}
	}

	var detected string
	if len(data) > 2 {
		_ = json.Unmarshal(data[2], &detected)
	}
	return strings.Join(parts, "\n"), language.NormalizeCode(detected), nil
}
