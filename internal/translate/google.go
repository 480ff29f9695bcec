package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultEndpoint = "https://translate.googleapis.com/translate_a/single"

// Translator converts text between languages.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Config encapsulates the translation backend configuration.
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// GoogleTranslator wraps the public Google Translate web endpoint.
// Best effort: single attempt per invocation, no retry.
type GoogleTranslator struct {
	endpoint string
	client   *http.Client
}

// NewGoogleTranslator constructs a translator against the web endpoint.
func NewGoogleTranslator(cfg Config) *GoogleTranslator {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &GoogleTranslator{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Translate converts text from sourceLang to targetLang. An empty
// backend result is an error, never an empty success.
func (g *GoogleTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("translate: empty text")
	}
	if sourceLang == "" || targetLang == "" {
		return "", fmt.Errorf("translate: missing language codes")
	}

	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", sourceLang)
	params.Set("tl", targetLang)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("translate status %d", resp.StatusCode)
	}

	var payload []any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("translate decode response: %w", err)
	}

	translated, err := joinSegments(payload)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(translated) == "" {
		return "", fmt.Errorf("translate: no output for %s -> %s", sourceLang, targetLang)
	}
	return translated, nil
}

// joinSegments flattens the endpoint's nested-array response: the first
// element is a list of segments, each led by its translated text.
func joinSegments(payload []any) (string, error) {
	if len(payload) == 0 {
		return "", fmt.Errorf("translate: empty response payload")
	}

	segments, ok := payload[0].([]any)
	if !ok {
		return "", fmt.Errorf("translate: unexpected response shape")
	}

	var sb strings.Builder
	for _, raw := range segments {
		seg, ok := raw.([]any)
		if !ok || len(seg) == 0 {
			continue
		}
		if text, ok := seg[0].(string); ok {
			sb.WriteString(text)
		}
	}
	return sb.String(), nil
}
