package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEndpoint = "https://translate.google.com/translate_tts"

	// maxChunkBytes bounds the text carried by a single TTS request.
	// The endpoint rejects long queries, so longer texts are split at
	// whitespace and the MP3 responses concatenated.
	maxChunkBytes = 200
)

// Synthesizer converts text to spoken audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

// Config encapsulates the speech backend configuration.
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// GoogleSynthesizer wraps the Google Translate TTS endpoint and returns
// MP3-encoded audio.
type GoogleSynthesizer struct {
	endpoint string
	client   *http.Client
}

// NewGoogleSynthesizer constructs a synthesizer against the TTS endpoint.
func NewGoogleSynthesizer(cfg Config) *GoogleSynthesizer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &GoogleSynthesizer{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Synthesize produces narration audio for text in the given language.
// On any failure it returns nil audio and an error; there is no partial
// result.
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("speech: empty text")
	}
	if lang == "" {
		return nil, fmt.Errorf("speech: empty language code")
	}

	chunks := splitChunks(text, maxChunkBytes)

	var audio bytes.Buffer
	for idx, chunk := range chunks {
		clip, err := g.fetchClip(ctx, chunk, lang, idx, len(chunks))
		if err != nil {
			return nil, err
		}
		audio.Write(clip)
	}

	if audio.Len() == 0 {
		return nil, fmt.Errorf("speech: synthesis produced no audio")
	}
	return audio.Bytes(), nil
}

func (g *GoogleSynthesizer) fetchClip(ctx context.Context, chunk, lang string, idx, total int) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", lang)
	params.Set("q", chunk)
	params.Set("textlen", strconv.Itoa(len(chunk)))
	params.Set("idx", strconv.Itoa(idx))
	params.Set("total", strconv.Itoa(total))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	// The endpoint refuses requests without a browser user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("speech status %d for lang %s", resp.StatusCode, lang)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("speech read audio: %w", err)
	}
	return data, nil
}

// splitChunks breaks text into whitespace-aligned pieces of roughly max
// bytes. A single word longer than max becomes its own chunk.
func splitChunks(text string, max int) []string {
	words := strings.Fields(text)

	var chunks []string
	var cur strings.Builder
	for _, w := range words {
		if cur.Len() > 0 && cur.Len()+1+len(w) > max {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
