package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultEndpoint = "https://api.mistral.ai/v1/chat/completions"
	defaultModel    = "pixtral-large-latest"

	// MaxImageBytes mirrors the upload ceiling. Larger payloads are
	// refused before any network call.
	MaxImageBytes = 5 * 1024 * 1024
)

const (
	namePromptFormat = "Provide in depth historical information about %s. Provide the response in plain text without any markdown formatting (e.g., no asterisks, hashes, or other symbols)."
	imagePrompt      = "What monument is this? Please provide in depth historical information. Provide the response in plain text without any markdown formatting (e.g., no asterisks, hashes, or other symbols)."
)

// Describer produces monument descriptions from a name or a photo.
type Describer interface {
	DescribeByName(ctx context.Context, name string) (string, error)
	DescribeByImage(ctx context.Context, image []byte) (string, error)
}

// Config encapsulates the Mistral API configuration.
type Config struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
}

// MistralClient wraps the Mistral chat completions API.
type MistralClient struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewMistralClient constructs a client for the desired model.
func NewMistralClient(cfg Config) *MistralClient {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &MistralClient{
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		endpoint: cfg.Endpoint,
		client: &http.Client{
			Timeout: cfg.Timeout,
			// The API host must stay reachable regardless of the
			// deployment's proxy settings, so none are consulted.
			Transport: &http.Transport{Proxy: nil},
		},
	}
}

// DescribeByName asks for an in-depth historical account of the named
// monument in plain text.
func (c *MistralClient) DescribeByName(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("mistral: empty monument name")
	}

	content := []map[string]any{
		{"type": "text", "text": fmt.Sprintf(namePromptFormat, name)},
	}
	return c.complete(ctx, content)
}

// DescribeByImage asks the model to identify the monument in the image
// and describe it. The bytes must already be normalized and under the
// size ceiling.
func (c *MistralClient) DescribeByImage(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("mistral: empty image payload")
	}
	if len(image) > MaxImageBytes {
		return "", fmt.Errorf("mistral: image exceeds %d bytes", MaxImageBytes)
	}

	content := []map[string]any{
		{
			"type": "image_url",
			"image_url": map[string]string{
				"url": "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
			},
		},
		{"type": "text", "text": imagePrompt},
	}
	return c.complete(ctx, content)
}

func (c *MistralClient) complete(ctx context.Context, content []map[string]any) (string, error) {
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{"role": "user", "content": content},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal mistral payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("mistral request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mistral perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var failure struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		return "", fmt.Errorf("mistral status %d: %s", resp.StatusCode, failure.Message)
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("mistral decode response: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("mistral returned no choices")
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("mistral choice missing content")
	}
	return text, nil
}
