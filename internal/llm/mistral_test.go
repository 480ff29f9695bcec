package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type     string `json:"type"`
			Text     string `json:"text"`
			ImageURL struct {
				URL string `json:"url"`
			} `json:"image_url"`
		} `json:"content"`
	} `json:"messages"`
}

func completionBody(text string) string {
	return `{"choices":[{"message":{"role":"assistant","content":` + marshalString(text) + `}}]}`
}

func marshalString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestDescribeByName(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody("The Taj Mahal is a mausoleum in Agra.")))
	}))
	defer srv.Close()

	client := NewMistralClient(Config{APIKey: "test-key", Endpoint: srv.URL})

	out, err := client.DescribeByName(context.Background(), "Taj Mahal")
	require.NoError(t, err)
	assert.Equal(t, "The Taj Mahal is a mausoleum in Agra.", out)

	assert.Equal(t, defaultModel, captured.Model)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
	require.Len(t, captured.Messages[0].Content, 1)
	assert.Equal(t, "text", captured.Messages[0].Content[0].Type)
	assert.Contains(t, captured.Messages[0].Content[0].Text, "Taj Mahal")
	assert.Contains(t, captured.Messages[0].Content[0].Text, "plain text")
}

func TestDescribeByNameRejectsEmpty(t *testing.T) {
	client := NewMistralClient(Config{APIKey: "test-key"})

	_, err := client.DescribeByName(context.Background(), "   ")
	require.Error(t, err)
}

func TestDescribeByImage(t *testing.T) {
	image := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}

	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(completionBody("This is the Gateway of India.")))
	}))
	defer srv.Close()

	client := NewMistralClient(Config{APIKey: "test-key", Endpoint: srv.URL})

	out, err := client.DescribeByImage(context.Background(), image)
	require.NoError(t, err)
	assert.Equal(t, "This is the Gateway of India.", out)

	require.Len(t, captured.Messages, 1)
	require.Len(t, captured.Messages[0].Content, 2)
	assert.Equal(t, "image_url", captured.Messages[0].Content[0].Type)

	wantURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)
	assert.Equal(t, wantURL, captured.Messages[0].Content[0].ImageURL.URL)
	assert.Equal(t, "text", captured.Messages[0].Content[1].Type)
	assert.Contains(t, captured.Messages[0].Content[1].Text, "What monument is this?")
}

func TestDescribeByImageRejectsOversized(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	client := NewMistralClient(Config{APIKey: "test-key", Endpoint: srv.URL})

	_, err := client.DescribeByImage(context.Background(), bytes.Repeat([]byte{0xAB}, MaxImageBytes+1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
	assert.Equal(t, 0, calls)
}

func TestCompleteSurfacesHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"upstream exploded"}`))
	}))
	defer srv.Close()

	client := NewMistralClient(Config{APIKey: "test-key", Endpoint: srv.URL})

	_, err := client.DescribeByName(context.Background(), "Taj Mahal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := NewMistralClient(Config{APIKey: "test-key", Endpoint: srv.URL})

	_, err := client.DescribeByName(context.Background(), "Taj Mahal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestCompleteRejectsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	client := NewMistralClient(Config{APIKey: "test-key", Endpoint: srv.URL})

	_, err := client.DescribeByName(context.Background(), "Taj Mahal")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "decode response"))
}
