package generator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_blog_pipeline/config"
)

func TestStripJSONFence(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}\n```":     `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
		"{\"a\":1}\n```":          `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, StripJSONFence(in), "input %q", in)
	}
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Score int `json:"quality_score"`
	}
	require.NoError(t, DecodeJSON("stage5", "```json\n{\"quality_score\": 7}\n```", &out))
	assert.Equal(t, 7, out.Score)

	err := DecodeJSON("stage5", "Sure! Here is the review.", &out)
	var malformed *MalformedResponseError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "stage5", malformed.Stage)
	assert.Equal(t, "Sure! Here is the review.", malformed.Raw)

	err = DecodeJSON("stage1", `{"content_type": `, &out)
	require.True(t, errors.As(err, &malformed))
}

func TestNewLLM_ConfigurationErrors(t *testing.T) {
	_, err := NewLLM(config.LLMConfig{Provider: "claude"})
	assert.True(t, config.IsConfigurationError(err))

	_, err = NewLLM(config.LLMConfig{Provider: "deepseek", APIKey: "k"})
	assert.True(t, config.IsConfigurationError(err))

	_, err = NewLLM(config.LLMConfig{Provider: "azure", APIKey: "k", BaseURL: "https://x.openai.azure.com"})
	assert.True(t, config.IsConfigurationError(err))

	_, err = NewLLM(config.LLMConfig{Provider: "nope"})
	require.Error(t, err)
	assert.False(t, config.IsConfigurationError(err))
}

func TestNewLLM_ClaudeDefaults(t *testing.T) {
	c, err := NewLLM(config.LLMConfig{Provider: "Claude", APIKey: "k"})
	require.NoError(t, err)
	o, ok := c.(*OpenAILLM)
	require.True(t, ok)
	assert.Equal(t, "claude-sonnet-4-20250514", o.Model)
	assert.Equal(t, "claude (claude-sonnet-4-20250514)", o.Name())
}

func TestOpenAILLM_CompleteSendsOptions(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"` + "```json\\n{\\\"ok\\\":true}\\n```" + `"}}]}`))
	}))
	defer srv.Close()

	llm, err := NewOpenAILLMFromConfig(&LLMSettings{Provider: "openai", Model: "m", APIKey: "k", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	out, err := llm.Complete(context.Background(), Prompt{
		Stage:       "stage1",
		System:      "sys",
		User:        "draft",
		Temperature: 0.3,
		JSONMode:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)

	assert.Equal(t, "m", got["model"])
	assert.InDelta(t, 0.3, got["temperature"], 1e-9)
	assert.EqualValues(t, defaultMaxTokens, got["max_tokens"])
	format, ok := got["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])

	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Contains(t, first["content"], "valid JSON only")
}

func TestAzureLLM_RoutesByDeployment(t *testing.T) {
	var path, version, key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		version = r.URL.Query().Get("api-version")
		key = r.Header.Get("api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"hello"}}]}`))
	}))
	defer srv.Close()

	llm, err := NewLLM(config.LLMConfig{
		Provider:   "azure",
		Model:      "blog-gpt4o",
		APIKey:     "az-key",
		BaseURL:    srv.URL + "/",
		APIVersion: "2024-02-01",
	})
	require.NoError(t, err)

	out, err := llm.Complete(context.Background(), Prompt{Stage: "stage3", System: "sys", User: "draft"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, "/openai/deployments/blog-gpt4o/chat/completions", path)
	assert.Equal(t, "2024-02-01", version)
	assert.Equal(t, "az-key", key)
}

func TestOpenAIImager_DecodesBase64(t *testing.T) {
	payload := []byte("png-bytes")
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[{"b64_json":"` + base64.StdEncoding.EncodeToString(payload) + `"}]}`))
	}))
	defer srv.Close()

	imager, err := NewOpenAIImager(config.ImageConfig{APIKey: "k", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	data, err := imager.GenerateImage(context.Background(), "a loop", "16:9")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, "gpt-image-1", got["model"])
	assert.Equal(t, "1536x1024", got["size"])
}

func TestOpenAIImager_EmptyDataIsNoImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[]}`))
	}))
	defer srv.Close()

	imager, err := NewOpenAIImager(config.ImageConfig{APIKey: "k", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	_, err = imager.GenerateImage(context.Background(), "a loop", "16:9")
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestImageSize(t *testing.T) {
	assert.Equal(t, "1536x1024", ImageSize("gpt-image-1", "16:9"))
	assert.Equal(t, "1792x1024", ImageSize("dall-e-3", "16:9"))
	assert.Equal(t, "1024x1024", ImageSize("dall-e-3", "1:1"))
	assert.Equal(t, "1024x1536", ImageSize("gpt-image-1", "9:16"))
}

func TestMockClientsAreWellFormed(t *testing.T) {
	ctx := context.Background()
	for _, stage := range []string{"stage1", "stage2a", "stage2b", "stage5", "stage6"} {
		raw, err := MockLLM{}.Complete(ctx, Prompt{Stage: stage, JSONMode: true})
		require.NoError(t, err)
		var v map[string]any
		assert.NoError(t, DecodeJSON(stage, raw, &v), stage)
	}

	png, err := MockImager{}.GenerateImage(ctx, "x", "16:9")
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}
