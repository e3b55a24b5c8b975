package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "claude", cfg.LLM.Provider)
	assert.Equal(t, 4000, cfg.LLM.MaxTokens)
	assert.Equal(t, 3, cfg.Image.MaxRetries)
	assert.Equal(t, time.Second, cfg.Image.RequestDelay)
	assert.Equal(t, "16:9", cfg.Image.AspectRatio)
	assert.Equal(t, 5, cfg.Search.Count)
	assert.Equal(t, []string{"technical-leadership"}, cfg.Output.BaseTags)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	body := `
llm:
  provider: deepseek
  model: deepseek-chat
  api_key: sk-file
  base_url: https://api.deepseek.com/v1
image:
  max_retries: 5
  request_delay: 250ms
output:
  author: Robin
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "deepseek", cfg.LLM.Provider)
	assert.Equal(t, "sk-file", cfg.LLM.APIKey)
	assert.Equal(t, "https://api.deepseek.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, 5, cfg.Image.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Image.RequestDelay)
	assert.Equal(t, "Robin", cfg.Output.Author)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_ProviderEnvFillsCredentials(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: azure\n"), 0o644))

	t.Setenv("AZURE_OPENAI_KEY", "az-key")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com/")
	t.Setenv("AZURE_OPENAI_DEPLOYMENT", "gpt-4o")
	t.Setenv("BING_SEARCH_KEY", "bing-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "az-key", cfg.LLM.APIKey)
	assert.Equal(t, "https://example.openai.azure.com/", cfg.LLM.BaseURL)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "bing-key", cfg.Search.APIKey)
}

func TestLoad_PrefixedEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: openai\n"), 0o644))
	t.Setenv("PIPELINE_LLM_API_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
}

func TestConfigurationError(t *testing.T) {
	err := fmt.Errorf("building client: %w", &ConfigurationError{Field: "llm.api_key", Hint: "set ANTHROPIC_API_KEY"})
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "llm.api_key is required (set ANTHROPIC_API_KEY)")
	assert.False(t, IsConfigurationError(fmt.Errorf("other")))
}
