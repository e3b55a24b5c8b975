package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds provider credentials and pipeline tuning.
type Config struct {
	LLM    LLMConfig    `mapstructure:"llm"`
	Image  ImageConfig  `mapstructure:"image"`
	Search SearchConfig `mapstructure:"search"`
	Output OutputConfig `mapstructure:"output"`
	Assets AssetsConfig `mapstructure:"assets"`
}

// LLMConfig selects the text-generation provider.
type LLMConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	APIVersion string `mapstructure:"api_version"`
	MaxTokens  int    `mapstructure:"max_tokens"`
}

// ImageConfig selects the image-generation provider and retry policy.
type ImageConfig struct {
	Provider     string        `mapstructure:"provider"`
	Model        string        `mapstructure:"model"`
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	AspectRatio  string        `mapstructure:"aspect_ratio"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RequestDelay time.Duration `mapstructure:"request_delay"`
}

// SearchConfig is optional; an empty key disables web search.
type SearchConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
	Count    int    `mapstructure:"count"`
}

// OutputConfig controls where artifacts land and frontmatter defaults.
type OutputConfig struct {
	Dir             string   `mapstructure:"dir"`
	IntermediateDir string   `mapstructure:"intermediate_dir"`
	Author          string   `mapstructure:"author"`
	BaseTags        []string `mapstructure:"base_tags"`
}

// AssetsConfig enables uploading post images to S3 after assembly.
type AssetsConfig struct {
	S3Bucket  string `mapstructure:"s3_bucket"`
	S3Prefix  string `mapstructure:"s3_prefix"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	// Endpoint overrides the S3 endpoint (LocalStack, MinIO).
	Endpoint string `mapstructure:"endpoint"`
}

// ConfigurationError reports a missing credential or endpoint. It is raised
// before any generation call is made and is never retried.
type ConfigurationError struct {
	Field string
	Hint  string
}

func (e *ConfigurationError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("configuration: %s is required", e.Field)
	}
	return fmt.Sprintf("configuration: %s is required (%s)", e.Field, e.Hint)
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "claude")
	// Empty defaults register the keys so AutomaticEnv reaches them on Unmarshal.
	for _, key := range []string{
		"llm.model", "llm.api_key", "llm.base_url",
		"image.api_key", "image.base_url",
		"search.api_key",
		"assets.s3_bucket", "assets.s3_prefix", "assets.region", "assets.public_url", "assets.endpoint",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("llm.max_tokens", 4000)
	v.SetDefault("llm.api_version", "2024-02-01")
	v.SetDefault("image.provider", "openai")
	v.SetDefault("image.model", "gpt-image-1")
	v.SetDefault("image.aspect_ratio", "16:9")
	v.SetDefault("image.max_retries", 3)
	v.SetDefault("image.request_delay", time.Second)
	v.SetDefault("search.endpoint", "https://api.bing.microsoft.com/v7.0/search")
	v.SetDefault("search.count", 5)
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.intermediate_dir", "output/intermediate")
	v.SetDefault("output.author", "Adam")
	v.SetDefault("output.base_tags", []string{"technical-leadership"})
}

// Load reads config.yaml (from path, or ./ and ./config when path is empty)
// and overlays PIPELINE_* environment variables plus the well-known provider
// keys. A missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("PIPELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	applyProviderEnv(&cfg, viper.New())
	return &cfg, nil
}

// applyProviderEnv fills credentials from the variables each provider
// documents, without overriding values set explicitly in the file.
func applyProviderEnv(cfg *Config, env *viper.Viper) {
	env.AutomaticEnv()
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = env.GetString(key)
		}
	}

	switch strings.ToLower(cfg.LLM.Provider) {
	case "claude":
		fill(&cfg.LLM.APIKey, "ANTHROPIC_API_KEY")
	case "openai":
		fill(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	case "deepseek":
		fill(&cfg.LLM.APIKey, "DEEPSEEK_API_KEY")
	case "azure":
		fill(&cfg.LLM.APIKey, "AZURE_OPENAI_KEY")
		fill(&cfg.LLM.BaseURL, "AZURE_OPENAI_ENDPOINT")
		fill(&cfg.LLM.Model, "AZURE_OPENAI_DEPLOYMENT")
	}
	if strings.ToLower(cfg.Image.Provider) == "openai" {
		fill(&cfg.Image.APIKey, "OPENAI_API_KEY")
	}
	fill(&cfg.Search.APIKey, "BING_SEARCH_KEY")
	fill(&cfg.Assets.Region, "AWS_REGION")
}
