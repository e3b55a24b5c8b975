package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"auto_blog_pipeline/config"
)

const defaultMaxTokens = 4000

// OpenAILLM implements LLMClient using the official openai-go SDK (chat completions).
// It also serves every OpenAI-compatible endpoint (Claude, DeepSeek, Azure).
type OpenAILLM struct {
	Model    string
	Provider string
	client   openai.Client
}

func NewOpenAILLMFromConfig(cfg *LLMSettings) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, &config.ConfigurationError{Field: "llm.api_key", Hint: apiKeyHint(cfg.Provider)}
	}
	if cfg.Model == "" {
		return nil, &config.ConfigurationError{Field: "llm.model"}
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAILLM{Model: cfg.Model, Provider: cfg.Provider, client: openai.NewClient(opts...)}, nil
}

// NewAzureLLMFromConfig targets an Azure OpenAI deployment; Model is the deployment name.
func NewAzureLLMFromConfig(cfg *LLMSettings) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	switch {
	case cfg.APIKey == "":
		return nil, &config.ConfigurationError{Field: "llm.api_key", Hint: "set AZURE_OPENAI_KEY"}
	case cfg.BaseURL == "":
		return nil, &config.ConfigurationError{Field: "llm.base_url", Hint: "set AZURE_OPENAI_ENDPOINT"}
	case cfg.Model == "":
		return nil, &config.ConfigurationError{Field: "llm.model", Hint: "set AZURE_OPENAI_DEPLOYMENT"}
	}
	// Azure routes by deployment in the path and authenticates with api-key.
	base := strings.TrimSuffix(cfg.BaseURL, "/") + "/openai/deployments/" + cfg.Model + "/"
	client := openai.NewClient(
		option.WithBaseURL(base),
		option.WithQuery("api-version", cfg.APIVersion),
		option.WithHeader("api-key", cfg.APIKey),
	)
	return &OpenAILLM{Model: cfg.Model, Provider: "azure", client: client}, nil
}

func apiKeyHint(provider string) string {
	switch provider {
	case "claude":
		return "set ANTHROPIC_API_KEY"
	case "deepseek":
		return "set DEEPSEEK_API_KEY"
	default:
		return "set OPENAI_API_KEY"
	}
}

func (o *OpenAILLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(prompt.SystemText()),
	}
	for _, h := range prompt.History {
		switch h.Role {
		case "assistant":
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(h.Content))
		default:
			msgs = append(msgs, openai.UserMessage(h.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(prompt.User))

	maxTokens := prompt.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.Model),
		Messages:    msgs,
		Temperature: openai.Float(prompt.Temperature),
		MaxTokens:   openai.Int(int64(maxTokens)),
	}
	if prompt.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", o.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty choices", o.Provider)
	}
	content := resp.Choices[0].Message.Content
	if prompt.JSONMode {
		content = StripJSONFence(content)
	}
	return content, nil
}

// Name describes the client for banners, e.g. "claude (claude-sonnet-4-20250514)".
func (o *OpenAILLM) Name() string {
	return fmt.Sprintf("%s (%s)", o.Provider, o.Model)
}
