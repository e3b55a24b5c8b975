package generator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"auto_blog_pipeline/config"
)

// ErrNoImage is returned when the provider answers without image data.
var ErrNoImage = errors.New("no image returned")

// ImageClient abstracts the image-generation service.
type ImageClient interface {
	GenerateImage(ctx context.Context, prompt, aspectRatio string) ([]byte, error)
}

// NewImager builds the image client named by cfg.Provider.
func NewImager(cfg config.ImageConfig) (ImageClient, error) {
	switch strings.ToLower(cfg.Provider) {
	case "mock":
		return MockImager{}, nil
	case "openai", "":
		return NewOpenAIImager(cfg)
	default:
		return nil, fmt.Errorf("image provider %q not supported", cfg.Provider)
	}
}

// OpenAIImager implements ImageClient over the OpenAI Images API.
type OpenAIImager struct {
	Model  string
	client openai.Client
}

func NewOpenAIImager(cfg config.ImageConfig) (*OpenAIImager, error) {
	if cfg.APIKey == "" {
		return nil, &config.ConfigurationError{Field: "image.api_key", Hint: "set OPENAI_API_KEY"}
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-image-1"
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIImager{Model: model, client: openai.NewClient(opts...)}, nil
}

func (o *OpenAIImager) GenerateImage(ctx context.Context, prompt, aspectRatio string) ([]byte, error) {
	params := openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(o.Model),
		N:      openai.Int(1),
		Size:   openai.ImageGenerateParamsSize(ImageSize(o.Model, aspectRatio)),
	}
	// gpt-image-1 always answers with base64; dall-e models default to URLs.
	if strings.HasPrefix(o.Model, "dall-e") {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
	}

	resp, err := o.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai images: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, ErrNoImage
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("openai images: decode payload: %w", err)
	}
	return data, nil
}

// ImageSize maps an aspect ratio onto the closest size the model accepts.
func ImageSize(model, aspectRatio string) string {
	dalle := strings.HasPrefix(model, "dall-e")
	switch aspectRatio {
	case "1:1":
		return "1024x1024"
	case "9:16", "2:3", "3:4":
		if dalle {
			return "1024x1792"
		}
		return "1024x1536"
	default:
		if dalle {
			return "1792x1024"
		}
		return "1536x1024"
	}
}
