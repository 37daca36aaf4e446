package advice

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	DefaultGeminiModel = "gemini-2.5-flash"
	geminiAPIVersion   = "v1beta"
)

type GeminiOptions struct {
	APIKey string
	Model  string
	// Endpoint overrides the API base URL; empty uses the SDK default.
	Endpoint   string
	HTTPClient *http.Client
}

// GeminiClient asks a Gemini model through the Gen AI SDK.
type GeminiClient struct {
	models *genai.Models
	model  string
}

func NewGeminiClient(ctx context.Context, opts GeminiOptions) (*GeminiClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if opts.Model == "" {
		opts.Model = DefaultGeminiModel
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    opts.Endpoint,
			APIVersion: geminiAPIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("advice: create gemini client: %w", err)
	}
	return &GeminiClient{models: client.Models, model: opts.Model}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("advice: call model: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
