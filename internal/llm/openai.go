package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sony/gobreaker"
)

const (
	DefaultModel    = "gpt-4o-mini"
	defaultLanguage = "es"
)

// OpenAIConfig configures the OpenAI client.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string // optional, mostly for tests
	HTTPClient *http.Client
	MaxRetries int
}

// OpenAIClient implements Completer and Transcriber on top of openai-go.
type OpenAIClient struct {
	client   openai.Client
	model    string
	language string
	enabled  bool
	circuit  *gobreaker.CircuitBreaker
}

func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(max(cfg.MaxRetries, 0)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &OpenAIClient{
		client:   openai.NewClient(opts...),
		model:    model,
		language: defaultLanguage,
		enabled:  cfg.APIKey != "",
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openai",
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
	}
}

// Enabled reports whether an API key was configured.
func (c *OpenAIClient) Enabled() bool {
	return c.enabled
}

func (c *OpenAIClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	if !c.enabled {
		return "", ErrNotConfigured
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}
	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        req.Schema.Name,
					Description: openai.String(req.Schema.Description),
					Schema:      req.Schema.Schema,
					Strict:      openai.Bool(true),
				},
			},
		}
	}

	result, err := c.circuit.Execute(func() (interface{}, error) {
		return c.client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		return "", fmt.Errorf("error calling OpenAI chat API: %w", err)
	}

	chat, ok := result.(*openai.ChatCompletion)
	if !ok || chat == nil {
		return "", errors.New("unexpected result type from circuit breaker")
	}
	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return "", errors.New("received empty response from OpenAI")
	}
	return strings.TrimSpace(chat.Choices[0].Message.Content), nil
}

func (c *OpenAIClient) Transcribe(ctx context.Context, path string) (string, error) {
	if !c.enabled {
		return "", ErrNotConfigured
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	result, err := c.circuit.Execute(func() (interface{}, error) {
		return c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
			File:     f,
			Model:    openai.AudioModelWhisper1,
			Language: openai.String(c.language),
		})
	})
	if err != nil {
		return "", fmt.Errorf("error calling OpenAI transcription API: %w", err)
	}

	tr, ok := result.(*openai.Transcription)
	if !ok || tr == nil {
		return "", errors.New("unexpected result type from circuit breaker")
	}
	return strings.TrimSpace(tr.Text), nil
}
