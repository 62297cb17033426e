// Package analysis sends captured frames to the image-analysis service.
package analysis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/clive/kiosk-go/internal/config"
)

// Client analyzes one image. The returned Response echoes requestID so callers
// can discard answers that were superseded while in flight.
type Client interface {
	Analyze(ctx context.Context, image []byte, requestID string) (Response, error)
}

// Response is the service's answer for one request
type Response struct {
	RequestID string
	Markdown  string
}

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	client       anthropic.Client
	model        string
	maxTokens    int
	systemPrompt string
	instruction  string
}

// NewAnthropicClient builds a client from the analysis config section.
func NewAnthropicClient(cfg config.AnalysisConfig) *AnthropicClient {
	return &AnthropicClient{
		client: anthropic.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"),
			option.WithHeader("anthropic-version", cfg.APIVersion),
			option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
			option.WithMaxRetries(0),
		),
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		systemPrompt: cfg.SystemPrompt,
		instruction:  cfg.Instruction,
	}
}

// Analyze sends image as a base64 JPEG block followed by the instruction text
// and returns the first text block of the reply.
func (c *AnthropicClient) Analyze(ctx context.Context, image []byte, requestID string) (Response, error) {
	if len(image) == 0 {
		return Response{}, fmt.Errorf("analyze: empty image")
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(c.maxTokens),
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64("image/jpeg", base64.StdEncoding.EncodeToString(image)),
				anthropic.NewTextBlock(c.instruction),
			),
		},
	}
	if c.systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: c.systemPrompt}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return Response{}, fmt.Errorf("analyze: status %d: %w", apiErr.StatusCode, err)
		}
		return Response{}, fmt.Errorf("analyze request: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return Response{RequestID: requestID, Markdown: block.Text}, nil
		}
	}
	return Response{}, fmt.Errorf("analyze: reply contained no text")
}
