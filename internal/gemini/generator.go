// Package gemini provides the Gemini client and Fx module.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kairosbot/kairos/internal/config"
)

// Generator produces a text completion for a prompt using the named model.
// Engines depend on this interface so tests can substitute a fake.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Client is the genai-backed Generator.
type Client struct {
	api    *genai.Client
	logger *zap.Logger
}

// NewClient creates and configures a new Gemini client.
func NewClient(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if cfg.Gemini.APIKey == "" {
		logger.Error("Gemini API key is not configured")

		return nil, errors.New("gemini API key (config.Gemini.APIKey) is not configured")
	}

	api, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	logger.Info("Gemini client created successfully.")

	return &Client{api: api, logger: logger.Named("gemini")}, nil
}

// Generate sends the prompt to the given model and returns the response text.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := c.api.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content with %s: %w", model, err)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("empty response from model")
	}

	return text, nil
}
