// Package llm adapts the Gemini generative backend to the ReplyGenerator
// port.
package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/Shobhit-2204/PingUp/internal/domain"
	"github.com/Shobhit-2204/PingUp/pkg/errors"
)

// GeminiConfig selects the backend: APIKey for the public Gemini API, or
// Project+Location for Vertex AI.
type GeminiConfig struct {
	APIKey    string
	Project   string
	Location  string
	ModelName string
}

type GeminiClient struct {
	client    *genai.Client
	modelName string
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-2.5-flash"
	}

	var clientCfg *genai.ClientConfig
	switch {
	case cfg.Project != "":
		if cfg.Location == "" {
			return nil, fmt.Errorf("location must be set for the Vertex backend")
		}
		clientCfg = &genai.ClientConfig{
			Project:  cfg.Project,
			Location: cfg.Location,
			Backend:  genai.BackendVertexAI,
		}
	case cfg.APIKey != "":
		clientCfg = &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
	default:
		return nil, fmt.Errorf("either APIKey or Project must be set")
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	return &GeminiClient{client: client, modelName: cfg.ModelName}, nil
}

// StreamReply implements domain.ReplyGenerator. Each upstream chunk is
// forwarded through onChunk as soon as it arrives.
func (g *GeminiClient) StreamReply(
	ctx context.Context,
	prompt string,
	history []domain.Turn,
	onChunk func(text string) error,
) error {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		role := genai.Role(genai.RoleUser)
		if turn.Role == domain.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	temp := float32(0.7)
	topP := float32(0.9)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		TopP:            &topP,
		MaxOutputTokens: 8192,
	}

	for chunk, err := range g.client.Models.GenerateContentStream(ctx, g.modelName, contents, cfg) {
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(errors.CodeUpstream, "gemini stream failed", err)
		}
		text := chunk.Text()
		if text == "" {
			continue
		}
		if err := onChunk(text); err != nil {
			return err
		}
	}
	return nil
}
