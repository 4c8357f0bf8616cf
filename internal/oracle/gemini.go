package oracle

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	// DefaultModel is the generation model used unless configured otherwise.
	DefaultModel = "gemini-2.0-flash"
	// DefaultEmbeddingModel produces the optional memory vectors.
	DefaultEmbeddingModel = "gemini-embedding-001"
)

// Gemini implements Completer and Embedder on the Google GenAI API.
type Gemini struct {
	client         *genai.Client
	model          string
	embeddingModel string
}

// NewGemini creates a Gemini oracle. The model falls back to DefaultModel
// when empty.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Gemini{
		client:         client,
		model:          model,
		embeddingModel: DefaultEmbeddingModel,
	}, nil
}

// Complete sends the system prompt and conversation to the generation model
// and returns the trimmed text of the first candidate.
func (g *Gemini) Complete(ctx context.Context, systemPrompt string, msgs []ChatMessage, temperature float64, maxTokens int) (string, error) {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		contents = append(contents, genai.NewContentFromText(m.Content, genaiRole(m.Role)))
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(temperature)),
		MaxOutputTokens: int32(maxTokens),
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: empty response")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("gemini: empty response")
	}
	return text, nil
}

// genaiRole maps a chat role onto the SDK's role type.
func genaiRole(role string) genai.Role {
	if role == RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}

// Embed produces a semantic-similarity vector for one text.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}
	result, err := g.client.Models.EmbedContent(ctx,
		g.embeddingModel,
		contents,
		&genai.EmbedContentConfig{
			TaskType: "SEMANTIC_SIMILARITY",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini: embed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("gemini: no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}
