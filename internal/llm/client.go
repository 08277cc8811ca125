// Package llm wraps the Gemini API behind small interfaces and provides the
// resilient invoker that governs every call to the model endpoint.
package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Completer produces a text completion for a system prompt and user text.
type Completer interface {
	Generate(ctx context.Context, systemPrompt, userText string) (string, error)
}

// Embedder turns texts into embedding vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Client is the Gemini-backed implementation of Completer and Embedder.
type Client struct {
	genai      *genai.Client
	model      string
	embedModel string
}

// NewClient creates a Gemini client. The API key must be non-empty; model and
// embedModel name the generation and embedding models to use.
func NewClient(ctx context.Context, apiKey, model, embedModel string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewClient: create genai client: %w", err)
	}
	return &Client{genai: client, model: model, embedModel: embedModel}, nil
}

// Generate sends one completion request. The model is given no guarantee of
// returning valid JSON even when asked; callers must validate the reply.
func (c *Client) Generate(ctx context.Context, systemPrompt, userText string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(userText), cfg)
	if err != nil {
		return "", fmt.Errorf("Generate: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("Generate: empty response from model")
	}
	return text, nil
}

// EmbedTexts embeds the given texts in one request, preserving order.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}

	resp, err := c.genai.Models.EmbedContent(ctx, c.embedModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("EmbedTexts: embed content: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("EmbedTexts: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vectors[i] = e.Values
	}
	return vectors, nil
}
