package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"graphrag/internal/examples"
	"graphrag/internal/logging"
	"graphrag/internal/schema"
)

// GenAIClient generates and repairs queries using Google's Gemini API.
type GenAIClient struct {
	client *genai.Client
	model  string
}

// NewGenAIClient creates a new Gemini-backed client.
func NewGenAIClient(ctx context.Context, apiKey, model string) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIClient{client: client, model: model}, nil
}

// GenerateQuery produces a candidate query for the question.
func (c *GenAIClient) GenerateQuery(ctx context.Context, question string, g schema.Graph, shots []examples.Example) (string, error) {
	timer := logging.StartTimer(logging.CategoryLLM, "GenerateQuery")
	defer timer.Stop()

	text, err := c.generate(ctx, generatePrompt(question, g, shots))
	if err != nil {
		return "", fmt.Errorf("query generation failed: %w", err)
	}
	return cleanQuery(text), nil
}

// RepairQuery produces a corrected query for a rejected one.
func (c *GenAIClient) RepairQuery(ctx context.Context, query, errMsg string) (string, error) {
	timer := logging.StartTimer(logging.CategoryLLM, "RepairQuery")
	defer timer.Stop()

	text, err := c.generate(ctx, repairPrompt(query, errMsg))
	if err != nil {
		return "", fmt.Errorf("query repair failed: %w", err)
	}
	return cleanQuery(text), nil
}

// Answer synthesizes a natural-language answer from query results.
func (c *GenAIClient) Answer(ctx context.Context, question, query string, rows []map[string]interface{}) (string, error) {
	timer := logging.StartTimer(logging.CategoryLLM, "Answer")
	defer timer.Stop()

	text, err := c.generate(ctx, answerPrompt(question, query, rows))
	if err != nil {
		return "", fmt.Errorf("answer synthesis failed: %w", err)
	}
	return text, nil
}

func (c *GenAIClient) generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		logging.LLMError("GenAI call failed: %v", err)
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("GenAI returned an empty response")
	}
	logging.LLM("GenAI response: %d chars", len(text))
	return text, nil
}
