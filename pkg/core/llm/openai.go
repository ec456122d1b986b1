package llm

import (
	"context"
	"fmt"
	"math"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAICompatibleProvider talks to any chat-completions endpoint that speaks
// the OpenAI protocol (OpenAI itself, DeepSeek, DashScope compatible mode).
type OpenAICompatibleProvider struct {
	Name       string
	BaseURL    string   // empty means the OpenAI default
	Model      string   // default model
	APIKeyEnvs []string // checked in order
	MaxTokens  int
}

var _ Provider = (*OpenAICompatibleProvider)(nil)

// NewOpenAIProvider returns a provider for api.openai.com.
func NewOpenAIProvider() *OpenAICompatibleProvider {
	return &OpenAICompatibleProvider{
		Name:       "openai",
		Model:      openai.GPT4o,
		APIKeyEnvs: []string{"OPENAI_API_KEY"},
		MaxTokens:  8192,
	}
}

func (p *OpenAICompatibleProvider) apiKey(options map[string]interface{}) string {
	if key := optString(options, OptAPIKey); key != "" {
		return key
	}
	for _, env := range p.APIKeyEnvs {
		if key := os.Getenv(env); key != "" {
			return key
		}
	}
	return ""
}

func (p *OpenAICompatibleProvider) config(apiKey string) openai.ClientConfig {
	cfg := openai.DefaultConfig(apiKey)
	if p.BaseURL != "" {
		cfg.BaseURL = p.BaseURL
	}
	return cfg
}

// GenerateResponse sends one chat completion request.
func (p *OpenAICompatibleProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	apiKey := p.apiKey(options)
	if apiKey == "" {
		return "", fmt.Errorf("%s: API key missing, set one of %v", p.Name, p.APIKeyEnvs)
	}

	model := p.Model
	if val := optString(options, OptModel); val != "" {
		model = val
	}

	// go-openai drops a zero temperature from the payload (omitempty), which
	// makes the server fall back to its default of 1.0.
	temperature := optTemperature(options)
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   p.MaxTokens,
	}
	if optBool(options, OptJSON) {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	client := openai.NewClientWithConfig(p.config(apiKey))
	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s chat completion failed: %w", p.Name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: response has no choices", p.Name)
	}

	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAICompatibleProvider) AdaptInstructions(raw string) string {
	return raw
}
