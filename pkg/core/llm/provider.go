package llm

import (
	"context"
)

// Provider is the interface for all LLM providers.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// AdaptInstructions transforms raw instructions into model-specific formats
	AdaptInstructions(rawInstructions string) string
}

// Option keys understood by every provider.
const (
	OptModel       = "model"       // string, overrides the provider default
	OptTemperature = "temperature" // float32 or float64
	OptJSON        = "json"        // bool, request a JSON object response
	OptAPIKey      = "api_key"     // string, overrides the environment
)

// CompletionRequest is one request/response round trip.
type CompletionRequest struct {
	SystemPrompt string
	Prompt       string
	Temperature  float32
	JSON         bool
}

// LanguageModel is the client the pipeline stages depend on.
type LanguageModel interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

func optString(options map[string]interface{}, key string) string {
	if val, ok := options[key].(string); ok {
		return val
	}
	return ""
}

func optBool(options map[string]interface{}, key string) bool {
	val, _ := options[key].(bool)
	return val
}

// optTemperature returns the requested temperature, 0 when unset.
func optTemperature(options map[string]interface{}) float32 {
	switch v := options[OptTemperature].(type) {
	case float32:
		return v
	case float64:
		return float32(v)
	case int:
		return float32(v)
	}
	return 0
}
