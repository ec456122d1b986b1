package llm

// NewDeepSeekProvider returns a provider for the DeepSeek chat API, which
// is wire-compatible with OpenAI chat completions.
func NewDeepSeekProvider() *OpenAICompatibleProvider {
	return &OpenAICompatibleProvider{
		Name:       "deepseek",
		BaseURL:    "https://api.deepseek.com/v1",
		Model:      "deepseek-chat",
		APIKeyEnvs: []string{"DEEPSEEK_API_KEY"},
		MaxTokens:  8192,
	}
}
