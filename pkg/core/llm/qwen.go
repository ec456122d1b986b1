package llm

// NewQwenProvider returns a provider for Qwen through DashScope's
// OpenAI-compatible mode.
// See: https://help.aliyun.com/zh/model-studio/compatibility-of-openai-with-dashscope
func NewQwenProvider() *OpenAICompatibleProvider {
	return &OpenAICompatibleProvider{
		Name:    "qwen",
		BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
		Model:   "qwen-max",
		// Fallback to QWEN_API_KEY if DASHSCOPE_API_KEY is not set
		APIKeyEnvs: []string{"DASHSCOPE_API_KEY", "QWEN_API_KEY"},
		MaxTokens:  8192,
	}
}
