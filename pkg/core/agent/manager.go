package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"statement_extraction/pkg/core/llm"
)

// Stage names used as agent keys.
const (
	StageSelector    = "selector"
	StageReformatter = "reformatter"
)

type Config struct {
	ActiveProvider string                 `yaml:"active_provider"`
	Agents         map[string]AgentConfig `yaml:"agents"`
}

type AgentConfig struct {
	Provider    string `yaml:"provider"` // Optional override
	Model       string `yaml:"model"`    // Optional model override
	Description string `yaml:"description"`
}

// Manager resolves which provider serves each pipeline stage.
type Manager struct {
	mu        sync.RWMutex
	config    Config
	providers map[string]llm.Provider
	logger    *zap.Logger
}

// DefaultProviders returns the built-in provider set keyed by name.
func DefaultProviders() map[string]llm.Provider {
	return map[string]llm.Provider{
		"openai":   llm.NewOpenAIProvider(),
		"deepseek": llm.NewDeepSeekProvider(),
		"qwen":     llm.NewQwenProvider(),
		"gemini":   llm.NewGeminiProvider(""),
	}
}

// NewManager creates a manager over providers. A nil map means DefaultProviders.
func NewManager(config Config, providers map[string]llm.Provider, logger *zap.Logger) *Manager {
	if providers == nil {
		providers = DefaultProviders()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{config: config, providers: providers, logger: logger}
}

func (m *Manager) resolve(agentType string) (string, llm.Provider, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var model string
	// 1. Check for agent-specific override
	if agentConfig, ok := m.config.Agents[agentType]; ok {
		model = agentConfig.Model
		if agentConfig.Provider != "" {
			if p, ok := m.providers[agentConfig.Provider]; ok {
				return agentConfig.Provider, p, model
			}
		}
	}

	// 2. Use global active provider
	if p, ok := m.providers[m.config.ActiveProvider]; ok {
		return m.config.ActiveProvider, p, model
	}
	return "", nil, model
}

// Validate checks that every configured provider name is known.
func (m *Manager) Validate() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.providers[m.config.ActiveProvider]; !ok {
		return fmt.Errorf("active provider %q not found (known: %v)", m.config.ActiveProvider, m.names())
	}
	for stage, ac := range m.config.Agents {
		if ac.Provider == "" {
			continue
		}
		if _, ok := m.providers[ac.Provider]; !ok {
			return fmt.Errorf("agent %s: provider %q not found (known: %v)", stage, ac.Provider, m.names())
		}
	}
	return nil
}

func (m *Manager) names() []string {
	names := make([]string, 0, len(m.providers))
	for k := range m.providers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) SetGlobalProvider(newProvider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.providers[newProvider]; !ok {
		return fmt.Errorf("provider %s not found", newProvider)
	}
	m.config.ActiveProvider = newProvider
	m.logger.Info("global provider set", zap.String("provider", newProvider))
	return nil
}

// GetActiveProvider returns the global provider name.
func (m *Manager) GetActiveProvider() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.ActiveProvider
}

// Model returns the language model bound to agentType. The provider is
// resolved on every call so SetGlobalProvider takes effect for later runs.
func (m *Manager) Model(agentType string) llm.LanguageModel {
	return &stageModel{manager: m, agentType: agentType}
}

type stageModel struct {
	manager   *Manager
	agentType string
}

// Complete adapts instructions for the resolved provider and sends the prompt.
func (s *stageModel) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	name, provider, model := s.manager.resolve(s.agentType)
	if provider == nil {
		return "", fmt.Errorf("no provider configured for agent %s", s.agentType)
	}

	options := map[string]interface{}{
		llm.OptTemperature: req.Temperature,
		llm.OptJSON:        req.JSON,
	}
	if model != "" {
		options[llm.OptModel] = model
	}

	s.manager.logger.Debug("model call",
		zap.String("agent", s.agentType),
		zap.String("provider", name),
		zap.String("model", model),
		zap.Int("prompt_chars", len(req.Prompt)))

	return provider.GenerateResponse(ctx, req.Prompt, provider.AdaptInstructions(req.SystemPrompt), options)
}
