package main

import (
	"fmt"
	"os"

	"github.com/openagentsinc/agentcore/internal/config"
	"github.com/openagentsinc/agentcore/internal/modelclient"
	"github.com/openagentsinc/agentcore/internal/modelclient/providers"
)

// buildClient constructs a modelclient.Client for cfg.ModelProvider,
// reading provider credentials from the environment the way the teacher's
// channel adapters read bot tokens.
func buildClient(cfg *config.Config) (modelclient.Client, error) {
	switch cfg.ModelProvider {
	case "", "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
		return providers.NewAnthropicClient(providers.AnthropicConfig{
			APIKey:       apiKey,
			DefaultModel: cfg.Model,
		})

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		return providers.NewOpenAIClient(providers.OpenAIConfig{APIKey: apiKey})

	default:
		return nil, fmt.Errorf("unrecognized model provider %q", cfg.ModelProvider)
	}
}
