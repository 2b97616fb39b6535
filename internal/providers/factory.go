package providers

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ChamsBouzaiene/dodo-plan/internal/config"
	"github.com/ChamsBouzaiene/dodo-plan/internal/engine"
)

// providerSpec describes how to reach one provider.
type providerSpec struct {
	envPrefix    string // KEY, MODEL and BASE_URL are read as <prefix>_API_KEY etc.
	defaultModel string
	baseURL      string
	localKey     string // placeholder key for local servers; empty means a key is required
	anthropic    bool
}

var providerSpecs = map[string]providerSpec{
	"openai": {envPrefix: "OPENAI", defaultModel: "gpt-4o-mini"},
	"anthropic": {
		envPrefix:    "ANTHROPIC",
		defaultModel: "claude-3-5-sonnet-20241022",
		anthropic:    true,
	},
	// Kimi via BytePlus ModelArk.
	"kimi": {
		envPrefix:    "KIMI",
		defaultModel: "kimi-k2-250711",
		baseURL:      "https://ark.ap-southeast.bytepluses.com/api/v3",
	},
	"gemini": {
		envPrefix:    "GEMINI",
		defaultModel: "gemini-1.5-flash",
		baseURL:      "https://generativelanguage.googleapis.com/v1beta/openai",
	},
	"lmstudio": {
		envPrefix:    "LMSTUDIO",
		defaultModel: "local-model",
		baseURL:      "http://localhost:1234/v1",
		localKey:     "lm-studio",
	},
	"ollama": {
		envPrefix:    "OLLAMA",
		defaultModel: "llama3.1",
		baseURL:      "http://localhost:11434/v1",
		localKey:     "ollama",
	},
	"deepseek": {
		envPrefix:    "DEEPSEEK",
		defaultModel: "deepseek-chat",
		baseURL:      "https://api.deepseek.com/v1",
	},
	"groq": {
		envPrefix:    "GROQ",
		defaultModel: "llama-3.1-70b-versatile",
		baseURL:      "https://api.groq.com/openai/v1",
	},
}

// Supported lists the provider names NewClient accepts.
func Supported() []string {
	names := make([]string, 0, len(providerSpecs))
	for name := range providerSpecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewClient creates an engine.LLMClient for the configured provider and
// returns it with the resolved model name. Values missing from cfg are read
// from the provider's environment variables (OPENAI_API_KEY, OPENAI_MODEL, ...).
func NewClient(cfg *config.Config) (engine.LLMClient, string, error) {
	provider := strings.ToLower(cfg.LLMProvider)
	if provider == "" {
		provider = config.DefaultProvider
	}

	spec, ok := providerSpecs[provider]
	if !ok {
		return nil, "", fmt.Errorf("unknown llm_provider: %s (supported: %s)", provider, strings.Join(Supported(), ", "))
	}

	apiKey := firstNonEmpty(cfg.APIKey, os.Getenv(spec.envPrefix+"_API_KEY"), spec.localKey)
	if apiKey == "" {
		return nil, "", fmt.Errorf("%s_API_KEY not set and no api_key in config", spec.envPrefix)
	}
	modelName := firstNonEmpty(cfg.Model, os.Getenv(spec.envPrefix+"_MODEL"), spec.defaultModel)

	if spec.anthropic {
		client, err := NewAnthropicClient(apiKey, modelName)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create Anthropic client: %w", err)
		}
		return client, modelName, nil
	}

	baseURL := firstNonEmpty(cfg.BaseURL, os.Getenv(spec.envPrefix+"_BASE_URL"), spec.baseURL)
	client, err := NewOpenAIClient(apiKey, modelName, baseURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create %s client: %w", provider, err)
	}
	return client, modelName, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
