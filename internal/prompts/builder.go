package prompts

import (
	"fmt"
	"strings"
)

// PromptBuilder helps compose prompts from fragments and variables.
type PromptBuilder struct {
	basePrompt *Prompt
	fragments  []string
	variables  map[string]string
}

// NewPromptBuilder creates a new prompt builder based on the latest version
// of a registered prompt.
func NewPromptBuilder(registry *PromptRegistry, id string) (*PromptBuilder, error) {
	basePrompt, err := registry.GetLatest(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get base prompt: %w", err)
	}

	return &PromptBuilder{
		basePrompt: basePrompt,
		fragments:  []string{basePrompt.Content},
		variables:  make(map[string]string),
	}, nil
}

// AddFragment appends a fragment to the prompt.
func (b *PromptBuilder) AddFragment(text string) *PromptBuilder {
	b.fragments = append(b.fragments, text)
	return b
}

// SetVariable sets a variable for template substitution.
func (b *PromptBuilder) SetVariable(key, value string) *PromptBuilder {
	b.variables[key] = value
	return b
}

// Build constructs the final prompt string.
func (b *PromptBuilder) Build() string {
	result := strings.Join(b.fragments, "\n\n")

	// Simple {{key}} substitution
	for key, value := range b.variables {
		placeholder := fmt.Sprintf("{{%s}}", key)
		result = strings.ReplaceAll(result, placeholder, value)
	}

	return result
}

// PlannerSystemPrompt renders the planner prompt for one project, followed
// by the project's own rules when it has any.
func PlannerSystemPrompt(projectName, projectRules string) (string, error) {
	b, err := NewPromptBuilder(DefaultRegistry(), PlannerID)
	if err != nil {
		return "", err
	}
	if projectName == "" {
		projectName = "the user's project"
	}
	if projectRules != "" {
		b.AddFragment("<project_rules>\n" + projectRules + "\n</project_rules>")
	}
	return b.SetVariable("project_name", projectName).Build(), nil
}
