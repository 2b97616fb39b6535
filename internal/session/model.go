package session

import (
	"fmt"
	"time"

	"github.com/ChamsBouzaiene/dodo-plan/internal/engine"
)

// Session represents one persisted planning conversation tied to a project.
type Session struct {
	ID            string    `json:"id"`
	ProjectName   string    `json:"project_name"`
	ProjectPath   string    `json:"project_path"` // Root the plan folder is written under
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Messages      []Message `json:"messages"`
	PlanGenerated bool      `json:"plan_generated"`
	PlanVersion   int       `json:"plan_version"` // 0 until the first plan is written
}

// Message is one turn of the conversation log.
type Message struct {
	ID        string             `json:"id"`
	Role      engine.MessageRole `json:"role"`
	Content   string             `json:"content"`
	Timestamp time.Time          `json:"timestamp"`
}

// Validate checks that the message can be part of a session log.
// Only user and assistant turns are stored.
func (m Message) Validate() error {
	switch m.Role {
	case engine.RoleUser, engine.RoleAssistant:
		return nil
	default:
		return fmt.Errorf("invalid message role: %q", m.Role)
	}
}

// History returns the ordered role/content pairs replayed to the model.
func (s *Session) History() []engine.ChatMessage {
	history := make([]engine.ChatMessage, 0, len(s.Messages))
	for _, m := range s.Messages {
		history = append(history, engine.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return history
}
