// Package conversation runs planning turns: it records the exchange, asks the
// model for a reply, and writes a new plan version whenever the reply carries
// a plan payload.
package conversation

import (
	"context"
	"strings"

	"github.com/ChamsBouzaiene/dodo-plan/internal/artifact"
	"github.com/ChamsBouzaiene/dodo-plan/internal/engine"
	"github.com/ChamsBouzaiene/dodo-plan/internal/session"
)

// State is the controller's position within a turn.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingResponse State = "awaiting_response"
	StateExtracting       State = "extracting"
	StateVersioning       State = "versioning"
)

// Chatter sends the ordered history to a model and returns the complete reply.
type Chatter interface {
	Chat(ctx context.Context, history []engine.ChatMessage) (string, error)
}

// SessionStore is the subset of session.Store the controller needs.
type SessionStore interface {
	AppendMessage(id string, msg session.Message) (*session.Session, error)
	Save(sess *session.Session) error
}

// PlanWriter is the subset of plan.Versioner the controller needs.
type PlanWriter interface {
	NextVersion(projectPath string) (int, error)
	Write(projectPath string, set artifact.Set, version int) error
	Dir(projectPath string, version int) string
}

// TurnResult describes a completed turn.
type TurnResult struct {
	Session     *session.Session
	Reply       string
	Miss        error // extraction miss; nil when a plan was written
	PlanWritten bool
	PlanVersion int
	PlanDir     string
	Sections    []artifact.Section
}

// Controller drives one turn at a time for any session.
type Controller struct {
	store    SessionStore
	chat     Chatter
	versions PlanWriter
	hook     Hook
	state    State
}

// NewController wires a controller. A nil hook is replaced with NopHook.
func NewController(store SessionStore, chat Chatter, versions PlanWriter, hook Hook) *Controller {
	if hook == nil {
		hook = NopHook{}
	}
	return &Controller{
		store:    store,
		chat:     chat,
		versions: versions,
		hook:     hook,
		state:    StateIdle,
	}
}

// State returns the current turn state.
func (c *Controller) State() State {
	return c.state
}

func (c *Controller) setState(ctx context.Context, sessionID string, to State) {
	if c.state == to {
		return
	}
	from := c.state
	c.state = to
	c.hook.OnStateChange(ctx, sessionID, from, to)
}

// Turn runs one user input through the conversation.
// A reply without a plan payload is the normal case and is not an error; the
// miss is reported in TurnResult.Miss. Every failure leaves the controller
// Idle and keeps whatever messages were already persisted.
func (c *Controller) Turn(ctx context.Context, sessionID, input string) (*TurnResult, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}
	if c.state != StateIdle {
		return nil, ErrTurnInProgress
	}
	defer c.setState(ctx, sessionID, StateIdle)

	res, err := c.turn(ctx, sessionID, input)
	if err != nil {
		c.hook.OnTurnFailed(ctx, sessionID, err)
		return nil, err
	}
	return res, nil
}

func (c *Controller) turn(ctx context.Context, sessionID, input string) (*TurnResult, error) {
	c.setState(ctx, sessionID, StateAwaitingResponse)

	sess, err := c.store.AppendMessage(sessionID, session.Message{Role: engine.RoleUser, Content: input})
	if err != nil {
		return nil, wrap(KindStorage, "append_user", err)
	}

	reply, err := c.chat.Chat(ctx, sess.History())
	if err != nil {
		return nil, wrap(KindTransport, "chat", err)
	}

	c.setState(ctx, sessionID, StateExtracting)

	sess, err = c.store.AppendMessage(sessionID, session.Message{Role: engine.RoleAssistant, Content: reply})
	if err != nil {
		return nil, wrap(KindStorage, "append_assistant", err)
	}
	res := &TurnResult{Session: sess, Reply: reply}

	set, err := artifact.Extract(reply)
	if err != nil {
		c.hook.OnExtractionMiss(ctx, sessionID, err)
		res.Miss = err
		return res, nil
	}

	c.setState(ctx, sessionID, StateVersioning)

	version, err := c.versions.NextVersion(sess.ProjectPath)
	if err != nil {
		return nil, wrap(KindStorage, "next_version", err)
	}
	if err := c.versions.Write(sess.ProjectPath, set, version); err != nil {
		return nil, wrap(KindVersionWrite, "write_plan", err)
	}

	sess.PlanGenerated = true
	sess.PlanVersion = version
	if err := c.store.Save(sess); err != nil {
		return nil, wrap(KindStorage, "save_session", err)
	}

	res.PlanWritten = true
	res.PlanVersion = version
	res.PlanDir = c.versions.Dir(sess.ProjectPath, version)
	res.Sections = set.Present()
	c.hook.OnPlanWritten(ctx, sessionID, version, res.PlanDir, res.Sections)

	return res, nil
}
