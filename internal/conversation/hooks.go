package conversation

import (
	"context"
	"log"
	"strings"

	"github.com/ChamsBouzaiene/dodo-plan/internal/artifact"
)

// Hook observes a controller's turns.
type Hook interface {
	OnStateChange(ctx context.Context, sessionID string, from, to State)
	OnExtractionMiss(ctx context.Context, sessionID string, err error)
	OnPlanWritten(ctx context.Context, sessionID string, version int, dir string, sections []artifact.Section)
	OnTurnFailed(ctx context.Context, sessionID string, err error)
}

// NopHook lets you implement only the hooks you need.
type NopHook struct{}

func (NopHook) OnStateChange(context.Context, string, State, State)                    {}
func (NopHook) OnExtractionMiss(context.Context, string, error)                        {}
func (NopHook) OnPlanWritten(context.Context, string, int, string, []artifact.Section) {}
func (NopHook) OnTurnFailed(context.Context, string, error)                            {}

// LoggerHook writes turn progress to a standard logger.
type LoggerHook struct{ L *log.Logger }

func (h LoggerHook) OnStateChange(_ context.Context, sessionID string, from, to State) {
	h.L.Printf("session=%s state %s → %s", shortID(sessionID), from, to)
}

func (h LoggerHook) OnExtractionMiss(_ context.Context, sessionID string, err error) {
	h.L.Printf("session=%s no plan in response: %v", shortID(sessionID), err)
}

func (h LoggerHook) OnPlanWritten(_ context.Context, sessionID string, version int, dir string, sections []artifact.Section) {
	names := make([]string, 0, len(sections))
	for _, s := range sections {
		names = append(names, string(s))
	}
	h.L.Printf("📝 session=%s plan v%d written to %s (%s)", shortID(sessionID), version, dir, strings.Join(names, ", "))
}

func (h LoggerHook) OnTurnFailed(_ context.Context, sessionID string, err error) {
	h.L.Printf("⚠️  session=%s turn failed: %v", shortID(sessionID), err)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
