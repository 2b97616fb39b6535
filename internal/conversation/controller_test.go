package conversation

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ChamsBouzaiene/dodo-plan/internal/artifact"
	"github.com/ChamsBouzaiene/dodo-plan/internal/engine"
	"github.com/ChamsBouzaiene/dodo-plan/internal/plan"
	"github.com/ChamsBouzaiene/dodo-plan/internal/session"
)

// MockChatter replays scripted replies and records the history it was sent.
type MockChatter struct {
	Replies []string
	Err     error
	Seen    [][]engine.ChatMessage
}

func (m *MockChatter) Chat(ctx context.Context, history []engine.ChatMessage) (string, error) {
	m.Seen = append(m.Seen, append([]engine.ChatMessage(nil), history...))
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	reply := m.Replies[0]
	m.Replies = m.Replies[1:]
	return reply, nil
}

// failingWriter reports a plan write failure after delegating version lookup.
type failingWriter struct {
	*plan.Versioner
}

func (failingWriter) Write(string, artifact.Set, int) error {
	return errors.New("disk full")
}

// recordingHook captures state transitions.
type recordingHook struct {
	NopHook
	transitions []State
	misses      int
	written     []int
}

func (h *recordingHook) OnStateChange(_ context.Context, _ string, _, to State) {
	h.transitions = append(h.transitions, to)
}

func (h *recordingHook) OnExtractionMiss(context.Context, string, error) { h.misses++ }

func (h *recordingHook) OnPlanWritten(_ context.Context, _ string, version int, _ string, _ []artifact.Section) {
	h.written = append(h.written, version)
}

const planReply = "Here is your plan:\n```json\n{\"files\": {\"PRD\": \"# PRD\", \"TASKS\": \"- [ ] build\"}}\n```"

type fixture struct {
	store     *session.Store
	versioner *plan.Versioner
	sess      *session.Session
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := session.NewStore(session.NewFileDocStore(t.TempDir()))
	sess, err := store.Create(t.TempDir(), "shop")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return fixture{store: store, versioner: plan.NewVersioner("plan"), sess: sess}
}

func TestTurn_OrdinaryReply(t *testing.T) {
	f := newFixture(t)
	chat := &MockChatter{Replies: []string{"What payment provider do you use?"}}
	hook := &recordingHook{}
	c := NewController(f.store, chat, f.versioner, hook)

	res, err := c.Turn(context.Background(), f.sess.ID, "I want an online shop")
	if err != nil {
		t.Fatalf("Turn failed: %v", err)
	}
	if res.PlanWritten {
		t.Fatal("expected no plan to be written")
	}
	if !errors.Is(res.Miss, artifact.ErrNotFound) {
		t.Errorf("expected extraction miss, got %v", res.Miss)
	}
	if hook.misses != 1 {
		t.Errorf("expected 1 miss hook, got %d", hook.misses)
	}

	loaded, err := f.store.Get(f.sess.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(loaded.Messages) != 2 || loaded.Messages[0].Role != engine.RoleUser || loaded.Messages[1].Role != engine.RoleAssistant {
		t.Fatalf("unexpected messages: %+v", loaded.Messages)
	}
	if loaded.PlanGenerated || loaded.PlanVersion != 0 {
		t.Errorf("session should not be marked: %+v", loaded)
	}
	if c.State() != StateIdle {
		t.Errorf("expected Idle, got %s", c.State())
	}

	want := []State{StateAwaitingResponse, StateExtracting, StateIdle}
	if len(hook.transitions) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, hook.transitions)
	}
	for i := range want {
		if hook.transitions[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], hook.transitions[i])
		}
	}
}

func TestTurn_WritesPlanVersions(t *testing.T) {
	f := newFixture(t)
	chat := &MockChatter{Replies: []string{planReply, planReply}}
	hook := &recordingHook{}
	c := NewController(f.store, chat, f.versioner, hook)

	res, err := c.Turn(context.Background(), f.sess.ID, "Generate the plan")
	if err != nil {
		t.Fatalf("Turn failed: %v", err)
	}
	if !res.PlanWritten || res.PlanVersion != 1 {
		t.Fatalf("expected plan v1, got %+v", res)
	}
	if len(res.Sections) != 2 || res.Sections[0] != artifact.SectionPRD || res.Sections[1] != artifact.SectionTasks {
		t.Errorf("unexpected sections: %v", res.Sections)
	}

	for _, rel := range []string{"v1/prd.md", "v1/tasks.md", "prd.md", "tasks.md"} {
		if _, err := os.Stat(filepath.Join(f.sess.ProjectPath, "plan", rel)); err != nil {
			t.Errorf("expected %s to exist: %v", rel, err)
		}
	}

	loaded, err := f.store.Get(f.sess.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !loaded.PlanGenerated || loaded.PlanVersion != 1 {
		t.Errorf("expected session marked with v1, got %+v", loaded)
	}

	res, err = c.Turn(context.Background(), f.sess.ID, "Regenerate it")
	if err != nil {
		t.Fatalf("second Turn failed: %v", err)
	}
	if res.PlanVersion != 2 {
		t.Errorf("expected v2, got %d", res.PlanVersion)
	}
	if len(hook.written) != 2 || hook.written[1] != 2 {
		t.Errorf("unexpected written hooks: %v", hook.written)
	}
	if hook.transitions[2] != StateVersioning {
		t.Errorf("expected versioning transition, got %v", hook.transitions)
	}

	// The second chat call must see the whole conversation in order.
	seen := chat.Seen[1]
	if len(seen) != 3 || seen[0].Content != "Generate the plan" || seen[1].Content != planReply || seen[2].Content != "Regenerate it" {
		t.Errorf("unexpected history sent to chat: %+v", seen)
	}
}

func TestTurn_TransportFailureKeepsUserMessage(t *testing.T) {
	f := newFixture(t)
	chat := &MockChatter{Err: errors.New("503 service unavailable")}
	c := NewController(f.store, chat, f.versioner, nil)

	_, err := c.Turn(context.Background(), f.sess.ID, "hello?")
	if !IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if c.State() != StateIdle {
		t.Errorf("expected Idle after failure, got %s", c.State())
	}

	loaded, err := f.store.Get(f.sess.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(loaded.Messages) != 1 || loaded.Messages[0].Content != "hello?" {
		t.Errorf("expected only the user message to remain, got %+v", loaded.Messages)
	}
	if len(chat.Seen) != 1 {
		t.Errorf("expected exactly one chat attempt, got %d", len(chat.Seen))
	}
}

func TestTurn_VersionWriteFailureLeavesSessionUnmarked(t *testing.T) {
	f := newFixture(t)
	chat := &MockChatter{Replies: []string{planReply}}
	c := NewController(f.store, chat, failingWriter{f.versioner}, nil)

	_, err := c.Turn(context.Background(), f.sess.ID, "Generate the plan")
	if !IsVersionWrite(err) {
		t.Fatalf("expected version write error, got %v", err)
	}

	loaded, err := f.store.Get(f.sess.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded.PlanGenerated || loaded.PlanVersion != 0 {
		t.Errorf("failed write must not mark session: %+v", loaded)
	}
	if len(loaded.Messages) != 2 {
		t.Errorf("expected both messages persisted, got %d", len(loaded.Messages))
	}
}

func TestTurn_EmptyInput(t *testing.T) {
	f := newFixture(t)
	chat := &MockChatter{}
	c := NewController(f.store, chat, f.versioner, nil)

	if _, err := c.Turn(context.Background(), f.sess.ID, "   \n"); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if len(chat.Seen) != 0 {
		t.Error("chat should not be called for empty input")
	}
}

func TestTurn_UnknownSession(t *testing.T) {
	f := newFixture(t)
	chat := &MockChatter{Replies: []string{"hi"}}
	c := NewController(f.store, chat, f.versioner, nil)

	_, err := c.Turn(context.Background(), "missing", "hello")
	if !IsStorage(err) || !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected storage error wrapping ErrNotFound, got %v", err)
	}
	if len(chat.Seen) != 0 {
		t.Error("chat should not be called for an unknown session")
	}
}

func TestLoggerHook(t *testing.T) {
	var buf bytes.Buffer
	hook := LoggerHook{L: log.New(&buf, "", 0)}
	f := newFixture(t)
	c := NewController(f.store, &MockChatter{Replies: []string{planReply}}, f.versioner, hook)

	if _, err := c.Turn(context.Background(), f.sess.ID, "plan please"); err != nil {
		t.Fatalf("Turn failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "plan v1 written") || !strings.Contains(out, "PRD, TASKS") {
		t.Errorf("unexpected log output:\n%s", out)
	}
}
