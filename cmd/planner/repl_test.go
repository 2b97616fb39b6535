package main

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ChamsBouzaiene/dodo-plan/internal/conversation"
	"github.com/ChamsBouzaiene/dodo-plan/internal/engine"
	"github.com/ChamsBouzaiene/dodo-plan/internal/plan"
	"github.com/ChamsBouzaiene/dodo-plan/internal/project"
	"github.com/ChamsBouzaiene/dodo-plan/internal/session"
)

type scriptedChatter struct {
	replies []string
}

func (s *scriptedChatter) Chat(ctx context.Context, history []engine.ChatMessage) (string, error) {
	if len(s.replies) == 0 {
		return "ok", nil
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func newTestREPL(t *testing.T, input string, replies ...string) (*repl, *bytes.Buffer) {
	t.Helper()
	store := session.NewStore(session.NewFileDocStore(t.TempDir()))
	versioner := plan.NewVersioner("plan")
	env := &runtimeEnv{
		ProjectDir: t.TempDir(),
		Store:      store,
		Versioner:  versioner,
		Controller: conversation.NewController(store, &scriptedChatter{replies: replies}, versioner, nil),
	}
	var out bytes.Buffer
	return newREPL(bufio.NewScanner(strings.NewReader(input)), &out, env), &out
}

const planReply = "Done.\n```json\n{\"files\": {\"PRD\": \"# PRD\", \"API\": \"# API\"}}\n```"

func TestREPL_TurnWritesPlan(t *testing.T) {
	r, out := newTestREPL(t, "build me a shop\n/plans\n/exit\n", planReply)
	if err := r.start("", "shop"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := r.loop(context.Background()); err != nil {
		t.Fatalf("loop failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{"planner> Done.", "Plan v1 written", "PRD, API"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if !r.current.PlanGenerated || r.current.PlanVersion != 1 {
		t.Errorf("current session not updated: %+v", r.current)
	}
}

func TestREPL_NewAndResume(t *testing.T) {
	r, out := newTestREPL(t, "")
	if err := r.start("", "first"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	first := r.current.ID

	ctx := context.Background()
	if err := r.handleLine(ctx, "/new second"); err != nil {
		t.Fatalf("/new failed: %v", err)
	}
	if r.current.ID == first || r.current.ProjectName != "second" {
		t.Fatalf("expected a new session, got %+v", r.current)
	}

	if err := r.handleLine(ctx, "/resume "+first[:8]); err != nil {
		t.Fatalf("/resume by prefix failed: %v", err)
	}
	if r.current.ID != first {
		t.Errorf("expected to resume %s, got %s", first, r.current.ID)
	}

	out.Reset()
	if err := r.handleLine(ctx, "/sessions"); err != nil {
		t.Fatalf("/sessions failed: %v", err)
	}
	if lines := strings.Count(out.String(), "\n"); lines != 2 {
		t.Errorf("expected 2 sessions listed, got:\n%s", out.String())
	}

	if err := r.handleLine(ctx, "/resume nope"); err == nil {
		t.Error("expected error resuming unknown session")
	}
}

func TestREPL_Search(t *testing.T) {
	r, out := newTestREPL(t, "", "Postgres sounds right for orders.")
	if err := r.start("", "shop"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	ctx := context.Background()
	if err := r.handleLine(ctx, "we need a database"); err != nil {
		t.Fatalf("turn failed: %v", err)
	}

	out.Reset()
	if err := r.handleLine(ctx, "/search postgres"); err != nil {
		t.Fatalf("/search failed: %v", err)
	}
	if !strings.Contains(out.String(), "Postgres sounds right") {
		t.Errorf("expected hit, got:\n%s", out.String())
	}
}

func TestREPL_UnknownCommand(t *testing.T) {
	r, _ := newTestREPL(t, "")
	if err := r.start("", ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := r.handleLine(context.Background(), "/frobnicate"); err == nil {
		t.Error("expected unknown command error")
	}
	if err := r.handleLine(context.Background(), "/exit"); err != errExit {
		t.Errorf("expected errExit, got %v", err)
	}
}

func TestREPL_ProjectConfigNamesSession(t *testing.T) {
	r, _ := newTestREPL(t, "")
	dir := filepath.Join(r.env.ProjectDir, project.DodoDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, project.ConfigFile), []byte(`{"name": "storefront"}`), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if err := r.start("", ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if r.current.ProjectName != "storefront" {
		t.Errorf("expected project config name, got %q", r.current.ProjectName)
	}
}
