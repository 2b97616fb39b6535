package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/ChamsBouzaiene/dodo-plan/internal/artifact"
	"github.com/ChamsBouzaiene/dodo-plan/internal/conversation"
	"github.com/ChamsBouzaiene/dodo-plan/internal/project"
	"github.com/ChamsBouzaiene/dodo-plan/internal/prompts"
	"github.com/ChamsBouzaiene/dodo-plan/internal/session"
)

const helpText = `Commands:
  /new [name]     start a new session for this project
  /sessions       list saved sessions, most recent first
  /resume <id>    switch to a saved session (id or unique prefix)
  /plans          list plan versions of the current project
  /search <text>  search the messages of every saved session
  /help           show this help
  /exit           quit
Anything else is sent to the planner.`

var errExit = errors.New("exit")

type repl struct {
	in  *bufio.Scanner
	out io.Writer
	env *runtimeEnv

	// interactive prints the input prompt; off when stdin is piped.
	interactive bool

	current *session.Session
}

func newREPL(in *bufio.Scanner, out io.Writer, env *runtimeEnv) *repl {
	return &repl{in: in, out: out, env: env}
}

// start resumes the requested session or creates a new one.
func (r *repl) start(resumeID, name string) error {
	if resumeID != "" {
		return r.resume(resumeID)
	}
	return r.newSession(name)
}

func (r *repl) loop(ctx context.Context) error {
	for {
		if r.interactive {
			fmt.Fprint(r.out, "you> ")
		}
		if !r.in.Scan() {
			break
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}

		if err := r.handleLine(ctx, line); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			log.Printf("error: %v", err)
		}
		fmt.Fprintln(r.out)
	}
	return r.in.Err()
}

func (r *repl) handleLine(ctx context.Context, line string) error {
	if !strings.HasPrefix(line, "/") {
		return r.turn(ctx, line)
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/new":
		return r.newSession(arg)
	case "/sessions":
		return r.listSessions()
	case "/resume":
		if arg == "" {
			return fmt.Errorf("usage: /resume <id>")
		}
		return r.resume(arg)
	case "/plans":
		return r.listPlans()
	case "/search":
		if arg == "" {
			return fmt.Errorf("usage: /search <text>")
		}
		return r.search(arg)
	case "/help":
		fmt.Fprintln(r.out, helpText)
		return nil
	case "/exit", "/quit":
		return errExit
	default:
		return fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

func (r *repl) turn(ctx context.Context, input string) error {
	streaming := r.env.Transport != nil && r.env.Transport.Stream
	if streaming {
		fmt.Fprint(r.out, "planner> ")
	}

	res, err := r.env.Controller.Turn(ctx, r.current.ID, input)
	if err != nil {
		if conversation.IsTransport(err) {
			return fmt.Errorf("the model could not be reached, your message was saved: %w", err)
		}
		return err
	}
	r.current = res.Session

	if streaming {
		fmt.Fprintln(r.out)
	} else {
		fmt.Fprintf(r.out, "planner> %s\n", res.Reply)
	}
	if res.PlanWritten {
		fmt.Fprintf(r.out, "\n%s\n", planStyle.Render(fmt.Sprintf("📝 Plan v%d written to %s (%d files)", res.PlanVersion, res.PlanDir, len(res.Sections))))
	}
	return nil
}

func (r *repl) newSession(name string) error {
	if name == "" {
		pcfg, err := project.LoadConfig(r.env.ProjectDir)
		if err != nil {
			log.Printf("⚠️  Ignoring project config: %v", err)
		} else {
			name = pcfg.Name
		}
	}
	sess, err := r.env.Store.Create(r.env.ProjectDir, name)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	r.switchTo(sess)
	fmt.Fprintln(r.out, noticeStyle.Render(fmt.Sprintf("Started session %s for %s", sess.ID, sess.ProjectName)))
	return nil
}

func (r *repl) resume(idOrPrefix string) error {
	sess, err := r.env.Store.Get(idOrPrefix)
	if errors.Is(err, session.ErrNotFound) {
		sess, err = r.findByPrefix(idOrPrefix)
	}
	if err != nil {
		return err
	}
	r.switchTo(sess)
	summary := fmt.Sprintf("Resumed session %s for %s (%d messages", sess.ID, sess.ProjectName, len(sess.Messages))
	if sess.PlanGenerated {
		summary += fmt.Sprintf(", plan v%d", sess.PlanVersion)
	}
	fmt.Fprintln(r.out, noticeStyle.Render(summary+")"))
	return nil
}

func (r *repl) findByPrefix(prefix string) (*session.Session, error) {
	all, err := r.env.Store.ListAll()
	if err != nil {
		return nil, err
	}
	var match *session.Session
	for _, s := range all {
		if strings.HasPrefix(s.ID, prefix) {
			if match != nil {
				return nil, fmt.Errorf("session prefix %q is ambiguous", prefix)
			}
			match = s
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", session.ErrNotFound, prefix)
	}
	return match, nil
}

// switchTo makes sess current and points the system prompt at its project.
func (r *repl) switchTo(sess *session.Session) {
	r.current = sess
	if r.env.Transport == nil {
		return
	}
	rules, err := project.LoadRules(sess.ProjectPath)
	if err != nil {
		log.Printf("⚠️  Ignoring project rules: %v", err)
	}
	prompt, err := prompts.PlannerSystemPrompt(sess.ProjectName, rules)
	if err != nil {
		log.Printf("⚠️  Failed to build system prompt: %v", err)
		return
	}
	r.env.Transport.SystemPrompt = prompt
}

func (r *repl) listSessions() error {
	all, err := r.env.Store.ListAll()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Fprintln(r.out, dimStyle.Render("No saved sessions."))
		return nil
	}
	for _, s := range all {
		marker := " "
		if r.current != nil && s.ID == r.current.ID {
			marker = "*"
		}
		planInfo := "no plan"
		if s.PlanGenerated {
			planInfo = fmt.Sprintf("plan v%d", s.PlanVersion)
		}
		fmt.Fprintf(r.out, "%s %s  %-20s %3d msgs  %-8s  %s\n",
			marker, s.ID[:min(8, len(s.ID))], s.ProjectName, len(s.Messages), planInfo, s.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func (r *repl) listPlans() error {
	versions, err := r.env.Versioner.Versions(r.current.ProjectPath)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(r.out, dimStyle.Render("No plans yet under "+r.env.Versioner.Root(r.current.ProjectPath)))
		return nil
	}
	for _, v := range versions {
		fmt.Fprintf(r.out, "v%-3d %8s  %s  %s\n", v.Number, v.HumanSize(), v.ModTime.Local().Format("2006-01-02 15:04"), sectionNames(v.Sections))
	}
	return nil
}

func (r *repl) search(query string) error {
	all, err := r.env.Store.ListAll()
	if err != nil {
		return err
	}
	searcher, err := session.NewSearcher(all)
	if err != nil {
		return err
	}
	defer searcher.Close()

	hits, err := searcher.Search(query, 10)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Fprintln(r.out, dimStyle.Render(fmt.Sprintf("No messages match %q", query)))
		return nil
	}
	for _, h := range hits {
		fmt.Fprintf(r.out, "%s %-20s %-9s %s\n", h.SessionID[:min(8, len(h.SessionID))], h.ProjectName, h.Role, snippet(h.Content, 80))
	}
	return nil
}

func snippet(s string, limit int) string {
	runes := []rune(strings.Join(strings.Fields(s), " "))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "..."
}

func sectionNames(secs []artifact.Section) string {
	names := make([]string, 0, len(secs))
	for _, s := range secs {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
