package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/term"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := run(context.Background(), os.Args[1:]); err != nil {
		log.Fatalf("command failed: %v", err)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("planner", flag.ExitOnError)
	projectFlag := fs.String("project", "", "Project directory the plan is written under (default: current directory)")
	nameFlag := fs.String("name", "", "Project name for a new session (default: project directory name)")
	resumeFlag := fs.String("resume", "", "Resume the session with this id (or unique id prefix)")
	dataFlag := fs.String("data", "", "Directory holding saved sessions (default: user config dir)")
	streamFlag := fs.Bool("stream", true, "Print replies as they are generated")

	if err := fs.Parse(args); err != nil {
		return err
	}

	streamSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "stream" {
			streamSet = true
		}
	})

	env, err := prepareRuntimeEnv(runtimeOptions{
		ProjectDir:  *projectFlag,
		DataDir:     *dataFlag,
		Stream:      *streamFlag,
		StreamIsSet: streamSet,
	})
	if err != nil {
		return err
	}
	defer env.Close()

	r := newREPL(bufio.NewScanner(os.Stdin), os.Stdout, env)
	r.interactive = term.IsTerminal(int(os.Stdin.Fd()))
	if err := r.start(*resumeFlag, *nameFlag); err != nil {
		return err
	}

	log.Printf("🗂️  Planning %s (%s) with %s, plans under %s",
		r.current.ProjectName, r.current.ProjectPath, env.Model, env.Versioner.Root(r.current.ProjectPath))
	if r.interactive {
		fmt.Fprintln(os.Stdout, dimStyle.Render("Describe what you want to build. Type /help for commands."))
	}

	return r.loop(ctx)
}
