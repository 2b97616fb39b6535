package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ChamsBouzaiene/dodo-plan/internal/config"
	"github.com/ChamsBouzaiene/dodo-plan/internal/conversation"
	"github.com/ChamsBouzaiene/dodo-plan/internal/plan"
	"github.com/ChamsBouzaiene/dodo-plan/internal/providers"
	"github.com/ChamsBouzaiene/dodo-plan/internal/session"
)

type runtimeOptions struct {
	ProjectDir  string
	DataDir     string
	Stream      bool
	StreamIsSet bool // -stream given explicitly; overrides config
}

type runtimeEnv struct {
	ProjectDir string
	Model      string
	Store      *session.Store
	Versioner  *plan.Versioner
	Transport  *providers.Transport
	Controller *conversation.Controller
}

func (r *runtimeEnv) Close() {
	if r.Store != nil {
		if err := r.Store.Close(); err != nil {
			log.Printf("⚠️  Failed to close session store: %v", err)
		}
	}
}

func prepareRuntimeEnv(opts runtimeOptions) (*runtimeEnv, error) {
	projectDir := opts.ProjectDir
	if projectDir == "" {
		var err error
		projectDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}
	absProject, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project path: %w", err)
	}
	if info, err := os.Stat(absProject); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("project path is not a valid directory: %s", absProject)
	}

	cfgManager, err := config.NewManager()
	if err != nil {
		return nil, err
	}
	cfg, err := cfgManager.EnsureDefaults()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log.Printf("User config loaded from: %s", cfgManager.GetConfigPath())
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgManager.GetConfigPath(), err)
	}
	if opts.StreamIsSet {
		cfg.Stream = opts.Stream
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = cfgManager.Dir()
	}
	docs, err := openDocStore(cfg.Store, dataDir)
	if err != nil {
		return nil, err
	}
	store := session.NewStore(docs)

	client, model, err := providers.NewClient(cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	transport := &providers.Transport{
		Client: client,
		Model:  model,
		Stream: cfg.Stream,
		Logger: log.Default(),
	}
	if cfg.Stream {
		transport.OnDelta = func(text string) { fmt.Fprint(os.Stdout, text) }
	}

	versioner := plan.NewVersioner(cfg.PlanFolder)
	controller := conversation.NewController(store, transport, versioner, conversation.LoggerHook{L: log.Default()})

	return &runtimeEnv{
		ProjectDir: absProject,
		Model:      model,
		Store:      store,
		Versioner:  versioner,
		Transport:  transport,
		Controller: controller,
	}, nil
}

func openDocStore(kind, dataDir string) (session.DocStore, error) {
	switch kind {
	case config.StoreSQLite:
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		dbPath := filepath.Join(dataDir, "sessions.db")
		log.Printf("💾 Sessions stored in %s", dbPath)
		return session.NewSQLiteDocStore(dbPath)
	default:
		log.Printf("💾 Sessions stored in %s", filepath.Join(dataDir, "sessions"))
		return session.NewFileDocStore(dataDir), nil
	}
}
