package cli

import (
	"fmt"

	"github.com/mnemosyneos/mnemo/config"
	"github.com/mnemosyneos/mnemo/jobs"
	"github.com/mnemosyneos/mnemo/memory"
	"github.com/mnemosyneos/mnemo/memory/embedder/cached"
	"github.com/mnemosyneos/mnemo/memory/embedder/mock"
	openaiembed "github.com/mnemosyneos/mnemo/memory/embedder/openai"
	"github.com/mnemosyneos/mnemo/memory/index/chromem"
	llmanthropic "github.com/mnemosyneos/mnemo/memory/llm/anthropic"
	llmopenai "github.com/mnemosyneos/mnemo/memory/llm/openai"
	"github.com/mnemosyneos/mnemo/meta"
)

// app wires the full memory system for one command invocation.
type app struct {
	cfg       config.Config
	backend   memory.Backend
	stores    meta.Stores
	service   *meta.Service
	reflector *memory.Reflector
	runner    *jobs.Runner
}

func newApp() (*app, error) {
	cfg := config.Load()
	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}

	var store *chromem.Store
	var err error
	if cfg.DataDir != "" {
		store, err = chromem.NewPersistent(cfg.DataDir)
	} else {
		store, err = chromem.New()
	}
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	completer, err := buildCompleter(cfg)
	if err != nil {
		return nil, err
	}

	stores := meta.Stores{
		Semantic:   memory.NewSemanticStore(store, embedder, nil),
		Episodic:   memory.NewEpisodicStore(store, embedder, nil),
		Procedural: memory.NewProceduralStore(store, embedder, nil),
		Affective:  memory.NewAffectiveStore(store, embedder, completer, nil),
		Identity:   memory.NewIdentityStore(store, embedder, nil),
		Reflective: memory.NewReflectiveStore(store, embedder, nil),
	}

	a := &app{
		cfg:     cfg,
		backend: store,
		stores:  stores,
		service: meta.New(store, stores, cfg.DataDir),
		runner:  jobs.NewRunner(),
	}
	if completer != nil {
		a.reflector = memory.NewReflector(stores.Semantic, stores.Episodic, stores.Procedural, stores.Reflective, completer)
	}
	return a, nil
}

func buildEmbedder(cfg config.Config) (memory.Embedder, error) {
	var embedder memory.Embedder
	switch cfg.Embedder {
	case "openai":
		e, err := openaiembed.New(openaiembed.Config{APIKey: cfg.OpenAIAPIKey})
		if err != nil {
			return nil, fmt.Errorf("openai embedder: %w", err)
		}
		embedder = memory.NewRetryEmbedder(e)
	case "mock", "":
		embedder = mock.New()
	default:
		return nil, fmt.Errorf("unknown embedder %q", cfg.Embedder)
	}

	if cfg.EmbedCache {
		wrapped, err := cached.New(embedder, cached.Config{})
		if err != nil {
			return nil, err
		}
		embedder = wrapped
	}
	return embedder, nil
}

// buildCompleter returns nil without error when no provider is
// configured; commands that need one check and fail individually.
func buildCompleter(cfg config.Config) (memory.Completer, error) {
	switch cfg.Provider {
	case "anthropic":
		c, err := llmanthropic.New(llmanthropic.Config{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("anthropic completer: %w", err)
		}
		return memory.NewRetryCompleter(c), nil
	case "openai":
		c, err := llmopenai.New(llmopenai.Config{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("openai completer: %w", err)
		}
		return memory.NewRetryCompleter(c), nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// layerStore resolves the --layer flag to a store.
func (a *app) layerStore(name string) (*memory.LayerStore, error) {
	layer, ok := memory.ParseLayer(name)
	if !ok {
		return nil, fmt.Errorf("unknown layer %q", name)
	}
	for _, store := range a.stores.All() {
		if store.Layer() == layer {
			return store, nil
		}
	}
	return nil, fmt.Errorf("unknown layer %q", name)
}
