// Package main implements the humwire API server: the guided wiring form and
// its JSON API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/humwire/humwire/engine/assistant"
	"github.com/humwire/humwire/engine/domain"
	"github.com/humwire/humwire/engine/journal"
	"github.com/humwire/humwire/engine/knowledge"
	"github.com/humwire/humwire/engine/plans"
	"github.com/humwire/humwire/pkg/metrics"
	"github.com/humwire/humwire/pkg/ollama"
	"github.com/humwire/humwire/pkg/resilience"
)

// Config holds all environment-based configuration. Empty URLs disable the
// optional backends.
type Config struct {
	Port         string
	OllamaURL    string
	OllamaModel  string
	EmbedModel   string
	QdrantURL    string
	Collection   string
	Neo4jURL     string
	Neo4jUser    string
	Neo4jPass    string
	NATSURL      string
	JournalPath  string
	PresetsFile  string
	CORSOrigin   string
	AssistantRPS float64
	AskRPS       float64
}

func loadConfig() Config {
	return Config{
		Port:         envOr("PORT", "8080"),
		OllamaURL:    envOr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:  envOr("OLLAMA_MODEL", "llama3.1:8b"),
		EmbedModel:   envOr("EMBED_MODEL", "nomic-embed-text"),
		QdrantURL:    os.Getenv("QDRANT_URL"),
		Collection:   envOr("QDRANT_COLLECTION", "humwire"),
		Neo4jURL:     os.Getenv("NEO4J_URL"),
		Neo4jUser:    envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:    envOr("NEO4J_PASS", "password"),
		NATSURL:      os.Getenv("NATS_URL"),
		JournalPath:  envOr("JOURNAL_PATH", "humwire-events.jsonl"),
		PresetsFile:  os.Getenv("PRESETS_FILE"),
		CORSOrigin:   envOr("CORS_ORIGIN", "*"),
		AssistantRPS: envFloat("ASSISTANT_RPS", assistant.DefaultConfig.RPS),
		AskRPS:       envFloat("ASK_RPS", 2),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(loadConfig(), logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := domain.NewRegistry()
	if cfg.PresetsFile != "" {
		n, err := registry.LoadPresets(cfg.PresetsFile)
		if err != nil {
			return fmt.Errorf("load presets: %w", err)
		}
		logger.Info("custom presets loaded", "count", n, "file", cfg.PresetsFile)
	}

	reg := metrics.New()

	// --- Ollama ---
	var llm assistant.LLM
	var embedder knowledge.Embedder
	if cfg.OllamaModel != "" {
		client := ollama.New(cfg.OllamaURL, cfg.OllamaModel, ollama.WithEmbedModel(cfg.EmbedModel))
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		ok, err := client.Ping(pingCtx)
		cancel()
		if !ok {
			logger.Warn("ollama model not available, assistant will fall back to canned answers",
				"url", cfg.OllamaURL, "model", cfg.OllamaModel, "err", err)
		}
		llm, embedder = client, client
	}

	// --- Qdrant ---
	var index knowledge.Index
	if cfg.QdrantURL != "" && embedder != nil {
		store, err := knowledge.NewVectorStore(cfg.QdrantURL, cfg.Collection)
		if err != nil {
			return fmt.Errorf("qdrant connect: %w", err)
		}
		defer store.Close()
		index = store
	}
	kb := knowledge.NewBase(embedder, index, logger)
	if kb.Semantic() {
		go func() {
			rctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			defer cancel()
			n, err := kb.Reindex(rctx)
			if err != nil {
				logger.Warn("faq reindex failed, keyword matching only", "err", err)
				return
			}
			logger.Info("faq indexed", "entries", n)
		}()
	}

	// --- Assistant ---
	breakerGauge := reg.Gauge("assistant_breaker_state", "LLM circuit breaker state (0 closed, 1 open, 2 half-open).")
	acfg := assistant.DefaultConfig
	acfg.RPS = cfg.AssistantRPS
	acfg.Breaker.OnStateChange = func(s resilience.State) {
		breakerGauge.Set(float64(s))
		logger.Info("assistant breaker state changed", "state", s.String())
	}
	asst := assistant.New(llm, kb, registry, acfg, logger)

	// --- Neo4j ---
	var archive planStore
	if cfg.Neo4jURL != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			return fmt.Errorf("neo4j driver: %w", err)
		}
		defer driver.Close(context.Background())
		store := plans.NewStore(driver)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Warn("neo4j schema setup failed", "err", err)
		}
		archive = store
	}

	// --- Journal ---
	journals := journal.Multi{}
	if cfg.JournalPath != "" {
		fj, err := journal.OpenFile(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer fj.Close()
		journals = append(journals, fj)
	}
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("humwire-api"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()
		journals = append(journals, journal.NewNATS(nc))
	}

	srv := &server{
		registry:  registry,
		assistant: asst,
		knowledge: kb,
		plans:     archive,
		journal:   journals,
		metrics:   reg,
		logger:    logger,
	}

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.routes(cfg.CORSOrigin, cfg.AskRPS),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port,
			"llm", llm != nil, "semantic_faq", kb.Semantic(), "plans", archive != nil, "journals", len(journals))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutCtx)
}
