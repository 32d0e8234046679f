package cmd

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/keepstack/mnemo/internal/config"
	"github.com/keepstack/mnemo/internal/embedding"
	"github.com/keepstack/mnemo/internal/retrieval"
	"github.com/keepstack/mnemo/internal/store"
	"github.com/keepstack/mnemo/internal/store/pg"
	"github.com/keepstack/mnemo/internal/store/sqlite"
)

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}

// stores bundles the opened backends with a single closer.
type stores struct {
	passages store.PassageStore
	memories store.MemoryStore
	close    func() error
}

// openStores opens the backend the config selects. Both backends implement
// the passage and the memory contract on one handle.
func openStores(cfg *config.Config) (*stores, error) {
	switch cfg.Database.Mode {
	case "postgres":
		if cfg.Database.PostgresDSN == "" {
			return nil, fmt.Errorf("database.postgres_dsn is required in postgres mode")
		}
		if err := pg.Migrate(cfg.Database.PostgresDSN); err != nil {
			return nil, err
		}
		db, err := pg.OpenDB(cfg.Database.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s := pg.New(db)
		s.MatchAll = cfg.Retrieval.KeywordMatch == "all"
		return &stores{passages: s, memories: s, close: db.Close}, nil
	case "sqlite", "":
		s, err := sqlite.Open(cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		s.MatchAll = cfg.Retrieval.KeywordMatch == "all"
		return &stores{passages: s, memories: s, close: s.Close}, nil
	default:
		return nil, fmt.Errorf("unknown database mode %q", cfg.Database.Mode)
	}
}

// buildEmbedder constructs the configured provider with its cache layers.
func buildEmbedder(cfg *config.Config) (embedding.Provider, error) {
	var provider embedding.Provider
	switch cfg.Embedding.Provider {
	case "openai":
		p, err := embedding.NewOpenAI(embedding.OpenAIConfig{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		provider = p
	case "mock", "":
		provider = embedding.NewMock(cfg.Embedding.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}

	if cfg.Embedding.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Embedding.RedisAddr})
		provider = embedding.NewRedisCached(provider, client)
	}

	return embedding.NewCached(provider, cfg.Embedding.CacheSize)
}

// buildRetriever wires the full pipeline from config.
func buildRetriever(cfg *config.Config, st *stores, embedder embedding.Provider) *retrieval.Retriever {
	rcfg := retrieval.Config{
		TopK: cfg.Retrieval.TopK,
		Budget: retrieval.BudgetSpec{
			MaxTotalTokens: cfg.Retrieval.MaxTotalTokens,
			MaxItems:       cfg.Retrieval.MaxItems,
			MaxPerSource:   cfg.Retrieval.MaxPerSource,
			MaxItemTokens:  cfg.Retrieval.MaxItemTokens,
		},
		DedupThreshold:  cfg.Retrieval.DedupThreshold,
		KeywordMatchAll: cfg.Retrieval.KeywordMatch == "all",
	}
	return retrieval.New(st.passages, st.passages, st.memories, embedder, rcfg)
}
