package config

import (
	"os"
	"path/filepath"
)

// normalize fills defaults and resolves derived values so the rest of the
// program never branches on zero values.
func (c *Config) normalize() {
	if c.Database.Mode == "" {
		c.Database.Mode = "sqlite"
	}
	if c.Database.SQLitePath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			c.Database.SQLitePath = filepath.Join(home, ".mnemo", "mnemo.db")
		} else {
			c.Database.SQLitePath = "mnemo.db"
		}
	}

	if c.Embedding.Provider == "" {
		if c.Embedding.APIKey != "" {
			c.Embedding.Provider = "openai"
		} else {
			c.Embedding.Provider = "mock"
		}
	}

	if c.Retrieval.KeywordMatch == "" {
		c.Retrieval.KeywordMatch = "any"
	}

	if c.Tracing.Protocol == "" {
		c.Tracing.Protocol = "grpc"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "mnemo"
	}
}
