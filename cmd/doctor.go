package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keepstack/mnemo/internal/embedding"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check store and embedder connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Printf("database: mode=%s\n", cfg.Database.Mode)

			st, err := openStores(cfg)
			if err != nil {
				fmt.Println("  store: FAIL -", err)
				return nil
			}
			fmt.Println("  store: ok")
			st.close()

			fmt.Printf("embedding: provider=%s\n", cfg.Embedding.Provider)
			embedder, err := buildEmbedder(cfg)
			if err != nil {
				fmt.Println("  embedder: FAIL -", err)
				return nil
			}
			if _, err := embedder.Embed(cmd.Context(), []string{"connectivity check"}, embedding.ModeQuery); err != nil {
				fmt.Println("  embedder: FAIL -", err)
				return nil
			}
			fmt.Printf("  embedder: ok (model=%s, dims=%d)\n", embedder.Model(), embedder.Dimensions())

			if cfg.Tracing.Endpoint != "" {
				fmt.Printf("tracing: otlp %s via %s\n", cfg.Tracing.Endpoint, cfg.Tracing.Protocol)
			} else {
				fmt.Println("tracing: disabled")
			}
			return nil
		},
	}
}
