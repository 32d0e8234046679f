package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keepstack/mnemo/internal/model"
	"github.com/keepstack/mnemo/internal/retrieval"
)

func askCmd() *cobra.Command {
	var (
		owner    string
		tier     string
		kinds    []string
		asJSON   bool
		showDiag bool
	)

	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Retrieve the context block for a query",
		Long: `Runs the full retrieval pipeline (hybrid search, temporal scoping,
filtering, dedup, budgeting, U-shape arrangement) and prints the context
a generator would receive. Generation itself is out of scope.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStores(cfg)
			if err != nil {
				return err
			}
			defer st.close()

			embedder, err := buildEmbedder(cfg)
			if err != nil {
				return err
			}

			memKinds := make([]model.MemoryKind, 0, len(kinds))
			for _, k := range kinds {
				mk := model.MemoryKind(k)
				if !model.ValidKind(mk) {
					return fmt.Errorf("unknown memory kind %q", k)
				}
				memKinds = append(memKinds, mk)
			}

			r := buildRetriever(cfg, st, embedder)
			res, err := r.Retrieve(cmd.Context(), retrieval.Request{
				OwnerID:     owner,
				Query:       strings.Join(args, " "),
				Tier:        retrieval.BudgetTier(tier),
				MemoryKinds: memKinds,
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			if len(res.Memories) > 0 {
				fmt.Println("=== MEMORIES ===")
				for _, m := range res.Memories {
					fmt.Printf("[%s %.2f] %s\n", m.Kind, m.Confidence, m.Content)
				}
				fmt.Println()
			}
			if len(res.Passages) == 0 {
				fmt.Println("No passages matched.")
			} else {
				fmt.Println("=== PASSAGES ===")
				for i, p := range res.Passages {
					title := p.Metadata.Title
					if title == "" {
						title = p.DocumentID
					}
					fmt.Printf("--- %d. %s #%d ---\n%s\n\n", i+1, title, p.Ordinal, p.Content)
				}
			}

			if showDiag {
				d := res.Diagnostics
				fmt.Printf("diagnostics: vec=%d kw=%d overlap=%d fused=%d filtered=%d deduped=%d budgeted=%d sources=%d top=%.4f spread=%.4f",
					d.EmbeddingCandidates, d.KeywordCandidates, d.OverlapCount, d.FusedCount,
					d.PostFilterCount, d.PostDedupCount, d.PostBudgetCount,
					d.DistinctSources, d.TopScore, d.ScoreSpread)
				if d.YearFilter > 0 {
					fmt.Printf(" year=%d", d.YearFilter)
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner (user) ID")
	cmd.Flags().StringVar(&tier, "tier", string(retrieval.TierFull), `memory budget tier: "full" or "minimal"`)
	cmd.Flags().StringSliceVar(&kinds, "kinds", nil, "memory kinds to boost in ranking")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the raw result as JSON")
	cmd.Flags().BoolVar(&showDiag, "diag", false, "print retrieval diagnostics")
	cmd.MarkFlagRequired("owner")

	return cmd
}
