package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/keepstack/mnemo/internal/embedding"
	"github.com/keepstack/mnemo/internal/model"
	"github.com/keepstack/mnemo/internal/store/sqlite"
)

func rememberCmd() *cobra.Command {
	var (
		owner      string
		kind       string
		confidence float64
	)

	cmd := &cobra.Command{
		Use:   "remember <text>",
		Short: "Store an extracted memory",
		Args:  cobra.ExactArgs(1),
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

			mk := model.MemoryKind(kind)
			if !model.ValidKind(mk) {
				return fmt.Errorf("unknown memory kind %q (want preference|goal|fact|decision|summary)", kind)
			}

			mem := model.Memory{
				OwnerID:    owner,
				Kind:       mk,
				Content:    args[0],
				Confidence: confidence,
			}
			vecs, err := embedder.Embed(cmd.Context(), []string{args[0]}, embedding.ModeDocument)
			if err == nil && len(vecs) > 0 {
				mem.Embedding = vecs[0]
			}

			if err := st.memories.Add(cmd.Context(), mem); err != nil {
				return err
			}
			fmt.Printf("Remembered %s (confidence %.2f)\n", kind, confidence)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner (user) ID")
	cmd.Flags().StringVar(&kind, "kind", "fact", "memory kind: preference|goal|fact|decision|summary")
	cmd.Flags().Float64Var(&confidence, "confidence", 0.8, "extraction confidence [0,1]")
	cmd.MarkFlagRequired("owner")

	return cmd
}

func memoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memories",
		Short: "Inspect stored memories",
	}
	cmd.AddCommand(memoriesListCmd())
	cmd.AddCommand(memoriesRmCmd())
	return cmd
}

func memoriesListCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's memories",
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

			// Full listing is a sqlite-store extra; managed mode goes
			// through retrieval instead.
			ls, ok := st.memories.(*sqlite.Store)
			if !ok {
				return fmt.Errorf("memories list is only available with the sqlite backend")
			}

			mems, err := ls.ListMemories(cmd.Context(), owner)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tCONF\tAGE\tCONTENT")
			for _, m := range mems {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\n",
					shortID(m.ID), m.Kind, m.Confidence,
					m.CreatedAt.Format("2006-01-02"), truncate(m.Content, 60))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner (user) ID")
	cmd.MarkFlagRequired("owner")
	return cmd
}

func memoriesRmCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "rm <memory-id>",
		Short: "Delete a memory",
		Args:  cobra.ExactArgs(1),
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

			if err := st.memories.Delete(cmd.Context(), owner, args[0]); err != nil {
				return err
			}
			fmt.Println("Deleted", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner (user) ID")
	cmd.MarkFlagRequired("owner")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
