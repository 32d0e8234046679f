package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keepstack/mnemo/internal/ingest"
	"github.com/keepstack/mnemo/internal/model"
)

func ingestCmd() *cobra.Command {
	var (
		owner     string
		title     string
		fileType  string
		startYear int
		endYear   int
	)

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Chunk, embed, and index a text document",
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

			path := args[0]
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			if fileType == "" {
				fileType = strings.TrimPrefix(filepath.Ext(path), ".")
			}
			if title == "" {
				title = filepath.Base(path)
			}

			opts := ingest.Options{Title: title, FileType: fileType}
			if startYear > 0 || endYear > 0 {
				vr := &model.YearRange{}
				if startYear > 0 {
					vr.StartYear = &startYear
				}
				if endYear > 0 {
					vr.EndYear = &endYear
				}
				opts.Validity = vr
			}

			ix := ingest.NewIndexer(st.passages, embedder)
			n, err := ix.IndexDocument(cmd.Context(), owner, filepath.Base(path), string(raw), opts)
			if err != nil {
				return err
			}

			fmt.Printf("Indexed %s: %d passages\n", path, n)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner (user) ID")
	cmd.Flags().StringVar(&title, "title", "", "document title (default: file name)")
	cmd.Flags().StringVar(&fileType, "type", "", "file type tag (default: extension)")
	cmd.Flags().IntVar(&startYear, "start-year", 0, "validity range start year")
	cmd.Flags().IntVar(&endYear, "end-year", 0, "validity range end year (omit for ongoing)")
	cmd.MarkFlagRequired("owner")

	return cmd
}
