package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"marketplace-rag/internal/db"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Rank stored chunks against a query embedding",
	Long: `Search runs match_site_pages with a pre-computed query embedding
(a JSON array of floats) and prints the top matches by cosine
similarity. The marketplace and metadata filters narrow the candidate
set before ranking.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		embeddingFile, _ := cmd.Flags().GetString("embedding-file")
		if embeddingFile == "" {
			return fmt.Errorf("--embedding-file is required")
		}
		embedding, err := readEmbedding(embeddingFile)
		if err != nil {
			return err
		}

		req := db.MatchRequest{Embedding: embedding}
		req.MatchCount, _ = cmd.Flags().GetInt("count")

		if m, _ := cmd.Flags().GetString("marketplace"); m != "" {
			marketplace, err := db.ParseMarketplace(m)
			if err != nil {
				return err
			}
			req.Marketplace = marketplace
		}
		if f, _ := cmd.Flags().GetString("filter"); f != "" {
			if err := json.Unmarshal([]byte(f), &req.Filter); err != nil {
				return fmt.Errorf("parsing --filter: %w", err)
			}
		}

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		results, err := db.MatchSitePages(cmd.Context(), database, req)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"URL", "Chunk", "Title", "Marketplace", "Similarity"})
		for _, r := range results {
			t.AppendRow(table.Row{r.URL, r.ChunkNumber, r.Title, r.Marketplace, fmt.Sprintf("%.4f", r.Similarity)})
		}
		t.Render()
		return nil
	},
}

// readEmbedding loads a JSON float array from path ("-" for stdin).
func readEmbedding(path string) ([]float32, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var embedding []float32
	if err := json.Unmarshal(data, &embedding); err != nil {
		return nil, fmt.Errorf("parsing embedding from %s: %w", path, err)
	}
	return embedding, nil
}

func init() {
	searchCmd.Flags().String("embedding-file", "", "JSON file holding the query embedding (\"-\" for stdin)")
	searchCmd.Flags().Int("count", 0, "maximum number of matches (default 10)")
	searchCmd.Flags().String("marketplace", "", "restrict matches to one marketplace (amazon, ebay, etsy)")
	searchCmd.Flags().String("filter", "", "metadata containment filter as a JSON object")

	rootCmd.AddCommand(searchCmd)
}
