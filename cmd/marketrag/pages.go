package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"marketplace-rag/internal/db"
)

// Pages larger than this are refused by "pages get"; the agent side
// applies the same guard before assembling a full page.
const maxPageChunks = 10

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Inspect stored documentation pages",
}

var pagesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List distinct documentation pages",
	RunE: func(cmd *cobra.Command, args []string) error {
		var marketplace db.Marketplace
		if m, _ := cmd.Flags().GetString("marketplace"); m != "" {
			parsed, err := db.ParseMarketplace(m)
			if err != nil {
				return err
			}
			marketplace = parsed
		}

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		refs, err := db.ListDocumentationPages(cmd.Context(), database, marketplace)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"URL", "Title", "Marketplace"})
		for _, ref := range refs {
			t.AppendRow(table.Row{ref.URL, ref.Title, ref.Marketplace})
		}
		t.Render()
		return nil
	},
}

var pagesGetCmd = &cobra.Command{
	Use:   "get URL",
	Short: "Print the full content of a page, chunks in order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		ctx := cmd.Context()
		count, err := db.CountPageChunks(ctx, database, url)
		if err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("no content found for %s", url)
		}
		if count > maxPageChunks {
			return fmt.Errorf("page %s has %d chunks, refusing to assemble it whole", url, count)
		}

		chunks, err := db.GetPageContent(ctx, database, url)
		if err != nil {
			return err
		}

		fmt.Printf("# %s [%s]\n", chunks[0].Title, chunks[0].Marketplace)
		if chunks[0].Summary != "" {
			fmt.Printf("\n**Summary**: %s\n", chunks[0].Summary)
		}
		for _, chunk := range chunks {
			fmt.Printf("\n%s\n", chunk.Content)
		}
		return nil
	},
}

var pagesImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Bulk-insert chunks from a JSON file",
	Long: `Import inserts chunks prepared by the ingestion side. The file holds
a JSON array of site_pages rows with their embeddings already
computed; duplicate (url, chunk_number) pairs fail the unique
constraint.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var rows []pageRow
		if err := json.Unmarshal(data, &rows); err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}

		pages := make([]db.SitePage, len(rows))
		for i, row := range rows {
			pages[i] = db.SitePage{
				URL:         row.URL,
				ChunkNumber: row.ChunkNumber,
				Title:       row.Title,
				Summary:     row.Summary,
				Content:     row.Content,
				Metadata:    row.Metadata,
				Embedding:   pgvector.NewVector(row.Embedding),
				Marketplace: db.Marketplace(row.Marketplace),
			}
		}

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := db.StoreSitePages(cmd.Context(), database, pages); err != nil {
			return err
		}
		log.Info().Int("chunks", len(pages)).Msg("Pages imported")
		return nil
	},
}

// pageRow is the import file format, one entry per chunk.
type pageRow struct {
	URL         string         `json:"url"`
	ChunkNumber int            `json:"chunk_number"`
	Title       string         `json:"title"`
	Summary     string         `json:"summary"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata"`
	Embedding   []float32      `json:"embedding"`
	Marketplace string         `json:"marketplace"`
}

var pagesDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete all stored chunks ahead of a re-ingestion run",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := db.DropSitePages(cmd.Context(), database); err != nil {
			return err
		}
		log.Info().Msg("All pages dropped")
		return nil
	},
}

func init() {
	pagesListCmd.Flags().String("marketplace", "", "restrict to one marketplace (amazon, ebay, etsy)")

	pagesCmd.AddCommand(pagesListCmd)
	pagesCmd.AddCommand(pagesGetCmd)
	pagesCmd.AddCommand(pagesImportCmd)
	pagesCmd.AddCommand(pagesDropCmd)
	rootCmd.AddCommand(pagesCmd)
}
