// Package main is the marketrag CLI: operator tooling for the
// marketplace retrieval schema (migrations, similarity search, page
// inspection, conversation history).
package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"marketplace-rag/internal/config"
	"marketplace-rag/internal/db"
)

const defaultConfigPath = "./configs/config.yaml"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "marketrag",
	Short: "Operate the marketplace retrieval database",
	Long: `marketrag manages the Supabase schema backing the marketplace
assistant: site_pages chunks with their embeddings, the
match_site_pages similarity function, and per-user conversation
history. Embedding generation is out of scope; search takes a
pre-computed query vector.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
		if cfg.Database.Debug {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", defaultConfigPath, "path to the yaml config file")
}

// openDB connects using the loaded config and returns the bun handle.
func openDB() (*bun.DB, error) {
	sqldb, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		return nil, err
	}
	return db.NewDB(sqldb, cfg.Database.Debug), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
