package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"marketplace-rag/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the retrieval schema",
	Long: `Apply the full schema: pgvector extension, tables, indexes, the
match_site_pages function, and row-level-security policies. With
--drop the schema is torn down instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		ctx := cmd.Context()
		drop, _ := cmd.Flags().GetBool("drop")
		if drop {
			if err := db.DropSchema(ctx, database); err != nil {
				return err
			}
			log.Info().Msg("Schema dropped")
			return nil
		}

		if err := db.InitDB(ctx, database); err != nil {
			return err
		}
		log.Info().Msg("Schema applied")
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("drop", false, "drop the schema instead of applying it")

	rootCmd.AddCommand(migrateCmd)
}
