package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"marketplace-rag/internal/db"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Manage stored conversation history",
}

var chatRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the latest exchanges of a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, sessionID, err := chatScope(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		convs, err := db.RecentConversations(cmd.Context(), database, userID, sessionID, limit)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Seq", "ID", "Marketplace", "Question", "Answer"})
		for _, conv := range convs {
			t.AppendRow(table.Row{conv.MessageSequence, conv.ID, conv.Marketplace, truncate(conv.Question, 60), truncate(conv.Answer, 60)})
		}
		t.Render()
		return nil
	},
}

var chatSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Store a question/answer exchange",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, sessionID, err := chatScope(cmd)
		if err != nil {
			return err
		}

		conv := &db.UserConversation{
			UserID:    userID,
			SessionID: sessionID,
		}
		conv.Question, _ = cmd.Flags().GetString("question")
		conv.Answer, _ = cmd.Flags().GetString("answer")
		conv.Sources, _ = cmd.Flags().GetStringSlice("source")
		if m, _ := cmd.Flags().GetString("marketplace"); m != "" {
			marketplace, err := db.ParseMarketplace(m)
			if err != nil {
				return err
			}
			conv.Marketplace = marketplace
		}

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := db.SaveConversation(cmd.Context(), database, conv); err != nil {
			return err
		}
		log.Info().
			Str("id", conv.ID.String()).
			Int("sequence", conv.MessageSequence).
			Msg("Conversation saved")
		return nil
	},
}

var chatDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an exchange and its attached images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("parsing conversation id: %w", err)
		}

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := db.DeleteConversation(cmd.Context(), database, id); err != nil {
			return err
		}
		log.Info().Str("id", id.String()).Msg("Conversation deleted")
		return nil
	},
}

var chatShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print one exchange with its images and context form",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("parsing conversation id: %w", err)
		}

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		conv, err := db.ConversationByID(cmd.Context(), database, id)
		if err != nil {
			return err
		}

		for _, msg := range db.ContextMessages([]db.UserConversation{*conv}) {
			fmt.Printf("[%s] %s\n", msg.Role, msg.Content)
		}
		if conv.Sentiment != "" || conv.Summary != "" {
			fmt.Printf("\nsentiment: %s\nsummary: %s\ntopics: %v\n", conv.Sentiment, conv.Summary, conv.Topics)
		}
		for _, img := range conv.Images {
			fmt.Printf("\nimage: %s\n", img.ImageURL)
			if img.Analysis != "" {
				fmt.Printf("analysis: %s\n", img.Analysis)
			}
		}
		return nil
	},
	Args: cobra.ExactArgs(1),
}

var chatAnnotateCmd = &cobra.Command{
	Use:   "annotate ID",
	Short: "Attach analysis produced for an exchange",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("parsing conversation id: %w", err)
		}

		var analysis db.Analysis
		analysis.Sentiment, _ = cmd.Flags().GetString("sentiment")
		analysis.Summary, _ = cmd.Flags().GetString("summary")
		analysis.Topics, _ = cmd.Flags().GetStringSlice("topic")

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		if _, err := db.UpdateConversationAnalysis(cmd.Context(), database, id, analysis); err != nil {
			return err
		}
		log.Info().Str("id", id.String()).Msg("Conversation annotated")
		return nil
	},
}

var chatAttachCmd = &cobra.Command{
	Use:   "attach ID",
	Short: "Attach an image to an exchange",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("parsing conversation id: %w", err)
		}

		img := &db.ConversationImage{ConversationID: id}
		img.ImageURL, _ = cmd.Flags().GetString("image-url")
		img.Analysis, _ = cmd.Flags().GetString("analysis")

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := db.AddConversationImage(cmd.Context(), database, img); err != nil {
			return err
		}
		log.Info().Str("id", img.ID.String()).Msg("Image attached")
		return nil
	},
}

// chatScope reads the user/session pair every chat subcommand needs.
func chatScope(cmd *cobra.Command) (uuid.UUID, int64, error) {
	user, _ := cmd.Flags().GetString("user")
	userID, err := uuid.Parse(user)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("parsing --user: %w", err)
	}
	sessionID, _ := cmd.Flags().GetInt64("session")
	return userID, sessionID, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	for _, c := range []*cobra.Command{chatRecentCmd, chatSaveCmd} {
		c.Flags().String("user", "", "user id (uuid)")
		c.Flags().Int64("session", 0, "session id")
	}
	chatRecentCmd.Flags().Int("limit", 0, "number of exchanges to show (default 5)")
	chatSaveCmd.Flags().String("question", "", "the user's question")
	chatSaveCmd.Flags().String("answer", "", "the assistant's answer")
	chatSaveCmd.Flags().String("marketplace", "", "marketplace tag (amazon, ebay, etsy, general)")
	chatSaveCmd.Flags().StringSlice("source", nil, "cited source url (repeatable)")

	chatAnnotateCmd.Flags().String("sentiment", "", "overall user sentiment")
	chatAnnotateCmd.Flags().String("summary", "", "short summary of the exchange")
	chatAnnotateCmd.Flags().StringSlice("topic", nil, "discussed topic (repeatable)")
	chatAttachCmd.Flags().String("image-url", "", "image reference to attach")
	chatAttachCmd.Flags().String("analysis", "", "textual analysis of the image")

	chatCmd.AddCommand(chatRecentCmd)
	chatCmd.AddCommand(chatSaveCmd)
	chatCmd.AddCommand(chatShowCmd)
	chatCmd.AddCommand(chatAnnotateCmd)
	chatCmd.AddCommand(chatAttachCmd)
	chatCmd.AddCommand(chatDeleteCmd)
	rootCmd.AddCommand(chatCmd)
}
