package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const defaultHistoryLimit = 5

// Analysis holds the enrichment a later pass attaches to a stored
// exchange. Metadata entries are merged into the conversation's
// existing metadata.
type Analysis struct {
	Sentiment string
	Summary   string
	Topics    []string
	Metadata  map[string]any
}

// ContextMessage is one turn of agent context rebuilt from stored
// conversations.
type ContextMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SaveConversation assigns the next message_sequence within the
// user's session and inserts the exchange. The sequence read and the
// insert are not atomic; a session has a single writer.
func SaveConversation(ctx context.Context, db *bun.DB, conv *UserConversation) error {
	if err := normalizeConversation(conv); err != nil {
		return err
	}

	var last int
	err := db.NewSelect().
		Model((*UserConversation)(nil)).
		ColumnExpr("coalesce(max(uc.message_sequence), 0)").
		Where("uc.user_id = ?", conv.UserID).
		Where("uc.session_id = ?", conv.SessionID).
		Scan(ctx, &last)
	if err != nil {
		return mapError(err)
	}
	conv.MessageSequence = last + 1

	_, err = db.NewInsert().Model(conv).Returning("id, created_at").Exec(ctx)
	return mapError(err)
}

// normalizeConversation validates an exchange and fills the defaults
// the schema declares. sources is NOT NULL and a nil metadata map
// would serialize as jsonb 'null', so both become empty values
// instead of SQL NULL.
func normalizeConversation(conv *UserConversation) error {
	if conv.UserID == uuid.Nil {
		return fmt.Errorf("user id is required")
	}
	if conv.Question == "" || conv.Answer == "" {
		return fmt.Errorf("question and answer are required")
	}
	if conv.Marketplace != "" && !conv.Marketplace.ValidTag() {
		return fmt.Errorf("%w: %q", ErrInvalidMarketplace, conv.Marketplace)
	}
	if conv.Sources == nil {
		conv.Sources = []string{}
	}
	if conv.Metadata == nil {
		conv.Metadata = map[string]any{}
	}
	return nil
}

// RecentConversations returns the latest exchanges of a session,
// newest first.
func RecentConversations(ctx context.Context, db *bun.DB, userID uuid.UUID, sessionID int64, limit int) ([]UserConversation, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var convs []UserConversation
	err := db.NewSelect().
		Model(&convs).
		Where("uc.user_id = ?", userID).
		Where("uc.session_id = ?", sessionID).
		OrderExpr("uc.message_sequence DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return convs, nil
}

// ConversationByID loads a single conversation with its images.
func ConversationByID(ctx context.Context, db *bun.DB, id uuid.UUID) (*UserConversation, error) {
	conv := new(UserConversation)
	err := db.NewSelect().
		Model(conv).
		Relation("Images").
		Where("uc.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMissingConversation, id)
	}
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// UpdateConversationAnalysis stores the enrichment for a
// conversation, merging analysis metadata over what is already there.
func UpdateConversationAnalysis(ctx context.Context, db *bun.DB, id uuid.UUID, analysis Analysis) (*UserConversation, error) {
	conv, err := ConversationByID(ctx, db, id)
	if err != nil {
		return nil, err
	}

	conv.Sentiment = analysis.Sentiment
	conv.Summary = analysis.Summary
	conv.Topics = analysis.Topics
	if conv.Metadata == nil {
		conv.Metadata = map[string]any{}
	}
	for k, v := range analysis.Metadata {
		conv.Metadata[k] = v
	}

	_, err = db.NewUpdate().
		Model(conv).
		Column("sentiment", "summary", "topics", "metadata").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return conv, nil
}

// DeleteConversation removes an exchange; its images cascade away
// with it.
func DeleteConversation(ctx context.Context, db *bun.DB, id uuid.UUID) error {
	res, err := db.NewDelete().
		Model((*UserConversation)(nil)).
		Where("uc.id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrMissingConversation, id)
	}
	return nil
}

// AddConversationImage attaches an image to an existing conversation.
func AddConversationImage(ctx context.Context, db *bun.DB, img *ConversationImage) error {
	if img.ConversationID == uuid.Nil {
		return fmt.Errorf("conversation id is required")
	}
	if img.ImageURL == "" {
		return fmt.Errorf("image url is required")
	}
	_, err := db.NewInsert().Model(img).Returning("id, created_at").Exec(ctx)
	return mapError(err)
}

// ConversationImages lists a conversation's images, oldest first.
func ConversationImages(ctx context.Context, db *bun.DB, conversationID uuid.UUID) ([]ConversationImage, error) {
	var images []ConversationImage
	err := db.NewSelect().
		Model(&images).
		Where("ci.conversation_id = ?", conversationID).
		OrderExpr("ci.created_at").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return images, nil
}

// ContextMessages flattens stored exchanges into the ordered
// user/assistant message list an agent consumes. Input order does not
// matter; output follows message_sequence.
func ContextMessages(convs []UserConversation) []ContextMessage {
	sorted := make([]UserConversation, len(convs))
	copy(sorted, convs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MessageSequence < sorted[j].MessageSequence
	})

	var messages []ContextMessage
	for _, conv := range sorted {
		if conv.Question != "" {
			messages = append(messages, ContextMessage{Role: "user", Content: conv.Question})
		}
		if conv.Answer != "" {
			messages = append(messages, ContextMessage{Role: "assistant", Content: conv.Answer})
		}
	}
	return messages
}
