package db

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
)

// EmbeddingDim is the dimensionality of stored embeddings
// (OpenAI text-embedding-3-small).
const EmbeddingDim = 1536

// Marketplace identifies which marketplace a chunk or conversation
// belongs to.
type Marketplace string

const (
	MarketplaceAmazon Marketplace = "amazon"
	MarketplaceEbay   Marketplace = "ebay"
	MarketplaceEtsy   Marketplace = "etsy"

	// MarketplaceGeneral tags conversations that are not scoped to a
	// single marketplace. It is not a valid site_pages value.
	MarketplaceGeneral Marketplace = "general"
)

// Valid reports whether m is one of the marketplaces site_pages rows
// may carry.
func (m Marketplace) Valid() bool {
	switch m {
	case MarketplaceAmazon, MarketplaceEbay, MarketplaceEtsy:
		return true
	}
	return false
}

// ValidTag reports whether m may be used as a conversation tag.
func (m Marketplace) ValidTag() bool {
	return m.Valid() || m == MarketplaceGeneral
}

func ParseMarketplace(s string) (Marketplace, error) {
	m := Marketplace(s)
	if !m.ValidTag() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMarketplace, s)
	}
	return m, nil
}

// SitePage is one chunk of crawled marketplace documentation. Rows are
// written by the ingestion side and only ever read here.
type SitePage struct {
	bun.BaseModel `bun:"table:site_pages,alias:sp"`

	ID          int64           `bun:"id,pk,autoincrement"`
	URL         string          `bun:"url,notnull"`
	ChunkNumber int             `bun:"chunk_number,notnull"`
	Title       string          `bun:"title,notnull"`
	Summary     string          `bun:"summary,notnull"`
	Content     string          `bun:"content,notnull"`
	Metadata    map[string]any  `bun:"metadata,type:jsonb,nullzero,default:'{}'::jsonb"`
	Embedding   pgvector.Vector `bun:"embedding,type:vector(1536)"`
	Marketplace Marketplace     `bun:"marketplace,notnull"`
	UserID      *uuid.UUID      `bun:"user_id,type:uuid,nullzero"`
	CreatedAt   time.Time       `bun:"created_at,notnull,nullzero,default:timezone('utc'::text, now())"`
}

// UserConversation is one question/answer exchange within a session.
// Sentiment, Summary, Topics and the analysis keys in Metadata are
// filled by a later enrichment pass over the stored exchange.
type UserConversation struct {
	bun.BaseModel `bun:"table:user_conversations,alias:uc"`

	ID              uuid.UUID      `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()"`
	UserID          uuid.UUID      `bun:"user_id,type:uuid,notnull"`
	SessionID       int64          `bun:"session_id,notnull"`
	MessageSequence int            `bun:"message_sequence,notnull"`
	Question        string         `bun:"question,notnull"`
	Answer          string         `bun:"answer,notnull"`
	Marketplace     Marketplace    `bun:"marketplace,nullzero"`
	Sources         []string       `bun:"sources,array,nullzero,default:'{}'"`
	Sentiment       string         `bun:"sentiment,nullzero"`
	Summary         string         `bun:"summary,nullzero"`
	Topics          []string       `bun:"topics,array"`
	TotalTokens     int            `bun:"total_tokens"`
	ExecutionTime   float64        `bun:"execution_time"`
	Metadata        map[string]any `bun:"metadata,type:jsonb,nullzero,default:'{}'::jsonb"`
	CreatedAt       time.Time      `bun:"created_at,notnull,nullzero,default:timezone('utc'::text, now())"`

	Images []*ConversationImage `bun:"rel:has-many,join:id=conversation_id"`
}

// ConversationImage is an image attached to a conversation, with the
// optional textual analysis produced for it.
type ConversationImage struct {
	bun.BaseModel `bun:"table:conversation_images,alias:ci"`

	ID             uuid.UUID `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()"`
	ConversationID uuid.UUID `bun:"conversation_id,type:uuid,notnull"`
	ImageURL       string    `bun:"image_url,notnull"`
	Analysis       string    `bun:"analysis,nullzero"`
	CreatedAt      time.Time `bun:"created_at,notnull,nullzero,default:timezone('utc'::text, now())"`
}
