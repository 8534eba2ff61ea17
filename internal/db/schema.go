package db

import (
	"context"

	"github.com/uptrace/bun"
)

// The schema targets Supabase: auth.users and auth.uid() come from its
// managed auth layer, and the service-role connection used by the
// ingestion side bypasses row level security.

const schemaSitePages = `
CREATE TABLE IF NOT EXISTS site_pages (
    id bigserial PRIMARY KEY,
    url varchar NOT NULL,
    chunk_number integer NOT NULL,
    title varchar NOT NULL,
    summary varchar NOT NULL,
    content text NOT NULL,
    metadata jsonb NOT NULL DEFAULT '{}'::jsonb,
    embedding vector(1536),
    marketplace varchar NOT NULL DEFAULT 'amazon',
    user_id uuid REFERENCES auth.users(id) ON DELETE CASCADE,
    created_at timestamptz NOT NULL DEFAULT timezone('utc'::text, now()),

    UNIQUE (url, chunk_number),
    CONSTRAINT site_pages_marketplace_check
        CHECK (marketplace IN ('amazon', 'ebay', 'etsy'))
);`

const schemaSitePagesEmbeddingIndex = `
CREATE INDEX IF NOT EXISTS idx_site_pages_embedding
    ON site_pages USING ivfflat (embedding vector_cosine_ops);`

const schemaSitePagesMetadataIndex = `
CREATE INDEX IF NOT EXISTS idx_site_pages_metadata
    ON site_pages USING gin (metadata);`

const schemaSitePagesMarketplaceIndex = `
CREATE INDEX IF NOT EXISTS idx_site_pages_marketplace
    ON site_pages (marketplace);`

const schemaMatchSitePages = `
CREATE OR REPLACE FUNCTION match_site_pages (
    query_embedding vector(1536),
    match_count int DEFAULT 10,
    marketplace_filter varchar DEFAULT NULL,
    filter jsonb DEFAULT '{}'::jsonb
) RETURNS TABLE (
    id bigint,
    url varchar,
    chunk_number integer,
    title varchar,
    summary varchar,
    content text,
    metadata jsonb,
    marketplace varchar,
    similarity float
)
LANGUAGE plpgsql
AS $$
BEGIN
    RETURN QUERY
    SELECT
        site_pages.id,
        site_pages.url,
        site_pages.chunk_number,
        site_pages.title,
        site_pages.summary,
        site_pages.content,
        site_pages.metadata,
        site_pages.marketplace,
        1 - (site_pages.embedding <=> query_embedding) AS similarity
    FROM site_pages
    WHERE site_pages.metadata @> filter
      AND (marketplace_filter IS NULL OR site_pages.marketplace = marketplace_filter)
    ORDER BY site_pages.embedding <=> query_embedding
    LIMIT match_count;
END;
$$;`

const schemaConversations = `
CREATE TABLE IF NOT EXISTS user_conversations (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id uuid NOT NULL REFERENCES auth.users(id) ON DELETE CASCADE,
    session_id bigint NOT NULL,
    message_sequence integer NOT NULL DEFAULT 1,
    question text NOT NULL,
    answer text NOT NULL,
    marketplace varchar,
    sources text[] NOT NULL DEFAULT '{}',
    sentiment varchar,
    summary text,
    topics text[],
    total_tokens integer NOT NULL DEFAULT 0,
    execution_time double precision NOT NULL DEFAULT 0,
    metadata jsonb NOT NULL DEFAULT '{}'::jsonb,
    created_at timestamptz NOT NULL DEFAULT timezone('utc'::text, now()),

    CONSTRAINT user_conversations_marketplace_check
        CHECK (marketplace IS NULL OR marketplace IN ('amazon', 'ebay', 'etsy', 'general'))
);`

const schemaConversationsIndex = `
CREATE INDEX IF NOT EXISTS idx_user_conversations_session
    ON user_conversations (user_id, session_id, message_sequence);`

const schemaConversationImages = `
CREATE TABLE IF NOT EXISTS conversation_images (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    conversation_id uuid NOT NULL REFERENCES user_conversations(id) ON DELETE CASCADE,
    image_url text NOT NULL,
    analysis text,
    created_at timestamptz NOT NULL DEFAULT timezone('utc'::text, now())
);`

const schemaSitePagesRLS = `
ALTER TABLE site_pages ENABLE ROW LEVEL SECURITY;`

const schemaSitePagesReadPolicy = `
CREATE POLICY "Allow authenticated read access"
    ON site_pages
    FOR SELECT
    TO authenticated
    USING (true);`

const schemaConversationsRLS = `
ALTER TABLE user_conversations ENABLE ROW LEVEL SECURITY;`

const schemaConversationsOwnerPolicy = `
CREATE POLICY "Users manage their own conversations"
    ON user_conversations
    FOR ALL
    TO authenticated
    USING (auth.uid() = user_id)
    WITH CHECK (auth.uid() = user_id);`

const schemaImagesRLS = `
ALTER TABLE conversation_images ENABLE ROW LEVEL SECURITY;`

const schemaImagesOwnerPolicy = `
CREATE POLICY "Images follow their conversation"
    ON conversation_images
    FOR ALL
    TO authenticated
    USING (EXISTS (
        SELECT 1 FROM user_conversations uc
        WHERE uc.id = conversation_id AND uc.user_id = auth.uid()
    ))
    WITH CHECK (EXISTS (
        SELECT 1 FROM user_conversations uc
        WHERE uc.id = conversation_id AND uc.user_id = auth.uid()
    ));`

// schemaStatements lists the DDL in dependency order. Each entry is a
// single statement so the plpgsql function body is never split.
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector;`,
	schemaSitePages,
	schemaSitePagesEmbeddingIndex,
	schemaSitePagesMetadataIndex,
	schemaSitePagesMarketplaceIndex,
	schemaMatchSitePages,
	schemaConversations,
	schemaConversationsIndex,
	schemaConversationImages,
	schemaSitePagesRLS,
	schemaSitePagesReadPolicy,
	schemaConversationsRLS,
	schemaConversationsOwnerPolicy,
	schemaImagesRLS,
	schemaImagesOwnerPolicy,
}

// InitDB applies the full schema: extension, tables, indexes, the
// match_site_pages function, and the row-level-security policies.
func InitDB(ctx context.Context, db *bun.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// DropSchema tears everything down, children first.
func DropSchema(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewDropTable().Model((*ConversationImage)(nil)).IfExists().Exec(ctx); err != nil {
		return err
	}
	if _, err := db.NewDropTable().Model((*UserConversation)(nil)).IfExists().Exec(ctx); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DROP FUNCTION IF EXISTS match_site_pages;`); err != nil {
		return err
	}
	_, err := db.NewDropTable().Model((*SitePage)(nil)).IfExists().Exec(ctx)
	return err
}
