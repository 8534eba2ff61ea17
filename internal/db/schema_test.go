package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allSchema() string {
	return strings.Join(schemaStatements, "\n")
}

func TestSchemaStatementsNonEmpty(t *testing.T) {
	require.NotEmpty(t, schemaStatements)
	for i, stmt := range schemaStatements {
		assert.NotEmpty(t, strings.TrimSpace(stmt), "statement %d is empty", i)
	}
}

func TestSchemaConstraints(t *testing.T) {
	ddl := allSchema()

	assert.Contains(t, ddl, "UNIQUE (url, chunk_number)")
	assert.Contains(t, ddl, "CHECK (marketplace IN ('amazon', 'ebay', 'etsy'))")
	assert.Contains(t, ddl, "CHECK (marketplace IS NULL OR marketplace IN ('amazon', 'ebay', 'etsy', 'general'))")
	assert.Contains(t, ddl, "REFERENCES user_conversations(id) ON DELETE CASCADE")
	assert.Contains(t, ddl, "vector(1536)")
}

func TestSchemaSearchFunction(t *testing.T) {
	ddl := allSchema()

	assert.Equal(t, 1, strings.Count(ddl, "CREATE OR REPLACE FUNCTION match_site_pages"))
	assert.Contains(t, ddl, "1 - (site_pages.embedding <=> query_embedding) AS similarity")
	assert.Contains(t, ddl, "ORDER BY site_pages.embedding <=> query_embedding")
	assert.Contains(t, ddl, "LIMIT match_count")
	assert.Contains(t, ddl, "site_pages.metadata @> filter")
}

func TestSchemaRowLevelSecurity(t *testing.T) {
	ddl := allSchema()

	// every table carries RLS and a policy granted to authenticated only
	assert.Equal(t, 3, strings.Count(ddl, "ENABLE ROW LEVEL SECURITY"))
	assert.Equal(t, 3, strings.Count(ddl, "CREATE POLICY"))
	assert.Equal(t, 3, strings.Count(ddl, "TO authenticated"))
	assert.NotContains(t, ddl, "TO public")
	assert.Contains(t, ddl, "auth.uid() = user_id")
}

func TestSchemaIndexes(t *testing.T) {
	ddl := allSchema()

	assert.Contains(t, ddl, "USING ivfflat (embedding vector_cosine_ops)")
	assert.Contains(t, ddl, "USING gin (metadata)")
	assert.Contains(t, ddl, "ON user_conversations (user_id, session_id, message_sequence)")
}
