package db

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeConversation(t *testing.T) {
	conv := &UserConversation{
		UserID:    uuid.New(),
		SessionID: 7,
		Question:  "q",
		Answer:    "a",
	}

	require.NoError(t, normalizeConversation(conv))
	assert.NotNil(t, conv.Sources)
	assert.NotNil(t, conv.Metadata)

	// supplied values are kept
	conv2 := &UserConversation{
		UserID:   uuid.New(),
		Question: "q",
		Answer:   "a",
		Sources:  []string{"https://example.com"},
		Metadata: map[string]any{"intent": "consulta"},
	}
	require.NoError(t, normalizeConversation(conv2))
	assert.Equal(t, []string{"https://example.com"}, conv2.Sources)
	assert.Equal(t, map[string]any{"intent": "consulta"}, conv2.Metadata)
}

func TestNormalizeConversationRejects(t *testing.T) {
	assert.Error(t, normalizeConversation(&UserConversation{Question: "q", Answer: "a"}))
	assert.Error(t, normalizeConversation(&UserConversation{UserID: uuid.New(), Question: "q"}))

	err := normalizeConversation(&UserConversation{
		UserID:      uuid.New(),
		Question:    "q",
		Answer:      "a",
		Marketplace: Marketplace("walmart"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidMarketplace))
}

func TestConversationInsertRendersEmptyDefaults(t *testing.T) {
	// saving without --source or metadata must insert '{}' into the
	// NOT NULL sources column and an empty jsonb object, not NULL or
	// the jsonb scalar 'null'
	conv := &UserConversation{
		UserID:          uuid.New(),
		SessionID:       1,
		MessageSequence: 1,
		Question:        "como funciona FBA?",
		Answer:          "FBA es...",
	}
	require.NoError(t, normalizeConversation(conv))

	query := testBunDB().NewInsert().Model(conv).String()

	assert.Contains(t, query, `"user_conversations"`)
	assert.GreaterOrEqual(t, strings.Count(query, "'{}'"), 2, "sources and metadata must both render as empty values: %s", query)
	assert.NotContains(t, query, "'null'")
}

func TestContextMessagesOrdersBySequence(t *testing.T) {
	convs := []UserConversation{
		{MessageSequence: 3, Question: "q3", Answer: "a3"},
		{MessageSequence: 1, Question: "q1", Answer: "a1"},
		{MessageSequence: 2, Question: "q2", Answer: "a2"},
	}

	messages := ContextMessages(convs)
	require.Len(t, messages, 6)

	want := []ContextMessage{
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
		{Role: "user", Content: "q2"},
		{Role: "assistant", Content: "a2"},
		{Role: "user", Content: "q3"},
		{Role: "assistant", Content: "a3"},
	}
	assert.Equal(t, want, messages)

	// input slice must not be reordered
	assert.Equal(t, 3, convs[0].MessageSequence)
}

func TestContextMessagesSkipsEmptyTurns(t *testing.T) {
	convs := []UserConversation{
		{MessageSequence: 1, Question: "q1"},
		{MessageSequence: 2, Answer: "a2"},
	}

	messages := ContextMessages(convs)
	require.Len(t, messages, 2)
	assert.Equal(t, ContextMessage{Role: "user", Content: "q1"}, messages[0])
	assert.Equal(t, ContextMessage{Role: "assistant", Content: "a2"}, messages[1])
}

func TestContextMessagesEmpty(t *testing.T) {
	assert.Empty(t, ContextMessages(nil))
	assert.Empty(t, ContextMessages([]UserConversation{}))
}
