package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

// sqlState also reads pgdriver.Error via Field('C'), but that type
// keeps its fields unexported and only a live wire session can
// produce one, so the mapping is exercised through the pq shape.
func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "unique violation on (url, chunk_number)",
			err:  &pq.Error{Code: "23505", Constraint: "site_pages_url_chunk_number_key"},
			want: ErrDuplicateChunk,
		},
		{
			name: "marketplace check violation",
			err:  &pq.Error{Code: "23514", Constraint: "site_pages_marketplace_check"},
			want: ErrInvalidMarketplace,
		},
		{
			name: "foreign key violation on conversation_images",
			err:  &pq.Error{Code: "23503", Constraint: "conversation_images_conversation_id_fkey"},
			want: ErrMissingConversation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)
			assert.True(t, errors.Is(got, tt.want), "mapError(%v) = %v, want %v", tt.err, got, tt.want)
		})
	}
}

func TestMapErrorPassThrough(t *testing.T) {
	assert.NoError(t, mapError(nil))

	// errors without a SQLSTATE come back untouched
	plain := fmt.Errorf("connection refused")
	assert.Equal(t, plain, mapError(plain))

	// other SQLSTATEs pass through verbatim, e.g. a pgvector
	// dimensionality complaint
	dim := &pq.Error{Code: "22000", Message: "expected 1536 dimensions, not 768"}
	assert.Equal(t, error(dim), mapError(dim))
}

func TestMapErrorWrapped(t *testing.T) {
	// mapping must see through fmt.Errorf wrapping
	wrapped := fmt.Errorf("insert site_pages: %w", &pq.Error{Code: "23505"})
	assert.True(t, errors.Is(mapError(wrapped), ErrDuplicateChunk))
}
