package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
)

const defaultMatchCount = 10

// MatchRequest carries the parameters of a similarity search. Only
// Embedding is required; MatchCount defaults to 10, Marketplace and
// Filter narrow the candidate set when set.
type MatchRequest struct {
	Embedding   []float32
	MatchCount  int
	Marketplace Marketplace
	// Filter restricts matches to rows whose metadata contains these
	// key/value pairs (jsonb containment).
	Filter map[string]any
}

// MatchResult is one row returned by match_site_pages. Similarity is
// 1 minus the cosine distance to the query embedding.
type MatchResult struct {
	ID          int64          `bun:"id"`
	URL         string         `bun:"url"`
	ChunkNumber int            `bun:"chunk_number"`
	Title       string         `bun:"title"`
	Summary     string         `bun:"summary"`
	Content     string         `bun:"content"`
	Metadata    map[string]any `bun:"metadata"`
	Marketplace Marketplace    `bun:"marketplace"`
	Similarity  float64        `bun:"similarity"`
}

// PageRef identifies a documentation page, independent of its chunks.
type PageRef struct {
	URL         string      `bun:"url"`
	Title       string      `bun:"title"`
	Marketplace Marketplace `bun:"marketplace"`
}

// StoreSitePages inserts content chunks in one batch. Empty
// marketplaces default to amazon, anything else must be valid before
// it reaches the check constraint.
func StoreSitePages(ctx context.Context, db *bun.DB, pages []SitePage) error {
	if len(pages) == 0 {
		return nil
	}
	if err := normalizeSitePages(pages); err != nil {
		return err
	}
	_, err := db.NewInsert().Model(&pages).Exec(ctx)
	return mapError(err)
}

// normalizeSitePages applies the schema's defaults before the rows
// are serialized. A nil metadata map would render as the jsonb scalar
// 'null', which the @> filter in match_site_pages never contains, so
// it must become an empty object here.
func normalizeSitePages(pages []SitePage) error {
	for i := range pages {
		if pages[i].Marketplace == "" {
			pages[i].Marketplace = MarketplaceAmazon
		}
		if !pages[i].Marketplace.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidMarketplace, pages[i].Marketplace)
		}
		if pages[i].Metadata == nil {
			pages[i].Metadata = map[string]any{}
		}
	}
	return nil
}

// MatchSitePages runs the match_site_pages function and returns the
// top matches ordered by non-increasing similarity. Ranking lives
// entirely in the database; dimensionality and filter errors surface
// as the engine reports them.
func MatchSitePages(ctx context.Context, db *bun.DB, req MatchRequest) ([]MatchResult, error) {
	vec, count, marketplace, filter, err := matchArgs(req)
	if err != nil {
		return nil, err
	}

	var results []MatchResult
	err = db.NewRaw(
		"SELECT * FROM match_site_pages(?::vector, ?, ?, ?::jsonb)",
		vec, count, marketplace, filter,
	).Scan(ctx, &results)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// matchArgs validates a request and shapes it into the function's
// argument list.
func matchArgs(req MatchRequest) (pgvector.Vector, int, sql.NullString, string, error) {
	var vec pgvector.Vector

	if len(req.Embedding) == 0 {
		return vec, 0, sql.NullString{}, "", fmt.Errorf("query embedding is required")
	}

	count := req.MatchCount
	if count == 0 {
		count = defaultMatchCount
	}
	if count < 0 {
		return vec, 0, sql.NullString{}, "", fmt.Errorf("match count must be positive, got %d", req.MatchCount)
	}

	var marketplace sql.NullString
	if req.Marketplace != "" {
		if !req.Marketplace.Valid() {
			return vec, 0, sql.NullString{}, "", fmt.Errorf("%w: %q", ErrInvalidMarketplace, req.Marketplace)
		}
		marketplace = sql.NullString{String: string(req.Marketplace), Valid: true}
	}

	filter := "{}"
	if len(req.Filter) > 0 {
		data, err := json.Marshal(req.Filter)
		if err != nil {
			return vec, 0, sql.NullString{}, "", fmt.Errorf("encoding metadata filter: %w", err)
		}
		filter = string(data)
	}

	return pgvector.NewVector(req.Embedding), count, marketplace, filter, nil
}

// ListDocumentationPages returns the distinct pages currently stored,
// optionally restricted to one marketplace.
func ListDocumentationPages(ctx context.Context, db *bun.DB, marketplace Marketplace) ([]PageRef, error) {
	if marketplace != "" && !marketplace.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMarketplace, marketplace)
	}

	q := db.NewSelect().
		Model((*SitePage)(nil)).
		ColumnExpr("DISTINCT sp.url, sp.title, sp.marketplace").
		OrderExpr("sp.url")
	if marketplace != "" {
		q = q.Where("sp.marketplace = ?", marketplace)
	}

	var refs []PageRef
	if err := q.Scan(ctx, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

// GetPageContent returns every chunk of a page in reading order.
func GetPageContent(ctx context.Context, db *bun.DB, url string) ([]SitePage, error) {
	var pages []SitePage
	err := db.NewSelect().
		Model(&pages).
		Where("sp.url = ?", url).
		OrderExpr("sp.chunk_number").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// CountPageChunks reports how many chunks a page was split into, so
// callers can refuse to assemble oversized pages.
func CountPageChunks(ctx context.Context, db *bun.DB, url string) (int, error) {
	return db.NewSelect().
		Model((*SitePage)(nil)).
		Where("sp.url = ?", url).
		Count(ctx)
}

// DropSitePages clears all stored chunks ahead of a re-ingestion run.
func DropSitePages(ctx context.Context, db *bun.DB) error {
	_, err := db.NewTruncateTable().Model((*SitePage)(nil)).Exec(ctx)
	return err
}
