package db

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	// ErrDuplicateChunk means a (url, chunk_number) pair already exists.
	ErrDuplicateChunk = errors.New("duplicate chunk for url")

	// ErrInvalidMarketplace means a marketplace value outside the
	// allowed set was supplied or rejected by the check constraint.
	ErrInvalidMarketplace = errors.New("invalid marketplace")

	// ErrMissingConversation means the referenced conversation does
	// not exist.
	ErrMissingConversation = errors.New("conversation not found")
)

// sqlState extracts the SQLSTATE code from either wired driver.
func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C')
	}
	return ""
}

// mapError translates constraint violations into sentinel errors the
// caller can test with errors.Is. Anything else passes through
// untouched, including pgvector dimensionality errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch sqlState(err) {
	case "23505": // unique_violation
		return fmt.Errorf("%w: %v", ErrDuplicateChunk, err)
	case "23514": // check_violation
		return fmt.Errorf("%w: %v", ErrInvalidMarketplace, err)
	case "23503": // foreign_key_violation
		return fmt.Errorf("%w: %v", ErrMissingConversation, err)
	}
	return err
}
