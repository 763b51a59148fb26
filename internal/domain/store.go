package domain

import (
	"context"
)

// ResultStore holds finished analysis results under opaque session
// tokens for a bounded lifetime. It is the one long-lived shared
// mutable resource in the system and must be safe for concurrent
// writers (analysis completions) and readers (result queries).
//
// An entry past its expiry is indistinguishable from a missing one:
// both yield the store's not-found error.
type ResultStore interface {
	// Put stores the entry under a freshly generated session token and
	// returns the token.
	Put(ctx context.Context, summary *ValidationSummary, result *ForensicResult) (string, error)

	// Get retrieves an entry by token. Returns store.ErrNotFound if the
	// token is unknown or the entry has expired.
	Get(ctx context.Context, token string) (*SessionEntry, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// ResultFilters narrows a stored result at read time. Filters combine
// conjunctively; zero values mean "no constraint". The stored result is
// never mutated by filtering.
type ResultFilters struct {
	AccountID string
	RingID    string
	MinScore  *float64 // inclusive lower bound
	Pattern   string   // exact tag match against detected_patterns
}

// Empty reports whether no filter is set.
func (f ResultFilters) Empty() bool {
	return f.AccountID == "" && f.RingID == "" && f.MinScore == nil && f.Pattern == ""
}
