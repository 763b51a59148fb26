// Package store keeps analysis results for later retrieval by session
// token. Sessions expire on a TTL and the memory backend additionally
// caps how many live at once.
package store

import (
	"errors"
	"fmt"

	"github.com/ringsight/ringsight/internal/domain"
)

// ErrNotFound means the token is unknown or the session expired. The
// two cases are deliberately indistinguishable to callers.
var ErrNotFound = errors.New("session not found")

// New creates a result store based on the configured type.
func New(cfg domain.StoreConfig) (domain.ResultStore, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryStore(cfg), nil
	case "redis":
		return NewRedisStore(cfg)
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}

// ApplyFilters narrows a stored result for presentation. Account
// filters are conjunctive; the summary always reflects the full run.
func ApplyFilters(result *domain.ForensicResult, f domain.ResultFilters) *domain.ForensicResult {
	if f.Empty() {
		return result
	}

	out := &domain.ForensicResult{
		SuspiciousAccounts: make([]domain.SuspiciousAccount, 0, len(result.SuspiciousAccounts)),
		FraudRings:         result.FraudRings,
		Summary:            result.Summary,
		Partial:            result.Partial,
		Graph:              result.Graph,
	}

	for _, acct := range result.SuspiciousAccounts {
		if f.AccountID != "" && acct.AccountID != f.AccountID {
			continue
		}
		if f.RingID != "" && acct.RingID != f.RingID {
			continue
		}
		if f.MinScore != nil && acct.SuspicionScore < *f.MinScore {
			continue
		}
		if f.Pattern != "" && !hasPattern(acct.DetectedPatterns, f.Pattern) {
			continue
		}
		out.SuspiciousAccounts = append(out.SuspiciousAccounts, acct)
	}

	if f.RingID != "" {
		rings := make([]domain.FraudRing, 0, 1)
		for _, r := range result.FraudRings {
			if r.RingID == f.RingID {
				rings = append(rings, r)
			}
		}
		out.FraudRings = rings
	}

	return out
}

func hasPattern(tags []string, pattern string) bool {
	for _, tag := range tags {
		if tag == pattern {
			return true
		}
	}
	return false
}
