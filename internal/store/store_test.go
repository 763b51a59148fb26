package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ringsight/ringsight/internal/domain"
)

func testStoreConfig() domain.StoreConfig {
	cfg := domain.DefaultConfig().Store
	cfg.SweepSeconds = 0 // lazy expiry only in tests
	return cfg
}

func sampleResult() *domain.ForensicResult {
	return &domain.ForensicResult{
		SuspiciousAccounts: []domain.SuspiciousAccount{
			{AccountID: "A", SuspicionScore: 90, DetectedPatterns: []string{"cycle_length_3"}, RingID: "RING_001"},
			{AccountID: "B", SuspicionScore: 90, DetectedPatterns: []string{"cycle_length_3"}, RingID: "RING_001"},
			{AccountID: "H", SuspicionScore: 25, DetectedPatterns: []string{domain.PatternFanIn}, RingID: domain.RingNone},
		},
		FraudRings: []domain.FraudRing{
			{RingID: "RING_001", MemberAccounts: []string{"A", "B"}, PatternType: "Cycle", RiskScore: 90},
		},
		Summary: domain.Summary{TotalAccountsAnalyzed: 10, SuspiciousAccountsFlagged: 3, FraudRingsDetected: 1},
	}
}

func TestMemoryStorePutGet(t *testing.T) {
	s := NewMemoryStore(testStoreConfig())
	defer s.Close()
	ctx := context.Background()

	token, err := s.Put(ctx, &domain.ValidationSummary{RowsAccepted: 5}, sampleResult())
	if err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if len(token) != 12 {
		t.Errorf("token %q has length %d, want 12", token, len(token))
	}

	entry, err := s.Get(ctx, token)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if entry.Result.Summary.TotalAccountsAnalyzed != 10 {
		t.Errorf("entry result = %+v", entry.Result.Summary)
	}
	if entry.ValidationSummary.RowsAccepted != 5 {
		t.Errorf("validation summary = %+v", entry.ValidationSummary)
	}
}

func TestMemoryStoreUnknownToken(t *testing.T) {
	s := NewMemoryStore(testStoreConfig())
	defer s.Close()

	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	cfg := testStoreConfig()
	cfg.TTLSeconds = 1
	s := NewMemoryStore(cfg)
	defer s.Close()
	ctx := context.Background()

	token, err := s.Put(ctx, nil, sampleResult())
	if err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	// Backdate the entry instead of sleeping out the TTL.
	s.mu.Lock()
	s.entries[token].ExpiresAt = time.Now().Add(-time.Second)
	s.mu.Unlock()

	if _, err := s.Get(ctx, token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(expired) err = %v, want ErrNotFound", err)
	}
	if got := s.Len(); got != 0 {
		t.Errorf("Len() = %d after expiry, want 0", got)
	}
}

func TestMemoryStoreCapacityEvictsOldest(t *testing.T) {
	cfg := testStoreConfig()
	cfg.MaxItems = 2
	s := NewMemoryStore(cfg)
	defer s.Close()
	ctx := context.Background()

	first, _ := s.Put(ctx, nil, sampleResult())
	second, _ := s.Put(ctx, nil, sampleResult())
	third, _ := s.Put(ctx, nil, sampleResult())

	if _, err := s.Get(ctx, first); !errors.Is(err, ErrNotFound) {
		t.Errorf("oldest session survived eviction: err = %v", err)
	}
	for _, token := range []string{second, third} {
		if _, err := s.Get(ctx, token); err != nil {
			t.Errorf("Get(%s) error: %v", token, err)
		}
	}
	if got := s.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := testStoreConfig()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New(memory) error: %v", err)
	}
	s.Close()

	cfg.Type = "bogus"
	if _, err := New(cfg); err == nil {
		t.Fatal("New(bogus) did not fail")
	}
}

func TestApplyFilters(t *testing.T) {
	result := sampleResult()

	t.Run("empty filters return input unchanged", func(t *testing.T) {
		got := ApplyFilters(result, domain.ResultFilters{})
		if got != result {
			t.Error("empty filters should not copy the result")
		}
	})

	t.Run("min score", func(t *testing.T) {
		min := 50.0
		got := ApplyFilters(result, domain.ResultFilters{MinScore: &min})
		if len(got.SuspiciousAccounts) != 2 {
			t.Errorf("accounts = %+v, want A and B", got.SuspiciousAccounts)
		}
		if got.Summary.SuspiciousAccountsFlagged != 3 {
			t.Error("summary must stay unfiltered")
		}
	})

	t.Run("ring filter narrows rings too", func(t *testing.T) {
		got := ApplyFilters(result, domain.ResultFilters{RingID: "RING_001"})
		if len(got.SuspiciousAccounts) != 2 || len(got.FraudRings) != 1 {
			t.Errorf("got %d accounts, %d rings", len(got.SuspiciousAccounts), len(got.FraudRings))
		}
	})

	t.Run("conjunctive", func(t *testing.T) {
		min := 50.0
		got := ApplyFilters(result, domain.ResultFilters{MinScore: &min, AccountID: "H"})
		if len(got.SuspiciousAccounts) != 0 {
			t.Errorf("accounts = %+v, want none (H scores 25)", got.SuspiciousAccounts)
		}
	})

	t.Run("pattern", func(t *testing.T) {
		got := ApplyFilters(result, domain.ResultFilters{Pattern: domain.PatternFanIn})
		if len(got.SuspiciousAccounts) != 1 || got.SuspiciousAccounts[0].AccountID != "H" {
			t.Errorf("accounts = %+v, want only H", got.SuspiciousAccounts)
		}
	})
}
