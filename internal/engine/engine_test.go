package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/ringsight/ringsight/internal/domain"
)

var base = time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

func tx(id, from, to string, amount float64, offsetMinutes int) domain.Transaction {
	return domain.Transaction{
		ID:         id,
		SenderID:   from,
		ReceiverID: to,
		Amount:     amount,
		Timestamp:  base.Add(time.Duration(offsetMinutes) * time.Minute),
	}
}

func newTestEngine(t *testing.T, cfg *domain.Config) *Engine {
	t.Helper()
	if cfg == nil {
		cfg = domain.DefaultConfig()
	}
	e, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return e
}

func analyze(t *testing.T, e *Engine, txs []domain.Transaction) *domain.ForensicResult {
	t.Helper()
	res, err := e.Analyze(context.Background(), txs, Options{})
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	return res
}

func account(res *domain.ForensicResult, id string) *domain.SuspiciousAccount {
	for i := range res.SuspiciousAccounts {
		if res.SuspiciousAccounts[i].AccountID == id {
			return &res.SuspiciousAccounts[i]
		}
	}
	return nil
}

func TestAnalyzeCycleRing(t *testing.T) {
	res := analyze(t, newTestEngine(t, nil), []domain.Transaction{
		tx("T1", "A", "B", 5000, 0),
		tx("T2", "B", "C", 4900, 60),
		tx("T3", "C", "A", 4800, 120),
	})

	if len(res.SuspiciousAccounts) != 3 {
		t.Fatalf("flagged %d accounts, want 3", len(res.SuspiciousAccounts))
	}
	for _, id := range []string{"A", "B", "C"} {
		acct := account(res, id)
		if acct == nil {
			t.Fatalf("%s not flagged", id)
		}
		if acct.SuspicionScore != 40 {
			t.Errorf("%s score = %.1f, want 40", id, acct.SuspicionScore)
		}
		if acct.RingID != "RING_001" {
			t.Errorf("%s ring = %q, want RING_001", id, acct.RingID)
		}
	}
	if len(res.FraudRings) != 1 {
		t.Fatalf("got %d rings, want 1", len(res.FraudRings))
	}
	r := res.FraudRings[0]
	if r.PatternType != "Cycle" || r.RiskScore != 40 {
		t.Errorf("ring = %+v, want Cycle at risk 40", r)
	}
	if res.Summary.TotalAccountsAnalyzed != 3 || res.Summary.FraudRingsDetected != 1 {
		t.Errorf("summary = %+v", res.Summary)
	}
}

func TestAnalyzeFanInHubOnly(t *testing.T) {
	var txs []domain.Transaction
	for i := 0; i < 10; i++ {
		txs = append(txs, tx(fmt.Sprintf("T%d", i), fmt.Sprintf("S%02d", i), "HUB", 950, i*60))
	}

	res := analyze(t, newTestEngine(t, nil), txs)

	if len(res.SuspiciousAccounts) != 1 {
		t.Fatalf("flagged %d accounts, want only the hub: %+v", len(res.SuspiciousAccounts), res.SuspiciousAccounts)
	}
	hub := res.SuspiciousAccounts[0]
	if hub.AccountID != "HUB" || hub.SuspicionScore != 25 {
		t.Errorf("hub = %+v, want HUB at 25", hub)
	}
	// Counterparties were evidence, not suspects; the hub stands alone.
	if hub.RingID != domain.RingNone {
		t.Errorf("hub ring = %q, want NONE", hub.RingID)
	}
	if len(res.FraudRings) != 0 {
		t.Errorf("got %d rings, want none", len(res.FraudRings))
	}
}

func TestAnalyzeShellChain(t *testing.T) {
	txs := []domain.Transaction{
		tx("T1", "A", "X", 9000, 0),
		tx("T2", "X", "Y", 8900, 60),
		tx("T3", "Y", "Z", 8800, 120),
		tx("T4", "Z", "B", 8700, 180),
	}
	// B is an active endpoint, not a pass-through.
	for i := 0; i < 4; i++ {
		txs = append(txs, tx(fmt.Sprintf("B%d", i), "B", fmt.Sprintf("M%d", i), 10, 300+i))
	}

	res := analyze(t, newTestEngine(t, nil), txs)

	if len(res.SuspiciousAccounts) != 3 {
		t.Fatalf("flagged %d accounts, want X, Y, Z: %+v", len(res.SuspiciousAccounts), res.SuspiciousAccounts)
	}
	for _, id := range []string{"X", "Y", "Z"} {
		acct := account(res, id)
		if acct == nil {
			t.Fatalf("%s not flagged", id)
		}
		if acct.SuspicionScore != 30 {
			t.Errorf("%s score = %.1f, want 30", id, acct.SuspicionScore)
		}
		if acct.RingID != "RING_001" {
			t.Errorf("%s ring = %q, want RING_001", id, acct.RingID)
		}
	}
	if len(res.FraudRings) != 1 || res.FraudRings[0].PatternType != "Shell Chain" {
		t.Fatalf("rings = %+v, want one Shell Chain ring", res.FraudRings)
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	res := analyze(t, newTestEngine(t, nil), nil)

	if len(res.SuspiciousAccounts) != 0 || len(res.FraudRings) != 0 {
		t.Errorf("result = %+v, want empty", res)
	}
	if res.Summary.TotalAccountsAnalyzed != 0 {
		t.Errorf("summary = %+v, want zeros", res.Summary)
	}
	if res.Partial {
		t.Error("empty input marked partial")
	}
}

func TestAnalyzeOverlappingPatterns(t *testing.T) {
	// A cycle member that also bursts outward: distinct pattern kinds
	// compound and earn the overlap bonus.
	txs := []domain.Transaction{
		tx("T1", "A", "B", 5000, 0),
		tx("T2", "B", "C", 4900, 60),
		tx("T3", "C", "A", 4800, 120),
	}
	// Burst toward a single receiver so the fan detector stays quiet.
	for i := 0; i < 15; i++ {
		txs = append(txs, tx(fmt.Sprintf("V%d", i), "A", "R", 100, 200+i))
	}

	res := analyze(t, newTestEngine(t, nil), txs)

	a := account(res, "A")
	if a == nil {
		t.Fatal("A not flagged")
	}
	// cycle 40 + velocity 20 + overlap 10
	if a.SuspicionScore != 70 {
		t.Errorf("A score = %.1f, want 70", a.SuspicionScore)
	}
	want := []string{"cycle_length_3", "high_velocity"}
	if !reflect.DeepEqual(a.DetectedPatterns, want) {
		t.Errorf("A patterns = %v, want %v", a.DetectedPatterns, want)
	}
	// Velocity never links accounts; the ring is the cycle alone.
	if len(res.FraudRings) != 1 {
		t.Fatalf("got %d rings, want 1", len(res.FraudRings))
	}
	if got := res.FraudRings[0].PatternType; got != "Cycle + Velocity" {
		t.Errorf("ring pattern = %q, want Cycle + Velocity", got)
	}
	if len(res.FraudRings[0].MemberAccounts) != 3 {
		t.Errorf("ring members = %v, want the 3 cycle accounts", res.FraudRings[0].MemberAccounts)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	var txs []domain.Transaction
	txs = append(txs,
		tx("T1", "A", "B", 5000, 0),
		tx("T2", "B", "C", 4900, 60),
		tx("T3", "C", "A", 4800, 120),
		tx("T4", "D", "E", 2000, 0),
		tx("T5", "E", "F", 1900, 30),
		tx("T6", "F", "D", 1800, 60),
	)
	for i := 0; i < 12; i++ {
		txs = append(txs, tx(fmt.Sprintf("F%d", i), fmt.Sprintf("S%02d", i), "HUB", 900, i*30))
	}

	e := newTestEngine(t, nil)
	first := analyze(t, e, txs)
	for i := 0; i < 5; i++ {
		again := analyze(t, e, txs)
		if !reflect.DeepEqual(first.SuspiciousAccounts, again.SuspiciousAccounts) {
			t.Fatalf("run %d accounts diverged:\n%+v\nvs\n%+v", i, first.SuspiciousAccounts, again.SuspiciousAccounts)
		}
		if !reflect.DeepEqual(first.FraudRings, again.FraudRings) {
			t.Fatalf("run %d rings diverged:\n%+v\nvs\n%+v", i, first.FraudRings, again.FraudRings)
		}
	}
}

func TestAnalyzeOrderingGuarantees(t *testing.T) {
	// Shell chain (score 30) plus a separate cycle (score 40): cycle
	// members sort first, ties broken by account ID.
	txs := []domain.Transaction{
		tx("T1", "P", "Q", 5000, 0),
		tx("T2", "Q", "R", 4900, 60),
		tx("T3", "R", "P", 4800, 120),
		tx("T4", "A", "X", 9000, 0),
		tx("T5", "X", "Y", 8900, 60),
		tx("T6", "Y", "Z", 8800, 120),
		tx("T7", "Z", "B", 8700, 180),
	}
	for i := 0; i < 4; i++ {
		txs = append(txs, tx(fmt.Sprintf("B%d", i), "B", fmt.Sprintf("M%d", i), 10, 300+i))
	}

	res := analyze(t, newTestEngine(t, nil), txs)

	var ids []string
	for _, a := range res.SuspiciousAccounts {
		ids = append(ids, a.AccountID)
	}
	want := []string{"P", "Q", "R", "X", "Y", "Z"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("account order = %v, want %v", ids, want)
	}

	// Cycle ring and shell ring are both size 3; smallest member
	// breaks the tie, so the P/Q/R ring is named first.
	if len(res.FraudRings) != 2 {
		t.Fatalf("got %d rings, want 2", len(res.FraudRings))
	}
	if res.FraudRings[0].MemberAccounts[0] != "P" || res.FraudRings[1].MemberAccounts[0] != "X" {
		t.Errorf("ring order = %+v", res.FraudRings)
	}
}

func TestAnalyzePartialPropagates(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Detect.CycleBudget = 1

	txs := []domain.Transaction{
		tx("T1", "A", "B", 5000, 0),
		tx("T2", "B", "C", 4900, 60),
		tx("T3", "C", "A", 4800, 120),
		tx("T4", "D", "E", 2000, 0),
		tx("T5", "E", "F", 1900, 30),
		tx("T6", "F", "D", 1800, 60),
	}

	res := analyze(t, newTestEngine(t, cfg), txs)
	if !res.Partial {
		t.Error("exhausted cycle budget must mark the result partial")
	}
}

func TestAnalyzeCustomRule(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Rules = []domain.RuleConfig{
		{ID: "whale", Name: "large mover", Expression: "total_amount > 100000.0", Weight: 50, Enabled: true},
	}

	res := analyze(t, newTestEngine(t, cfg), []domain.Transaction{
		tx("T1", "A", "B", 150000, 0),
		tx("T2", "C", "D", 10, 60),
	})

	a := account(res, "A")
	if a == nil {
		t.Fatal("A not flagged by the custom rule")
	}
	if a.SuspicionScore != 50 {
		t.Errorf("A score = %.1f, want 50", a.SuspicionScore)
	}
	if len(a.DetectedPatterns) != 1 || a.DetectedPatterns[0] != "rule_whale" {
		t.Errorf("A patterns = %v, want [rule_whale]", a.DetectedPatterns)
	}
	if account(res, "C") != nil {
		t.Error("C flagged; it moved almost nothing")
	}
}

func TestAnalyzeGraphSnapshotOption(t *testing.T) {
	e := newTestEngine(t, nil)
	txs := []domain.Transaction{tx("T1", "A", "B", 100, 0)}

	res, err := e.Analyze(context.Background(), txs, Options{IncludeGraph: true})
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if res.Graph == nil || len(res.Graph.Nodes) != 2 {
		t.Fatalf("graph snapshot = %+v, want 2 nodes", res.Graph)
	}

	res = analyze(t, e, txs)
	if res.Graph != nil {
		t.Error("snapshot attached without being requested")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Detect.MinCycleLength = 7 // above max

	if _, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatal("New() accepted min cycle length above max")
	}
}
