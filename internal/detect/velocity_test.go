package detect

import (
	"context"
	"fmt"
	"testing"

	"github.com/ringsight/ringsight/internal/domain"
	"github.com/ringsight/ringsight/internal/graph"
)

func runVelocity(t *testing.T, cfg domain.DetectConfig, txs []domain.Transaction) *Result {
	t.Helper()
	res, err := NewVelocityDetector(cfg).Run(context.Background(), graph.Build(txs), txs)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	return res
}

func TestVelocityBurstCount(t *testing.T) {
	// 15 outgoing transfers in 15 minutes.
	var txs []domain.Transaction
	for i := 0; i < 15; i++ {
		txs = append(txs, tx(fmt.Sprintf("T%d", i), "A", fmt.Sprintf("R%02d", i), 100, i))
	}

	res := runVelocity(t, testDetectConfig(), txs)

	if !hasTag(t, res, "A", domain.PatternHighVelocity) {
		t.Fatalf("A flags = %v, want high_velocity", res.Flags["A"])
	}
	if len(res.Clusters) != 0 {
		t.Errorf("got %d clusters; velocity never produces ring evidence", len(res.Clusters))
	}
}

func TestVelocitySpreadOutNotFlagged(t *testing.T) {
	// 15 transfers two hours apart span 28 hours; no 24 hour window
	// holds more than 13.
	var txs []domain.Transaction
	for i := 0; i < 15; i++ {
		txs = append(txs, tx(fmt.Sprintf("T%d", i), "A", fmt.Sprintf("R%02d", i), 100, i*120))
	}

	res := runVelocity(t, testDetectConfig(), txs)

	if hasTag(t, res, "A", domain.PatternHighVelocity) {
		t.Error("A flagged high_velocity without a dense window")
	}
}

func TestVelocityAmountThreshold(t *testing.T) {
	cfg := testDetectConfig()
	cfg.VelocityMaxAmount = 10000

	txs := []domain.Transaction{
		tx("T1", "A", "R1", 6000, 0),
		tx("T2", "A", "R2", 5000, 30),
	}

	res := runVelocity(t, cfg, txs)

	if !hasTag(t, res, "A", domain.PatternHighVelocity) {
		t.Fatalf("A flags = %v, want high_velocity on 11000 moved in 30 minutes", res.Flags["A"])
	}
}

func TestVelocityIncomingOnlyNotFlagged(t *testing.T) {
	// Receiving a burst is the fan detector's business, not velocity's.
	var txs []domain.Transaction
	for i := 0; i < 20; i++ {
		txs = append(txs, tx(fmt.Sprintf("T%d", i), fmt.Sprintf("S%02d", i), "A", 100, i))
	}

	res := runVelocity(t, testDetectConfig(), txs)

	if hasTag(t, res, "A", domain.PatternHighVelocity) {
		t.Error("A flagged high_velocity on incoming transfers only")
	}
}
