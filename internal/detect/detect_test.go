package detect

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ringsight/ringsight/internal/domain"
	"github.com/ringsight/ringsight/internal/graph"
)

var testBase = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// tx builds a transaction offset minutes after the test epoch.
func tx(id, from, to string, amount float64, offsetMinutes int) domain.Transaction {
	return domain.Transaction{
		ID:         id,
		SenderID:   from,
		ReceiverID: to,
		Amount:     amount,
		Timestamp:  testBase.Add(time.Duration(offsetMinutes) * time.Minute),
	}
}

func testDetectConfig() domain.DetectConfig {
	return domain.DefaultConfig().Detect
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func hasTag(t *testing.T, res *Result, account, tag string) bool {
	t.Helper()
	for _, got := range res.Flags[account] {
		if got == tag {
			return true
		}
	}
	return false
}

type panicky struct{}

func (panicky) Name() string { return "panicky" }
func (panicky) Run(context.Context, *graph.Graph, []domain.Transaction) (*Result, error) {
	panic("boom")
}

type failing struct{}

func (failing) Name() string { return "failing" }
func (failing) Run(context.Context, *graph.Graph, []domain.Transaction) (*Result, error) {
	return nil, errors.New("backend unavailable")
}

func TestRunAllDegradesFailedDetectors(t *testing.T) {
	txs := []domain.Transaction{
		tx("T1", "A", "B", 100, 0),
		tx("T2", "B", "C", 100, 1),
		tx("T3", "C", "A", 100, 2),
	}
	g := graph.Build(txs)

	detectors := []Detector{
		panicky{},
		failing{},
		NewCycleDetector(testDetectConfig()),
	}
	results := RunAll(context.Background(), discard(), detectors, g, txs)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for _, name := range []string{"panicky", "failing"} {
		res := results[name]
		if res == nil {
			t.Fatalf("%s result is nil; degraded detectors must yield an empty result", name)
		}
		if len(res.Flags) != 0 {
			t.Errorf("%s flags = %v, want none", name, res.Flags)
		}
	}
	if !hasTag(t, results["cycle"], "A", "cycle_length_3") {
		t.Error("healthy cycle detector lost its findings to a sibling failure")
	}
}
