package graph

import (
	"testing"
	"time"

	"github.com/ringsight/ringsight/internal/domain"
)

func tx(id, from, to string, amount float64) domain.Transaction {
	return domain.Transaction{
		ID:         id,
		SenderID:   from,
		ReceiverID: to,
		Amount:     amount,
		Timestamp:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestBuildAggregatesParallelEdges(t *testing.T) {
	g := Build([]domain.Transaction{
		tx("T1", "A", "B", 100),
		tx("T2", "A", "B", 50),
		tx("T3", "B", "C", 25),
	})

	if got := g.NodeCount(); got != 3 {
		t.Fatalf("NodeCount() = %d, want 3", got)
	}
	if got := g.EdgeCount(); got != 2 {
		t.Fatalf("EdgeCount() = %d, want 2", got)
	}

	e := g.Edge("A", "B")
	if e == nil {
		t.Fatal("Edge(A,B) = nil")
	}
	if e.Count != 2 || e.Weight != 150 {
		t.Errorf("Edge(A,B) count=%d weight=%.0f, want count=2 weight=150", e.Count, e.Weight)
	}
	if g.Edge("B", "A") != nil {
		t.Error("Edge(B,A) exists; edges must be directed")
	}
}

func TestBuildNodeAggregates(t *testing.T) {
	g := Build([]domain.Transaction{
		tx("T1", "A", "B", 100),
		tx("T2", "A", "B", 50),
		tx("T3", "C", "B", 10),
		tx("T4", "B", "D", 30),
	})

	b := g.Node("B")
	if b == nil {
		t.Fatal("Node(B) = nil")
	}
	if b.InDegree != 2 {
		t.Errorf("B.InDegree = %d, want 2 (distinct senders)", b.InDegree)
	}
	if b.OutDegree != 1 {
		t.Errorf("B.OutDegree = %d, want 1", b.OutDegree)
	}
	if b.TotalTransactions != 4 {
		t.Errorf("B.TotalTransactions = %d, want 4", b.TotalTransactions)
	}
	if b.TotalAmount != 190 {
		t.Errorf("B.TotalAmount = %.0f, want 190", b.TotalAmount)
	}
}

func TestDeterministicOrdering(t *testing.T) {
	g := Build([]domain.Transaction{
		tx("T1", "C", "A", 1),
		tx("T2", "B", "A", 1),
		tx("T3", "D", "A", 1),
	})

	want := []string{"A", "B", "C", "D"}
	got := g.Nodes()
	if len(got) != len(want) {
		t.Fatalf("Nodes() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Nodes() = %v, want %v", got, want)
		}
	}

	preds := g.Predecessors("A")
	wantPreds := []string{"B", "C", "D"}
	for i := range wantPreds {
		if preds[i] != wantPreds[i] {
			t.Fatalf("Predecessors(A) = %v, want %v", preds, wantPreds)
		}
	}
}

func TestSnapshot(t *testing.T) {
	g := Build([]domain.Transaction{
		tx("T1", "A", "B", 100),
		tx("T2", "A", "B", 50),
	})

	snap := g.Snapshot()
	if len(snap.Nodes) != 2 || len(snap.Edges) != 1 {
		t.Fatalf("snapshot has %d nodes, %d edges; want 2, 1", len(snap.Nodes), len(snap.Edges))
	}
	e := snap.Edges[0]
	if e.Source != "A" || e.Target != "B" || e.Count != 2 || e.Weight != 150 {
		t.Errorf("snapshot edge = %+v, want A->B count=2 weight=150", e)
	}
}

func TestEmptyGraph(t *testing.T) {
	g := Build(nil)
	if g.NodeCount() != 0 || g.EdgeCount() != 0 {
		t.Errorf("empty graph has %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}
	if len(g.Nodes()) != 0 {
		t.Errorf("Nodes() = %v, want empty", g.Nodes())
	}
}
