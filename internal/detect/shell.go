package detect

import (
	"context"
	"sort"
	"strings"

	"github.com/ringsight/ringsight/internal/domain"
	"github.com/ringsight/ringsight/internal/graph"
)

// ShellDetector finds layering chains: funds relayed through a run of
// low-activity pass-through accounts. A chain starts at an origin, an
// account with no low-activity predecessor, crosses only low-activity
// intermediates, and ends at the first active account or at a
// dead-end. Only the intermediates are tagged; origin and terminal are
// evidence, not suspects.
type ShellDetector struct {
	cfg domain.DetectConfig
}

func NewShellDetector(cfg domain.DetectConfig) *ShellDetector {
	return &ShellDetector{cfg: cfg}
}

func (d *ShellDetector) Name() string { return "shell" }

func (d *ShellDetector) Run(ctx context.Context, g *graph.Graph, _ []domain.Transaction) (*Result, error) {
	res := newResult()
	seen := make(map[string]bool)

	for _, origin := range g.Nodes() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !d.isOrigin(g, origin) {
			continue
		}
		onPath := map[string]bool{origin: true}
		d.extend(g, res, seen, []string{origin}, onPath)
	}

	return res, nil
}

func (d *ShellDetector) isShell(g *graph.Graph, id string) bool {
	n := g.Node(id)
	return n != nil && n.TotalTransactions <= d.cfg.ShellMaxTotalTxns
}

// isOrigin reports whether id can head a chain: none of its senders is
// itself a pass-through, so the chain is maximal on the left.
func (d *ShellDetector) isOrigin(g *graph.Graph, id string) bool {
	for _, p := range g.Predecessors(id) {
		if d.isShell(g, p) {
			return false
		}
	}
	return true
}

// extend grows the chain one hop at a time through low-activity
// accounts. The last path element is always the current frontier.
func (d *ShellDetector) extend(g *graph.Graph, res *Result, seen map[string]bool, path []string, onPath map[string]bool) {
	last := path[len(path)-1]
	hops := len(path) - 1
	if hops >= d.cfg.ShellMaxDepth {
		return
	}

	succs := g.Successors(last)
	deadEnd := true
	for _, next := range succs {
		if onPath[next] {
			continue
		}
		deadEnd = false
		if d.isShell(g, next) {
			onPath[next] = true
			d.extend(g, res, seen, append(path, next), onPath)
			delete(onPath, next)
			continue
		}
		// Active account: the chain terminates here.
		d.report(res, seen, append(path, next))
	}

	if deadEnd && len(path) > 1 {
		d.report(res, seen, path)
	}
}

// report records a completed chain when it is long enough. The chain's
// interior accounts are the flagged pass-throughs.
func (d *ShellDetector) report(res *Result, seen map[string]bool, chain []string) {
	hops := len(chain) - 1
	if hops < d.cfg.ShellMinHops {
		return
	}
	key := strings.Join(chain, "\x00")
	if seen[key] {
		return
	}
	seen[key] = true

	for _, id := range chain[1 : len(chain)-1] {
		res.flag(id, domain.PatternShellChain)
	}
	members := append([]string(nil), chain...)
	sort.Strings(members)
	res.Clusters = append(res.Clusters, members)
}
