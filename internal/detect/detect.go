// Package detect implements the four structural pattern detectors.
// Each detector is independent: it reads the immutable account graph
// (and the validated transactions where it needs timestamps) and
// reports pattern tags per account plus the evidence clusters the ring
// assembler merges later.
package detect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ringsight/ringsight/internal/domain"
	"github.com/ringsight/ringsight/internal/graph"
)

// Result is one detector's findings.
type Result struct {
	// Flags maps account ID to the pattern tags this detector assigned.
	Flags map[string][]string

	// Clusters are groups of accounts tied together by one piece of
	// structural evidence (one cycle, one fan hub with its
	// counterparties, one shell chain). The ring assembler unions
	// flagged accounts that co-occur in a cluster.
	Clusters [][]string

	// Partial is set when the detector stopped early on its work
	// budget. Findings so far are still valid.
	Partial bool
}

func newResult() *Result {
	return &Result{Flags: make(map[string][]string)}
}

func (r *Result) flag(account, tag string) {
	for _, t := range r.Flags[account] {
		if t == tag {
			return
		}
	}
	r.Flags[account] = append(r.Flags[account], tag)
}

// Detector finds one category of suspicious structure.
type Detector interface {
	Name() string
	Run(ctx context.Context, g *graph.Graph, txs []domain.Transaction) (*Result, error)
}

// RunAll executes the detectors concurrently over the shared immutable
// graph and joins on all of them. A detector that returns an error or
// panics degrades to an empty result for its category; the run as a
// whole still completes.
func RunAll(ctx context.Context, log *slog.Logger, detectors []Detector, g *graph.Graph, txs []domain.Transaction) map[string]*Result {
	results := make([]*Result, len(detectors))

	var wg sync.WaitGroup
	for i, d := range detectors {
		wg.Add(1)
		go func(i int, d Detector) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("detector panicked",
						"detector", d.Name(),
						"panic", fmt.Sprintf("%v", rec))
					results[i] = newResult()
				}
			}()

			res, err := d.Run(ctx, g, txs)
			if err != nil {
				log.Error("detector failed",
					"detector", d.Name(),
					"error", err)
				results[i] = newResult()
				return
			}
			results[i] = res
		}(i, d)
	}
	wg.Wait()

	out := make(map[string]*Result, len(detectors))
	for i, d := range detectors {
		out[d.Name()] = results[i]
	}
	return out
}
