// Package engine orchestrates one analysis run: graph construction,
// concurrent pattern detection, custom rules, scoring, and ring
// assembly. An Engine is built once from a validated configuration
// and is safe for concurrent use; each run works on its own data.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ringsight/ringsight/internal/detect"
	"github.com/ringsight/ringsight/internal/domain"
	"github.com/ringsight/ringsight/internal/graph"
	"github.com/ringsight/ringsight/internal/ring"
	"github.com/ringsight/ringsight/internal/rules"
	"github.com/ringsight/ringsight/internal/score"
)

// Engine runs forensic analyses.
type Engine struct {
	cfg       *domain.Config
	log       *slog.Logger
	detectors []detect.Detector
	rules     *rules.Engine
	scorer    *score.Scorer
	suppress  *score.Suppressor
	assembler *ring.Assembler
}

// Options toggles per-run extras.
type Options struct {
	// IncludeGraph attaches the account graph snapshot to the result.
	IncludeGraph bool
}

// New validates the configuration and builds the engine. A bad
// configuration or an uncompilable rule fails here, before any
// analysis is accepted.
func New(cfg *domain.Config, log *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ruleEngine, err := rules.NewEngine(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}

	return &Engine{
		cfg: cfg,
		log: log,
		detectors: []detect.Detector{
			detect.NewCycleDetector(cfg.Detect),
			detect.NewFanDetector(cfg.Detect),
			detect.NewShellDetector(cfg.Detect),
			detect.NewVelocityDetector(cfg.Detect),
		},
		rules:     ruleEngine,
		scorer:    score.NewScorer(cfg.Scoring, cfg.Rules),
		suppress:  score.NewSuppressor(cfg.Scoring),
		assembler: ring.NewAssembler(cfg.Rings),
	}, nil
}

// Analyze runs the full pipeline over validated transactions. An empty
// input yields an empty result, not an error.
func (e *Engine) Analyze(ctx context.Context, txs []domain.Transaction, opts Options) (*domain.ForensicResult, error) {
	start := time.Now()

	if len(txs) == 0 {
		return &domain.ForensicResult{
			SuspiciousAccounts: []domain.SuspiciousAccount{},
			FraudRings:         []domain.FraudRing{},
		}, nil
	}

	g := graph.Build(txs)
	e.log.Info("graph built",
		"accounts", g.NodeCount(),
		"edges", g.EdgeCount(),
		"transactions", len(txs))

	results := detect.RunAll(ctx, e.log, e.detectors, g, txs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Merge detector flags and evidence clusters.
	flags := make(map[string][]string)
	var clusters [][]string
	partial := false
	for name, res := range results {
		for id, tags := range res.Flags {
			flags[id] = append(flags[id], tags...)
		}
		clusters = append(clusters, res.Clusters...)
		if res.Partial {
			partial = true
			e.log.Warn("detector returned partial findings", "detector", name)
		}
	}

	ruleTags, err := e.rules.Evaluate(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("evaluate rules: %w", err)
	}
	for id, tags := range ruleTags {
		flags[id] = append(flags[id], tags...)
	}

	if suppressed := e.suppress.Apply(flags, g, txs); len(suppressed) > 0 {
		e.log.Info("fan patterns suppressed", "accounts", suppressed)
	}

	flagged := e.scoreAccounts(flags)
	rings, flagged := e.assembler.Assemble(flagged, clusters)

	totalAmount := 0.0
	for _, tx := range txs {
		totalAmount += tx.Amount
	}

	result := &domain.ForensicResult{
		SuspiciousAccounts: flagged,
		FraudRings:         rings,
		Summary: domain.Summary{
			TotalAccountsAnalyzed:     g.NodeCount(),
			SuspiciousAccountsFlagged: len(flagged),
			FraudRingsDetected:        len(rings),
			ProcessingTimeSeconds:     time.Since(start).Seconds(),
			TotalTransactions:         len(txs),
			TotalAmount:               totalAmount,
		},
		Partial: partial,
	}
	if opts.IncludeGraph {
		result.Graph = g.Snapshot()
	}

	e.log.Info("analysis complete",
		"accounts", g.NodeCount(),
		"flagged", len(flagged),
		"rings", len(rings),
		"partial", partial,
		"duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

// scoreAccounts converts merged tags into the ordered flagged-account
// list: score descending, account ID ascending.
func (e *Engine) scoreAccounts(flags map[string][]string) []domain.SuspiciousAccount {
	flagged := make([]domain.SuspiciousAccount, 0)
	for id, tags := range flags {
		if len(tags) == 0 {
			continue
		}
		s := e.scorer.Score(tags)
		if !e.scorer.Flagged(s) {
			continue
		}
		flagged = append(flagged, domain.SuspiciousAccount{
			AccountID:        id,
			SuspicionScore:   s,
			DetectedPatterns: dedupSorted(tags),
			RingID:           domain.RingNone,
		})
	}
	sort.Slice(flagged, func(i, j int) bool {
		if flagged[i].SuspicionScore != flagged[j].SuspicionScore {
			return flagged[i].SuspicionScore > flagged[j].SuspicionScore
		}
		return flagged[i].AccountID < flagged[j].AccountID
	})
	return flagged
}

func dedupSorted(tags []string) []string {
	out := score.SortTags(tags)
	n := 0
	for i, tag := range out {
		if i == 0 || tag != out[i-1] {
			out[n] = tag
			n++
		}
	}
	return out[:n]
}
