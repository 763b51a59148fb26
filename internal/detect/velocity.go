package detect

import (
	"context"
	"sort"

	"github.com/ringsight/ringsight/internal/domain"
	"github.com/ringsight/ringsight/internal/graph"
)

// VelocityDetector flags accounts that move money out unusually fast:
// too many outgoing transfers, or too much outgoing value, inside a
// sliding window. Velocity is a per-account signal and contributes no
// clusters; it raises scores but never links accounts into rings.
type VelocityDetector struct {
	cfg domain.DetectConfig
}

func NewVelocityDetector(cfg domain.DetectConfig) *VelocityDetector {
	return &VelocityDetector{cfg: cfg}
}

func (d *VelocityDetector) Name() string { return "velocity" }

type velocityEvent struct {
	at     int64
	amount float64
}

func (d *VelocityDetector) Run(ctx context.Context, g *graph.Graph, txs []domain.Transaction) (*Result, error) {
	res := newResult()

	outgoing := make(map[string][]velocityEvent)
	for _, tx := range txs {
		outgoing[tx.SenderID] = append(outgoing[tx.SenderID], velocityEvent{tx.Timestamp.UnixNano(), tx.Amount})
	}

	window := d.cfg.VelocityWindow().Nanoseconds()

	for _, id := range g.Nodes() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		events := outgoing[id]
		if len(events) == 0 {
			continue
		}
		if d.burst(events, window) {
			res.flag(id, domain.PatternHighVelocity)
		}
	}

	return res, nil
}

// burst reports whether any window of outgoing activity crosses the
// count threshold or, when configured, the amount threshold.
func (d *VelocityDetector) burst(events []velocityEvent, window int64) bool {
	sort.Slice(events, func(i, j int) bool { return events[i].at < events[j].at })

	sum := 0.0
	left := 0
	for right := range events {
		sum += events[right].amount
		for events[right].at-events[left].at > window {
			sum -= events[left].amount
			left++
		}
		if d.cfg.VelocityMaxTxns > 0 && right-left+1 >= d.cfg.VelocityMaxTxns {
			return true
		}
		if d.cfg.VelocityMaxAmount > 0 && sum >= d.cfg.VelocityMaxAmount {
			return true
		}
	}
	return false
}
