package detect

import (
	"context"
	"sort"

	"github.com/ringsight/ringsight/internal/domain"
	"github.com/ringsight/ringsight/internal/graph"
)

// FanDetector finds smurfing hubs: accounts that receive from (fan-in)
// or send to (fan-out) many distinct counterparties within a sliding
// time window. Structure alone is not enough; the transfers must be
// close together in time.
type FanDetector struct {
	cfg domain.DetectConfig
}

func NewFanDetector(cfg domain.DetectConfig) *FanDetector {
	return &FanDetector{cfg: cfg}
}

func (d *FanDetector) Name() string { return "fan" }

type fanEvent struct {
	at           int64 // unix nanos
	counterparty string
}

func (d *FanDetector) Run(ctx context.Context, g *graph.Graph, txs []domain.Transaction) (*Result, error) {
	res := newResult()

	incoming := make(map[string][]fanEvent)
	outgoing := make(map[string][]fanEvent)
	for _, tx := range txs {
		at := tx.Timestamp.UnixNano()
		incoming[tx.ReceiverID] = append(incoming[tx.ReceiverID], fanEvent{at, tx.SenderID})
		outgoing[tx.SenderID] = append(outgoing[tx.SenderID], fanEvent{at, tx.ReceiverID})
	}

	window := d.cfg.SmurfingWindow().Nanoseconds()

	for _, hub := range g.Nodes() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if parties := d.bestWindow(incoming[hub], window); parties != nil {
			res.flag(hub, domain.PatternFanIn)
			res.Clusters = append(res.Clusters, append([]string{hub}, parties...))
		}
		if parties := d.bestWindow(outgoing[hub], window); parties != nil {
			res.flag(hub, domain.PatternFanOut)
			res.Clusters = append(res.Clusters, append([]string{hub}, parties...))
		}
	}

	return res, nil
}

// bestWindow slides the window over the hub's events and returns the
// counterparties of the densest window when it meets the threshold,
// nil otherwise.
func (d *FanDetector) bestWindow(events []fanEvent, window int64) []string {
	if len(events) < d.cfg.FanMinCounterparties {
		return nil
	}
	sort.Slice(events, func(i, j int) bool { return events[i].at < events[j].at })

	var best map[string]bool
	for i := range events {
		// First event past the window starting at events[i].
		end := sort.Search(len(events), func(j int) bool {
			return events[j].at > events[i].at+window
		})
		if end-i <= len(best) {
			continue
		}
		distinct := make(map[string]bool)
		for _, ev := range events[i:end] {
			distinct[ev.counterparty] = true
		}
		if len(distinct) > len(best) {
			best = distinct
		}
	}

	if len(best) < d.cfg.FanMinCounterparties {
		return nil
	}
	parties := make([]string, 0, len(best))
	for p := range best {
		parties = append(parties, p)
	}
	sort.Strings(parties)
	return parties
}
