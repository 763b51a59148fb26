package score

import (
	"math"
	"sort"

	"github.com/ringsight/ringsight/internal/domain"
	"github.com/ringsight/ringsight/internal/graph"
)

// Suppressor withdraws fan tags from accounts whose transfer profile
// looks like routine business rather than smurfing. It only ever
// removes tags, so enabling it can never flag an account the
// detectors would not have.
type Suppressor struct {
	cfg domain.ScoringConfig
}

func NewSuppressor(cfg domain.ScoringConfig) *Suppressor {
	return &Suppressor{cfg: cfg}
}

// Apply strips suppressed fan tags in place and returns the account
// IDs whose tags changed.
func (s *Suppressor) Apply(flags map[string][]string, g *graph.Graph, txs []domain.Transaction) []string {
	if !s.cfg.SuppressionEnabled {
		return nil
	}

	outgoing := make(map[string][]domain.Transaction)
	for _, tx := range txs {
		outgoing[tx.SenderID] = append(outgoing[tx.SenderID], tx)
	}

	var changed []string
	for id, tags := range flags {
		kept := tags[:0]
		for _, tag := range tags {
			switch {
			case tag == domain.PatternFanOut && s.payrollLike(outgoing[id]):
			case tag == domain.PatternFanIn && s.merchantLike(g, id):
			default:
				kept = append(kept, tag)
			}
		}
		if len(kept) != len(tags) {
			changed = append(changed, id)
		}
		flags[id] = kept
	}
	sort.Strings(changed)
	return changed
}

// payrollLike reports whether outgoing transfers recur at steady
// intervals with steady amounts, the signature of salary runs.
func (s *Suppressor) payrollLike(txs []domain.Transaction) bool {
	if len(txs) < 4 {
		return false
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].Timestamp.Before(txs[j].Timestamp) })

	intervals := make([]float64, 0, len(txs)-1)
	amounts := make([]float64, 0, len(txs))
	for i, tx := range txs {
		amounts = append(amounts, tx.Amount)
		if i > 0 {
			intervals = append(intervals, txs[i].Timestamp.Sub(txs[i-1].Timestamp).Seconds())
		}
	}

	return variation(intervals) <= s.cfg.PayrollIntervalCV &&
		variation(amounts) <= s.cfg.PayrollAmountCV
}

// merchantLike reports whether an account absorbs payments from many
// customers while barely paying anyone out.
func (s *Suppressor) merchantLike(g *graph.Graph, id string) bool {
	n := g.Node(id)
	return n != nil &&
		n.InDegree >= s.cfg.MerchantMinInDegree &&
		n.OutDegree <= s.cfg.MerchantMaxOutgoingEdges
}

// variation is the coefficient of variation: stddev over mean.
func variation(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	if mean == 0 {
		return 0
	}
	sq := 0.0
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return math.Sqrt(sq/float64(len(xs))) / mean
}
