// Package ring groups flagged accounts into fraud rings: connected
// components of accounts that share structural evidence from the same
// cycle, fan, or shell chain. Velocity is a solo signal and never
// links accounts.
package ring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ringsight/ringsight/internal/domain"
)

// Canonical category order for ring labels.
var categoryOrder = []string{"Cycle", "Smurfing", "Shell Chain", "Velocity", "Custom"}

// Assembler merges flagged accounts into rings via union-find over the
// detectors' evidence clusters.
type Assembler struct {
	cfg domain.RingConfig
}

func NewAssembler(cfg domain.RingConfig) *Assembler {
	return &Assembler{cfg: cfg}
}

// Assemble partitions the flagged accounts using the evidence clusters
// and writes each account's RingID in place. Components of one stay
// ringless. Ring IDs are assigned by size descending, then smallest
// member ascending, so identical inputs always name rings identically.
func (a *Assembler) Assemble(flagged []domain.SuspiciousAccount, clusters [][]string) ([]domain.FraudRing, []domain.SuspiciousAccount) {
	idx := make(map[string]int, len(flagged))
	for i, acct := range flagged {
		idx[acct.AccountID] = i
		flagged[i].RingID = domain.RingNone
	}

	uf := newUnionFind(len(flagged))
	for _, cluster := range clusters {
		first := -1
		for _, id := range cluster {
			i, ok := idx[id]
			if !ok {
				continue // evidence member below the flag threshold
			}
			if first < 0 {
				first = i
				continue
			}
			uf.union(first, i)
		}
	}

	groups := make(map[int][]int)
	for i := range flagged {
		root := uf.find(i)
		groups[root] = append(groups[root], i)
	}

	var comps [][]int
	for _, members := range groups {
		if len(members) >= 2 {
			comps = append(comps, members)
		}
	}

	// Deterministic naming order.
	minMember := func(members []int) string {
		min := flagged[members[0]].AccountID
		for _, i := range members[1:] {
			if flagged[i].AccountID < min {
				min = flagged[i].AccountID
			}
		}
		return min
	}
	sort.Slice(comps, func(x, y int) bool {
		if len(comps[x]) != len(comps[y]) {
			return len(comps[x]) > len(comps[y])
		}
		return minMember(comps[x]) < minMember(comps[y])
	})

	rings := make([]domain.FraudRing, 0, len(comps))
	for n, members := range comps {
		ringID := fmt.Sprintf("RING_%03d", n+1)

		accounts := make([]string, 0, len(members))
		var tags []string
		risk := 0.0
		sum := 0.0
		for _, i := range members {
			flagged[i].RingID = ringID
			accounts = append(accounts, flagged[i].AccountID)
			tags = append(tags, flagged[i].DetectedPatterns...)
			if flagged[i].SuspicionScore > risk {
				risk = flagged[i].SuspicionScore
			}
			sum += flagged[i].SuspicionScore
		}
		sort.Strings(accounts)
		if a.cfg.RiskAggregation == "mean" {
			risk = sum / float64(len(members))
		}

		rings = append(rings, domain.FraudRing{
			RingID:         ringID,
			MemberAccounts: accounts,
			PatternType:    label(tags),
			RiskScore:      risk,
		})
	}

	return rings, flagged
}

// label folds the members' pattern tags into a human-readable ring
// label, categories in canonical order.
func label(tags []string) string {
	present := make(map[string]bool)
	for _, tag := range tags {
		present[category(tag)] = true
	}
	var parts []string
	for _, c := range categoryOrder {
		if present[c] {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, " + ")
}

func category(tag string) string {
	switch {
	case strings.HasPrefix(tag, "cycle_length_"):
		return "Cycle"
	case tag == domain.PatternFanIn || tag == domain.PatternFanOut:
		return "Smurfing"
	case tag == domain.PatternShellChain:
		return "Shell Chain"
	case tag == domain.PatternHighVelocity:
		return "Velocity"
	case strings.HasPrefix(tag, "rule_"):
		return "Custom"
	default:
		return "Unknown"
	}
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(x, y int) {
	rx, ry := uf.find(x), uf.find(y)
	if rx == ry {
		return
	}
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
}
