package detect

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/ringsight/ringsight/internal/domain"
	"github.com/ringsight/ringsight/internal/graph"
)

// CycleDetector finds closed loops of funds: directed simple cycles
// whose length falls within the configured bounds. Two cycles over the
// same set of accounts count once regardless of rotation or traversal
// order.
type CycleDetector struct {
	cfg domain.DetectConfig
}

func NewCycleDetector(cfg domain.DetectConfig) *CycleDetector {
	return &CycleDetector{cfg: cfg}
}

func (d *CycleDetector) Name() string { return "cycle" }

func (d *CycleDetector) Run(ctx context.Context, g *graph.Graph, _ []domain.Transaction) (*Result, error) {
	res := newResult()

	// Any simple cycle lives entirely inside one strongly connected
	// component, so components smaller than the minimum length are
	// pruned before enumeration.
	comps := stronglyConnected(g)

	seen := make(map[string]bool) // sorted node-set key -> reported
	budget := d.cfg.CycleBudget

	for _, comp := range comps {
		if len(comp) < d.cfg.MinCycleLength {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		inComp := make(map[string]bool, len(comp))
		for _, id := range comp {
			inComp[id] = true
		}
		sort.Strings(comp)

		// Each cycle is discovered exactly once by anchoring the walk
		// at its smallest member and never visiting anything smaller.
		for _, start := range comp {
			done := d.walk(g, res, seen, inComp, start, []string{start}, map[string]bool{start: true}, &budget)
			if done {
				res.Partial = true
				return res, nil
			}
		}
	}

	return res, nil
}

// walk extends the current path from its last node. Returns true when
// the enumeration budget is exhausted.
func (d *CycleDetector) walk(g *graph.Graph, res *Result, seen map[string]bool, inComp map[string]bool, start string, path []string, onPath map[string]bool, budget *int) bool {
	if *budget <= 0 {
		return true
	}
	*budget--

	last := path[len(path)-1]
	for _, next := range g.Successors(last) {
		if !inComp[next] || next < start {
			continue
		}
		if next == start {
			if len(path) >= d.cfg.MinCycleLength {
				d.report(res, seen, path)
			}
			continue
		}
		if onPath[next] || len(path) >= d.cfg.MaxCycleLength {
			continue
		}
		onPath[next] = true
		done := d.walk(g, res, seen, inComp, start, append(path, next), onPath, budget)
		delete(onPath, next)
		if done {
			return true
		}
	}
	return false
}

func (d *CycleDetector) report(res *Result, seen map[string]bool, cycle []string) {
	members := append([]string(nil), cycle...)
	sort.Strings(members)
	key := strings.Join(members, "\x00")
	if seen[key] {
		return
	}
	seen[key] = true

	tag := "cycle_length_" + strconv.Itoa(len(members))
	for _, id := range members {
		res.flag(id, tag)
	}
	res.Clusters = append(res.Clusters, members)
}

// stronglyConnected returns the graph's strongly connected components
// using Tarjan's algorithm, iterative to keep deep chains off the call
// stack.
func stronglyConnected(g *graph.Graph) [][]string {
	index := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	var comps [][]string
	next := 0

	type frame struct {
		node string
		succ []string
		i    int
	}

	for _, root := range g.Nodes() {
		if _, visited := index[root]; visited {
			continue
		}

		frames := []frame{{node: root, succ: g.Successors(root)}}
		index[root] = next
		lowlink[root] = next
		next++
		stack = append(stack, root)
		onStack[root] = true

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			advanced := false
			for f.i < len(f.succ) {
				w := f.succ[f.i]
				f.i++
				if _, visited := index[w]; !visited {
					index[w] = next
					lowlink[w] = next
					next++
					stack = append(stack, w)
					onStack[w] = true
					frames = append(frames, frame{node: w, succ: g.Successors(w)})
					advanced = true
					break
				}
				if onStack[w] && index[w] < lowlink[f.node] {
					lowlink[f.node] = index[w]
				}
			}
			if advanced {
				continue
			}

			v := f.node
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := frames[len(frames)-1].node
				if lowlink[v] < lowlink[parent] {
					lowlink[parent] = lowlink[v]
				}
			}
			if lowlink[v] == index[v] {
				var comp []string
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					comp = append(comp, w)
					if w == v {
						break
					}
				}
				comps = append(comps, comp)
			}
		}
	}

	return comps
}
