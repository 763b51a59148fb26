// Package rules provides the CEL-Go based custom rule engine. Rules
// are boolean expressions over an account's graph aggregates; a
// matching account receives the pattern tag "rule_<id>" worth the
// rule's weight at scoring time.
package rules

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/ringsight/ringsight/internal/domain"
	"github.com/ringsight/ringsight/internal/graph"
)

// Engine holds the compiled rule programs. Rules compile once at
// startup; a bad expression is a configuration error and fails the
// whole process rather than one analysis.
type Engine struct {
	env      *cel.Env
	compiled []compiledRule
}

type compiledRule struct {
	cfg     domain.RuleConfig
	program cel.Program
}

// NewEngine compiles the enabled rules against the account variable
// set.
func NewEngine(configs []domain.RuleConfig) (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("account_id", cel.StringType),
		cel.Variable("in_degree", cel.IntType),
		cel.Variable("out_degree", cel.IntType),
		cel.Variable("total_transactions", cel.IntType),
		cel.Variable("total_amount", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	e := &Engine{env: env}
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		program, err := e.compile(cfg)
		if err != nil {
			return nil, err
		}
		e.compiled = append(e.compiled, compiledRule{cfg: cfg, program: program})
	}

	return e, nil
}

func (e *Engine) compile(cfg domain.RuleConfig) (cel.Program, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, ast.OutputType())
	}
	return e.env.Program(ast)
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	return len(e.compiled)
}

// Evaluate runs every rule against every account and returns the tags
// each account earned, "rule_<id>" per matching rule.
func (e *Engine) Evaluate(ctx context.Context, g *graph.Graph) (map[string][]string, error) {
	if len(e.compiled) == 0 {
		return nil, nil
	}

	tags := make(map[string][]string)
	for _, id := range g.Nodes() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := g.Node(id)
		activation := map[string]any{
			"account_id":         n.ID,
			"in_degree":          int64(n.InDegree),
			"out_degree":         int64(n.OutDegree),
			"total_transactions": int64(n.TotalTransactions),
			"total_amount":       n.TotalAmount,
		}

		for _, rule := range e.compiled {
			out, _, err := rule.program.Eval(activation)
			if err != nil {
				return nil, fmt.Errorf("rule %s on account %s: %w", rule.cfg.ID, id, err)
			}
			if b, ok := out.(types.Bool); ok && bool(b) {
				tags[id] = append(tags[id], "rule_"+rule.cfg.ID)
			}
		}
		sort.Strings(tags[id])
	}

	return tags, nil
}
