// Package graphexport mirrors the account graph of an analysis into
// Neo4j for interactive exploration. Export is optional and best
// effort: a failed export is logged, never fails the analysis.
package graphexport

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ringsight/ringsight/internal/domain"
)

// Exporter writes account graph snapshots to Neo4j.
type Exporter struct {
	driver   neo4j.DriverWithContext
	database string
}

// New establishes a Bolt connection using the official Neo4j driver.
func New(ctx context.Context, cfg domain.GraphExportConfig) (*Exporter, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("graph export requires a URI")
	}

	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4j.Config) {
		if cfg.MaxConnections > 0 {
			c.MaxConnectionPoolSize = cfg.MaxConnections
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify graph connectivity: %w", err)
	}

	return &Exporter{driver: driver, database: cfg.Database}, nil
}

// Export upserts the snapshot's accounts and transfer edges under the
// run's session token, so multiple runs can coexist in one database.
func (e *Exporter) Export(ctx context.Context, token string, snap *domain.GraphSnapshot, flagged []domain.SuspiciousAccount) error {
	session := e.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: e.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	scores := make(map[string]float64, len(flagged))
	rings := make(map[string]string, len(flagged))
	for _, acct := range flagged {
		scores[acct.AccountID] = acct.SuspicionScore
		rings[acct.AccountID] = acct.RingID
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, node := range snap.Nodes {
			params := map[string]any{
				"run":    token,
				"id":     node.ID,
				"txns":   node.TotalTransactions,
				"amount": node.TotalAmount,
				"score":  scores[node.ID],
				"ring":   rings[node.ID],
			}
			_, err := tx.Run(ctx, `
				MERGE (a:Account {run: $run, id: $id})
				SET a.total_transactions = $txns,
				    a.total_amount = $amount,
				    a.suspicion_score = $score,
				    a.ring_id = $ring`, params)
			if err != nil {
				return nil, fmt.Errorf("merge account %s: %w", node.ID, err)
			}
		}

		for _, edge := range snap.Edges {
			params := map[string]any{
				"run":    token,
				"from":   edge.Source,
				"to":     edge.Target,
				"weight": edge.Weight,
				"count":  edge.Count,
			}
			_, err := tx.Run(ctx, `
				MATCH (a:Account {run: $run, id: $from})
				MATCH (b:Account {run: $run, id: $to})
				MERGE (a)-[s:SENT]->(b)
				SET s.weight = $weight, s.count = $count`, params)
			if err != nil {
				return nil, fmt.Errorf("merge edge %s->%s: %w", edge.Source, edge.Target, err)
			}
		}
		return nil, nil
	})
	return err
}

// Ping verifies the Bolt connection.
func (e *Exporter) Ping(ctx context.Context) error {
	return e.driver.VerifyConnectivity(ctx)
}

// Close releases the driver.
func (e *Exporter) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}
