package domain

import (
	"time"
)

// Pattern tags produced by the detectors. Cycle tags carry the cycle
// length ("cycle_length_3" .. "cycle_length_5"); custom rule tags are
// "rule_<id>".
const (
	PatternFanIn        = "fan_in"
	PatternFanOut       = "fan_out"
	PatternShellChain   = "shell_chain"
	PatternHighVelocity = "high_velocity"
)

// RingNone is the sentinel ring ID for flagged accounts that share no
// structural evidence with any other flagged account.
const RingNone = "NONE"

// SuspiciousAccount is one account that crossed the flag threshold.
// RingID is filled in by the ring assembler after scoring; it is the
// only post-creation mutation and happens exactly once.
type SuspiciousAccount struct {
	AccountID        string   `json:"account_id"`
	SuspicionScore   float64  `json:"suspicion_score"`
	DetectedPatterns []string `json:"detected_patterns"`
	RingID           string   `json:"ring_id"`
}

// FraudRing is a cluster of flagged accounts connected by shared
// structural evidence. Immutable once assembled.
type FraudRing struct {
	RingID         string   `json:"ring_id"`
	MemberAccounts []string `json:"member_accounts"`
	PatternType    string   `json:"pattern_type"`
	RiskScore      float64  `json:"risk_score"`
}

// Summary holds the run-level statistics of one analysis.
type Summary struct {
	TotalAccountsAnalyzed     int     `json:"total_accounts_analyzed"`
	SuspiciousAccountsFlagged int     `json:"suspicious_accounts_flagged"`
	FraudRingsDetected        int     `json:"fraud_rings_detected"`
	ProcessingTimeSeconds     float64 `json:"processing_time_seconds"`
	TotalTransactions         int     `json:"total_transactions"`
	TotalAmount               float64 `json:"total_amount"`
}

// GraphNode is a node of the account graph snapshot returned for
// caller-side rendering.
type GraphNode struct {
	ID                string  `json:"id"`
	InDegree          int     `json:"in_degree"`
	OutDegree         int     `json:"out_degree"`
	TotalTransactions int     `json:"total_transactions"`
	TotalAmount       float64 `json:"total_amount"`
}

// GraphEdge is an aggregated directed edge of the snapshot.
type GraphEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
	Count  int     `json:"count"`
}

// GraphSnapshot is the directed account graph for visualization.
type GraphSnapshot struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// ForensicResult is the terminal artifact of one analysis run.
//
// Ordering guarantees: suspicious accounts by score DESC then account
// ID ASC; rings in ring ID order, with IDs assigned by member count
// DESC then smallest member ASC; member accounts and detected patterns
// sorted per entry.
type ForensicResult struct {
	SuspiciousAccounts []SuspiciousAccount `json:"suspicious_accounts"`
	FraudRings         []FraudRing         `json:"fraud_rings"`
	Summary            Summary             `json:"summary"`

	// Partial is set when cycle enumeration hit its budget; the result
	// is still valid but may be incomplete.
	Partial bool `json:"partial_result"`

	Graph *GraphSnapshot `json:"graph,omitempty"`
}

// SessionEntry is one stored analysis result, keyed by its opaque
// session token and bounded by a TTL.
type SessionEntry struct {
	Token             string             `json:"token"`
	CreatedAt         time.Time          `json:"created_at"`
	ExpiresAt         time.Time          `json:"expires_at"`
	ValidationSummary *ValidationSummary `json:"validation_summary,omitempty"`
	Result            *ForensicResult    `json:"result"`
}

// Expired reports whether the entry is past its lifetime at now.
func (e *SessionEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}
