// Package domain defines the core types and interfaces for Ringsight.
package domain

import (
	"time"
)

// Transaction is a single validated money transfer between two accounts.
// Validated transactions are immutable; every downstream component reads
// them without modification.
type Transaction struct {
	ID         string    `json:"transaction_id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Amount     float64   `json:"amount"`
	Timestamp  time.Time `json:"timestamp"`
}

// ValidationSummary reports what the validator accepted and why rows
// were skipped. Produced once per upload, stored alongside the result.
type ValidationSummary struct {
	RowsTotal    int            `json:"rows_total"`
	RowsAccepted int            `json:"rows_accepted"`
	RowsSkipped  int            `json:"rows_skipped"`
	SkipReasons  map[string]int `json:"skip_reasons"`
}
