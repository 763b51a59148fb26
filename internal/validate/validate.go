// Package validate parses and cleans uploaded transaction CSVs.
// Malformed rows are skipped and counted by reason; only structural
// problems with the file itself fail the upload.
package validate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ringsight/ringsight/internal/domain"
)

// TimestampLayout is the accepted timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	// ErrNoValidRows means every row was skipped during cleaning.
	ErrNoValidRows = errors.New("no valid transactions after cleaning")

	// ErrTooManyRows means the upload exceeds the configured row cap.
	ErrTooManyRows = errors.New("too many rows")
)

// Row skip reasons reported in the validation summary.
const (
	reasonMissingFields    = "missing_fields"
	reasonInvalidAmount    = "invalid_amount"
	reasonInvalidTimestamp = "invalid_timestamp"
	reasonDuplicateID      = "duplicate_transaction_id"
	reasonSelfLoop         = "self_loop"
)

var requiredColumns = []string{"transaction_id", "sender_id", "receiver_id", "amount", "timestamp"}

// Validate reads the CSV, cleans it, and returns the surviving
// transactions in input order together with a summary of what was
// dropped. maxRows of 0 means unlimited.
func Validate(r io.Reader, maxRows int) ([]domain.Transaction, *domain.ValidationSummary, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty file: %w", ErrNoValidRows)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	summary := &domain.ValidationSummary{SkipReasons: make(map[string]int)}
	seen := make(map[string]bool)
	var txs []domain.Transaction

	skip := func(reason string) {
		summary.RowsSkipped++
		summary.SkipReasons[reason]++
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", summary.RowsTotal+2, err)
		}
		summary.RowsTotal++
		if maxRows > 0 && summary.RowsTotal > maxRows {
			return nil, nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, maxRows)
		}

		field := func(name string) string {
			i := col[name]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		id := field("transaction_id")
		sender := field("sender_id")
		receiver := field("receiver_id")
		rawAmount := field("amount")
		rawTS := field("timestamp")

		if id == "" || sender == "" || receiver == "" || rawAmount == "" || rawTS == "" {
			skip(reasonMissingFields)
			continue
		}
		amount, err := strconv.ParseFloat(rawAmount, 64)
		if err != nil || amount <= 0 {
			skip(reasonInvalidAmount)
			continue
		}
		ts, err := time.Parse(TimestampLayout, rawTS)
		if err != nil {
			skip(reasonInvalidTimestamp)
			continue
		}
		if seen[id] {
			skip(reasonDuplicateID)
			continue
		}
		if sender == receiver {
			skip(reasonSelfLoop)
			continue
		}

		seen[id] = true
		summary.RowsAccepted++
		txs = append(txs, domain.Transaction{
			ID:         id,
			SenderID:   sender,
			ReceiverID: receiver,
			Amount:     amount,
			Timestamp:  ts,
		})
	}

	if len(txs) == 0 {
		return nil, nil, ErrNoValidRows
	}

	return txs, summary, nil
}
