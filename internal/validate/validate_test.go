package validate

import (
	"errors"
	"strings"
	"testing"
)

const goodHeader = "transaction_id,sender_id,receiver_id,amount,timestamp\n"

func TestValidateCleanFile(t *testing.T) {
	input := goodHeader +
		"T1,A,B,100.50,2024-01-01 10:00:00\n" +
		"T2,B,C,200,2024-01-01 11:00:00\n"

	txs, summary, err := Validate(strings.NewReader(input), 0)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	if txs[0].ID != "T1" || txs[0].Amount != 100.50 {
		t.Errorf("first tx = %+v", txs[0])
	}
	if summary.RowsTotal != 2 || summary.RowsAccepted != 2 || summary.RowsSkipped != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestValidateSkipReasons(t *testing.T) {
	input := goodHeader +
		"T1,A,B,100,2024-01-01 10:00:00\n" +
		"T1,C,D,50,2024-01-01 10:05:00\n" + // duplicate id, first kept
		"T2,E,E,75,2024-01-01 10:10:00\n" + // self loop
		"T3,F,G,-5,2024-01-01 10:15:00\n" + // non-positive amount
		"T4,H,I,abc,2024-01-01 10:20:00\n" + // unparseable amount
		"T5,J,K,60,01/01/2024\n" + // wrong timestamp format
		"T6,,L,70,2024-01-01 10:30:00\n" + // missing sender
		"T7,M,N,80,2024-01-01 10:35:00\n"

	txs, summary, err := Validate(strings.NewReader(input), 0)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want T1 and T7 only: %+v", len(txs), txs)
	}
	if txs[0].SenderID != "A" {
		t.Errorf("duplicate handling kept %q, want the first occurrence", txs[0].SenderID)
	}

	want := map[string]int{
		"duplicate_transaction_id": 1,
		"self_loop":                1,
		"invalid_amount":           2,
		"invalid_timestamp":        1,
		"missing_fields":           1,
	}
	for reason, n := range want {
		if summary.SkipReasons[reason] != n {
			t.Errorf("SkipReasons[%s] = %d, want %d", reason, summary.SkipReasons[reason], n)
		}
	}
	if summary.RowsSkipped != 6 {
		t.Errorf("RowsSkipped = %d, want 6", summary.RowsSkipped)
	}
}

func TestValidateHeaderNormalization(t *testing.T) {
	input := "Transaction_ID, Sender_ID ,RECEIVER_ID,Amount,Timestamp\n" +
		"T1,A,B,100,2024-01-01 10:00:00\n"

	txs, _, err := Validate(strings.NewReader(input), 0)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}
}

func TestValidateMissingColumns(t *testing.T) {
	input := "transaction_id,sender_id,amount,timestamp\n" +
		"T1,A,100,2024-01-01 10:00:00\n"

	_, _, err := Validate(strings.NewReader(input), 0)
	if err == nil || !strings.Contains(err.Error(), "receiver_id") {
		t.Fatalf("err = %v, want missing column error naming receiver_id", err)
	}
}

func TestValidateAllRowsInvalid(t *testing.T) {
	input := goodHeader +
		"T1,A,A,100,2024-01-01 10:00:00\n" +
		"T2,B,C,0,2024-01-01 11:00:00\n"

	_, _, err := Validate(strings.NewReader(input), 0)
	if !errors.Is(err, ErrNoValidRows) {
		t.Fatalf("err = %v, want ErrNoValidRows", err)
	}
}

func TestValidateRowCap(t *testing.T) {
	input := goodHeader +
		"T1,A,B,100,2024-01-01 10:00:00\n" +
		"T2,B,C,100,2024-01-01 11:00:00\n" +
		"T3,C,D,100,2024-01-01 12:00:00\n"

	_, _, err := Validate(strings.NewReader(input), 2)
	if !errors.Is(err, ErrTooManyRows) {
		t.Fatalf("err = %v, want ErrTooManyRows", err)
	}
}
