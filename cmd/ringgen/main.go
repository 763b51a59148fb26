// Synthetic transaction generator for exercising Ringsight.
//
// Usage:
//   go run cmd/ringgen/main.go -out testdata.csv -rows 5000 -cycles 3 -fans 2
//
// This tool:
//   1. Generates a background population of legitimate transfers
//   2. Injects laundering structures (cycles, fan hubs, shell chains, bursts)
//   3. Writes the result as an upload-ready CSV
//   4. Optionally submits the file to a running Ringsight instance
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"os"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

type row struct {
	id       string
	sender   string
	receiver string
	amount   float64
	at       time.Time
}

type generator struct {
	rnd   *rand.Rand
	base  time.Time
	rows  []row
	txSeq int
}

func main() {
	out := flag.String("out", "ringgen.csv", "Output CSV path")
	accounts := flag.Int("accounts", 200, "Background account pool size")
	rows := flag.Int("rows", 2000, "Background transaction count")
	cycles := flag.Int("cycles", 2, "Circular routing loops to inject")
	fans := flag.Int("fans", 2, "Fan-in/fan-out hubs to inject")
	shells := flag.Int("shells", 1, "Shell pass-through chains to inject")
	bursts := flag.Int("bursts", 1, "High-velocity bursts to inject")
	seed := flag.Int64("seed", 42, "Random seed (fixed for reproducible files)")
	url := flag.String("url", "", "If set, upload the file to this Ringsight base URL")
	flag.Parse()

	fmt.Println("╔═══════════════════════════════════════════════════╗")
	fmt.Println("║        RINGGEN - Synthetic Fraud Scenarios        ║")
	fmt.Println("╚═══════════════════════════════════════════════════╝")
	fmt.Printf("\nOutput:    %s\n", *out)
	fmt.Printf("Accounts:  %d\n", *accounts)
	fmt.Printf("Rows:      %d\n", *rows)
	fmt.Printf("Injected:  %d cycles, %d fan hubs, %d shell chains, %d bursts\n",
		*cycles, *fans, *shells, *bursts)
	fmt.Printf("Seed:      %d\n", *seed)
	fmt.Println()

	g := &generator{
		rnd:  rand.New(rand.NewSource(*seed)),
		base: time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC),
	}

	g.background(*accounts, *rows)
	for i := 0; i < *cycles; i++ {
		g.injectCycle(i)
	}
	for i := 0; i < *fans; i++ {
		g.injectFan(i)
	}
	for i := 0; i < *shells; i++ {
		g.injectShell(i)
	}
	for i := 0; i < *bursts; i++ {
		g.injectBurst(i)
	}

	if err := g.write(*out); err != nil {
		fmt.Printf("ERROR: failed to write CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Wrote %d transactions to %s\n", len(g.rows), *out)

	if *url != "" {
		if err := upload(*url, *out); err != nil {
			fmt.Printf("ERROR: upload failed: %v\n", err)
			os.Exit(1)
		}
	}
}

func (g *generator) next() string {
	g.txSeq++
	return fmt.Sprintf("TX%07d", g.txSeq)
}

func (g *generator) add(sender, receiver string, amount float64, at time.Time) {
	g.rows = append(g.rows, row{
		id:       g.next(),
		sender:   sender,
		receiver: receiver,
		amount:   amount,
		at:       at,
	})
}

// background fills the file with ordinary traffic so that the injected
// structures have to be found rather than being the only data present.
// Spreading each account's activity over a month keeps the pool clear of
// the velocity and fan thresholds.
func (g *generator) background(accounts, rows int) {
	for i := 0; i < rows; i++ {
		sender := fmt.Sprintf("ACC_%04d", g.rnd.Intn(accounts))
		receiver := fmt.Sprintf("ACC_%04d", g.rnd.Intn(accounts))
		if sender == receiver {
			continue
		}
		amount := 10 + g.rnd.Float64()*4990
		at := g.base.Add(time.Duration(g.rnd.Intn(30*24*60)) * time.Minute)
		g.add(sender, receiver, amount, at)
	}
}

// injectCycle routes funds around a 3 to 5 account loop over a single day.
func (g *generator) injectCycle(n int) {
	size := 3 + g.rnd.Intn(3)
	members := make([]string, size)
	for i := range members {
		members[i] = fmt.Sprintf("CYC_%d_%d", n, i)
	}
	at := g.base.Add(time.Duration(n*48) * time.Hour)
	amount := 9500 + g.rnd.Float64()*500
	for i := 0; i < size; i++ {
		g.add(members[i], members[(i+1)%size], amount, at)
		at = at.Add(time.Duration(1+g.rnd.Intn(5)) * time.Hour)
		amount *= 0.98 // shave a fee at each hop
	}
}

// injectFan alternates between collection hubs (many senders into one
// account) and distribution hubs (one account paying out to many).
func (g *generator) injectFan(n int) {
	hub := fmt.Sprintf("HUB_%d", n)
	at := g.base.Add(time.Duration(n*96) * time.Hour)
	for i := 0; i < 12; i++ {
		party := fmt.Sprintf("SMURF_%d_%d", n, i)
		amount := 400 + g.rnd.Float64()*600
		step := time.Duration(i*4) * time.Hour
		if n%2 == 0 {
			g.add(party, hub, amount, at.Add(step))
		} else {
			g.add(hub, party, amount, at.Add(step))
		}
	}
}

// injectShell builds an origin -> shells -> destination chain where the
// intermediate accounts exist only to pass the money along.
func (g *generator) injectShell(n int) {
	origin := fmt.Sprintf("SRC_%d", n)
	dest := fmt.Sprintf("DST_%d", n)
	at := g.base.Add(time.Duration(n*72) * time.Hour)

	// The endpoints carry unrelated activity so only the middle of the
	// chain looks dormant.
	for i := 0; i < 5; i++ {
		g.add(origin, fmt.Sprintf("ACC_%04d", i), 120+float64(i)*10, at.Add(-time.Duration(i+1)*24*time.Hour))
		g.add(fmt.Sprintf("ACC_%04d", i+5), dest, 90+float64(i)*10, at.Add(-time.Duration(i+1)*24*time.Hour))
	}

	prev := origin
	amount := 50000.0
	for i := 0; i < 3; i++ {
		shell := fmt.Sprintf("SHL_%d_%d", n, i)
		g.add(prev, shell, amount, at)
		at = at.Add(2 * time.Hour)
		amount *= 0.99
		prev = shell
	}
	g.add(prev, dest, amount, at)
}

// injectBurst drains one account through rapid-fire transfers to a
// single counterparty, far above any plausible daily cadence.
func (g *generator) injectBurst(n int) {
	src := fmt.Sprintf("VEL_%d", n)
	dst := fmt.Sprintf("VELDST_%d", n)
	at := g.base.Add(time.Duration(n*120) * time.Hour)
	for i := 0; i < 20; i++ {
		g.add(src, dst, 200+g.rnd.Float64()*100, at.Add(time.Duration(i*7)*time.Minute))
	}
}

func (g *generator) write(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"transaction_id", "sender_id", "receiver_id", "amount", "timestamp"}); err != nil {
		return err
	}
	for _, r := range g.rows {
		record := []string{
			r.id,
			r.sender,
			r.receiver,
			fmt.Sprintf("%.2f", r.amount),
			r.at.Format(timeLayout),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func upload(baseURL, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	client := &http.Client{Timeout: 60 * time.Second}
	req, err := http.NewRequest(http.MethodPost, baseURL+"/analyze", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, data)
	}

	var parsed struct {
		SessionToken string `json:"session_token"`
		Validation   struct {
			RowsAccepted int `json:"rows_accepted"`
			RowsSkipped  int `json:"rows_skipped"`
		} `json:"validation"`
		Result struct {
			Summary struct {
				TotalAccounts   int `json:"total_accounts_analyzed"`
				FlaggedAccounts int `json:"suspicious_accounts_flagged"`
				RingsDetected   int `json:"fraud_rings_detected"`
			} `json:"summary"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return err
	}

	fmt.Println("\n✓ Uploaded to", baseURL)
	fmt.Printf("  Session token:    %s\n", parsed.SessionToken)
	fmt.Printf("  Rows accepted:    %d (skipped %d)\n", parsed.Validation.RowsAccepted, parsed.Validation.RowsSkipped)
	fmt.Printf("  Accounts:         %d\n", parsed.Result.Summary.TotalAccounts)
	fmt.Printf("  Flagged accounts: %d\n", parsed.Result.Summary.FlaggedAccounts)
	fmt.Printf("  Rings detected:   %d\n", parsed.Result.Summary.RingsDetected)
	return nil
}
