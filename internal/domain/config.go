package domain

import (
	"fmt"
	"time"
)

// Config holds the complete Ringsight configuration.
// It is resolved once at startup (or once per test) and treated as
// immutable afterwards; every component receives the sub-config it
// needs explicitly rather than reading global state mid-run.
type Config struct {
	Server ServerConfig `json:"server"`

	// Analysis engine settings
	Detect  DetectConfig  `json:"detect"`
	Scoring ScoringConfig `json:"scoring"`
	Rings   RingConfig    `json:"rings"`

	// Optional operator-defined CEL rules (empty by default)
	Rules []RuleConfig `json:"rules,omitempty"`

	// Component configurations
	Store       StoreConfig       `json:"store"`
	EventBus    EventBusConfig    `json:"eventBus"`
	Repository  RepositoryConfig  `json:"repository"`
	GraphExport GraphExportConfig `json:"graphExport"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds

	// Upload guards applied before any parsing happens.
	MaxUploadSizeMB int `json:"maxUploadSizeMb"`
	MaxRows         int `json:"maxRows"`

	// Requests per minute allowed on the results endpoint.
	ResultsRateLimit int `json:"resultsRateLimit"`
}

// DetectConfig holds the thresholds for all four pattern detectors.
type DetectConfig struct {
	// Cycle detection
	MinCycleLength int `json:"minCycleLength"`
	MaxCycleLength int `json:"maxCycleLength"`
	// Hard budget on cycles examined before the detector degrades to a
	// partial result instead of failing the run.
	CycleBudget int `json:"cycleBudget"`

	// Fan (smurfing) detection
	SmurfingWindowHours  int `json:"smurfingWindowHours"`
	FanMinCounterparties int `json:"fanMinCounterparties"`

	// Shell chain detection
	ShellMaxTotalTxns int `json:"shellMaxTotalTxns"`
	ShellMinHops      int `json:"shellMinHops"`
	ShellMaxDepth     int `json:"shellMaxDepth"`

	// Velocity detection
	VelocityWindowHours int     `json:"velocityWindowHours"`
	VelocityMaxTxns     int     `json:"velocityMaxTxns"`
	VelocityMaxAmount   float64 `json:"velocityMaxAmount"` // 0 disables the amount gate
}

// SmurfingWindow returns the fan detector's sliding window duration.
func (c DetectConfig) SmurfingWindow() time.Duration {
	return time.Duration(c.SmurfingWindowHours) * time.Hour
}

// VelocityWindow returns the velocity detector's sliding window duration.
func (c DetectConfig) VelocityWindow() time.Duration {
	return time.Duration(c.VelocityWindowHours) * time.Hour
}

// ScoringConfig holds per-pattern point weights and the flag threshold.
type ScoringConfig struct {
	WeightCycle    float64 `json:"weightCycle"`
	WeightFan      float64 `json:"weightFan"`
	WeightShell    float64 `json:"weightShell"`
	WeightVelocity float64 `json:"weightVelocity"`

	// Added once when an account carries 2 or more distinct pattern tags.
	OverlapBonus float64 `json:"overlapBonus"`

	// Accounts scoring >= this value (inclusive) are flagged.
	SuspiciousScoreThreshold float64 `json:"suspiciousScoreThreshold"`

	// Suppression of likely-legitimate fan patterns (payroll, merchant).
	// Off by default.
	SuppressionEnabled        bool    `json:"suppressionEnabled"`
	PayrollIntervalCV         float64 `json:"payrollIntervalCv"`
	PayrollAmountCV           float64 `json:"payrollAmountCv"`
	MerchantMinInDegree       int     `json:"merchantMinInDegree"`
	MerchantMaxOutgoingEdges  int     `json:"merchantMaxOutgoingEdges"`
}

// RingConfig controls fraud ring assembly.
type RingConfig struct {
	// RiskAggregation is "max" (worst offender, default) or "mean".
	RiskAggregation string `json:"riskAggregation"`

	// Rings at or above this risk score are published to the alert topic.
	AlertThreshold float64 `json:"alertThreshold"`
}

// RuleConfig is one operator-defined CEL rule evaluated per account.
// A matching account receives the pattern tag "rule_<ID>" with Weight
// points added to its raw score.
type RuleConfig struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Expression string  `json:"expression"`
	Weight     float64 `json:"weight"`
	Enabled    bool    `json:"enabled"`
}

// StoreConfig holds configuration for the result store.
type StoreConfig struct {
	// Type is the store type: "memory" or "redis"
	Type string `json:"type"`

	TTLSeconds int `json:"ttlSeconds"`
	MaxItems   int `json:"maxItems"`

	// Interval for the background expiry sweep (memory store).
	// Zero means lazy expiry only.
	SweepSeconds int `json:"sweepSeconds"`

	// Redis settings
	RedisAddr     string `json:"redisAddr"`
	RedisPassword string `json:"-"`
	RedisDB       int    `json:"redisDb"`
}

// TTL returns the session lifetime as a duration.
func (c StoreConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// GraphExportConfig enables the optional Neo4j graph export.
// Export is active only when URI is non-empty.
type GraphExportConfig struct {
	URI            string `json:"uri"`
	Database       string `json:"database"`
	Username       string `json:"username"`
	Password       string `json:"-"`
	MaxConnections int    `json:"maxConnections"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// DefaultConfig returns the default configuration: in-memory store,
// channel event bus, sqlite run history, detectors at the documented
// default thresholds.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      30,
			WriteTimeout:     60,
			MaxUploadSizeMB:  5,
			MaxRows:          15000,
			ResultsRateLimit: 60,
		},
		Detect: DetectConfig{
			MinCycleLength:       3,
			MaxCycleLength:       5,
			CycleBudget:          10000,
			SmurfingWindowHours:  72,
			FanMinCounterparties: 10,
			ShellMaxTotalTxns:    3,
			ShellMinHops:         3,
			ShellMaxDepth:        10,
			VelocityWindowHours:  24,
			VelocityMaxTxns:      15,
			VelocityMaxAmount:    0,
		},
		Scoring: ScoringConfig{
			WeightCycle:              40,
			WeightFan:                25,
			WeightShell:              30,
			WeightVelocity:           20,
			OverlapBonus:             10,
			SuspiciousScoreThreshold: 12.0,
			SuppressionEnabled:       false,
			PayrollIntervalCV:        0.2,
			PayrollAmountCV:          0.15,
			MerchantMinInDegree:      50,
			MerchantMaxOutgoingEdges: 3,
		},
		Rings: RingConfig{
			RiskAggregation: "max",
			AlertThreshold:  75,
		},
		Store: StoreConfig{
			Type:         "memory",
			TTLSeconds:   3600,
			MaxItems:     10,
			SweepSeconds: 60,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./ringsight.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "ringsight",
		},
	}
}

// Validate checks the configuration before any detector runs.
// Malformed or out-of-range values fail the analysis fast.
func (c *Config) Validate() error {
	d := c.Detect
	if d.MinCycleLength < 2 {
		return fmt.Errorf("config: min cycle length must be >= 2, got %d", d.MinCycleLength)
	}
	if d.MinCycleLength > d.MaxCycleLength {
		return fmt.Errorf("config: min cycle length %d exceeds max cycle length %d",
			d.MinCycleLength, d.MaxCycleLength)
	}
	if d.CycleBudget <= 0 {
		return fmt.Errorf("config: cycle budget must be positive, got %d", d.CycleBudget)
	}
	if d.SmurfingWindowHours <= 0 {
		return fmt.Errorf("config: smurfing window must be positive, got %d hours", d.SmurfingWindowHours)
	}
	if d.FanMinCounterparties < 2 {
		return fmt.Errorf("config: fan counterparty threshold must be >= 2, got %d", d.FanMinCounterparties)
	}
	if d.ShellMaxTotalTxns < 1 {
		return fmt.Errorf("config: shell activity ceiling must be >= 1, got %d", d.ShellMaxTotalTxns)
	}
	if d.ShellMinHops < 2 {
		return fmt.Errorf("config: shell chain min hops must be >= 2, got %d", d.ShellMinHops)
	}
	if d.ShellMaxDepth < d.ShellMinHops {
		return fmt.Errorf("config: shell max depth %d below min hops %d", d.ShellMaxDepth, d.ShellMinHops)
	}
	if d.VelocityWindowHours <= 0 {
		return fmt.Errorf("config: velocity window must be positive, got %d hours", d.VelocityWindowHours)
	}
	if d.VelocityMaxTxns <= 0 && d.VelocityMaxAmount <= 0 {
		return fmt.Errorf("config: velocity detector needs a count or amount threshold")
	}

	s := c.Scoring
	if s.SuspiciousScoreThreshold < 0 || s.SuspiciousScoreThreshold > 100 {
		return fmt.Errorf("config: suspicious score threshold must be in [0,100], got %.2f",
			s.SuspiciousScoreThreshold)
	}
	for name, w := range map[string]float64{
		"cycle":    s.WeightCycle,
		"fan":      s.WeightFan,
		"shell":    s.WeightShell,
		"velocity": s.WeightVelocity,
	} {
		if w < 0 {
			return fmt.Errorf("config: %s weight must be non-negative, got %.2f", name, w)
		}
	}

	switch c.Rings.RiskAggregation {
	case "max", "mean":
	default:
		return fmt.Errorf("config: unknown ring risk aggregation %q", c.Rings.RiskAggregation)
	}

	if c.Store.TTLSeconds <= 0 {
		return fmt.Errorf("config: result store TTL must be positive, got %d", c.Store.TTLSeconds)
	}

	return nil
}
