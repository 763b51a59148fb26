// Package config resolves the Ringsight configuration from the
// environment. All values are read once at startup; the resulting
// domain.Config is immutable for the life of the process.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/ringsight/ringsight/internal/domain"
)

// FromEnv returns the default configuration with environment overrides
// applied, validated and ready to hand to the engine.
func FromEnv() (*domain.Config, error) {
	cfg := domain.DefaultConfig()

	// Server
	cfg.Server.Host = valueOrDefault("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = intOrDefault("SERVER_PORT", cfg.Server.Port)
	cfg.Server.MaxUploadSizeMB = intOrDefault("MAX_UPLOAD_SIZE_MB", cfg.Server.MaxUploadSizeMB)
	cfg.Server.MaxRows = intOrDefault("MAX_ROWS", cfg.Server.MaxRows)
	cfg.Server.ResultsRateLimit = intOrDefault("RESULTS_RATE_LIMIT", cfg.Server.ResultsRateLimit)

	// Detectors
	cfg.Detect.MinCycleLength = intOrDefault("MIN_CYCLE_LENGTH", cfg.Detect.MinCycleLength)
	cfg.Detect.MaxCycleLength = intOrDefault("MAX_CYCLE_LENGTH", cfg.Detect.MaxCycleLength)
	cfg.Detect.CycleBudget = intOrDefault("CYCLE_BUDGET", cfg.Detect.CycleBudget)
	cfg.Detect.SmurfingWindowHours = intOrDefault("SMURFING_WINDOW_HOURS", cfg.Detect.SmurfingWindowHours)
	cfg.Detect.FanMinCounterparties = intOrDefault("FAN_MIN_COUNTERPARTIES", cfg.Detect.FanMinCounterparties)
	cfg.Detect.ShellMaxTotalTxns = intOrDefault("SHELL_MAX_TOTAL_TXNS", cfg.Detect.ShellMaxTotalTxns)
	cfg.Detect.ShellMinHops = intOrDefault("SHELL_MIN_HOPS", cfg.Detect.ShellMinHops)
	cfg.Detect.ShellMaxDepth = intOrDefault("SHELL_MAX_DEPTH", cfg.Detect.ShellMaxDepth)
	cfg.Detect.VelocityWindowHours = intOrDefault("VELOCITY_WINDOW_HOURS", cfg.Detect.VelocityWindowHours)
	cfg.Detect.VelocityMaxTxns = intOrDefault("VELOCITY_MAX_TXNS", cfg.Detect.VelocityMaxTxns)
	cfg.Detect.VelocityMaxAmount = floatOrDefault("VELOCITY_MAX_AMOUNT", cfg.Detect.VelocityMaxAmount)

	// Scoring
	cfg.Scoring.WeightCycle = floatOrDefault("SCORE_WEIGHT_CYCLE", cfg.Scoring.WeightCycle)
	cfg.Scoring.WeightFan = floatOrDefault("SCORE_WEIGHT_FAN", cfg.Scoring.WeightFan)
	cfg.Scoring.WeightShell = floatOrDefault("SCORE_WEIGHT_SHELL", cfg.Scoring.WeightShell)
	cfg.Scoring.WeightVelocity = floatOrDefault("SCORE_WEIGHT_VELOCITY", cfg.Scoring.WeightVelocity)
	cfg.Scoring.OverlapBonus = floatOrDefault("SCORE_OVERLAP_BONUS", cfg.Scoring.OverlapBonus)
	cfg.Scoring.SuspiciousScoreThreshold = floatOrDefault("SUSPICIOUS_SCORE_THRESHOLD", cfg.Scoring.SuspiciousScoreThreshold)
	cfg.Scoring.SuppressionEnabled = boolOrDefault("SUPPRESSION_ENABLED", cfg.Scoring.SuppressionEnabled)
	cfg.Scoring.PayrollIntervalCV = floatOrDefault("PAYROLL_INTERVAL_CV", cfg.Scoring.PayrollIntervalCV)
	cfg.Scoring.PayrollAmountCV = floatOrDefault("PAYROLL_AMOUNT_CV", cfg.Scoring.PayrollAmountCV)
	cfg.Scoring.MerchantMinInDegree = intOrDefault("MERCHANT_MIN_IN_DEGREE", cfg.Scoring.MerchantMinInDegree)
	cfg.Scoring.MerchantMaxOutgoingEdges = intOrDefault("MERCHANT_MAX_OUTGOING_EDGES", cfg.Scoring.MerchantMaxOutgoingEdges)

	// Rings
	cfg.Rings.RiskAggregation = valueOrDefault("RING_RISK_AGGREGATION", cfg.Rings.RiskAggregation)
	cfg.Rings.AlertThreshold = floatOrDefault("RING_ALERT_THRESHOLD", cfg.Rings.AlertThreshold)

	// Result store
	cfg.Store.Type = valueOrDefault("RESULT_STORE_TYPE", cfg.Store.Type)
	cfg.Store.TTLSeconds = intOrDefault("RESULT_STORE_TTL_SECONDS", cfg.Store.TTLSeconds)
	cfg.Store.MaxItems = intOrDefault("RESULT_STORE_MAX_ITEMS", cfg.Store.MaxItems)
	cfg.Store.SweepSeconds = intOrDefault("RESULT_STORE_SWEEP_SECONDS", cfg.Store.SweepSeconds)
	cfg.Store.RedisAddr = valueOrDefault("REDIS_ADDR", cfg.Store.RedisAddr)
	cfg.Store.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.Store.RedisDB = intOrDefault("REDIS_DB", cfg.Store.RedisDB)

	// Event bus
	cfg.EventBus.Type = valueOrDefault("EVENT_BUS_TYPE", cfg.EventBus.Type)
	cfg.EventBus.NATSUrl = valueOrDefault("NATS_URL", cfg.EventBus.NATSUrl)
	cfg.EventBus.NATSToken = os.Getenv("NATS_TOKEN")

	// Repository
	cfg.Repository.Driver = valueOrDefault("DB_DRIVER", cfg.Repository.Driver)
	cfg.Repository.SQLitePath = valueOrDefault("SQLITE_PATH", cfg.Repository.SQLitePath)
	cfg.Repository.PostgresHost = valueOrDefault("POSTGRES_HOST", cfg.Repository.PostgresHost)
	cfg.Repository.PostgresPort = intOrDefault("POSTGRES_PORT", cfg.Repository.PostgresPort)
	cfg.Repository.PostgresUser = valueOrDefault("POSTGRES_USER", cfg.Repository.PostgresUser)
	cfg.Repository.PostgresPassword = os.Getenv("POSTGRES_PASSWORD")
	cfg.Repository.PostgresDB = valueOrDefault("POSTGRES_DB", cfg.Repository.PostgresDB)
	cfg.Repository.PostgresSSLMode = valueOrDefault("POSTGRES_SSLMODE", cfg.Repository.PostgresSSLMode)

	// Graph export (active only when a URI is provided)
	cfg.GraphExport.URI = os.Getenv("GRAPH_EXPORT_URI")
	cfg.GraphExport.Database = os.Getenv("GRAPH_EXPORT_DATABASE")
	cfg.GraphExport.Username = os.Getenv("GRAPH_EXPORT_USERNAME")
	cfg.GraphExport.Password = os.Getenv("GRAPH_EXPORT_PASSWORD")
	cfg.GraphExport.MaxConnections = intOrDefault("GRAPH_EXPORT_MAX_CONNECTIONS", 10)

	// Observability
	cfg.Logging.Level = valueOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = valueOrDefault("LOG_FORMAT", cfg.Logging.Format)
	cfg.Tracing.Enabled = boolOrDefault("TRACING_ENABLED", cfg.Tracing.Enabled)

	// Optional custom CEL rules
	if path := os.Getenv("RULES_FILE"); path != "" {
		rules, err := loadRulesFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Rules = rules
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadRulesFile reads operator-defined CEL rules from a JSON file.
func loadRulesFile(path string) ([]domain.RuleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var rules []domain.RuleConfig
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return rules, nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func floatOrDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil {
			return val
		}
	}
	return fallback
}

func boolOrDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.ParseBool(v); err == nil {
			return val
		}
	}
	return fallback
}
