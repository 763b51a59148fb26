package domain

import (
	"context"
)

// EventBus defines the interface for event-driven notifications.
// Supports Go channels (default) or NATS.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	Payload   []byte `json:"payload"`
	Timestamp int64  `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string `json:"type"`

	// Channel settings
	ChannelBufferSize int `json:"channelBufferSize"`

	// NATS settings
	NATSUrl           string `json:"natsUrl"`
	NATSToken         string `json:"-"`
	NATSMaxReconnects int    `json:"natsMaxReconnects"`
	NATSReconnectWait int    `json:"natsReconnectWait"` // seconds
}

// Standard topic names for analysis lifecycle events.
const (
	TopicAnalysisCompleted = "ringsight.analysis.completed"
	TopicRingAlert         = "ringsight.ring.alert"
)

// AnalysisCompletedEvent is the payload published on TopicAnalysisCompleted.
type AnalysisCompletedEvent struct {
	Token             string  `json:"token"`
	RowsAccepted      int     `json:"rowsAccepted"`
	TotalAccounts     int     `json:"totalAccounts"`
	FlaggedAccounts   int     `json:"flaggedAccounts"`
	Rings             int     `json:"rings"`
	ProcessingSeconds float64 `json:"processingSeconds"`
	Partial           bool    `json:"partial"`
}

// RingAlertEvent is the payload published on TopicRingAlert for rings
// whose risk score crosses the configured alert threshold.
type RingAlertEvent struct {
	Token       string   `json:"token"`
	RingID      string   `json:"ringId"`
	PatternType string   `json:"patternType"`
	RiskScore   float64  `json:"riskScore"`
	Members     []string `json:"members"`
}
