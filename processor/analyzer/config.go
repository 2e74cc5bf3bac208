package analyzer

import (
	"fmt"
	"time"

	"github.com/contratai/contratai/queue"
)

// Config holds the analysis worker settings.
type Config struct {
	// StreamName is the JetStream stream to consume from.
	StreamName string `json:"stream_name"`
	// ConsumerName is the durable consumer name.
	ConsumerName string `json:"consumer_name"`
	// Subject filters the consumer to analysis requests.
	Subject string `json:"subject"`
	// AckWait is how long the broker waits for an ack before considering the
	// delivery lost. It must exceed the inference read timeout or the broker
	// will race an in-flight analysis.
	AckWait time.Duration `json:"ack_wait"`
	// FetchTimeout bounds each idle poll of the consumer.
	FetchTimeout time.Duration `json:"fetch_timeout"`
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig() Config {
	return Config{
		StreamName:   queue.StreamName,
		ConsumerName: queue.ConsumerName,
		Subject:      queue.SubjectAnalysisRequest,
		AckWait:      10 * time.Minute,
		FetchTimeout: 5 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.StreamName == "" {
		return fmt.Errorf("stream_name is required")
	}
	if c.ConsumerName == "" {
		return fmt.Errorf("consumer_name is required")
	}
	if c.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	if c.AckWait <= 0 {
		return fmt.Errorf("ack_wait must be positive")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive")
	}
	return nil
}
