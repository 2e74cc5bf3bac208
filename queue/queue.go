// Package queue defines the broker topology and producer-side operations for
// the contract analysis pipeline, plus the in-flight dedup guard shared with
// the consumer.
package queue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Broker topology. One stream with one subject and one durable consumer is
// the JetStream equivalent of a direct exchange, a durable queue, and a
// single binding.
const (
	// StreamName is the durable stream holding analysis requests.
	StreamName = "CONTRACTS"
	// SubjectAnalysisRequest is the subject analysis requests are published to.
	SubjectAnalysisRequest = "contracts.analysis.request"
	// ConsumerName is the durable consumer the analysis worker reads from.
	ConsumerName = "contract-analyzer"
)

// AnalysisRequest is the wire message carried from producer to consumer.
// The consumer assumes this exact shape; there is no versioning field.
type AnalysisRequest struct {
	Contract string `json:"contract"`
	UserID   int64  `json:"userId"`
}

// Encode serializes the request deterministically.
func (r AnalysisRequest) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis request: %w", err)
	}
	return data, nil
}

// MessageID derives the in-flight identifier for a raw message payload.
// Byte-identical payloads always map to the same identifier.
func MessageID(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// EnsureStream creates or updates the analysis stream. File storage makes the
// queue durable; the broker owns this state, not the pipeline.
func EnsureStream(ctx context.Context, js jetstream.JetStream) (jetstream.Stream, error) {
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectAnalysisRequest},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.WorkQueuePolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create stream %s: %w", StreamName, err)
	}
	return stream, nil
}
