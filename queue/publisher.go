package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// ErrMissingRequester indicates caller misuse: no requester id supplied.
var ErrMissingRequester = errors.New("requester id is required")

// EnqueueError wraps a publish failure. It is surfaced synchronously to the
// caller; there is no local retry or buffering.
type EnqueueError struct {
	err error
}

func (e *EnqueueError) Error() string {
	return fmt.Sprintf("failed to enqueue contract for analysis: %v", e.err)
}

func (e *EnqueueError) Unwrap() error {
	return e.err
}

// Publisher is the producer-side gateway that hands contracts to the broker.
type Publisher struct {
	js     jetstream.JetStream
	logger *slog.Logger
}

// NewPublisher creates an enqueue gateway over a JetStream context.
func NewPublisher(js jetstream.JetStream, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{js: js, logger: logger}
}

// SubmitForAnalysis serializes the contract and requester into an analysis
// request and publishes it. Empty contract text is not an error at this
// layer; blankness is rejected at the request boundary upstream. The caller
// only ever observes enqueue success or failure here; analysis outcomes are
// visible later through the read path.
func (p *Publisher) SubmitForAnalysis(ctx context.Context, contractText string, requesterID int64) error {
	if requesterID <= 0 {
		return ErrMissingRequester
	}

	payload, err := AnalysisRequest{Contract: contractText, UserID: requesterID}.Encode()
	if err != nil {
		return err
	}

	p.logger.Debug("Publishing analysis request",
		"subject", SubjectAnalysisRequest,
		"requester_id", requesterID,
		"payload_bytes", len(payload))

	_, err = p.js.Publish(ctx, SubjectAnalysisRequest, payload,
		jetstream.WithMsgID(uuid.New().String()))
	if err != nil {
		p.logger.Error("Failed to publish analysis request",
			"subject", SubjectAnalysisRequest,
			"requester_id", requesterID,
			"error", err)
		return &EnqueueError{err: err}
	}

	return nil
}
