// Package analyzer implements the contract analysis worker: the single
// consumer that dedups analysis requests, persists contracts in PENDING
// state, invokes the inference backend, and records the ANALYZED result.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/contratai/contratai/llm"
	"github.com/contratai/contratai/queue"
	"github.com/contratai/contratai/storage"
)

// PlaceholderTitle is assigned to contracts created by the worker.
const PlaceholderTitle = "Contrato para Análise"

// AnalysisDelimiter joins the original contract text and the inference result.
const AnalysisDelimiter = "\n\n=== ANÁLISE ===\n"

// Inferencer issues the synchronous inference call for an analysis prompt.
type Inferencer interface {
	Infer(ctx context.Context, prompt string) (string, error)
}

// ErrUnprocessable tags messages whose payload does not parse into an
// analysis request or whose requester does not resolve to an existing user.
// No persistence side effect exists for these.
var ErrUnprocessable = errors.New("message unprocessable")

// AnalysisError wraps an inference failure that occurred after the PENDING
// row was persisted. The row is left in PENDING permanently; there is no
// compensating cleanup.
type AnalysisError struct {
	ContractID int64
	err        error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed for contract %d: %v", e.ContractID, e.err)
}

func (e *AnalysisError) Unwrap() error {
	return e.err
}

// outcome tags the terminal state of one message. The pipeline itself is
// value-based; only handleMessage translates outcomes into broker
// acknowledgement.
type outcome int

const (
	outcomeAnalyzed outcome = iota
	outcomeSkipped
	outcomeUnprocessable
	outcomeFailed
)

// Component is the analysis worker. It runs a single consume goroutine
// fetching one message at a time, so at most one message is mid-pipeline
// from the broker's perspective. The in-flight set exists to protect against
// broker-level redelivery racing an in-flight attempt, not to parallelize.
type Component struct {
	config    Config
	js        jetstream.JetStream
	store     *storage.Store
	inference Inferencer
	prompts   *llm.PromptBuilder
	inflight  *queue.InflightSet
	metrics   *Metrics
	logger    *slog.Logger

	consumer jetstream.Consumer

	running bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewComponent creates the analysis worker.
func NewComponent(cfg Config, js jetstream.JetStream, store *storage.Store, inference Inferencer, prompts *llm.PromptBuilder, metrics *Metrics, logger *slog.Logger) (*Component, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if js == nil {
		return nil, fmt.Errorf("jetstream context required")
	}
	if store == nil {
		return nil, fmt.Errorf("store required")
	}
	if inference == nil {
		return nil, fmt.Errorf("inference client required")
	}
	if prompts == nil {
		return nil, fmt.Errorf("prompt builder required")
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Component{
		config:    cfg,
		js:        js,
		store:     store,
		inference: inference,
		prompts:   prompts,
		inflight:  queue.NewInflightSet(),
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// Start creates the durable consumer and begins consuming. MaxAckPending 1
// caps prefetch so the broker hands over one message at a time; MaxDeliver 1
// means a message is never redelivered after its first delivery attempt
// expires or fails.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("component already running")
	}
	c.running = true

	subCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	stream, err := c.js.Stream(subCtx, c.config.StreamName)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("get stream %s: %w", c.config.StreamName, err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(subCtx, jetstream.ConsumerConfig{
		Durable:       c.config.ConsumerName,
		FilterSubject: c.config.Subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       c.config.AckWait,
		MaxDeliver:    1,
		MaxAckPending: 1,
	})
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("create consumer %s: %w", c.config.ConsumerName, err)
	}
	c.consumer = consumer

	go c.consumeLoop(subCtx)

	c.logger.Info("analysis worker started",
		"stream", c.config.StreamName,
		"consumer", c.config.ConsumerName,
		"subject", c.config.Subject)

	return nil
}

// Stop halts consumption and waits for the current message to finish.
func (c *Component) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	<-done
	c.logger.Info("analysis worker stopped")
}

func (c *Component) rollbackStart(cancel context.CancelFunc) {
	c.mu.Lock()
	c.running = false
	c.cancel = nil
	close(c.done)
	c.mu.Unlock()
	cancel()
}

// consumeLoop continuously fetches messages, one at a time.
func (c *Component) consumeLoop(ctx context.Context) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := c.consumer.Fetch(1, jetstream.FetchMaxWait(c.config.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Debug("Fetch timeout or error", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handleMessage(ctx, msg)
		}

		if msgs.Error() != nil && !errors.Is(msgs.Error(), context.DeadlineExceeded) {
			c.logger.Warn("Message fetch error", "error", msgs.Error())
		}
	}
}

// handleMessage runs the pipeline for one delivery and translates its
// outcome into broker acknowledgement. Skipped and analyzed messages are
// acked; unprocessable and failed ones are terminated so the broker drops
// them instead of redelivering. Redelivery would re-run a non-idempotent
// side effect (a second PENDING row) with no compensating cleanup.
func (c *Component) handleMessage(ctx context.Context, msg jetstream.Msg) {
	c.metrics.Received.Inc()

	id := queue.MessageID(msg.Data())
	out, err := c.process(ctx, id, msg.Data())

	switch out {
	case outcomeAnalyzed, outcomeSkipped:
		if err := msg.Ack(); err != nil {
			c.logger.Warn("Failed to ACK message", "message_id", id, "error", err)
		}
	case outcomeUnprocessable, outcomeFailed:
		c.logger.Error("Dropping analysis message",
			"message_id", id,
			"error", err)
		if err := msg.Term(); err != nil {
			c.logger.Warn("Failed to terminate message", "message_id", id, "error", err)
		}
	}
}

// analysisPayload mirrors queue.AnalysisRequest with pointer fields so the
// consumer can distinguish absent fields from zero values.
type analysisPayload struct {
	Contract *string `json:"contract"`
	UserID   *int64  `json:"userId"`
}

// process runs the message pipeline to a terminal outcome. The in-flight
// identifier is acquired up front and released on every exit path.
func (c *Component) process(ctx context.Context, id string, data []byte) (outcome, error) {
	if !c.inflight.TryAcquire(id) {
		// A concurrent attempt for the identical payload is already underway;
		// this delivery is considered handled.
		c.metrics.Skipped.Inc()
		c.logger.Info("Duplicate message detected, skipping",
			"message_id", id,
			"inflight", c.inflight.Len())
		return outcomeSkipped, nil
	}
	defer c.inflight.Release(id)

	start := time.Now()
	c.logger.Info("Processing analysis message",
		"message_id", id,
		"payload_bytes", len(data))

	var payload analysisPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.metrics.Failed.WithLabelValues("parse").Inc()
		return outcomeUnprocessable, fmt.Errorf("%w: parse payload: %v", ErrUnprocessable, err)
	}
	if payload.Contract == nil || payload.UserID == nil || *payload.UserID <= 0 {
		c.metrics.Failed.WithLabelValues("parse").Inc()
		return outcomeUnprocessable, fmt.Errorf("%w: payload missing contract or userId", ErrUnprocessable)
	}
	contractText := *payload.Contract
	requesterID := *payload.UserID

	user, err := c.store.FindUserByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.metrics.Failed.WithLabelValues("resolve_user").Inc()
			return outcomeUnprocessable, fmt.Errorf("%w: unknown user %d", ErrUnprocessable, requesterID)
		}
		c.metrics.Failed.WithLabelValues("resolve_user").Inc()
		return outcomeFailed, fmt.Errorf("resolve user %d: %w", requesterID, err)
	}

	contractID, err := c.store.CreateContract(ctx, contractText, user.ID, PlaceholderTitle, storage.StatusPending)
	if err != nil {
		c.metrics.Failed.WithLabelValues("persist_pending").Inc()
		return outcomeFailed, fmt.Errorf("persist pending contract: %w", err)
	}
	c.logger.Info("Contract persisted",
		"message_id", id,
		"contract_id", contractID,
		"owner_id", user.ID,
		"status", storage.StatusPending)

	prompt, err := c.prompts.Analysis(contractText)
	if err != nil {
		c.metrics.Failed.WithLabelValues("build_prompt").Inc()
		return outcomeFailed, &AnalysisError{ContractID: contractID, err: err}
	}

	result, err := c.inference.Infer(ctx, prompt)
	if err != nil {
		// The PENDING row stays PENDING permanently; flagged, not cleaned up.
		c.metrics.Failed.WithLabelValues("infer").Inc()
		return outcomeFailed, &AnalysisError{ContractID: contractID, err: err}
	}

	analyzed := contractText + AnalysisDelimiter + result
	if err := c.store.UpdateContractAnalysis(ctx, contractID, analyzed, storage.StatusAnalyzed); err != nil {
		c.metrics.Failed.WithLabelValues("persist_analyzed").Inc()
		return outcomeFailed, &AnalysisError{ContractID: contractID, err: err}
	}

	c.metrics.Analyzed.Inc()
	c.logger.Info("Analysis completed",
		"message_id", id,
		"contract_id", contractID,
		"duration_ms", time.Since(start).Milliseconds())

	return outcomeAnalyzed, nil
}
