package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contratai/contratai/queue"
)

func startJetStream(t *testing.T) jetstream.JetStream {
	t.Helper()

	opts := &server.Options{
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	}
	ns, err := server.NewServer(opts)
	require.NoError(t, err)

	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second), "embedded NATS failed to start")
	t.Cleanup(ns.Shutdown)

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	js, err := jetstream.New(nc)
	require.NoError(t, err)
	return js
}

func TestSubmitForAnalysis(t *testing.T) {
	ctx := context.Background()
	js := startJetStream(t)

	stream, err := queue.EnsureStream(ctx, js)
	require.NoError(t, err)

	p := queue.NewPublisher(js, nil)
	require.NoError(t, p.SubmitForAnalysis(ctx, "Cláusula 1...", 7))

	info, err := stream.Info(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), info.State.Msgs)

	// The stored message body is the wire-format analysis request.
	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		AckPolicy: jetstream.AckExplicitPolicy,
	})
	require.NoError(t, err)

	msgs, err := consumer.Fetch(1, jetstream.FetchMaxWait(2*time.Second))
	require.NoError(t, err)
	for msg := range msgs.Messages() {
		assert.Equal(t, queue.SubjectAnalysisRequest, msg.Subject())
		assert.JSONEq(t, `{"contract":"Cláusula 1...","userId":7}`, string(msg.Data()))
		require.NoError(t, msg.Ack())
	}
	require.NoError(t, msgs.Error())
}

func TestSubmitForAnalysis_MissingRequester(t *testing.T) {
	js := startJetStream(t)
	p := queue.NewPublisher(js, nil)

	for _, id := range []int64{0, -1} {
		err := p.SubmitForAnalysis(context.Background(), "text", id)
		assert.ErrorIs(t, err, queue.ErrMissingRequester)
	}
}

func TestSubmitForAnalysis_NoStream(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Without a stream bound to the subject, publish gets no ack and the
	// error surfaces as an EnqueueError.
	js := startJetStream(t)
	p := queue.NewPublisher(js, nil)

	err := p.SubmitForAnalysis(ctx, "text", 7)
	require.Error(t, err)
	var enqueueErr *queue.EnqueueError
	assert.ErrorAs(t, err, &enqueueErr)
}

func TestEnsureStream_Idempotent(t *testing.T) {
	ctx := context.Background()
	js := startJetStream(t)

	_, err := queue.EnsureStream(ctx, js)
	require.NoError(t, err)
	_, err = queue.EnsureStream(ctx, js)
	require.NoError(t, err)
}
