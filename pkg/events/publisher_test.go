package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/batch-slot-api/pkg/config"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherWritesPrefixedTopicWithTraceHeaders(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	writer := &recordingWriter{}
	publisher := newKafkaPublisher(writer, "scheduling.", zap.NewNop())
	err := publisher.Publish(ctx, Event{ID: "evt-1", Type: TypeBatchCommitted, AggregateID: "batch-1", Payload: map[string]string{"course_id": "c1"}})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "scheduling.batch.committed", msg.Topic)
	assert.Equal(t, []byte("batch-1"), msg.Key)

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "evt-1", decoded.ID)
	assert.False(t, decoded.OccurredAt.IsZero())

	extracted := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), msg))
	assert.Equal(t, traceID, extracted.TraceID())

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
}

func TestKafkaPublisherWrapsWriteErrors(t *testing.T) {
	writer := &recordingWriter{err: errors.New("broker down")}
	publisher := newKafkaPublisher(writer, "", zap.NewNop())
	err := publisher.Publish(context.Background(), Event{Type: TypeBatchDeleted, AggregateID: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch.deleted")
}

func TestNewPublisherWithoutBrokersIsNop(t *testing.T) {
	publisher := NewPublisher(config.KafkaConfig{}, nil)
	_, ok := publisher.(NopPublisher)
	assert.True(t, ok)
	assert.NoError(t, publisher.Publish(context.Background(), Event{Type: TypeBatchDeleted}))
}
