package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbditto85/eventide-go/internal/telemetry"
)

func newTestKafkaSink(t *testing.T) *telemetry.KafkaSink {
	t.Helper()
	// kgo.NewClient only dials brokers lazily on first produce/fetch, so an
	// unreachable seed address is fine for exercising construction and the
	// in-memory bookkeeping without a running broker.
	sink, err := telemetry.NewKafkaSink([]string{"127.0.0.1:0"}, "telemetry-audit")
	require.NoError(t, err)
	t.Cleanup(sink.Close)
	return sink
}

func TestKafkaSink_SatisfiesSinkInterface(t *testing.T) {
	var _ telemetry.Sink = newTestKafkaSink(t)
}

func TestNewKafkaSink_RequiresValidBrokerList(t *testing.T) {
	sink, err := telemetry.NewKafkaSink(nil, "telemetry-audit")
	require.Error(t, err)
	require.Nil(t, sink)
}

func TestKafkaSink_RecordTracksSignalInMemory(t *testing.T) {
	sink := newTestKafkaSink(t)

	assert.False(t, sink.Recorded("consumer.handler_error"))
	sink.Record("consumer.handler_error")
	assert.True(t, sink.Recorded("consumer.handler_error"))
}

func TestKafkaSink_RecordDataTracksPayloadInMemory(t *testing.T) {
	sink := newTestKafkaSink(t)

	sink.RecordData("consumer.iteration", uint64(3))

	data, ok := sink.DataRecorded("consumer.iteration")
	require.True(t, ok)
	assert.Equal(t, uint64(3), data)
}

func TestKafkaSink_RecordDataWithUnmarshalablePayloadStillRecordsInMemory(t *testing.T) {
	sink := newTestKafkaSink(t)

	unmarshalable := make(chan int)
	assert.NotPanics(t, func() {
		sink.RecordData("broken.payload", unmarshalable)
	})
	assert.True(t, sink.Recorded("broken.payload"))
}

func TestKafkaSink_CloseIsNilSafe(t *testing.T) {
	var nilSink *telemetry.KafkaSink
	assert.NotPanics(t, func() {
		nilSink.Close()
	})
}
