package telemetry_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbditto85/eventide-go/internal/observability"
	"github.com/sbditto85/eventide-go/internal/telemetry"
)

func TestPrometheusSink_SatisfiesSinkInterface(t *testing.T) {
	var _ telemetry.Sink = telemetry.NewPrometheusSink("test-category")
}

func TestPrometheusSink_RecordDataIncrementsIterationsCounter(t *testing.T) {
	before := testutil.ToFloat64(observability.ConsumerIterationsTotal.WithLabelValues("cat-iter"))

	sink := telemetry.NewPrometheusSink("cat-iter")
	sink.RecordData("consumer.iteration", uint64(1))

	after := testutil.ToFloat64(observability.ConsumerIterationsTotal.WithLabelValues("cat-iter"))
	assert.Equal(t, before+1, after)
}

func TestPrometheusSink_RecordIncrementsHandlerErrorCounter(t *testing.T) {
	before := testutil.ToFloat64(observability.ConsumerHandlerErrorsTotal.WithLabelValues("cat-err", ""))

	sink := telemetry.NewPrometheusSink("cat-err")
	sink.Record("consumer.handler_error")

	after := testutil.ToFloat64(observability.ConsumerHandlerErrorsTotal.WithLabelValues("cat-err", ""))
	assert.Equal(t, before+1, after)
}

func TestPrometheusSink_RecordDataAddsMessageCount(t *testing.T) {
	before := testutil.ToFloat64(observability.ConsumerMessagesHandledTotal.WithLabelValues("cat-msgs"))

	sink := telemetry.NewPrometheusSink("cat-msgs")
	sink.RecordData("get_messages_count", 5)

	after := testutil.ToFloat64(observability.ConsumerMessagesHandledTotal.WithLabelValues("cat-msgs"))
	assert.Equal(t, before+5, after)
}

func TestPrometheusSink_RecordIncrementsPositionStorePutCounter(t *testing.T) {
	before := testutil.ToFloat64(observability.PositionStorePutTotal.WithLabelValues("cat-put"))

	sink := telemetry.NewPrometheusSink("cat-put")
	sink.Record("put_count")

	after := testutil.ToFloat64(observability.PositionStorePutTotal.WithLabelValues("cat-put"))
	assert.Equal(t, before+1, after)
}

func TestPrometheusSink_UnknownSignalOnlyRecordedInMemory(t *testing.T) {
	sink := telemetry.NewPrometheusSink("cat-unknown")
	sink.Record("some.unrecognized.signal")

	assert.True(t, sink.Recorded("some.unrecognized.signal"))
}

func TestPrometheusSink_RecordedAndDataRecordedDelegateToInMemoryState(t *testing.T) {
	sink := telemetry.NewPrometheusSink("cat-delegate")
	require.False(t, sink.Recorded("consumer.iteration"))

	sink.RecordData("consumer.iteration", uint64(7))

	require.True(t, sink.Recorded("consumer.iteration"))
	data, ok := sink.DataRecorded("consumer.iteration")
	require.True(t, ok)
	assert.Equal(t, uint64(7), data)
}
