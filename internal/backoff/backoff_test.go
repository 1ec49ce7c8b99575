package backoff_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sbditto85/eventide-go/internal/backoff"
)

func TestConstant_AlwaysReturnsConfiguredDuration(t *testing.T) {
	c := backoff.NewConstant(50 * time.Millisecond)

	assert.Equal(t, 50*time.Millisecond, c.Duration(0))
	assert.Equal(t, 50*time.Millisecond, c.Duration(1))
	assert.Equal(t, 50*time.Millisecond, c.Duration(1000))
}

func TestOnNoMessageCount_ZeroWhenMessagesHandled(t *testing.T) {
	o := backoff.NewOnNoMessageCount(100 * time.Millisecond)

	assert.Equal(t, time.Duration(0), o.Duration(1))
	assert.Equal(t, time.Duration(0), o.Duration(42))
}

func TestOnNoMessageCount_ConfiguredDurationWhenIdle(t *testing.T) {
	o := backoff.NewOnNoMessageCount(100 * time.Millisecond)

	assert.Equal(t, 100*time.Millisecond, o.Duration(0))
}

func TestBackOff_InterfaceSatisfiedByBothImplementations(t *testing.T) {
	var implementations = []backoff.BackOff{
		backoff.NewConstant(time.Second),
		backoff.NewOnNoMessageCount(time.Second),
	}

	for _, b := range implementations {
		assert.NotPanics(t, func() {
			b.Duration(0)
		})
	}
}
