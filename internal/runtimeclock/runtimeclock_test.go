package runtimeclock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sbditto85/eventide-go/internal/runtimeclock"
)

func TestSubstituteRunTime_AllowsExactlyRunLimitIterations(t *testing.T) {
	rt := runtimeclock.NewSubstituteRunTime(3)

	assert.True(t, rt.ShouldContinue())
	assert.True(t, rt.ShouldContinue())
	assert.True(t, rt.ShouldContinue())
	assert.False(t, rt.ShouldContinue())
	assert.False(t, rt.ShouldContinue())
}

func TestSubstituteRunTime_ZeroRunLimitNeverContinues(t *testing.T) {
	rt := runtimeclock.NewSubstituteRunTime(0)

	assert.False(t, rt.ShouldContinue())
}

func TestSubstituteRunTime_SleepDoesNotBlockAndIsCounted(t *testing.T) {
	rt := runtimeclock.NewSubstituteRunTime(1)

	start := time.Now()
	rt.Sleep(time.Hour)
	rt.Sleep(time.Hour)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, uint64(2), rt.SleepCount())
}

func TestSystemRunTime_ShouldContinueAlwaysTrue(t *testing.T) {
	rt := runtimeclock.NewSystemRunTime()

	assert.True(t, rt.ShouldContinue())
	assert.True(t, rt.ShouldContinue())
}

func TestSystemRunTime_SleepActuallyBlocks(t *testing.T) {
	rt := runtimeclock.NewSystemRunTime()

	start := time.Now()
	rt.Sleep(20 * time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSystemRunTime_SleepZeroOrNegativeReturnsImmediately(t *testing.T) {
	rt := runtimeclock.NewSystemRunTime()

	start := time.Now()
	rt.Sleep(0)
	rt.Sleep(-time.Second)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestSystemRunTime_SetRunLimitExhaustsAfterBudgetConsumed(t *testing.T) {
	rt := runtimeclock.NewSystemRunTime()
	rt.SetRunLimit(15 * time.Millisecond)

	assert.True(t, rt.ShouldContinue())
	rt.Sleep(10 * time.Millisecond)
	assert.True(t, rt.ShouldContinue())
	rt.Sleep(10 * time.Millisecond)
	assert.False(t, rt.ShouldContinue())
}

func TestSystemRunTime_SetRunLimitNonPositiveClearsLimit(t *testing.T) {
	rt := runtimeclock.NewSystemRunTime()
	rt.SetRunLimit(5 * time.Millisecond)
	rt.SetRunLimit(0)

	rt.Sleep(10 * time.Millisecond)
	assert.True(t, rt.ShouldContinue())
}
