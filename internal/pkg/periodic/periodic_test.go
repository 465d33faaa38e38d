package periodic

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunner_RunsImmediatelyThenOnInterval(t *testing.T) {
	var calls atomic.Int32
	r := New(Config{Name: "test", Interval: 10 * time.Millisecond}, func(context.Context) {
		calls.Add(1)
	})

	r.Start(context.Background())
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	r.Stop()

	stopped := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load(), "no runs after Stop")
}

func TestRunner_InitialDelay(t *testing.T) {
	var calls atomic.Int32
	r := New(Config{Name: "test", Interval: time.Hour, InitialDelay: 50 * time.Millisecond}, func(context.Context) {
		calls.Add(1)
	})

	r.Start(context.Background())
	defer r.Stop()

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRunner_StopCancelsJobContext(t *testing.T) {
	started := make(chan struct{})
	var cancelled atomic.Bool
	r := New(Config{Name: "test", Interval: time.Hour}, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
	})

	r.Start(context.Background())
	<-started
	r.Stop()
	r.Stop()
	assert.True(t, cancelled.Load())
}
