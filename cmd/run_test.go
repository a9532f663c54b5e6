package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitReleased(t *testing.T) chan struct{} {
	t.Helper()
	released := make(chan struct{})
	original := signalsReleased
	signalsReleased = func() { close(released) }
	t.Cleanup(func() { signalsReleased = original })
	return released
}

func TestInterruptContext_ReleasesSignalsAfterFirst(t *testing.T) {
	released := waitReleased(t)

	// Keep SIGUSR1 from terminating the test binary once default handling is back.
	guard := make(chan os.Signal, 2)
	signal.Notify(guard, syscall.SIGUSR1)
	defer signal.Stop(guard)

	ctx, stop := interruptContext(context.Background(), syscall.SIGUSR1)
	defer stop()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not cancelled by the signal")
	}
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatal("signal handling was not released after cancellation")
	}
}

func TestInterruptContext_ParentCancellation(t *testing.T) {
	released := waitReleased(t)

	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := interruptContext(parent, syscall.SIGUSR2)
	defer stop()

	cancel()

	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatal("signal handling was not released after parent cancellation")
	}
	assert.Error(t, ctx.Err())
}
