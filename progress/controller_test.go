package progress

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerCancel(t *testing.T) {
	c := NewController(context.Background())
	assert.False(t, c.Cancelled())
	assert.NoError(t, c.Cause())

	c.Cancel(nil)
	c.Cancel(errors.New("ignored"))

	assert.True(t, c.Cancelled())
	assert.ErrorIs(t, c.Cause(), ErrCancelled)
	<-c.Context().Done()
}

func TestControllerParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	c := NewController(parent)
	cancel()

	assert.True(t, c.Cancelled())
	assert.ErrorIs(t, c.Cause(), context.Canceled)
}

func TestControllerReleaseRunsOnceInReverse(t *testing.T) {
	c := NewController(context.Background())

	var order []string
	var mu sync.Mutex
	record := func(name string) func() error {
		return func() error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}
	c.OnRelease("source", record("source"))
	c.OnRelease("encoder", record("encoder"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Release())
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"encoder", "source"}, order)
	assert.True(t, c.Released())
	assert.True(t, c.Cancelled(), "release ends the run context")

	c.OnRelease("late", record("late"))
	assert.Equal(t, []string{"encoder", "source", "late"}, order)
}

func TestControllerReleaseJoinsErrors(t *testing.T) {
	c := NewController(context.Background())
	errA := errors.New("a")
	errB := errors.New("b")
	c.OnRelease("a", func() error { return errA })
	c.OnRelease("ok", func() error { return nil })
	c.OnRelease("b", func() error { return errB })

	err := c.Release()
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Equal(t, err, c.Release())
}
