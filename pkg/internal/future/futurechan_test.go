package future

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// RunWithTimeout runs a test function with a timeout.
func RunWithTimeout(t *testing.T, timeout time.Duration, testFunc func()) {
	done := make(chan bool)

	go func() {
		testFunc()
		done <- true
	}()

	select {
	case <-done:
		// Test completed before timeout.
	case <-time.After(timeout):
		t.Fatal("Test timed out")
	}
}

func TestCompleteOnce(t *testing.T) {
	RunWithTimeout(t, time.Second, func() {
		f := NewChan[int]()
		f.Complete(10)
		f.Complete(11)
		assert.Equal(t, 10, f.Get())
		assert.Equal(t, 10, f.Get())
	})
}

func TestChan_Get(t *testing.T) {
	RunWithTimeout(t, time.Second, func() {
		f := NewChan[int]()
		go func() { time.Sleep(time.Millisecond * 100); f.Complete(10) }()
		assert.Equal(t, 10, f.Get())
	})
}

func TestChan_Await(t *testing.T) {
	RunWithTimeout(t, time.Second, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := NewChan[int]().Await(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		v, err := NewChan[string]().Complete("ok").Await(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, "ok", v)
	})
}
