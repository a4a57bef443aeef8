package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type intBlock int

func (b intBlock) SampleCount() int { return int(b) }

func TestQueueConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sizes := rapid.SliceOfN(rapid.IntRange(0, 64), 0, 20).Draw(t, "sizes")
		q := New[intBlock](0)

		want := 0
		for _, s := range sizes {
			q.Push(intBlock(s))
			want += s
			assert.Equal(t, want, q.QueuedSamples())
		}

		for range sizes {
			b, ok := q.Pull()
			require.True(t, ok)
			want -= int(b)
			assert.Equal(t, want, q.QueuedSamples())
		}
	})
}

func TestQueueEndOfStreamDrainsThenReportsEnd(t *testing.T) {
	q := New[intBlock](0)
	q.Push(intBlock(3))
	q.Push(intBlock(5))
	q.Close()

	b, ok := q.Pull()
	require.True(t, ok)
	assert.EqualValues(t, 3, b)

	b, ok = q.Pull()
	require.True(t, ok)
	assert.EqualValues(t, 5, b)

	_, ok = q.Pull()
	assert.False(t, ok)
}

func TestWaitUntilAtLeastUnblocksOnFill(t *testing.T) {
	q := New[intBlock](0)
	done := make(chan struct{})

	go func() {
		q.WaitUntilAtLeast(10)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitUntilAtLeast returned before fill level was reached")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push(intBlock(10))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitUntilAtLeast did not unblock after fill level was reached")
	}
}

func TestWaitUntilAtLeastUnblocksOnClose(t *testing.T) {
	q := New[intBlock](0)
	done := make(chan struct{})

	go func() {
		q.WaitUntilAtLeast(10)
		close(done)
	}()

	q.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitUntilAtLeast did not unblock on close")
	}
}

func TestPushBlocksAtCapacity(t *testing.T) {
	q := New[intBlock](10)
	q.Push(intBlock(10))

	pushed := make(chan struct{})
	go func() {
		q.Push(intBlock(1))
		close(pushed)
	}()

	select {
	case <-pushed:
		t.Fatal("Push did not block at capacity")
	case <-time.After(20 * time.Millisecond):
	}

	q.Pull()

	select {
	case <-pushed:
	case <-time.After(time.Second):
		t.Fatal("Push did not unblock once capacity freed")
	}
}
