package screen

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_RunsInOrder(t *testing.T) {
	loop := NewLoop(8)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- loop.Run(ctx) }()

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		loop.Do(func() { got = append(got, i) })
	}
	loop.Sync()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}

	ran := false
	loop.Do(func() { ran = true })
	loop.Sync()
	assert.False(t, ran)
}

func TestLoop_DrivesScreen(t *testing.T) {
	loop := NewLoop(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	view := &recordingView{}
	done := make(chan struct{})
	loop.Do(func() {
		view.ShowResult("poodle", "81.00%")
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
	require.Equal(t, "poodle", view.snapshot().label)
}

func TestInline(t *testing.T) {
	ran := false
	Inline.Do(func() { ran = true })
	assert.True(t, ran)
}
