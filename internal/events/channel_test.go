package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_FIFOAndSequence(t *testing.T) {
	ch := NewChannel()
	require.NoError(t, ch.Push(KindPhaseStart, PhaseStart{Phase: "connecting"}))
	require.NoError(t, ch.Push(KindThought, Thought{Step: 1, Kind: ThoughtReasoning, Content: "x"}))
	require.NoError(t, ch.Push(KindComplete, Complete{Status: StatusSuccess}))

	var got []Event
	err := ch.Drain(context.Background(), func(ev Event) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, KindPhaseStart, got[0].Kind)
	assert.Equal(t, KindThought, got[1].Kind)
	assert.Equal(t, KindComplete, got[2].Kind)
	for i, ev := range got {
		assert.Equal(t, uint64(i+1), ev.Seq)
	}
}

func TestChannel_SingleTerminalEvent(t *testing.T) {
	ch := NewChannel()
	require.NoError(t, ch.Push(KindError, Error{Code: "llm_failed"}))
	assert.ErrorIs(t, ch.Push(KindComplete, Complete{}), ErrClosed)
	assert.ErrorIs(t, ch.Push(KindThought, Thought{}), ErrClosed)

	ev, err := ch.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, KindError, ev.Kind)

	_, err = ch.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestChannel_NextBlocksUntilPush(t *testing.T) {
	ch := NewChannel()
	result := make(chan Event, 1)

	go func() {
		ev, err := ch.Next(context.Background())
		if err == nil {
			result <- ev
		}
	}()

	select {
	case <-result:
		t.Fatal("Next returned before any push")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, ch.Push(KindResponse, Response{Text: "hello"}))

	select {
	case ev := <-result:
		assert.Equal(t, "hello", ev.Payload.(Response).Text)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after push")
	}
}

func TestChannel_NextHonoursContext(t *testing.T) {
	ch := NewChannel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := ch.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChannel_CancelMakesPushNoop(t *testing.T) {
	ch := NewChannel()
	require.NoError(t, ch.Push(KindThought, Thought{}))

	ch.Cancel()
	ch.Cancel()

	select {
	case <-ch.Done():
	default:
		t.Fatal("Done not closed after Cancel")
	}
	assert.True(t, ch.Cancelled())
	assert.ErrorIs(t, ch.Push(KindComplete, Complete{}), ErrCancelled)

	_, err := ch.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestChannel_CloseWithoutTerminal(t *testing.T) {
	ch := NewChannel()
	require.NoError(t, ch.Push(KindPhaseStart, PhaseStart{Phase: "deep_research"}))
	ch.Close()

	assert.ErrorIs(t, ch.Push(KindThought, Thought{}), ErrClosed)

	var kinds []Kind
	require.NoError(t, ch.Drain(context.Background(), func(ev Event) error {
		kinds = append(kinds, ev.Kind)
		return nil
	}))
	assert.Equal(t, []Kind{KindPhaseStart}, kinds)
}

func TestChannel_DrainStopsOnCallbackError(t *testing.T) {
	ch := NewChannel()
	require.NoError(t, ch.Push(KindThought, Thought{}))
	require.NoError(t, ch.Push(KindThought, Thought{}))

	errWrite := errors.New("write failed")
	calls := 0
	err := ch.Drain(context.Background(), func(Event) error {
		calls++
		return errWrite
	})
	assert.ErrorIs(t, err, errWrite)
	assert.Equal(t, 1, calls)
}

func TestChannel_ConcurrentProducerKeepsOrder(t *testing.T) {
	ch := NewChannel()
	const n = 500

	go func() {
		for i := 0; i < n; i++ {
			_ = ch.Push(KindResponse, Response{Text: fmt.Sprint(i)})
		}
		_ = ch.Push(KindComplete, Complete{})
	}()

	i := 0
	err := ch.Drain(context.Background(), func(ev Event) error {
		if ev.Kind == KindResponse {
			assert.Equal(t, fmt.Sprint(i), ev.Payload.(Response).Text)
			i++
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, n, i)
}

func TestChannel_IndependentInstances(t *testing.T) {
	a, b := NewChannel(), NewChannel()

	var wg sync.WaitGroup
	for _, pair := range []struct {
		ch   *Channel
		text string
	}{{a, "A"}, {b, "B"}} {
		wg.Add(1)
		go func(ch *Channel, text string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = ch.Push(KindResponse, Response{Text: text})
			}
			_ = ch.Push(KindComplete, Complete{RequestID: text})
		}(pair.ch, pair.text)
	}
	wg.Wait()

	for _, pair := range []struct {
		ch   *Channel
		text string
	}{{a, "A"}, {b, "B"}} {
		count := 0
		require.NoError(t, pair.ch.Drain(context.Background(), func(ev Event) error {
			switch p := ev.Payload.(type) {
			case Response:
				assert.Equal(t, pair.text, p.Text)
			case Complete:
				assert.Equal(t, pair.text, p.RequestID)
			}
			count++
			return nil
		}))
		assert.Equal(t, 101, count)
	}
}

func TestKind_Terminal(t *testing.T) {
	assert.True(t, KindComplete.Terminal())
	assert.True(t, KindError.Terminal())
	assert.False(t, KindThought.Terminal())
	assert.False(t, KindPhaseComplete.Terminal())
}
