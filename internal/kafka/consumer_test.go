package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu      sync.Mutex
	pending []kafka.Message
	commits []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		m := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.commits = append(r.commits, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) committed() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.commits...)
}

func runConsumer(t *testing.T, c *Consumer, h Handler, until func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()

	require.Eventually(t, until, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestConsumer_RetriesFailedMessage(t *testing.T) {
	r := &fakeReader{pending: []kafka.Message{{Offset: 0}, {Offset: 1}, {Offset: 2}}}
	c := newConsumer(r, 2, nil)
	c.backoff = time.Millisecond

	var mu sync.Mutex
	calls := map[int64]int{}
	h := func(_ context.Context, m kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		calls[m.Offset]++
		if m.Offset == 1 && calls[1] < 3 {
			return errors.New("sms gateway timeout")
		}
		return nil
	}

	runConsumer(t, c, h, func() bool { return len(r.committed()) == 3 })
	assert.ElementsMatch(t, []int64{0, 1, 2}, r.committed())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, calls[1])
	assert.Equal(t, 1, calls[0])
}

func TestConsumer_GivesUpAfterLastAttempt(t *testing.T) {
	r := &fakeReader{pending: []kafka.Message{{Offset: 0}, {Offset: 1}}}
	c := newConsumer(r, 1, nil)
	c.backoff = time.Millisecond

	var mu sync.Mutex
	failures := 0
	h := func(_ context.Context, m kafka.Message) error {
		if m.Offset == 0 {
			mu.Lock()
			defer mu.Unlock()
			failures++
			return errors.New("boom")
		}
		return nil
	}

	runConsumer(t, c, h, func() bool { return len(r.committed()) == 2 })
	assert.Equal(t, []int64{0, 1}, r.committed())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, defaultAttempts, failures)
}

func TestConsumer_KeepsPartitionOrder(t *testing.T) {
	var pending []kafka.Message
	for off := int64(0); off < 20; off++ {
		pending = append(pending, kafka.Message{Partition: int(off % 3), Offset: off})
	}
	r := &fakeReader{pending: pending}
	c := newConsumer(r, 4, nil)

	var mu sync.Mutex
	seen := map[int][]int64{}
	h := func(_ context.Context, m kafka.Message) error {
		if m.Offset%5 == 0 {
			time.Sleep(2 * time.Millisecond) // let other lanes run ahead
		}
		mu.Lock()
		defer mu.Unlock()
		seen[m.Partition] = append(seen[m.Partition], m.Offset)
		return nil
	}

	runConsumer(t, c, h, func() bool { return len(r.committed()) == 20 })
	mu.Lock()
	defer mu.Unlock()
	for p, offsets := range seen {
		assert.IsIncreasing(t, offsets, "partition %d", p)
	}
}
