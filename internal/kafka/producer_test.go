package kafka

import (
	"context"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestProducer_TryPublishDropsWhenBufferFull(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, 1, nil)

	assert.True(t, p.TryPublish([]byte("k1"), []byte("v1")))
	assert.False(t, p.TryPublish([]byte("k2"), []byte("v2")))

	p.Start()
	p.Close()

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "k1", string(w.msgs[0].Key))
	assert.True(t, w.closed)
}

func TestProducer_CloseFlushesBufferedMessages(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, 8, nil)
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, p.Publish(context.Background(), []byte(k), []byte("x")))
	}
	p.Start()
	p.Close()

	assert.Len(t, w.msgs, 3)
}

func TestProducer_PublishAfterClose(t *testing.T) {
	p := newProducer(&fakeWriter{}, 1, nil)
	p.Start()
	p.Close()

	assert.ErrorIs(t, p.Publish(context.Background(), nil, []byte("x")), ErrProducerClosed)
	assert.False(t, p.TryPublish(nil, []byte("x")))
}
