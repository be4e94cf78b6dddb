package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var ErrProducerClosed = errors.New("kafka producer closed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer buffers messages in memory and writes them from one goroutine.
// Callers never wait on the broker.
type Producer struct {
	w            messageWriter
	log          *zap.Logger
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	inbox  chan kafka.Message
	done   chan struct{}
}

func NewProducer(brokers []string, topic string, buf int, log *zap.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}, buf, log)
}

func newProducer(w messageWriter, buf int, log *zap.Logger) *Producer {
	if log == nil {
		log = zap.NewNop()
	}
	if buf <= 0 {
		buf = 1
	}
	return &Producer{
		w:            w,
		log:          log,
		writeTimeout: 10 * time.Second,
		inbox:        make(chan kafka.Message, buf),
		done:         make(chan struct{}),
	}
}

// Start runs the writer loop until Close.
func (p *Producer) Start() {
	go func() {
		defer close(p.done)
		for m := range p.inbox {
			ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
			if err := p.w.WriteMessages(ctx, m); err != nil {
				p.log.Error("kafka write failed", zap.ByteString("key", m.Key), zap.Error(err))
			}
			cancel()
		}
		if err := p.w.Close(); err != nil {
			p.log.Warn("kafka writer close", zap.Error(err))
		}
	}()
}

// Publish enqueues a message, waiting for buffer space until ctx is done.
func (p *Producer) Publish(ctx context.Context, key, value []byte, headers ...kafka.Header) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}
	select {
	case p.inbox <- message(key, value, headers):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPublish enqueues a message only if the buffer has room. It reports
// whether the message was accepted.
func (p *Producer) TryPublish(key, value []byte, headers ...kafka.Header) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.inbox <- message(key, value, headers):
		return true
	default:
		return false
	}
}

// Close stops accepting messages, flushes what is buffered and waits for the
// writer to shut down. Start must have been called.
func (p *Producer) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
	p.mu.Unlock()
	<-p.done
}

func message(key, value []byte, headers []kafka.Header) kafka.Message {
	return kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}
}
