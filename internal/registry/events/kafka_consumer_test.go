package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// fakeReader replays msgs, then blocks until the context is cancelled.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		msg := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	ev := entryEvent()
	value, err := json.Marshal(ev)
	require.NoError(t, err)

	reader := &fakeReader{msgs: []kafka.Message{
		{Value: []byte("not json")},
		{Value: value},
	}}
	core, recorded := observer.New(zap.ErrorLevel)
	consumer := newConsumer(reader, zap.New(core))

	handled := make(chan Event, 1)
	consumer.RegisterHandler(func(_ context.Context, got Event) error {
		handled <- got
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	consumer.Start(ctx)

	select {
	case got := <-handled:
		assert.Equal(t, EntryAppended, got.Type)
		assert.Equal(t, ev.Entry.ID, got.Entry.ID)
	case <-time.After(time.Second):
		t.Fatal("event was not handled")
	}

	assert.Eventually(t, func() bool { return reader.commits() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, recorded.FilterMessage("Failed to parse event").Len())

	cancel()
	<-consumer.Done()
	consumer.Close()
	assert.True(t, reader.closed)
}

func TestConsumer_HandlerErrorSkipsCommit(t *testing.T) {
	value, err := json.Marshal(entryEvent())
	require.NoError(t, err)

	reader := &fakeReader{msgs: []kafka.Message{{Value: value}}}
	consumer := newConsumer(reader, zaptest.NewLogger(t))

	called := make(chan struct{}, 1)
	consumer.RegisterHandler(func(context.Context, Event) error {
		called <- struct{}{}
		return errors.New("mail provider down")
	})

	ctx, cancel := context.WithCancel(context.Background())
	consumer.Start(ctx)
	<-called
	cancel()
	<-consumer.Done()

	assert.Equal(t, 0, reader.commits())
}
