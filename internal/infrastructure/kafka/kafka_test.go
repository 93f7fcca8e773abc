package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/example/room-sessions/internal/command"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

// scriptedReader returns its messages in order, then blocks until ctx ends.
type scriptedReader struct {
	msgs []kafka.Message
	errs []error
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return kafka.Message{}, err
	}
	if len(r.msgs) > 0 {
		msg := r.msgs[0]
		r.msgs = r.msgs[1:]
		return msg, nil
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *scriptedReader) Close() error { return nil }

var stamp = time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)

func TestProducer_PublishKeysByRoom(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{writer: w}
	events := []command.Event{
		{ID: "e1", Name: "joinedRoom", RoomID: "room-1", Timestamp: stamp},
		{ID: "e2", Name: "storyAdded", RoomID: "room-1", Timestamp: stamp},
	}

	require.NoError(t, p.Publish(context.Background(), events))

	require.Len(t, w.msgs, 2)
	for i, msg := range w.msgs {
		assert.Equal(t, "room-1", string(msg.Key))
		assert.Equal(t, stamp, msg.Time)
		assert.Equal(t, []kafka.Header{{Key: headerEventName, Value: []byte(events[i].Name)}}, msg.Headers)

		var decoded command.Event
		require.NoError(t, json.Unmarshal(msg.Value, &decoded))
		assert.Equal(t, events[i].ID, decoded.ID)
	}
}

func TestProducer_PublishNothing(t *testing.T) {
	w := &recordingWriter{err: errors.New("must not be called")}
	p := &Producer{writer: w}

	assert.NoError(t, p.Publish(context.Background(), nil))
}

func TestProducer_PublishError(t *testing.T) {
	p := &Producer{writer: &recordingWriter{err: errors.New("leader not available")}}

	err := p.Publish(context.Background(), []command.Event{{Name: "joinedRoom", RoomID: "room-1"}})

	assert.ErrorContains(t, err, "leader not available")
}

func TestProducer_Close(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{writer: w}

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestConsumer_Consume(t *testing.T) {
	good, err := json.Marshal(command.Event{ID: "e1", Name: "joinedRoom", RoomID: "room-1"})
	require.NoError(t, err)
	other, err := json.Marshal(command.Event{ID: "e2", Name: "storyAdded", RoomID: "room-1"})
	require.NoError(t, err)

	c := &Consumer{
		reader: &scriptedReader{
			errs: []error{errors.New("temporary hiccup")},
			msgs: []kafka.Message{{Value: good}, {Value: []byte("{not json")}, {Value: other}},
		},
		logger: zap.NewNop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	var got []string
	err = c.Consume(ctx, func(ctx context.Context, evt command.Event) error {
		got = append(got, evt.ID)
		if len(got) == 2 {
			cancel()
		}
		return errors.New("handler errors are logged, not fatal")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"e1", "e2"}, got)
}
