package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type recordingPublisher struct {
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event Event) error {
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestKafkaPublisher_Publish(t *testing.T) {
	writer := &fakeWriter{}
	p := &KafkaPublisher{writer: writer}
	rating := 4.5

	err := p.Publish(context.Background(), Event{
		Type:         MenuItemRated,
		RestaurantID: 7,
		MenuItemID:   3,
		UserID:       1,
		Username:     "alice",
		Rating:       &rating,
		Timestamp:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "7", string(msg.Key))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "menu_item.rated", decoded["type"])
	assert.Equal(t, 4.5, decoded["rating"])
	assert.Equal(t, "alice", decoded["username"])
	assert.NotContains(t, decoded, "target_user_id")

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	p := &KafkaPublisher{writer: writer}

	err := p.Publish(context.Background(), Event{Type: RestaurantShared})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restaurant.shared")
}

func TestMulti_PublishesToEverySink(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("sink failed")}
	ok := &recordingPublisher{}
	m := Multi{failing, ok}

	err := m.Publish(context.Background(), Event{Type: MenuItemAnnotated})
	require.Error(t, err)
	assert.Len(t, failing.events, 1)
	assert.Len(t, ok.events, 1)
	assert.NoError(t, m.Close())
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	assert.NoError(t, p.Close())
}
