package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
	"github.com/mockielts/mockielts-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_InProcessRoundTrip(t *testing.T) {
	pub, ch, err := NewPublisher(PublisherConfig{Topic: "events"}, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, ch)
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	messages, err := ch.Subscribe(ctx, "events")
	require.NoError(t, err)

	completed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	attempt := model.Attempt{ID: uuid.New(), TestID: uuid.New(), UserID: "user-1"}
	res := model.SectionResult{
		AttemptID: attempt.ID,
		Section:   model.SectionReading,
		Trigger:   model.TriggerExpired,
		Graded:    &model.TestResult{RawScore: 30, Score: 7.0, TimeSpent: 3600, CompletedAt: completed},
	}
	event := NewSectionSubmitted(attempt, res)
	require.NoError(t, pub.Publish(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, string(EventSectionSubmitted), msg.Metadata.Get("event_type"))

		var got struct {
			Type EventType             `json:"type"`
			Data SectionSubmittedEvent `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, EventSectionSubmitted, got.Type)
		assert.Equal(t, "user-1", got.Data.UserID)
		assert.Equal(t, model.TriggerExpired, got.Data.Trigger)
		require.NotNil(t, got.Data.BandScore)
		assert.Equal(t, 7.0, *got.Data.BandScore)
		assert.Equal(t, 3600, got.Data.TimeSpent)
	case <-ctx.Done():
		t.Fatal("event not delivered")
	}
}

func TestNewAttemptCompleted(t *testing.T) {
	band := 6.5
	attempt := model.Attempt{ID: uuid.New(), TestID: uuid.New(), UserID: "u"}
	result := model.AttemptResult{
		Sections: []model.SectionResult{
			{Section: model.SectionListening},
			{Section: model.SectionWriting},
		},
		OverallBand: &band,
	}
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("WIB", 7*3600))

	event := NewAttemptCompleted(attempt, result, at)

	assert.Equal(t, EventAttemptCompleted, event.Type)
	assert.Equal(t, time.UTC, event.Timestamp.Location())
	data, ok := event.Data.(AttemptCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, []model.SectionKind{model.SectionListening, model.SectionWriting}, data.Sections)
	assert.Equal(t, &band, data.OverallBand)
}

func TestLoggerAdapter(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewLoggerAdapter(zerolog.New(&buf)).With(watermill.LogFields{"topic": "events"})

	adapter.Error("publish failed", errors.New("boom"), watermill.LogFields{"attempt": 2})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "events", line["topic"])
	assert.Equal(t, float64(2), line["attempt"])
	assert.Equal(t, "publish failed", line["message"])
}
