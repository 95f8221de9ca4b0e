package transcript

import (
	"errors"
	"testing"
	"time"

	"github.com/bnema/oneiro/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)

func msg(id string, sender domain.Sender, content string) domain.Message {
	return domain.Message{ID: id, DreamID: "dream-1", Sender: sender, Content: content, Timestamp: now}
}

func TestRenderSessionInProgress(t *testing.T) {
	session := domain.Session{
		Dream: domain.Dream{
			ID:        "dream-1",
			Text:      "I was walking through a lighthouse full of water",
			Status:    domain.DreamStatusInterpreting,
			CreatedAt: now.Add(-2 * time.Hour),
		},
		Messages: []domain.Message{
			msg("m1", domain.SenderUser, "I was walking through a lighthouse full of water"),
			msg("m2", domain.SenderAssistant, "How did the water feel?"),
			msg("m3", domain.SenderUser, "Cold but calm"),
			msg("m4", domain.SenderAssistant, "Who else was there?"),
		},
		Round: 2,
	}

	output, err := Render(session, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "Dream dream-1")
	assert.Contains(t, output, "status: interpreting")
	assert.Contains(t, output, "round 2/3")
	assert.Contains(t, output, "2 hours ago")
	assert.Contains(t, output, "? How did the water feel?")
	assert.Contains(t, output, "> Cold but calm")
	assert.Contains(t, output, "? Who else was there?")
	assert.NotContains(t, output, "> I was walking")
	assert.NotContains(t, output, "interpretation:")
	assert.NotContains(t, output, "offline")
}

func TestRenderCompletedSession(t *testing.T) {
	session := domain.Session{
		Dream: domain.Dream{ID: "dream-1", Text: "a lighthouse", Status: domain.DreamStatusCompleted},
		Messages: []domain.Message{
			msg("m1", domain.SenderUser, "a lighthouse"),
			msg("m2", domain.SenderAssistant, "Q1?"),
			msg("m3", domain.SenderUser, "A1"),
			msg("m4", domain.SenderAssistant, "Q2?"),
			msg("m5", domain.SenderUser, "A2"),
			msg("m6", domain.SenderAssistant, "Q3?"),
			msg("m7", domain.SenderUser, "A3"),
			msg("m8", domain.SenderAssistant, "The light is a need for guidance."),
		},
		Round:      4,
		IsComplete: true,
	}

	output, err := Render(session, RenderOptions{Now: now, Degraded: true})

	require.NoError(t, err)
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "offline")
	assert.Contains(t, output, "? Q3?")
	assert.Contains(t, output, "> A3")
	assert.Contains(t, output, "interpretation:")
	assert.Contains(t, output, "The light is a need for guidance.")
	assert.NotContains(t, output, "? The light")
}

func TestRenderShowsPersistenceWarnings(t *testing.T) {
	session := domain.Session{
		Dream:    domain.Dream{ID: "dream-1", Text: "a lighthouse", Status: domain.DreamStatusPending},
		Messages: []domain.Message{msg("m1", domain.SenderUser, "a lighthouse")},
	}
	warning := &domain.PersistenceWarning{DreamID: "dream-1", Op: "create", Err: errors.New("disk full")}

	output, err := Render(session, RenderOptions{Warnings: []*domain.PersistenceWarning{warning}})

	require.NoError(t, err)
	assert.Contains(t, output, "warning: persist dream dream-1 (create): disk full")
}

func TestRenderRecords(t *testing.T) {
	records := []domain.Record{
		{
			ID:        "dream-1",
			Text:      "a lighthouse",
			Status:    domain.DreamStatusCompleted,
			Answers:   []string{"a1", "a2", "a3"},
			CreatedAt: now.Add(-3 * 24 * time.Hour),
		},
		{
			ID:        "dream-2",
			Text:      "an endless staircase that kept folding into itself while I climbed",
			Status:    domain.DreamStatusPending,
			Degraded:  true,
			CreatedAt: now.Add(-30 * time.Second),
		},
	}

	output, err := RenderRecords(records, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "dreams: 2")
	assert.Contains(t, output, "[completed]")
	assert.Contains(t, output, "answers 3/3, 3 days ago")
	assert.Contains(t, output, "[pending]")
	assert.Contains(t, output, "...")
	assert.Contains(t, output, "just now, offline")
}

func TestRenderRecordsEmpty(t *testing.T) {
	output, err := RenderRecords(nil, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "dreams: 0")
	assert.Contains(t, output, "No dreams recorded.")
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		now  time.Time
		want string
	}{
		{name: "zero", want: "unknown"},
		{name: "no clock", at: now, want: "2026-03-14 11:00"},
		{name: "one minute", at: now.Add(-time.Minute), now: now, want: "1 minute ago"},
		{name: "hours", at: now.Add(-5 * time.Hour), now: now, want: "5 hours ago"},
		{name: "one day", at: now.Add(-25 * time.Hour), now: now, want: "1 day ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatAge(tt.at, tt.now))
		})
	}
}
