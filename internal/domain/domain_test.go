package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDreamValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dream   Dream
		wantErr string
	}{
		{
			name:  "valid",
			dream: Dream{ID: "d-1", Text: "I saw water", Status: DreamStatusPending},
		},
		{
			name:    "missing id",
			dream:   Dream{Text: "I saw water", Status: DreamStatusPending},
			wantErr: "id is required",
		},
		{
			name:    "blank text",
			dream:   Dream{ID: "d-1", Text: "   ", Status: DreamStatusPending},
			wantErr: "dream text is required",
		},
		{
			name:    "unknown status",
			dream:   Dream{ID: "d-1", Text: "I saw water", Status: "archived"},
			wantErr: "unsupported status",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.dream.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestIsFinalRoundBoundary(t *testing.T) {
	tests := []struct {
		round int
		want  bool
	}{
		{round: 1, want: false},
		{round: 2, want: false},
		{round: 3, want: false},
		{round: 4, want: true},
		{round: 5, want: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("round %d", tt.round), func(t *testing.T) {
			assert.Equal(t, tt.want, IsFinalRound(tt.round))
		})
	}
}

func TestSessionCloneDoesNotShareMessages(t *testing.T) {
	original := Session{Messages: []Message{{ID: "m-1", Content: "dream"}}, Round: 1}

	clone := original.Clone()
	clone.Messages[0].Content = "changed"
	clone.Messages = append(clone.Messages, Message{ID: "m-2"})

	assert.Equal(t, "dream", original.Messages[0].Content)
	assert.Len(t, original.Messages, 1)
}

func TestRecordPatchApplyIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	patch := RecordPatch{
		Status:    StatusPtr(DreamStatusInterpreting),
		Questions: []string{"What colour was the water?"},
	}
	record := Record{ID: "d-1", Status: DreamStatusPending, CreatedAt: now}

	require.True(t, patch.Apply(&record))
	once := record

	assert.False(t, patch.Apply(&record))
	assert.Equal(t, once, record)
}

func TestRecordPatchApplyNeverMovesStatusBackwards(t *testing.T) {
	record := Record{Status: DreamStatusCompleted}

	changed := RecordPatch{Status: StatusPtr(DreamStatusInterpreting)}.Apply(&record)

	assert.False(t, changed)
	assert.Equal(t, DreamStatusCompleted, record.Status)
}

func TestRecordPatchApplyCopiesSlices(t *testing.T) {
	answers := []string{"calm"}
	record := Record{}

	RecordPatch{Answers: answers}.Apply(&record)
	answers[0] = "stormy"

	assert.Equal(t, []string{"calm"}, record.Answers)
}

func TestRecordPatchNewRecordSeedsFields(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	patch := RecordPatch{
		OwnerID: "user-1",
		Text:    "I saw water and a mountain",
		Status:  StatusPtr(DreamStatusPending),
	}

	record := patch.NewRecord("d-1", now)

	assert.Equal(t, DreamID("d-1"), record.ID)
	assert.Equal(t, UserID("user-1"), record.OwnerID)
	assert.Equal(t, DreamStatusPending, record.Status)
	assert.Equal(t, now, record.CreatedAt)
	assert.Equal(t, now, record.UpdatedAt)
}

func TestRecordPatchSeedFieldsOnlyApplyOnInsert(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	record := Record{ID: "d-1", OwnerID: "user-1", Text: "falling", Status: DreamStatusInterpreting, CreatedAt: created}

	changed := RecordPatch{OwnerID: "user-2", Text: "flying", CreatedAt: created.Add(time.Hour)}.Apply(&record)

	assert.False(t, changed)
	assert.Equal(t, UserID("user-1"), record.OwnerID)
	assert.Equal(t, "falling", record.Text)
	assert.Equal(t, created, record.CreatedAt)
}

func TestRecordPatchPendingTurn(t *testing.T) {
	record := Record{ID: "d-1"}

	require.True(t, RecordPatch{Pending: &PendingTurn{Answer: "calm", Posted: true, Strikes: 1}}.Apply(&record))
	assert.Equal(t, PendingTurn{Answer: "calm", Posted: true, Strikes: 1}, record.Pending)
	assert.False(t, record.Pending.IsZero())

	require.True(t, RecordPatch{Pending: &PendingTurn{}}.Apply(&record))
	assert.True(t, record.Pending.IsZero())
	assert.False(t, RecordPatch{Pending: &PendingTurn{}}.Apply(&record))
}

func TestRunStatusTerminal(t *testing.T) {
	for _, status := range []RunStatus{RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired, RunStatusIncomplete} {
		assert.True(t, status.Terminal(), status)
	}
	for _, status := range []RunStatus{RunStatusQueued, RunStatusInProgress, "requires_action"} {
		assert.False(t, status.Terminal(), status)
	}
}

func TestServiceFailureTaxonomy(t *testing.T) {
	assert.True(t, IsServiceFailure(ErrPollTimeout))
	assert.True(t, IsServiceFailure(ErrNoResponse))
	assert.True(t, IsServiceFailure(fmt.Errorf("post message: %w", ErrServiceUnavailable)))
	assert.False(t, IsServiceFailure(ErrInvalidState))

	cause := errors.New("disk full")
	var err error = &PersistenceWarning{DreamID: "d-1", Op: "update", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "d-1")
}
