package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bnema/oneiro/internal/domain"
	"github.com/bnema/oneiro/internal/ports/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSynchronizerInsertsThenUpdates(t *testing.T) {
	repo := newMemoryDreamRepository()
	synchronizer := NewSynchronizer(repo, fixedClock{now: testNow}, zerolog.Nop())
	ctx := context.Background()

	err := synchronizer.Upsert(ctx, "dream-1", domain.RecordPatch{
		OwnerID: "user-1",
		Text:    "a lighthouse",
		Status:  domain.StatusPtr(domain.DreamStatusPending),
	})
	require.NoError(t, err)

	err = synchronizer.Upsert(ctx, "dream-1", domain.RecordPatch{
		Status:    domain.StatusPtr(domain.DreamStatusInterpreting),
		Questions: []string{"Q1?"},
	})
	require.NoError(t, err)

	record, err := synchronizer.Load(ctx, "dream-1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.inserts)
	assert.Equal(t, 1, repo.updates)
	assert.Equal(t, domain.DreamStatusInterpreting, record.Status)
	assert.Equal(t, []string{"Q1?"}, record.Questions)
	assert.Equal(t, "a lighthouse", record.Text)
	assert.Equal(t, testNow, record.CreatedAt)
}

func TestSynchronizerUpsertIsIdempotent(t *testing.T) {
	repo := newMemoryDreamRepository()
	clock := mocks.NewMockClock(t)
	clock.EXPECT().Now().Return(testNow).Once()
	clock.EXPECT().Now().Return(testNow.Add(time.Minute))
	synchronizer := NewSynchronizer(repo, clock, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, synchronizer.Upsert(ctx, "dream-1", domain.RecordPatch{OwnerID: "user-1", Text: "a lighthouse"}))

	patch := domain.RecordPatch{
		Status:         domain.StatusPtr(domain.DreamStatusCompleted),
		Answers:        []string{"a1", "a2", "a3"},
		Interpretation: domain.StringPtr("the light is guidance"),
	}
	require.NoError(t, synchronizer.Upsert(ctx, "dream-1", patch))
	once, err := synchronizer.Load(ctx, "dream-1")
	require.NoError(t, err)

	require.NoError(t, synchronizer.Upsert(ctx, "dream-1", patch))
	twice, err := synchronizer.Load(ctx, "dream-1")
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, 1, repo.updates)
}

func TestSynchronizerNeverMovesStatusBackwards(t *testing.T) {
	repo := newMemoryDreamRepository()
	synchronizer := NewSynchronizer(repo, fixedClock{now: testNow}, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, synchronizer.Upsert(ctx, "dream-1", domain.RecordPatch{Text: "x", Status: domain.StatusPtr(domain.DreamStatusCompleted)}))
	require.NoError(t, synchronizer.Upsert(ctx, "dream-1", domain.RecordPatch{Status: domain.StatusPtr(domain.DreamStatusInterpreting)}))

	record, err := synchronizer.Load(ctx, "dream-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DreamStatusCompleted, record.Status)
	assert.Zero(t, repo.updates)
}

func TestSynchronizerFallsBackToUpdateWhenInsertRaces(t *testing.T) {
	repo := mocks.NewMockDreamRepository(t)
	synchronizer := NewSynchronizer(repo, fixedClock{now: testNow}, zerolog.Nop())

	existing := domain.Record{ID: "dream-1", Text: "a lighthouse", Status: domain.DreamStatusPending}
	repo.EXPECT().GetByID(mockAnyContext(), domain.DreamID("dream-1")).Return(domain.Record{}, domain.ErrDreamNotFound).Once()
	repo.EXPECT().Insert(mockAnyContext(), mock.Anything).Return(domain.ErrDreamExists).Once()
	repo.EXPECT().GetByID(mockAnyContext(), domain.DreamID("dream-1")).Return(existing, nil).Once()
	repo.EXPECT().Update(mockAnyContext(), mock.MatchedBy(func(record domain.Record) bool {
		return record.ID == "dream-1" && record.Status == domain.DreamStatusInterpreting && record.ThreadID == "thread_1"
	})).Return(nil).Once()

	err := synchronizer.Upsert(context.Background(), "dream-1", domain.RecordPatch{
		Status:   domain.StatusPtr(domain.DreamStatusInterpreting),
		ThreadID: domain.StringPtr("thread_1"),
	})
	require.NoError(t, err)
}

func TestSynchronizerReturnsStorageErrors(t *testing.T) {
	diskErr := errors.New("disk full")

	tests := []struct {
		name  string
		setup func(repo *mocks.MockDreamRepository)
		want  string
	}{
		{
			name: "load fails",
			setup: func(repo *mocks.MockDreamRepository) {
				repo.EXPECT().GetByID(mockAnyContext(), mock.Anything).Return(domain.Record{}, diskErr)
			},
			want: "load dream record",
		},
		{
			name: "insert fails",
			setup: func(repo *mocks.MockDreamRepository) {
				repo.EXPECT().GetByID(mockAnyContext(), mock.Anything).Return(domain.Record{}, domain.ErrDreamNotFound)
				repo.EXPECT().Insert(mockAnyContext(), mock.Anything).Return(diskErr)
			},
			want: "insert dream record",
		},
		{
			name: "update fails",
			setup: func(repo *mocks.MockDreamRepository) {
				repo.EXPECT().GetByID(mockAnyContext(), mock.Anything).Return(domain.Record{ID: "dream-1"}, nil)
				repo.EXPECT().Update(mockAnyContext(), mock.Anything).Return(diskErr)
			},
			want: "update dream record",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewMockDreamRepository(t)
			tt.setup(repo)
			synchronizer := NewSynchronizer(repo, fixedClock{now: testNow}, zerolog.Nop())

			err := synchronizer.Upsert(context.Background(), "dream-1", domain.RecordPatch{Questions: []string{"Q1?"}})
			require.ErrorIs(t, err, diskErr)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestSynchronizerConcurrentUpsertsInsertOnce(t *testing.T) {
	repo := newMemoryDreamRepository()
	synchronizer := NewSynchronizer(repo, fixedClock{now: testNow}, zerolog.Nop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := synchronizer.Upsert(ctx, "dream-1", domain.RecordPatch{
				Text:    "a lighthouse",
				Answers: []string{fmt.Sprintf("answer %d", i)},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, repo.inserts)
	assert.Equal(t, 15, repo.updates)
	assert.Empty(t, synchronizer.locks)
}

func TestSynchronizerListByOwner(t *testing.T) {
	repo := newMemoryDreamRepository()
	synchronizer := NewSynchronizer(repo, fixedClock{now: testNow}, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, synchronizer.Upsert(ctx, "b", domain.RecordPatch{OwnerID: "user-1", Text: "two"}))
	require.NoError(t, synchronizer.Upsert(ctx, "a", domain.RecordPatch{OwnerID: "user-1", Text: "one"}))
	require.NoError(t, synchronizer.Upsert(ctx, "c", domain.RecordPatch{OwnerID: "user-2", Text: "other"}))

	assert.Empty(t, synchronizer.locks)

	records, err := synchronizer.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.DreamID("a"), records[0].ID)
	assert.Equal(t, domain.DreamID("b"), records[1].ID)
}
