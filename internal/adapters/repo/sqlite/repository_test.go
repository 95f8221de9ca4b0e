package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/oneiro/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var createdAt = time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

func openTestRepository(t *testing.T) *Repository {
	t.Helper()

	repo, err := Open(filepath.Join(t.TempDir(), "store", "dreams.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRepositoryRoundTrip(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	record := domain.Record{
		ID:             "dream-1",
		OwnerID:        "user-1",
		Text:           "A staircase with no end",
		Status:         domain.DreamStatusCompleted,
		ThreadID:       "thread_abc",
		Degraded:       true,
		Questions:      []string{"Q1?", "Q2?", "Q3?"},
		Answers:        []string{"tired", "my mother", "relief"},
		Interpretation: "Explanation: effort without arrival.",
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt.Add(time.Minute),
	}
	require.NoError(t, repo.Insert(ctx, record))

	got, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record, got)
}

func TestRepositoryInsertAndUpdateContracts(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	record := domain.Record{
		ID:        "dream-1",
		OwnerID:   "user-1",
		Text:      "A staircase with no end",
		Status:    domain.DreamStatusPending,
		Questions: []string{},
		Answers:   []string{},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	require.ErrorIs(t, repo.Update(ctx, record), domain.ErrDreamNotFound)
	require.NoError(t, repo.Insert(ctx, record))
	require.ErrorIs(t, repo.Insert(ctx, record), domain.ErrDreamExists)

	record.Status = domain.DreamStatusInterpreting
	record.Questions = []string{"Q1?"}
	record.ThreadID = "thread_1"
	record.Pending = domain.PendingTurn{Answer: "calm", Posted: true, Strikes: 1}
	require.NoError(t, repo.Update(ctx, record))

	got, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record, got)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrDreamNotFound)
}

func TestRepositoryListByOwnerOrdersByCreation(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	for i, id := range []domain.DreamID{"c", "a", "b"} {
		require.NoError(t, repo.Insert(ctx, domain.Record{
			ID:        id,
			OwnerID:   "user-1",
			Text:      "dream " + string(id),
			Status:    domain.DreamStatusPending,
			CreatedAt: createdAt.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, repo.Insert(ctx, domain.Record{ID: "z", OwnerID: "user-2", Text: "other", Status: domain.DreamStatusPending}))

	records, err := repo.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, domain.DreamID("c"), records[0].ID)
	assert.Equal(t, domain.DreamID("a"), records[1].ID)
	assert.Equal(t, domain.DreamID("b"), records[2].ID)
	assert.Equal(t, []string{}, records[0].Questions)

	empty, err := repo.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRepositorySurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dreams.db")
	ctx := context.Background()

	repo, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, domain.Record{ID: "dream-1", OwnerID: "user-1", Text: "snow", Status: domain.DreamStatusPending, CreatedAt: createdAt}))
	require.NoError(t, repo.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetByID(ctx, "dream-1")
	require.NoError(t, err)
	assert.Equal(t, "snow", got.Text)
}

func TestRepositoryReportsCorruptTimestamps(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, domain.Record{ID: "dream-1", OwnerID: "user-1", Text: "snow", Status: domain.DreamStatusPending, CreatedAt: createdAt}))
	_, err := repo.db.ExecContext(ctx, `UPDATE dreams SET updated_at = 'last tuesday' WHERE id = 'dream-1'`)
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, "dream-1")
	require.ErrorContains(t, err, "decode updated_at")

	_, err = repo.ListByOwner(ctx, "user-1")
	require.ErrorContains(t, err, "decode updated_at")
}

func TestOpenAddsMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dreams.db")
	ctx := context.Background()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE dreams (
			id TEXT PRIMARY KEY, owner_id TEXT NOT NULL, text TEXT NOT NULL, status TEXT NOT NULL,
			thread_id TEXT NOT NULL DEFAULT '', degraded INTEGER NOT NULL DEFAULT 0,
			questions TEXT NOT NULL DEFAULT '[]', answers TEXT NOT NULL DEFAULT '[]',
			interpretation TEXT NOT NULL DEFAULT '', created_at TEXT NOT NULL, updated_at TEXT NOT NULL
		);
		INSERT INTO dreams (id, owner_id, text, status, questions, created_at, updated_at)
		VALUES ('dream-1', 'user-1', 'snow', 'interpreting', '["Q1?"]', '2026-02-14T11:00:00Z', '2026-02-14T11:00:00Z');`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	repo, err := Open(path)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.GetByID(ctx, "dream-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1?"}, got.Questions)
	assert.True(t, got.Pending.IsZero())

	got.Pending = domain.PendingTurn{Answer: "cold", Strikes: 1}
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.GetByID(ctx, "dream-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PendingTurn{Answer: "cold", Strikes: 1}, got.Pending)
}
