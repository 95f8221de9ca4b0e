package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bnema/oneiro/internal/domain"
	"github.com/bnema/oneiro/internal/ports"
	bolt "go.etcd.io/bbolt"
)

var dreamsBucket = []byte("dreams")

type recordJSON struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"ownerId"`
	Text           string    `json:"text"`
	Status         string    `json:"status"`
	ThreadID       string    `json:"threadId,omitempty"`
	Degraded       bool      `json:"degraded"`
	Questions      []string  `json:"questions"`
	Answers        []string  `json:"answers"`
	Interpretation string    `json:"interpretation,omitempty"`
	PendingAnswer  string    `json:"pendingAnswer,omitempty"`
	PendingPosted  bool      `json:"pendingPosted,omitempty"`
	Strikes        int       `json:"strikes,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Repository stores one JSON value per dream id in a bbolt bucket.
type Repository struct {
	db *bolt.DB
}

var _ ports.DreamRepository = (*Repository)(nil)

func Open(path string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create bolt directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(dreamsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create dreams bucket: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) GetByID(ctx context.Context, id domain.DreamID) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, err
	}

	var record domain.Record
	err := r.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(dreamsBucket).Get([]byte(id))
		if raw == nil {
			return domain.ErrDreamNotFound
		}

		var err error
		record, err = decode(raw)
		return err
	})
	return record, err
}

func (r *Repository) ListByOwner(ctx context.Context, owner domain.UserID) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := []domain.Record{}
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(dreamsBucket).ForEach(func(k, v []byte) error {
			record, err := decode(v)
			if err != nil {
				return fmt.Errorf("dream %s: %w", k, err)
			}
			if record.OwnerID == owner {
				records = append(records, record)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list dreams: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

func (r *Repository) Insert(ctx context.Context, record domain.Record) error {
	return r.put(ctx, record, true)
}

func (r *Repository) Update(ctx context.Context, record domain.Record) error {
	return r.put(ctx, record, false)
}

func (r *Repository) put(ctx context.Context, record domain.Record, insert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encode(record)
	if err != nil {
		return fmt.Errorf("encode dream %s: %w", record.ID, err)
	}

	return r.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(dreamsBucket)
		key := []byte(record.ID)

		exists := bucket.Get(key) != nil
		if insert && exists {
			return fmt.Errorf("insert dream %s: %w", record.ID, domain.ErrDreamExists)
		}
		if !insert && !exists {
			return fmt.Errorf("update dream %s: %w", record.ID, domain.ErrDreamNotFound)
		}

		return bucket.Put(key, data)
	})
}

func encode(record domain.Record) ([]byte, error) {
	return json.Marshal(recordJSON{
		ID:             string(record.ID),
		OwnerID:        string(record.OwnerID),
		Text:           record.Text,
		Status:         string(record.Status),
		ThreadID:       record.ThreadID,
		Degraded:       record.Degraded,
		Questions:      nonNil(record.Questions),
		Answers:        nonNil(record.Answers),
		Interpretation: record.Interpretation,
		PendingAnswer:  record.Pending.Answer,
		PendingPosted:  record.Pending.Posted,
		Strikes:        record.Pending.Strikes,
		CreatedAt:      record.CreatedAt.UTC(),
		UpdatedAt:      record.UpdatedAt.UTC(),
	})
}

func decode(raw []byte) (domain.Record, error) {
	var v recordJSON
	if err := json.Unmarshal(raw, &v); err != nil {
		return domain.Record{}, fmt.Errorf("decode dream record: %w", err)
	}

	return domain.Record{
		ID:             domain.DreamID(v.ID),
		OwnerID:        domain.UserID(v.OwnerID),
		Text:           v.Text,
		Status:         domain.DreamStatus(v.Status),
		ThreadID:       v.ThreadID,
		Degraded:       v.Degraded,
		Questions:      nonNil(v.Questions),
		Answers:        nonNil(v.Answers),
		Interpretation: v.Interpretation,
		Pending: domain.PendingTurn{
			Answer:  v.PendingAnswer,
			Posted:  v.PendingPosted,
			Strikes: v.Strikes,
		},
		CreatedAt: v.CreatedAt.UTC(),
		UpdatedAt: v.UpdatedAt.UTC(),
	}, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
