package toml

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/bnema/oneiro/internal/domain"
	"github.com/bnema/oneiro/internal/ports"
	"github.com/spf13/viper"
)

const (
	storePathKey     = "store.path"
	dreamsConfigFile = "dreams.toml"
	dreamsLabel      = "dreams"
)

// Repository keeps every dream record in one TOML document.
type Repository struct {
	dreamsPath string
	mu         *sync.RWMutex
}

var _ ports.DreamRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	path, err := resolvePath(cfg.GetString(storePathKey), dreamsConfigFile)
	if err != nil {
		return nil, err
	}

	return &Repository{dreamsPath: path, mu: lockForPath(path)}, nil
}

func (r *Repository) Path() string {
	return r.dreamsPath
}

func (r *Repository) GetByID(ctx context.Context, id domain.DreamID) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Record{}, err
	}

	for _, entry := range file.Dreams {
		if entry.ID == string(id) {
			return fromSchema(entry), nil
		}
	}

	return domain.Record{}, domain.ErrDreamNotFound
}

func (r *Repository) ListByOwner(ctx context.Context, owner domain.UserID) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	records := make([]domain.Record, 0, len(file.Dreams))
	for _, entry := range file.Dreams {
		if entry.OwnerID == string(owner) {
			records = append(records, fromSchema(entry))
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	return records, nil
}

func (r *Repository) Insert(ctx context.Context, record domain.Record) error {
	return r.write(ctx, record, true)
}

func (r *Repository) Update(ctx context.Context, record domain.Record) error {
	return r.write(ctx, record, false)
}

func (r *Repository) write(ctx context.Context, record domain.Record, insert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := toSchema(record)
	index := slices.IndexFunc(file.Dreams, func(entry dreamSchema) bool {
		return entry.ID == encoded.ID
	})

	switch {
	case insert && index >= 0:
		return fmt.Errorf("insert dream %s: %w", record.ID, domain.ErrDreamExists)
	case !insert && index < 0:
		return fmt.Errorf("update dream %s: %w", record.ID, domain.ErrDreamNotFound)
	case insert:
		file.Dreams = append(file.Dreams, encoded)
	default:
		file.Dreams[index] = encoded
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	file.applyDefaults()
	return writeTOMLFile(r.dreamsPath, dreamsLabel, file)
}

func (r *Repository) readSchema() (dreamsFileSchema, error) {
	var file dreamsFileSchema
	if err := readTOMLFile(r.dreamsPath, dreamsLabel, &file); err != nil {
		return dreamsFileSchema{}, err
	}
	if err := file.validateVersion(); err != nil {
		return dreamsFileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func toSchema(record domain.Record) dreamSchema {
	return dreamSchema{
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
		CreatedAt:      formatTime(record.CreatedAt),
		UpdatedAt:      formatTime(record.UpdatedAt),
	}
}

func fromSchema(entry dreamSchema) domain.Record {
	status := domain.DreamStatus(entry.Status)
	if !status.Valid() {
		status = domain.DreamStatusPending
	}

	return domain.Record{
		ID:             domain.DreamID(entry.ID),
		OwnerID:        domain.UserID(entry.OwnerID),
		Text:           entry.Text,
		Status:         status,
		ThreadID:       entry.ThreadID,
		Degraded:       entry.Degraded,
		Questions:      nonNil(entry.Questions),
		Answers:        nonNil(entry.Answers),
		Interpretation: entry.Interpretation,
		Pending: domain.PendingTurn{
			Answer:  entry.PendingAnswer,
			Posted:  entry.PendingPosted,
			Strikes: entry.Strikes,
		},
		CreatedAt: parseTime(entry.CreatedAt),
		UpdatedAt: parseTime(entry.UpdatedAt),
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return slices.Clone(values)
}
