package ports

import (
	"context"

	"github.com/bnema/oneiro/internal/domain"
)

// DreamRepository stores one record per dream id. Insert fails with
// domain.ErrDreamExists when the id is taken; Update fails with
// domain.ErrDreamNotFound when it is not.
type DreamRepository interface {
	GetByID(ctx context.Context, id domain.DreamID) (domain.Record, error)
	ListByOwner(ctx context.Context, owner domain.UserID) ([]domain.Record, error)
	Insert(ctx context.Context, record domain.Record) error
	Update(ctx context.Context, record domain.Record) error
}
