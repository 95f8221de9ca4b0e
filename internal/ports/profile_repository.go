package ports

import (
	"context"

	"github.com/bnema/oneiro/internal/domain"
)

type ProfileRepository interface {
	GetByUserID(ctx context.Context, id domain.UserID) (domain.Profile, error)
	Save(ctx context.Context, profile domain.Profile) error
}
