package toml

import (
	"context"
	"slices"
	"sync"

	"github.com/bnema/oneiro/internal/domain"
	"github.com/bnema/oneiro/internal/ports"
	"github.com/spf13/viper"
)

const (
	profilesPathKey    = "profiles.path"
	profilesConfigFile = "profiles.toml"
	profilesLabel      = "profiles"
)

type ProfileRepository struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.ProfileRepository = (*ProfileRepository)(nil)

func NewProfileRepository(cfg *viper.Viper) (*ProfileRepository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	path, err := resolvePath(cfg.GetString(profilesPathKey), profilesConfigFile)
	if err != nil {
		return nil, err
	}

	return &ProfileRepository{path: path, mu: lockForPath(path)}, nil
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, id domain.UserID) (domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return domain.Profile{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Profile{}, err
	}

	for _, entry := range file.Profiles {
		if entry.UserID == string(id) {
			return fromProfileSchema(entry), nil
		}
	}

	return domain.Profile{}, domain.ErrProfileNotFound
}

func (r *ProfileRepository) Save(ctx context.Context, profile domain.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := toProfileSchema(profile)
	index := slices.IndexFunc(file.Profiles, func(entry profileSchema) bool {
		return entry.UserID == encoded.UserID
	})
	if index >= 0 {
		file.Profiles[index] = encoded
	} else {
		file.Profiles = append(file.Profiles, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	file.applyDefaults()
	return writeTOMLFile(r.path, profilesLabel, file)
}

func (r *ProfileRepository) readSchema() (profilesFileSchema, error) {
	var file profilesFileSchema
	if err := readTOMLFile(r.path, profilesLabel, &file); err != nil {
		return profilesFileSchema{}, err
	}
	if err := file.validateVersion(); err != nil {
		return profilesFileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func toProfileSchema(profile domain.Profile) profileSchema {
	return profileSchema{
		UserID:        string(profile.UserID),
		Age:           profile.Age,
		Gender:        profile.Gender,
		MaritalStatus: profile.MaritalStatus,
		HasKids:       profile.HasKids,
		HasPets:       profile.HasPets,
		WorkStatus:    profile.WorkStatus,
	}
}

func fromProfileSchema(entry profileSchema) domain.Profile {
	return domain.Profile{
		UserID:        domain.UserID(entry.UserID),
		Age:           entry.Age,
		Gender:        entry.Gender,
		MaritalStatus: entry.MaritalStatus,
		HasKids:       entry.HasKids,
		HasPets:       entry.HasPets,
		WorkStatus:    entry.WorkStatus,
	}
}
