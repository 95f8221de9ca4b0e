package toml

import "fmt"

const currentSchemaVersion = 1

type dreamsFileSchema struct {
	Version int           `toml:"version"`
	Dreams  []dreamSchema `toml:"dreams"`
}

func (s *dreamsFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s dreamsFileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported dreams schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type dreamSchema struct {
	ID             string   `toml:"id"`
	OwnerID        string   `toml:"owner_id"`
	Text           string   `toml:"text"`
	Status         string   `toml:"status"`
	ThreadID       string   `toml:"thread_id,omitempty"`
	Degraded       bool     `toml:"degraded"`
	Questions      []string `toml:"questions"`
	Answers        []string `toml:"answers"`
	Interpretation string   `toml:"interpretation,omitempty"`
	PendingAnswer  string   `toml:"pending_answer,omitempty"`
	PendingPosted  bool     `toml:"pending_posted,omitempty"`
	Strikes        int      `toml:"strikes,omitempty"`
	CreatedAt      string   `toml:"created_at"`
	UpdatedAt      string   `toml:"updated_at"`
}

type profilesFileSchema struct {
	Version  int             `toml:"version"`
	Profiles []profileSchema `toml:"profiles"`
}

func (s *profilesFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s profilesFileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported profiles schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type profileSchema struct {
	UserID        string `toml:"user_id"`
	Age           int    `toml:"age,omitempty"`
	Gender        string `toml:"gender,omitempty"`
	MaritalStatus string `toml:"marital_status,omitempty"`
	HasKids       bool   `toml:"has_kids"`
	HasPets       bool   `toml:"has_pets"`
	WorkStatus    string `toml:"work_status,omitempty"`
}
