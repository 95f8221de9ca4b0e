package domain

import (
	"fmt"
	"strings"
	"time"
)

type DreamID string
type UserID string

type DreamStatus string

const (
	DreamStatusPending      DreamStatus = "pending"
	DreamStatusInterpreting DreamStatus = "interpreting"
	DreamStatusCompleted    DreamStatus = "completed"
)

func (s DreamStatus) Valid() bool {
	switch s {
	case DreamStatusPending, DreamStatusInterpreting, DreamStatusCompleted:
		return true
	default:
		return false
	}
}

// Rank orders statuses along the only allowed direction of travel.
func (s DreamStatus) Rank() int {
	switch s {
	case DreamStatusPending:
		return 1
	case DreamStatusInterpreting:
		return 2
	case DreamStatusCompleted:
		return 3
	default:
		return 0
	}
}

type Dream struct {
	ID        DreamID
	OwnerID   UserID
	Text      string
	Status    DreamStatus
	CreatedAt time.Time
}

func (d Dream) Validate() error {
	if strings.TrimSpace(string(d.ID)) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(d.Text) == "" {
		return fmt.Errorf("dream text is required")
	}
	if !d.Status.Valid() {
		return fmt.Errorf("unsupported status %q", d.Status)
	}

	return nil
}

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

type Message struct {
	ID        string
	DreamID   DreamID
	Content   string
	Sender    Sender
	Timestamp time.Time
}
