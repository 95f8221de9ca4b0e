package domain

import (
	"slices"
	"time"
)

// Record is the durable mirror of a dream and its accumulated conversation.
type Record struct {
	ID             DreamID
	OwnerID        UserID
	Text           string
	Status         DreamStatus
	ThreadID       string
	Degraded       bool
	Questions      []string
	Answers        []string
	Interpretation string
	Pending        PendingTurn
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PendingTurn is an answer whose assistant turn has not completed yet. Posted
// is set once the answer reached the thread; Strikes counts exhausted
// exchanges in the current round. The zero value means nothing is pending.
type PendingTurn struct {
	Answer  string
	Posted  bool
	Strikes int
}

func (p PendingTurn) IsZero() bool {
	return p == PendingTurn{}
}

// RecordPatch is a partial update. Nil fields are left untouched; the seed
// fields (OwnerID, Text, CreatedAt) only apply when the record is inserted.
type RecordPatch struct {
	OwnerID        UserID
	Text           string
	CreatedAt      time.Time
	Status         *DreamStatus
	ThreadID       *string
	Degraded       *bool
	Questions      []string
	Answers        []string
	Interpretation *string
	Pending        *PendingTurn
}

// Apply merges p into r and reports whether anything changed. Status never
// moves backwards.
func (p RecordPatch) Apply(r *Record) bool {
	changed := false
	if p.Status != nil && *p.Status != r.Status && p.Status.Rank() > r.Status.Rank() {
		r.Status = *p.Status
		changed = true
	}
	if p.ThreadID != nil && *p.ThreadID != r.ThreadID {
		r.ThreadID = *p.ThreadID
		changed = true
	}
	if p.Degraded != nil && *p.Degraded != r.Degraded {
		r.Degraded = *p.Degraded
		changed = true
	}
	if p.Questions != nil && !slices.Equal(p.Questions, r.Questions) {
		r.Questions = slices.Clone(p.Questions)
		changed = true
	}
	if p.Answers != nil && !slices.Equal(p.Answers, r.Answers) {
		r.Answers = slices.Clone(p.Answers)
		changed = true
	}
	if p.Interpretation != nil && *p.Interpretation != r.Interpretation {
		r.Interpretation = *p.Interpretation
		changed = true
	}
	if p.Pending != nil && *p.Pending != r.Pending {
		r.Pending = *p.Pending
		changed = true
	}
	return changed
}

// NewRecord builds the row inserted on the first patch for id.
func (p RecordPatch) NewRecord(id DreamID, now time.Time) Record {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	r := Record{
		ID:        id,
		OwnerID:   p.OwnerID,
		Text:      p.Text,
		Status:    DreamStatusPending,
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
	p.Apply(&r)
	return r
}

func StatusPtr(s DreamStatus) *DreamStatus { return &s }
func StringPtr(s string) *string           { return &s }
func BoolPtr(b bool) *bool                 { return &b }
