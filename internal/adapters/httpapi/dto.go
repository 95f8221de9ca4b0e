package httpapi

import (
	"time"

	"github.com/bnema/oneiro/internal/domain"
)

// MessageResponse and the types below are the JSON shapes shared by the API
// and the CLI --json output.
type MessageResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

type SessionResponse struct {
	ID             string            `json:"id"`
	UserID         string            `json:"userId"`
	Text           string            `json:"text"`
	Status         string            `json:"status"`
	Round          int               `json:"round"`
	IsComplete     bool              `json:"isComplete"`
	Degraded       bool              `json:"degraded"`
	Loading        bool              `json:"loading,omitempty"`
	Messages       []MessageResponse `json:"messages"`
	Interpretation string            `json:"interpretation,omitempty"`
	Warnings       []string          `json:"warnings,omitempty"`
}

type RecordResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Text           string    `json:"text"`
	Status         string    `json:"status"`
	Degraded       bool      `json:"degraded"`
	Questions      []string  `json:"questions"`
	Answers        []string  `json:"answers"`
	Interpretation string    `json:"interpretation,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NewSessionResponse fills Interpretation from the last message once the
// session is complete.
func NewSessionResponse(session domain.Session, degraded bool, warnings []*domain.PersistenceWarning) SessionResponse {
	resp := SessionResponse{
		ID:         string(session.Dream.ID),
		UserID:     string(session.Dream.OwnerID),
		Text:       session.Dream.Text,
		Status:     string(session.Dream.Status),
		Round:      session.Round,
		IsComplete: session.IsComplete,
		Degraded:   degraded,
		Messages:   make([]MessageResponse, 0, len(session.Messages)),
	}

	for _, msg := range session.Messages {
		resp.Messages = append(resp.Messages, MessageResponse{
			ID:        msg.ID,
			Content:   msg.Content,
			Sender:    string(msg.Sender),
			Timestamp: msg.Timestamp,
		})
	}
	if session.IsComplete {
		if last, ok := session.LastMessage(); ok {
			resp.Interpretation = last.Content
		}
	}
	for _, warning := range warnings {
		resp.Warnings = append(resp.Warnings, warning.Error())
	}

	return resp
}

func NewRecordResponse(record domain.Record) RecordResponse {
	return RecordResponse{
		ID:             string(record.ID),
		UserID:         string(record.OwnerID),
		Text:           record.Text,
		Status:         string(record.Status),
		Degraded:       record.Degraded,
		Questions:      nonNil(record.Questions),
		Answers:        nonNil(record.Answers),
		Interpretation: record.Interpretation,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
