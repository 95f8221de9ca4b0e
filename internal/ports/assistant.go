package ports

import (
	"context"

	"github.com/bnema/oneiro/internal/domain"
)

// Assistant is the raw transport to the remote conversational service. It
// never retries; failures wrap domain.ErrServiceUnavailable.
type Assistant interface {
	OpenThread(ctx context.Context) (domain.ThreadHandle, error)
	// PostMessage appends a user message. A non-nil profile is rendered as a
	// preamble ahead of text.
	PostMessage(ctx context.Context, thread domain.ThreadHandle, text string, profile *domain.Profile) (string, error)
	StartRun(ctx context.Context, thread domain.ThreadHandle, round int) (domain.RunHandle, error)
	PollRun(ctx context.Context, run domain.RunHandle) (domain.RunStatus, error)
	LatestAssistantMessage(ctx context.Context, thread domain.ThreadHandle) (string, error)
}
