package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/oneiro/internal/domain"
	"github.com/bnema/oneiro/internal/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const degradedThreadPrefix = "local_"

type SessionConfig struct {
	Poll  PollPolicy
	Retry RetryPolicy
	// FallbackAfter is the number of exhausted exchanges in one round after
	// which the session stops calling the assistant and uses local content.
	FallbackAfter int
	// IdleTTL is how long a SessionRegistry keeps an unused session in memory.
	IdleTTL time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Poll:          DefaultPollPolicy(),
		Retry:         DefaultRetryPolicy(),
		FallbackAfter: 2,
		IdleTTL:       30 * time.Minute,
	}
}

// SessionDeps wires a SessionService. A nil Assistant means no credentials
// were configured: every session runs degraded from the start.
type SessionDeps struct {
	Assistant    ports.Assistant
	Profiles     ports.ProfileRepository
	Synchronizer *Synchronizer
	Clock        ports.Clock
	Logger       zerolog.Logger
	Config       SessionConfig
	NewID        func() string
}

// TurnResult is returned by every transition. Warnings carry durable writes
// that failed without stopping the conversation.
type TurnResult struct {
	Session  domain.Session
	Degraded bool
	Warnings []*domain.PersistenceWarning
}

// SessionService drives the question/answer protocol for exactly one dream:
// Idle -> ThreadOpen -> AwaitingAnswer(n) -> Complete.
type SessionService struct {
	assistant ports.Assistant
	profiles  ports.ProfileRepository
	sync      *Synchronizer
	clock     ports.Clock
	logger    zerolog.Logger
	cfg       SessionConfig
	newID     func() string

	state *StateContainer

	mu       sync.Mutex
	phase    domain.SessionState
	thread   domain.ThreadHandle
	degraded atomic.Bool
	pending  domain.PendingTurn
}

func NewSessionService(deps SessionDeps) *SessionService {
	clock := deps.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	cfg := deps.Config
	if cfg.FallbackAfter < 1 {
		cfg.FallbackAfter = 1
	}

	return &SessionService{
		assistant: deps.Assistant,
		profiles:  deps.Profiles,
		sync:      deps.Synchronizer,
		clock:     clock,
		logger:    deps.Logger,
		cfg:       cfg,
		newID:     newID,
		state:     NewStateContainer(),
		phase:     domain.SessionStateIdle,
	}
}

func (s *SessionService) State() *StateContainer {
	return s.state
}

func (s *SessionService) Phase() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.phase
}

// Degraded reports whether the session has switched to local fallback content.
func (s *SessionService) Degraded() bool {
	return s.degraded.Load()
}

// Start opens the conversation for a new dream and returns the session with
// the dream text and the first question. Remote failures never abort it.
func (s *SessionService) Start(ctx context.Context, text string, owner domain.UserID) (TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.SessionStateIdle {
		return TurnResult{}, fmt.Errorf("%w: start called in state %s", domain.ErrInvalidState, s.phase)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return TurnResult{}, fmt.Errorf("dream text: %w", domain.ErrEmptyInput)
	}

	s.state.setLoading(true)
	defer s.state.setLoading(false)

	now := s.clock.Now()
	dream := domain.Dream{
		ID:        domain.DreamID(s.newID()),
		OwnerID:   owner,
		Text:      text,
		Status:    domain.DreamStatusPending,
		CreatedAt: now,
	}
	logger := s.logger.With().Str("dream_id", string(dream.ID)).Logger()

	var result TurnResult
	result.addWarning(s.persist(ctx, dream, "create", domain.RecordPatch{
		Status: domain.StatusPtr(domain.DreamStatusPending),
	}))

	session := domain.Session{
		Dream:    dream,
		Messages: []domain.Message{s.message(dream.ID, domain.SenderUser, text)},
	}

	s.openThread(ctx, logger)
	s.phase = domain.SessionStateThreadOpen
	s.state.replace(session)
	result.addWarning(s.persistThread(ctx, dream))

	question, err := s.firstQuestion(ctx, dream, s.lookupProfile(ctx, owner, logger), logger)
	if err != nil {
		return result, err
	}

	session.Messages = append(session.Messages, s.message(dream.ID, domain.SenderAssistant, question))
	session.Round = 1
	session.Dream.Status = domain.DreamStatusInterpreting
	s.phase = domain.SessionStateAwaitingAnswer
	s.state.replace(session)

	result.addWarning(s.persist(ctx, dream, "first question", domain.RecordPatch{
		Status:    domain.StatusPtr(domain.DreamStatusInterpreting),
		ThreadID:  domain.StringPtr(s.thread.ID),
		Degraded:  domain.BoolPtr(s.degraded.Load()),
		Questions: []string{question},
	}))

	result.Session = session.Clone()
	return result, nil
}

// SubmitAnswer records the dreamer's answer for the current round and fetches
// the next assistant turn. A recoverable domain.ErrServiceUnavailable leaves
// the round unchanged; submitting the same answer again continues from there
// without a second copy of the answer in the transcript.
func (s *SessionService) SubmitAnswer(ctx context.Context, text string) (TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.SessionStateAwaitingAnswer {
		return TurnResult{}, fmt.Errorf("%w: submit answer called in state %s", domain.ErrInvalidState, s.phase)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return TurnResult{}, fmt.Errorf("answer: %w", domain.ErrEmptyInput)
	}

	current, _ := s.state.Session()
	logger := s.logger.With().Str("dream_id", string(current.Dream.ID)).Int("round", current.Round).Logger()

	s.state.setLoading(true)
	defer s.state.setLoading(false)

	session := s.withPendingAnswer(current, text)
	s.state.replace(session)

	next := session.Round + 1
	_, answers, _ := transcript(session)

	reply, err := s.nextTurn(ctx, session, next, answers, logger)
	if err != nil {
		result := TurnResult{Session: session.Clone()}
		pending := s.pending
		result.addWarning(s.persist(ctx, session.Dream, "pending answer", domain.RecordPatch{
			Pending: &pending,
		}))
		return result, err
	}

	s.pending = domain.PendingTurn{}
	session.Messages = append(session.Messages, s.message(session.Dream.ID, domain.SenderAssistant, reply))
	session.Round = next

	var result TurnResult
	if domain.IsFinalRound(next) {
		session.IsComplete = true
		session.Dream.Status = domain.DreamStatusCompleted
		s.phase = domain.SessionStateComplete
		s.state.replace(session)

		result.addWarning(s.persist(ctx, session.Dream, "interpretation", domain.RecordPatch{
			Answers:        answers,
			Interpretation: domain.StringPtr(reply),
			Degraded:       domain.BoolPtr(s.degraded.Load()),
			Status:         domain.StatusPtr(domain.DreamStatusCompleted),
			Pending:        &domain.PendingTurn{},
		}))
	} else {
		s.state.replace(session)

		questions, _, _ := transcript(session)
		result.addWarning(s.persist(ctx, session.Dream, "answer", domain.RecordPatch{
			Answers:   answers,
			Questions: questions,
			Degraded:  domain.BoolPtr(s.degraded.Load()),
			Pending:   &domain.PendingTurn{},
		}))
	}

	result.Session = session.Clone()
	return result, nil
}

// Resume rebuilds the session of an existing dream from its durable record,
// reusing the recorded thread and any answer still waiting for its turn.
func (s *SessionService) Resume(ctx context.Context, id domain.DreamID) (TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.load(ctx, "resume", id)
	if err != nil {
		return TurnResult{}, err
	}

	s.state.setLoading(true)
	defer s.state.setLoading(false)

	logger := s.logger.With().Str("dream_id", string(id)).Logger()
	if interrupted(record) {
		return s.restartFirstRound(ctx, record, logger)
	}

	session, err := s.sessionFromRecord(record)
	if err != nil {
		return TurnResult{}, err
	}

	if session.IsComplete {
		s.phase = domain.SessionStateComplete
	} else {
		s.phase = domain.SessionStateAwaitingAnswer
	}
	s.state.replace(session)

	logger.Debug().Int("round", session.Round).Int("strikes", s.pending.Strikes).Msg("session resumed")
	return TurnResult{Session: session.Clone()}, nil
}

// Inspect rebuilds the session from its durable record without calling the
// assistant and leaves the service idle. A dream whose start was interrupted
// shows only its text.
func (s *SessionService) Inspect(ctx context.Context, id domain.DreamID) (TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.load(ctx, "inspect", id)
	if err != nil {
		return TurnResult{}, err
	}

	session := domain.Session{
		Dream:    dreamFromRecord(record),
		Messages: []domain.Message{s.messageAt(record.ID, domain.SenderUser, record.Text, record.CreatedAt)},
	}
	if !interrupted(record) {
		if session, err = s.sessionFromRecord(record); err != nil {
			return TurnResult{}, err
		}
	}
	s.state.replace(session)

	return TurnResult{Session: session.Clone(), Degraded: s.degraded.Load()}, nil
}

// load reads the record and restores the remote thread, the degraded flag
// and the pending turn from it.
func (s *SessionService) load(ctx context.Context, op string, id domain.DreamID) (domain.Record, error) {
	if s.phase != domain.SessionStateIdle {
		return domain.Record{}, fmt.Errorf("%w: %s called in state %s", domain.ErrInvalidState, op, s.phase)
	}

	record, err := s.sync.Load(ctx, id)
	if err != nil {
		return domain.Record{}, err
	}

	s.degraded.Store(record.Degraded || s.assistant == nil)
	if record.ThreadID != "" {
		s.thread = domain.ThreadHandle{
			ID:       record.ThreadID,
			Degraded: strings.HasPrefix(record.ThreadID, degradedThreadPrefix),
		}
	}
	if record.Status != domain.DreamStatusCompleted && !interrupted(record) {
		s.pending = record.Pending
	}
	return record, nil
}

// interrupted reports a record whose first question was never stored.
func interrupted(record domain.Record) bool {
	return len(record.Questions) == 0 && record.Status != domain.DreamStatusCompleted
}

// restartFirstRound finishes a Start that was interrupted before the first
// question was recorded.
func (s *SessionService) restartFirstRound(ctx context.Context, record domain.Record, logger zerolog.Logger) (TurnResult, error) {
	dream := dreamFromRecord(record)
	session := domain.Session{
		Dream:    dream,
		Messages: []domain.Message{s.messageAt(dream.ID, domain.SenderUser, dream.Text, record.CreatedAt)},
	}

	var result TurnResult
	if s.thread.ID == "" {
		s.openThread(ctx, logger)
		result.addWarning(s.persistThread(ctx, dream))
	}
	s.phase = domain.SessionStateThreadOpen
	s.state.replace(session)

	question, err := s.firstQuestion(ctx, dream, s.lookupProfile(ctx, dream.OwnerID, logger), logger)
	if err != nil {
		return result, err
	}

	session.Messages = append(session.Messages, s.message(dream.ID, domain.SenderAssistant, question))
	session.Round = 1
	session.Dream.Status = domain.DreamStatusInterpreting
	s.phase = domain.SessionStateAwaitingAnswer
	s.state.replace(session)

	result.addWarning(s.persist(ctx, dream, "first question", domain.RecordPatch{
		Status:    domain.StatusPtr(domain.DreamStatusInterpreting),
		ThreadID:  domain.StringPtr(s.thread.ID),
		Degraded:  domain.BoolPtr(s.degraded.Load()),
		Questions: []string{question},
	}))
	result.Session = session.Clone()
	return result, nil
}

func (s *SessionService) openThread(ctx context.Context, logger zerolog.Logger) {
	if s.assistant == nil {
		s.degradeThread()
		logger.Info().Msg("assistant not configured, using local content")
		return
	}

	var thread domain.ThreadHandle
	err := s.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		thread, err = s.assistant.OpenThread(ctx)
		return err
	}, s.logRetry(logger, "open thread"))
	if err != nil {
		s.degradeThread()
		logger.Warn().Err(err).Str("thread_id", s.thread.ID).Msg("thread not opened, continuing with local content")
		return
	}

	s.thread = thread
}

func (s *SessionService) degradeThread() {
	s.thread = domain.ThreadHandle{ID: degradedThreadPrefix + s.newID(), Degraded: true}
	s.degraded.Store(true)
}

// firstQuestion posts the dream and requests round 1. Service failures switch
// the session to local content at once.
func (s *SessionService) firstQuestion(ctx context.Context, dream domain.Dream, profile *domain.Profile, logger zerolog.Logger) (string, error) {
	if s.degraded.Load() {
		return fallbackReply(1, dream, nil), nil
	}

	posted := false
	reply, err := s.remoteTurn(ctx, dream.Text, profile, &posted, 1, "", logger)
	if err == nil {
		return reply, nil
	}
	if !domain.IsServiceFailure(err) {
		return "", err
	}

	s.degraded.Store(true)
	logger.Warn().Err(err).Msg("first round failed, switching to local content")
	return fallbackReply(1, dream, nil), nil
}

// nextTurn obtains the assistant turn numbered round after an answer.
func (s *SessionService) nextTurn(ctx context.Context, session domain.Session, round int, answers []string, logger zerolog.Logger) (string, error) {
	if s.degraded.Load() || s.thread.Degraded {
		return fallbackReply(round, session.Dream, answers), nil
	}

	previous := ""
	if questions, _, _ := transcript(session); len(questions) > 0 {
		previous = questions[len(questions)-1]
	}

	reply, err := s.remoteTurn(ctx, s.pending.Answer, nil, &s.pending.Posted, round, previous, logger)
	if err == nil {
		return reply, nil
	}
	if !domain.IsServiceFailure(err) {
		return "", err
	}

	s.pending.Strikes++
	if s.pending.Strikes < s.cfg.FallbackAfter {
		logger.Warn().Err(err).Int("strikes", s.pending.Strikes).Msg("assistant turn failed, answer can be resubmitted")
		return "", fmt.Errorf("round %d: %w", round, err)
	}

	s.degraded.Store(true)
	logger.Warn().Err(err).Int("strikes", s.pending.Strikes).Msg("assistant keeps failing, switching to local content")
	return fallbackReply(round, session.Dream, answers), nil
}

// remoteTurn runs one full exchange: post (once), run, poll, fetch. previous
// is the last assistant text already in the transcript; getting it back
// means the run produced nothing new.
func (s *SessionService) remoteTurn(ctx context.Context, text string, profile *domain.Profile, posted *bool, round int, previous string, logger zerolog.Logger) (string, error) {
	var reply string
	err := s.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		if !*posted {
			if _, err := s.assistant.PostMessage(ctx, s.thread, text, profile); err != nil {
				return fmt.Errorf("post message: %w", err)
			}
			*posted = true
		}

		run, err := s.assistant.StartRun(ctx, s.thread, round)
		if err != nil {
			return fmt.Errorf("start run for round %d: %w", round, err)
		}
		if err := waitForRun(ctx, s.assistant, run, s.cfg.Poll); err != nil {
			return err
		}

		latest, err := s.assistant.LatestAssistantMessage(ctx, s.thread)
		if err != nil {
			return fmt.Errorf("fetch reply for round %d: %w", round, err)
		}
		if strings.TrimSpace(latest) == "" || latest == previous {
			return fmt.Errorf("round %d: %w", round, domain.ErrNoResponse)
		}

		reply = latest
		return nil
	}, s.logRetry(logger, "assistant turn"))

	return reply, err
}

// withPendingAnswer appends the answer as a user message, or reuses the one
// left behind by a failed attempt in this round. Strikes carry over.
func (s *SessionService) withPendingAnswer(session domain.Session, text string) domain.Session {
	if s.pending.Answer != "" {
		last, ok := session.LastMessage()
		if ok && last.Sender == domain.SenderUser {
			if s.pending.Answer == text {
				return session
			}

			// A different answer replaces the undelivered one in place.
			session.Messages[len(session.Messages)-1].Content = text
			session.Messages[len(session.Messages)-1].Timestamp = s.clock.Now()
			s.pending = domain.PendingTurn{Answer: text, Strikes: s.pending.Strikes}
			return session
		}
	}

	s.pending = domain.PendingTurn{Answer: text, Strikes: s.pending.Strikes}
	session.Messages = append(session.Messages, s.message(session.Dream.ID, domain.SenderUser, text))
	return session
}

func (s *SessionService) lookupProfile(ctx context.Context, owner domain.UserID, logger zerolog.Logger) *domain.Profile {
	if s.profiles == nil || owner == "" {
		return nil
	}

	profile, err := s.profiles.GetByUserID(ctx, owner)
	if err != nil {
		if !errors.Is(err, domain.ErrProfileNotFound) {
			logger.Warn().Err(err).Str("user_id", string(owner)).Msg("profile lookup failed, sending dream without preamble")
		}
		return nil
	}

	return &profile
}

// persist writes patch for dream. The seed fields ride along on every patch
// so a row missed by an earlier failed write is still inserted whole.
func (s *SessionService) persist(ctx context.Context, dream domain.Dream, op string, patch domain.RecordPatch) *domain.PersistenceWarning {
	if s.sync == nil {
		return nil
	}

	patch.OwnerID = dream.OwnerID
	patch.Text = dream.Text
	patch.CreatedAt = dream.CreatedAt
	if err := s.sync.Upsert(ctx, dream.ID, patch); err != nil {
		s.logger.Warn().Err(err).Str("dream_id", string(dream.ID)).Str("op", op).Msg("dream record not persisted")
		return &domain.PersistenceWarning{DreamID: dream.ID, Op: op, Err: err}
	}
	return nil
}

func (s *SessionService) persistThread(ctx context.Context, dream domain.Dream) *domain.PersistenceWarning {
	return s.persist(ctx, dream, "thread", domain.RecordPatch{
		ThreadID: domain.StringPtr(s.thread.ID),
		Degraded: domain.BoolPtr(s.degraded.Load()),
	})
}

func (s *SessionService) logRetry(logger zerolog.Logger, op string) func(int, error) {
	return func(attempt int, err error) {
		logger.Debug().Err(err).Int("attempt", attempt).Str("op", op).Msg("retrying assistant call")
	}
}

func (s *SessionService) message(id domain.DreamID, sender domain.Sender, content string) domain.Message {
	return s.messageAt(id, sender, content, s.clock.Now())
}

func (s *SessionService) messageAt(id domain.DreamID, sender domain.Sender, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:        s.newID(),
		DreamID:   id,
		Content:   content,
		Sender:    sender,
		Timestamp: at,
	}
}

func (s *SessionService) sessionFromRecord(record domain.Record) (domain.Session, error) {
	questions, answers := len(record.Questions), len(record.Answers)
	complete := record.Status == domain.DreamStatusCompleted

	switch {
	case complete && (questions != domain.QuestionRounds || answers != domain.QuestionRounds || record.Interpretation == ""):
		return domain.Session{}, fmt.Errorf("%w: completed record %s has %d questions, %d answers", domain.ErrInvalidState, record.ID, questions, answers)
	case !complete && (answers != questions-1 || questions > domain.QuestionRounds):
		return domain.Session{}, fmt.Errorf("%w: record %s has %d questions, %d answers", domain.ErrInvalidState, record.ID, questions, answers)
	}

	dream := dreamFromRecord(record)
	messages := make([]domain.Message, 0, 2+questions+answers)
	messages = append(messages, s.messageAt(dream.ID, domain.SenderUser, dream.Text, record.CreatedAt))
	for i, question := range record.Questions {
		messages = append(messages, s.messageAt(dream.ID, domain.SenderAssistant, question, record.UpdatedAt))
		if i < answers {
			messages = append(messages, s.messageAt(dream.ID, domain.SenderUser, record.Answers[i], record.UpdatedAt))
		}
	}

	round := questions
	switch {
	case complete:
		messages = append(messages, s.messageAt(dream.ID, domain.SenderAssistant, record.Interpretation, record.UpdatedAt))
		round++
	case record.Pending.Answer != "":
		messages = append(messages, s.messageAt(dream.ID, domain.SenderUser, record.Pending.Answer, record.UpdatedAt))
	}

	return domain.Session{
		Dream:      dream,
		Messages:   messages,
		Round:      round,
		IsComplete: complete,
	}, nil
}

func dreamFromRecord(record domain.Record) domain.Dream {
	return domain.Dream{
		ID:        record.ID,
		OwnerID:   record.OwnerID,
		Text:      record.Text,
		Status:    record.Status,
		CreatedAt: record.CreatedAt,
	}
}

// transcript splits a session into follow-up questions, answers and the
// interpretation. The first user message is the dream itself.
func transcript(session domain.Session) (questions []string, answers []string, interpretation string) {
	questions = []string{}
	answers = []string{}
	assistantTurns := 0
	userTurns := 0
	for _, msg := range session.Messages {
		switch msg.Sender {
		case domain.SenderAssistant:
			assistantTurns++
			if domain.IsFinalRound(assistantTurns) {
				interpretation = msg.Content
				continue
			}
			questions = append(questions, msg.Content)
		case domain.SenderUser:
			userTurns++
			if userTurns > 1 {
				answers = append(answers, msg.Content)
			}
		}
	}
	return questions, answers, interpretation
}

func (r *TurnResult) addWarning(w *domain.PersistenceWarning) {
	if w != nil {
		r.Warnings = append(r.Warnings, w)
	}
}
