package domain

// QuestionRounds is the number of follow-up question/answer exchanges before
// the assistant turn that carries the final interpretation.
const QuestionRounds = 3

type SessionState string

const (
	SessionStateIdle           SessionState = "idle"
	SessionStateThreadOpen     SessionState = "thread_open"
	SessionStateAwaitingAnswer SessionState = "awaiting_answer"
	SessionStateComplete       SessionState = "complete"
)

type Session struct {
	Dream      Dream
	Messages   []Message
	Round      int
	IsComplete bool
}

// Clone returns a copy that shares no backing array with s.
func (s Session) Clone() Session {
	out := s
	if s.Messages != nil {
		out.Messages = make([]Message, len(s.Messages))
		copy(out.Messages, s.Messages)
	}
	return out
}

func (s Session) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

func (s Session) AssistantMessages() []Message {
	out := make([]Message, 0, s.Round)
	for _, msg := range s.Messages {
		if msg.Sender == SenderAssistant {
			out = append(out, msg)
		}
	}
	return out
}

// IsFinalRound reports whether the assistant turn numbered round carries the
// interpretation instead of a follow-up question.
func IsFinalRound(round int) bool {
	return round > QuestionRounds
}
