package transcript

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/oneiro/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now      time.Time
	Degraded bool
	Warnings []*domain.PersistenceWarning
}

// Render draws one session: the dream, each question with its answer, and the
// interpretation once the session is complete.
func Render(session domain.Session, opts RenderOptions) (string, error) {
	return run(func(s styles) string {
		return renderSession(session, opts, s)
	})
}

// RenderRecords draws a compact listing of stored dreams.
func RenderRecords(records []domain.Record, opts RenderOptions) (string, error) {
	return run(func(s styles) string {
		return renderRecords(records, opts, s)
	})
}

func renderSession(session domain.Session, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render(fmt.Sprintf("Dream %s", session.Dream.ID)),
		s.header.Render(sessionHeader(session, opts)),
		s.section.Render(s.dream.Render(session.Dream.Text)),
	}

	var turns []string
	for i, msg := range session.Messages {
		if i == 0 && msg.Sender == domain.SenderUser {
			continue
		}
		switch msg.Sender {
		case domain.SenderAssistant:
			if isInterpretation(session, msg) {
				continue
			}
			turns = append(turns, s.question.Render("? "+msg.Content))
		case domain.SenderUser:
			turns = append(turns, s.answer.Render("> "+msg.Content))
		}
	}
	if len(turns) > 0 {
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, turns...)))
	}

	if session.IsComplete {
		if last, ok := session.LastMessage(); ok && last.Sender == domain.SenderAssistant {
			lines = append(lines,
				s.section.Render(s.label.Render("interpretation:")),
				s.interpretation.Render(last.Content),
			)
		}
	}

	for _, warning := range opts.Warnings {
		lines = append(lines, s.warning.Render("warning: "+warning.Error()))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func sessionHeader(session domain.Session, opts RenderOptions) string {
	parts := []string{"status: " + string(session.Dream.Status)}
	if session.IsComplete {
		parts = append(parts, "complete")
	} else {
		parts = append(parts, fmt.Sprintf("round %d/%d", min(session.Round, domain.QuestionRounds), domain.QuestionRounds))
	}
	if opts.Degraded {
		parts = append(parts, "offline")
	}
	if !session.Dream.CreatedAt.IsZero() {
		parts = append(parts, formatAge(session.Dream.CreatedAt, opts.Now))
	}
	return strings.Join(parts, " | ")
}

func isInterpretation(session domain.Session, msg domain.Message) bool {
	if !session.IsComplete {
		return false
	}
	last, ok := session.LastMessage()
	return ok && last.ID == msg.ID
}

func renderRecords(records []domain.Record, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Dreams"),
		s.header.Render(fmt.Sprintf("dreams: %d", len(records))),
	}

	if len(records) == 0 {
		lines = append(lines, s.empty.Render("No dreams recorded."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, record := range records {
		status := s.statusStyle(string(record.Status)).Render(fmt.Sprintf("[%s]", record.Status))
		line := lipgloss.JoinHorizontal(
			lipgloss.Top,
			s.question.Render(string(record.ID)),
			" ",
			status,
			" ",
			s.answer.Render(excerpt(record.Text, 48)),
		)
		meta := fmt.Sprintf("answers %d/%d, %s", len(record.Answers), domain.QuestionRounds, formatAge(record.CreatedAt, opts.Now))
		if record.Degraded {
			meta += ", offline"
		}
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, line, s.label.Render(meta))))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func excerpt(text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	return string(runes[:width-3]) + "..."
}

func formatAge(at, now time.Time) string {
	if at.IsZero() {
		return "unknown"
	}
	if now.IsZero() || at.After(now) {
		return at.UTC().Format("2006-01-02 15:04")
	}

	age := now.Sub(at)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return plural(int(age.Minutes()), "minute") + " ago"
	case age < 24*time.Hour:
		return plural(int(age.Hours()), "hour") + " ago"
	default:
		return plural(int(age.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
