package application

import (
	"strings"
	"text/template"

	"github.com/bnema/oneiro/internal/domain"
)

var fallbackQuestions = []string{
	"What feeling stayed with you most strongly when you woke up from this dream?",
	"Was anyone you know present in the dream, and how did you feel about them being there?",
	"Is there anything happening in your waking life right now that this dream reminds you of?",
}

var fallbackInterpretation = template.Must(template.New("interpretation").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`Explanation: Your dream of "{{.Excerpt}}" gathers images that usually speak about your inner state more than about outside events.{{if .Answers}} From what you shared ({{join .Answers "; "}}), the dream seems to mirror feelings you are already carrying and invites you to look at them calmly.{{end}} Recurring symbols such as water, heights, journeys or familiar faces often point to change, effort and the people who support you.

Citation: "For God speaketh once, yea twice, yet man perceiveth it not. In a dream, in a vision of the night, when deep sleep falleth upon men" (Job 33:14-15, King James Version).

Reflection: Take a quiet moment today to write down what this dream stirred in you. Its meaning will grow clearer as you notice where the same feelings appear while you are awake.`))

const excerptLimit = 80

// fallbackQuestion returns the locally generated question for round, which
// has the same shape as a remote one.
func fallbackQuestion(round int) string {
	if round < 1 {
		round = 1
	}
	return fallbackQuestions[(round-1)%len(fallbackQuestions)]
}

func fallbackInterpretationFor(dreamText string, answers []string) string {
	var b strings.Builder
	data := struct {
		Excerpt string
		Answers []string
	}{
		Excerpt: excerpt(dreamText),
		Answers: answers,
	}
	if err := fallbackInterpretation.Execute(&b, data); err != nil {
		// The template is static; this only trips on a programming error.
		panic(err)
	}
	return b.String()
}

// fallbackReply is the local stand-in for the assistant turn numbered round.
func fallbackReply(round int, dream domain.Dream, answers []string) string {
	if domain.IsFinalRound(round) {
		return fallbackInterpretationFor(dream.Text, answers)
	}
	return fallbackQuestion(round)
}

func excerpt(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= excerptLimit {
		return text
	}
	return strings.TrimSpace(string(runes[:excerptLimit])) + "..."
}
