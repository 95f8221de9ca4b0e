package openai

import "github.com/bnema/oneiro/internal/domain"

const (
	followUpInstruction = "Ask the dreamer exactly one concise follow-up question about the dream they shared. " +
		"Do not interpret the dream yet. Reply with the question only."

	finalInstruction = "Write the final interpretation of the dream using everything the dreamer has shared. " +
		"Structure it in three parts: an explanation of the dream's symbols and what they may mean for the dreamer, " +
		"one relevant citation from a religious text with its exact source (book, chapter and verse, or sura and ayah), " +
		"and a short closing reflection addressed to the dreamer."
)

// Instructions selects the run instruction purely from the round number.
func Instructions(round int) string {
	if domain.IsFinalRound(round) {
		return finalInstruction
	}
	return followUpInstruction
}
