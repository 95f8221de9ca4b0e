package openai

import (
	"fmt"
	"strings"

	"github.com/bnema/oneiro/internal/domain"
)

// ComposeMessage prefixes text with the dreamer profile when one is known.
func ComposeMessage(text string, profile *domain.Profile) string {
	if profile == nil {
		return text
	}

	return Preamble(*profile) + "\n\n" + text
}

func Preamble(profile domain.Profile) string {
	lines := make([]string, 0, 6)
	if profile.Age > 0 {
		lines = append(lines, fmt.Sprintf("Age: %d", profile.Age))
	}
	if v := strings.TrimSpace(profile.Gender); v != "" {
		lines = append(lines, "Gender: "+v)
	}
	if v := strings.TrimSpace(profile.MaritalStatus); v != "" {
		lines = append(lines, "Marital status: "+v)
	}
	lines = append(lines, "Has children: "+yesNo(profile.HasKids))
	lines = append(lines, "Has pets: "+yesNo(profile.HasPets))
	if v := strings.TrimSpace(profile.WorkStatus); v != "" {
		lines = append(lines, "Work status: "+v)
	}

	return "[Dreamer profile]\n" + strings.Join(lines, "\n") + "\n[/Dreamer profile]"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
