package geocode

import (
	"context"
	"fmt"
	"strings"
)

// Prompt is the shared instruction used by all language-model backends.
const Prompt = `Which country is the place %q in?
Reply with only the country's common English name, for example "Pakistan".
If the text is not a recognizable place, reply UNKNOWN.`

// Geocoder resolves free text that the static tables could not place.
type Geocoder interface {
	Geocode(ctx context.Context, text string) (Result, error)
}

type Result struct {
	// Country is empty when the backend could not place the text.
	Country     string
	RawResponse string
}

func BuildPrompt(text string) string {
	return fmt.Sprintf(Prompt, strings.TrimSpace(text))
}

// ParseReply extracts a country name from a model reply. It returns "" for
// UNKNOWN or empty replies.
func ParseReply(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		line = strings.TrimPrefix(line, "Country:")
		line = strings.Trim(line, " \t\"'`*.")
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "unknown") {
			return ""
		}
		// Long sentences are explanations, not answers.
		if len(strings.Fields(line)) > 5 {
			return ""
		}
		return line
	}
	return ""
}
