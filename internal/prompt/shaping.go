package prompt

import (
	"strings"

	"github.com/lingora/backend/internal/ai"
	"github.com/lingora/backend/internal/models"
)

// Marker separates the target-language reply from its Persian
// translation in model output.
const Marker = "FA:"

// MissingTranslation is returned when the model ignored the format
// directive and no marker is present.
const MissingTranslation = "ترجمه موجود نیست"

// historyWindow bounds how many stored turns are replayed to the model.
const historyWindow = 5

const foldedPrefix = "SYSTEM: "

// BuildSystemPrompt is deterministic per level: tutor persona, the
// level instruction and the bilingual response-format directive.
func BuildSystemPrompt(level models.Level) string {
	return "You are an English tutor for Persian speakers.\n\n" +
		level.Instruction() + "\n\n" +
		"Always respond in this format:\n" +
		"[Your English response]\n" +
		Marker + " [Complete Persian translation]\n\n" +
		"Keep responses conversational and encouraging."
}

// PrepareMessages assembles the bounded request payload: the system
// prompt, the last turns of history as alternating user/assistant
// messages, then the new utterance. When the resolved driver disallows
// a system role the instruction is folded into the leading user message
// instead of being dropped.
func PrepareMessages(system string, history []models.Turn, utterance string, allowSystem bool) []ai.Message {
	var msgs []ai.Message
	if allowSystem {
		msgs = append(msgs, ai.Message{Role: ai.RoleSystem, Content: system})
	}

	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}
	for _, turn := range history[start:] {
		msgs = append(msgs,
			ai.Message{Role: ai.RoleUser, Content: turn.User},
			ai.Message{Role: ai.RoleAssistant, Content: turn.AI},
		)
	}

	msgs = append(msgs, ai.Message{Role: ai.RoleUser, Content: utterance})

	if !allowSystem {
		for i := range msgs {
			if msgs[i].Role == ai.RoleUser {
				msgs[i].Content = foldedPrefix + system + "\n\n" + msgs[i].Content
				break
			}
		}
	}

	return msgs
}

// ParseResponse splits raw model output on the first marker occurrence.
// A marker inside the translation stays in the translation; a missing
// marker yields the full text with the fallback sentinel.
func ParseResponse(raw string) (message, translation string) {
	before, after, found := strings.Cut(raw, Marker)
	if !found {
		return strings.TrimSpace(raw), MissingTranslation
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}
