package models

import "fmt"

// Level is a learner proficiency tier. Each tier fixes the tutoring
// style, the response token budget and the generation temperature.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return Level(s), nil
	}
	return "", fmt.Errorf("unknown level %q", s)
}

// Instruction is the level-specific fragment of the tutor system prompt.
func (l Level) Instruction() string {
	switch l {
	case LevelBeginner:
		return "Use simple words and short sentences. Correct major mistakes only."
	case LevelIntermediate:
		return "Use everyday vocabulary. Correct grammar mistakes gently."
	default:
		return "Use natural, varied language. Provide detailed corrections."
	}
}

func (l Level) Temperature() float64 {
	switch l {
	case LevelBeginner:
		return 0.3
	case LevelIntermediate:
		return 0.5
	default:
		return 0.7
	}
}

func (l Level) MaxTokens() int {
	switch l {
	case LevelBeginner:
		return 80
	case LevelIntermediate:
		return 120
	default:
		return 150
	}
}

// Greeting returns the fixed opener for a new conversation, in the
// target language and its Persian translation. No AI call involved.
func (l Level) Greeting() (message, translation string) {
	switch l {
	case LevelBeginner:
		return "Hi! What do you want to talk about?", "سلام! دوست داری در مورد چی صحبت کنیم؟"
	case LevelIntermediate:
		return "Hello! What topic interests you today?", "سلام! چه موضوعی امروز بهت علاقه داره؟"
	default:
		return "Hello! What shall we discuss today?", "سلام! امروز چه موضوعی را بحث کنیم؟"
	}
}
