package prompt

import (
	"fmt"
	"strings"
)

// Assessment is the learner profile captured during onboarding. It is
// supplied by the caller; persistence lives outside this core.
type Assessment struct {
	TargetLanguage string
	NativeLanguage string
	SelfLevel      string
	Motivations    []string
	Topics         []string
	ImproveAreas   []string
	Timeline       string
	DailyWords     string
}

// BuildAssessmentPrompt produces a personalized tutor system prompt
// from an assessment profile. Used as an optional override of the
// per-level prompt.
func BuildAssessmentPrompt(a Assessment) string {
	var b strings.Builder

	b.WriteString("You are an English language tutor. The user has completed an initial assessment with the following profile:\n\n")
	fmt.Fprintf(&b, "Target Language: %s\n", a.TargetLanguage)
	fmt.Fprintf(&b, "Native Language: %s\n", a.NativeLanguage)
	fmt.Fprintf(&b, "Proficiency Level: %s\n", a.SelfLevel)
	fmt.Fprintf(&b, "Learning Motivations: %s\n", strings.Join(a.Motivations, ", "))
	fmt.Fprintf(&b, "Interests: %s\n", strings.Join(a.Topics, ", "))
	fmt.Fprintf(&b, "Areas to Improve: %s\n", strings.Join(a.ImproveAreas, ", "))
	fmt.Fprintf(&b, "Learning Timeline: %s\n", a.Timeline)
	fmt.Fprintf(&b, "Daily Goal: %s\n\n", a.DailyWords)

	b.WriteString("Instructions:\n")
	b.WriteString("- Adapt your teaching style to their proficiency level\n")
	b.WriteString("- Incorporate their interests into conversations\n")
	b.WriteString("- Focus on their specific improvement areas\n")
	b.WriteString("- Keep conversations engaging and relevant to their goals\n")
	b.WriteString("- For beginners: Use simple sentences and basic vocabulary\n")
	b.WriteString("- For advanced learners: Use more complex structures and idioms\n\n")

	b.WriteString("Always respond in this format:\n")
	b.WriteString("[Your English response]\n")
	b.WriteString(Marker + " [Complete Persian translation]\n")

	return b.String()
}
