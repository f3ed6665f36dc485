package ai

import "github.com/tidwall/gjson"

// Candidate field paths tried in order when normalizing vendor bodies.
// First non-empty string wins.
var (
	sttTextPaths  = []string{"text", "result", "data.text", "transcript"}
	chatTextPaths = []string{"choices.0.message.content", "content", "result", "text", "message", "response"}
)

// chatFallback is returned when no candidate path yields text.
const chatFallback = "no response available"

func firstMatch(body []byte, paths []string) string {
	for _, p := range paths {
		v := gjson.GetBytes(body, p)
		if v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

func extractSTT(body []byte) *Payload {
	p := &Payload{
		Text: firstMatch(body, sttTextPaths),
		Raw:  body,
	}
	if v := gjson.GetBytes(body, "language"); v.Type == gjson.String {
		p.Language = v.Str
	}
	if v := gjson.GetBytes(body, "confidence"); v.Type == gjson.Number {
		p.Confidence = v.Num
	}
	if v := gjson.GetBytes(body, "duration"); v.Type == gjson.Number {
		p.Duration = v.Num
	}
	return p
}

func extractChat(body []byte) *Payload {
	text := firstMatch(body, chatTextPaths)
	if text == "" {
		text = chatFallback
	}
	return &Payload{Text: text, Raw: body}
}
