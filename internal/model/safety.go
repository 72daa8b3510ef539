package model

import "strings"

type Safety string

const (
	SafetySafe         Safety = "safe"
	SafetyQuestionable Safety = "questionable"
	SafetyUnsafe       Safety = "unsafe"
	SafetyUnrated      Safety = "unrated"
)

// ParseSafety normalizes the rating spellings used by the various boorus
// and classifier models into the four canonical levels. Unknown values map
// to SafetyUnrated.
func ParseSafety(raw string) Safety {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.TrimPrefix(v, "rating:")
	switch v {
	case "safe", "s", "g", "general":
		return SafetySafe
	case "questionable", "q", "sketchy", "sensitive":
		return SafetyQuestionable
	case "unsafe", "e", "explicit":
		return SafetyUnsafe
	default:
		return SafetyUnrated
	}
}
