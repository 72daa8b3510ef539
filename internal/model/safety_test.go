package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSafety_NormalizesBooruSpellings(t *testing.T) {
	cases := map[string]Safety{
		"safe":                SafetySafe,
		"s":                   SafetySafe,
		"g":                   SafetySafe,
		"general":             SafetySafe,
		"rating:safe":         SafetySafe,
		"Questionable":        SafetyQuestionable,
		"q":                   SafetyQuestionable,
		"sketchy":             SafetyQuestionable,
		"sensitive":           SafetyQuestionable,
		"rating:questionable": SafetyQuestionable,
		"explicit":            SafetyUnsafe,
		"e":                   SafetyUnsafe,
		"unsafe":              SafetyUnsafe,
		"rating:explicit":     SafetyUnsafe,
		"":                    SafetyUnrated,
		"whatever":            SafetyUnrated,
	}
	for raw, want := range cases {
		require.Equal(t, want, ParseSafety(raw), "input %q", raw)
	}
}
