package model

import "strings"

const (
	CategoryDefault   = "default"
	CategoryArtist    = "artist"
	CategoryCharacter = "character"
	CategorySeries    = "series"
	CategoryMeta      = "meta"
)

// Placeholder tags mark a post as waiting for tagging and are stripped
// before any update is written back.
var placeholderTags = map[string]struct{}{
	"deepbooru": {},
	"tagme":     {},
}

type Tag struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

func IsPlaceholderTag(name string) bool {
	_, ok := placeholderTags[strings.ToLower(strings.TrimSpace(name))]
	return ok
}
