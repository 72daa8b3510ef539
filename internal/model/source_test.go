package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSources_DropsBlankAndDuplicateLines(t *testing.T) {
	got := ParseSources("https://a.example/1\n\n  https://b.example/2  \nhttps://a.example/1\n")
	require.Equal(t, SourceList{"https://a.example/1", "https://b.example/2"}, got)
}

func TestSourceListMerge_KeepsFirstOccurrenceOrder(t *testing.T) {
	found := ParseSources("https://danbooru.example/posts/1\nhttps://gelbooru.example/2")
	existing := SourceList{"https://origin.example/x", "https://danbooru.example/posts/1"}

	got := found.Merge(existing...)

	require.Equal(t, SourceList{
		"https://danbooru.example/posts/1",
		"https://gelbooru.example/2",
		"https://origin.example/x",
	}, got)
}

func TestSourceListEnsure_IsIdempotent(t *testing.T) {
	s := SourceList{"https://a.example/1"}
	once := s.Ensure("Deepbooru")
	twice := once.Ensure("Deepbooru")
	require.Equal(t, once, twice)
	require.Equal(t, SourceList{"https://a.example/1", "Deepbooru"}, twice)
}

func TestSourceListEnsure_RewritesCaseVariant(t *testing.T) {
	s := SourceList{"DeepBooru", "https://a.example/1"}
	got := s.Ensure("Deepbooru")
	require.Equal(t, SourceList{"Deepbooru", "https://a.example/1"}, got)
}

func TestSourceListRemove_MatchesCaseInsensitively(t *testing.T) {
	s := SourceList{"Deepbooru", "https://a.example/1"}
	got := s.Remove("deepbooru")
	require.Equal(t, SourceList{"https://a.example/1"}, got)
}

func TestSourceListString_JoinsWithNewlines(t *testing.T) {
	s := SourceList{"a", "b"}
	require.Equal(t, "a\nb", s.String())
	require.Equal(t, s, ParseSources(s.String()))
}
