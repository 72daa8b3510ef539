package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPostAddTags_UnionsCaseInsensitively(t *testing.T) {
	p := &Post{Tags: []Tag{{Name: "landscape", Category: CategoryDefault}}}
	p.AddTags("Landscape", "sky", "", "sky", "clouds")
	require.Equal(t, []string{"landscape", "sky", "clouds"}, p.TagNames())
}

func TestPostAddTag_KeepsCategory(t *testing.T) {
	p := &Post{}
	p.AddTag(Tag{Name: "some_artist", Category: CategoryArtist})
	p.AddTag(Tag{Name: "some_artist", Category: CategoryDefault})
	require.Equal(t, []Tag{{Name: "some_artist", Category: CategoryArtist}}, p.Tags)
}

func TestPostRemoveTags_StripsRequestedNames(t *testing.T) {
	p := &Post{Tags: []Tag{
		{Name: "keep", Category: CategoryDefault},
		{Name: "Drop", Category: CategoryDefault},
	}}
	p.RemoveTags("drop", "missing")
	require.Equal(t, []string{"keep"}, p.TagNames())
}

func TestPostStripPlaceholders_RemovesTaggingMarkers(t *testing.T) {
	p := &Post{Tags: []Tag{
		{Name: "deepbooru", Category: CategoryDefault},
		{Name: "scenery", Category: CategoryDefault},
		{Name: "Tagme", Category: CategoryMeta},
	}}
	p.StripPlaceholders()
	require.Equal(t, []string{"scenery"}, p.TagNames())
}

func TestIsPlaceholderTag(t *testing.T) {
	require.True(t, IsPlaceholderTag("deepbooru"))
	require.True(t, IsPlaceholderTag(" Tagme "))
	require.False(t, IsPlaceholderTag("scenery"))
}
