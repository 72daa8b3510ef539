package model

import "strings"

type Post struct {
	ID         int
	Version    int
	ContentURL string
	MimeType   string
	Tags       []Tag
	Safety     Safety
	Source     SourceList
	Relations  []int
}

func (p *Post) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		names = append(names, t.Name)
	}
	return names
}

func (p *Post) HasTag(name string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t.Name, name) {
			return true
		}
	}
	return false
}

// AddTags unions the given names into the post's tag list, preserving the
// existing order and appending new names in arrival order. Comparison is
// case-insensitive; empty names are dropped.
func (p *Post) AddTags(names ...string) {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || p.HasTag(name) {
			continue
		}
		p.Tags = append(p.Tags, Tag{Name: name, Category: CategoryDefault})
	}
}

func (p *Post) AddTag(t Tag) {
	if strings.TrimSpace(t.Name) == "" || p.HasTag(t.Name) {
		return
	}
	p.Tags = append(p.Tags, t)
}

func (p *Post) RemoveTags(names ...string) {
	for _, name := range names {
		p.removeTag(name)
	}
}

func (p *Post) removeTag(name string) {
	out := p.Tags[:0]
	for _, t := range p.Tags {
		if strings.EqualFold(t.Name, name) {
			continue
		}
		out = append(out, t)
	}
	p.Tags = out
}

// StripPlaceholders drops the tagging placeholder tags before an update is
// written back.
func (p *Post) StripPlaceholders() {
	out := p.Tags[:0]
	for _, t := range p.Tags {
		if IsPlaceholderTag(t.Name) {
			continue
		}
		out = append(out, t)
	}
	p.Tags = out
}
