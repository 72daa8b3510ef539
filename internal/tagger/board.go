package tagger

import (
	"context"

	"github.com/xxxsen/szurutag/internal/szuru"
)

type boardSource struct {
	*szuru.Client
}

func (b boardSource) ListPosts(ctx context.Context, query string) (PostIterator, int, error) {
	pager, total, err := b.Client.ListPosts(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	return pager, total, nil
}

// NewBoardSource adapts a szurubooru client to the PostSource the runner
// consumes.
func NewBoardSource(c *szuru.Client) PostSource {
	return boardSource{Client: c}
}
