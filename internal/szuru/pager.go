package szuru

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/xxxsen/szurutag/internal/model"
)

// PostPager walks a paged post listing in result order. The first page is
// fetched by ListPosts so Total is known before iteration starts.
type PostPager struct {
	client *Client
	query  string
	limit  int
	offset int
	total  int
	buf    []*model.Post
	done   bool
}

// ListPosts starts a paged listing for the given search query and returns the
// pager together with the total number of matches.
func (c *Client) ListPosts(ctx context.Context, query string) (*PostPager, int, error) {
	p := &PostPager{client: c, query: query, limit: defaultPageSize}
	if err := p.fetch(ctx); err != nil {
		return nil, 0, err
	}
	return p, p.total, nil
}

func (p *PostPager) Total() int {
	return p.total
}

// Next returns the next post in order. The second return value is false once
// the listing is exhausted.
func (p *PostPager) Next(ctx context.Context) (*model.Post, bool, error) {
	if len(p.buf) == 0 && !p.done {
		if err := p.fetch(ctx); err != nil {
			return nil, false, err
		}
	}
	if len(p.buf) == 0 {
		return nil, false, nil
	}
	post := p.buf[0]
	p.buf = p.buf[1:]
	return post, true, nil
}

func (p *PostPager) fetch(ctx context.Context) error {
	if p.offset >= p.total && p.offset > 0 {
		p.done = true
		return nil
	}
	query := url.Values{}
	query.Set("offset", strconv.Itoa(p.offset))
	query.Set("limit", strconv.Itoa(p.limit))
	query.Set("query", p.query)
	var page wirePage
	if err := p.client.do(ctx, http.MethodGet, "/api/posts/", query, nil, &page); err != nil {
		return err
	}
	p.total = page.Total
	p.offset += len(page.Results)
	if len(page.Results) == 0 {
		p.done = true
		return nil
	}
	for _, w := range page.Results {
		p.buf = append(p.buf, w.toModel())
	}
	return nil
}
