package szuru

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/szurutag/internal/config"
	"github.com/xxxsen/szurutag/internal/model"
	errs "github.com/xxxsen/szurutag/internal/pkg/errors"
)

const (
	defaultPageSize = 100
	postCacheSize   = 256
	postCacheTTL    = 10 * time.Minute
)

// Client talks to a szurubooru board over its JSON API using token auth.
type Client struct {
	baseURL  *url.URL
	username string
	token    string
	public   bool
	cache    *expirable.LRU[int, *model.Post]
}

func New(cfg config.SzurubooruConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse szurubooru url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("szurubooru url must be absolute: %s", cfg.URL)
	}
	return &Client{
		baseURL:  base,
		username: cfg.Username,
		token:    cfg.Token,
		public:   cfg.Public,
		cache:    expirable.NewLRU[int, *model.Post](postCacheSize, nil, postCacheTTL),
	}, nil
}

// Public reports whether the board's content urls are reachable from the
// internet, which decides whether reverse search may fetch them directly.
func (c *Client) Public() bool {
	return c.public
}

func (c *Client) GetPost(ctx context.Context, id int) (*model.Post, error) {
	if cached, ok := c.cache.Get(id); ok {
		return clonePost(cached), nil
	}
	var out wirePost
	if err := c.do(ctx, http.MethodGet, "/api/post/"+strconv.Itoa(id), nil, nil, &out); err != nil {
		return nil, err
	}
	post := out.toModel()
	c.cache.Add(id, clonePost(post))
	return post, nil
}

// UpdatePost writes the post's tags, safety and source back to the board
// using its optimistic-lock version. A stale version surfaces as ErrConflict.
func (c *Client) UpdatePost(ctx context.Context, post *model.Post) error {
	payload := wireUpdate{
		Version: post.Version,
		Tags:    post.TagNames(),
		Source:  post.Source.String(),
	}
	if post.Safety != model.SafetyUnrated {
		payload.Safety = safetyToWire(post.Safety)
	}
	var out wirePost
	if err := c.do(ctx, http.MethodPut, "/api/post/"+strconv.Itoa(post.ID), nil, payload, &out); err != nil {
		return err
	}
	post.Version = out.Version
	c.cache.Remove(post.ID)
	return nil
}

// AbsoluteContentURL resolves the board-relative contentUrl of a post against
// the configured base url.
func (c *Client) AbsoluteContentURL(post *model.Post) string {
	ref, err := url.Parse(post.ContentURL)
	if err != nil {
		return post.ContentURL
	}
	return c.baseURL.ResolveReference(ref).String()
}

func (c *Client) do(ctx context.Context, method string, path string, query url.Values, in interface{}, out interface{}) error {
	endpoint := *c.baseURL
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + path
	if query != nil {
		endpoint.RawQuery = query.Encode()
	}
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.authHeader())
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) authHeader() string {
	cred := base64.StdEncoding.EncodeToString([]byte(c.username + ":" + c.token))
	return "Token " + cred
}

func decodeError(resp *http.Response) error {
	var werr wireError
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &werr)
	detail := werr.Description
	if detail == "" {
		detail = strings.TrimSpace(string(raw))
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("szurubooru: %s: %w", detail, errs.ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("szurubooru: %s: %w", detail, errs.ErrConflict)
	default:
		return fmt.Errorf("szurubooru request failed: %s: %s", resp.Status, detail)
	}
}

type wirePost struct {
	ID         int            `json:"id"`
	Version    int            `json:"version"`
	ContentURL string         `json:"contentUrl"`
	MimeType   string         `json:"mimeType"`
	Safety     string         `json:"safety"`
	Source     string         `json:"source"`
	Tags       []wireTag      `json:"tags"`
	Relations  []wireRelation `json:"relations"`
}

type wireTag struct {
	Names    []string `json:"names"`
	Category string   `json:"category"`
}

type wireRelation struct {
	ID int `json:"id"`
}

type wirePage struct {
	Total   int        `json:"total"`
	Offset  int        `json:"offset"`
	Limit   int        `json:"limit"`
	Results []wirePost `json:"results"`
}

type wireError struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type wireUpdate struct {
	Version int      `json:"version"`
	Tags    []string `json:"tags"`
	Safety  string   `json:"safety,omitempty"`
	Source  string   `json:"source"`
}

func (w *wirePost) toModel() *model.Post {
	post := &model.Post{
		ID:         w.ID,
		Version:    w.Version,
		ContentURL: w.ContentURL,
		MimeType:   w.MimeType,
		Safety:     model.ParseSafety(w.Safety),
		Source:     model.ParseSources(w.Source),
	}
	for _, t := range w.Tags {
		if len(t.Names) == 0 {
			continue
		}
		post.Tags = append(post.Tags, model.Tag{Name: t.Names[0], Category: t.Category})
	}
	for _, r := range w.Relations {
		post.Relations = append(post.Relations, r.ID)
	}
	return post
}

func safetyToWire(s model.Safety) string {
	if s == model.SafetyQuestionable {
		return "sketchy"
	}
	return string(s)
}

func clonePost(p *model.Post) *model.Post {
	clone := *p
	clone.Tags = append([]model.Tag(nil), p.Tags...)
	clone.Source = append(model.SourceList(nil), p.Source...)
	clone.Relations = append([]int(nil), p.Relations...)
	return &clone
}
