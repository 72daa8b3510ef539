package saucenao

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xxxsen/szurutag/internal/model"
)

type booruMeta struct {
	Tags   []string
	Safety model.Safety
	Source string
}

type danbooruPost struct {
	TagString string `json:"tag_string"`
	Rating    string `json:"rating"`
	Source    string `json:"source"`
}

func (c *Client) lookupDanbooru(ctx context.Context, id int) (*booruMeta, error) {
	endpoint := fmt.Sprintf("%s/posts/%d.json", c.danbooruBase, id)
	var post danbooruPost
	if err := fetchJSON(ctx, endpoint, &post); err != nil {
		return nil, fmt.Errorf("danbooru post %d: %w", id, err)
	}
	return &booruMeta{
		Tags:   strings.Fields(post.TagString),
		Safety: model.ParseSafety(post.Rating),
		Source: post.Source,
	}, nil
}

type gelbooruResponse struct {
	Post []gelbooruPost `json:"post"`
}

type gelbooruPost struct {
	Tags   string `json:"tags"`
	Rating string `json:"rating"`
	Source string `json:"source"`
}

func (c *Client) lookupGelbooru(ctx context.Context, id int) (*booruMeta, error) {
	endpoint := fmt.Sprintf("%s/index.php?page=dapi&s=post&q=index&json=1&id=%d", c.gelbooruBase, id)
	var out gelbooruResponse
	if err := fetchJSON(ctx, endpoint, &out); err != nil {
		return nil, fmt.Errorf("gelbooru post %d: %w", id, err)
	}
	if len(out.Post) == 0 {
		return nil, fmt.Errorf("gelbooru post %d: not found", id)
	}
	post := out.Post[0]
	return &booruMeta{
		Tags:   strings.Fields(post.Tags),
		Safety: model.ParseSafety(post.Rating),
		Source: post.Source,
	}, nil
}

func fetchJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
