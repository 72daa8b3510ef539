package saucenao

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/szurutag/internal/config"
	"github.com/xxxsen/szurutag/internal/model"
	"go.uber.org/zap"
)

const (
	defaultEndpoint     = "https://saucenao.com/search.php"
	defaultDanbooruBase = "https://danbooru.donmai.us"
	defaultGelbooruBase = "https://gelbooru.com"
	defaultNumResults   = 6
)

// Client performs reverse-image lookups against SauceNAO and resolves the
// matched booru posts to tags, a rating and source urls.
type Client struct {
	apiKey        string
	minSimilarity float64
	numResults    int
	endpoint      string
	danbooruBase  string
	gelbooruBase  string
}

type Option func(*Client)

func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

func WithBooruEndpoints(danbooru string, gelbooru string) Option {
	return func(c *Client) {
		c.danbooruBase = strings.TrimRight(danbooru, "/")
		c.gelbooruBase = strings.TrimRight(gelbooru, "/")
	}
}

func New(cfg config.SauceNaoConfig, opts ...Option) *Client {
	c := &Client{
		apiKey:        cfg.APIKey,
		minSimilarity: float64(cfg.MinSimilarity),
		numResults:    defaultNumResults,
		endpoint:      defaultEndpoint,
		danbooruBase:  defaultDanbooruBase,
		gelbooruBase:  defaultGelbooruBase,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchRequest carries an internet-reachable image url or a local file path.
// When both are set the local file wins.
type SearchRequest struct {
	URL      string
	FilePath string
}

type Result struct {
	Tags           []string
	Sources        model.SourceList
	Safety         model.Safety
	ShortRemaining int
	LongRemaining  int
}

// Search queries SauceNAO and resolves every match at or above the similarity
// threshold. Quota exhaustion is not an error: the returned counters tell the
// caller how much quota remains.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*Result, error) {
	params := url.Values{}
	params.Set("output_type", "2")
	params.Set("api_key", c.apiKey)
	params.Set("db", "999")
	params.Set("numres", strconv.Itoa(c.numResults))

	var httpReq *http.Request
	var err error
	switch {
	case req.FilePath != "":
		httpReq, err = c.newUploadRequest(ctx, params, req.FilePath)
	case req.URL != "":
		params.Set("url", req.URL)
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	default:
		return nil, fmt.Errorf("search request needs an image url or a file path")
	}
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	// 429 still carries the response header with the quota counters.
	if resp.StatusCode != http.StatusTooManyRequests &&
		(resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices) {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("saucenao request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var out wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode saucenao response: %w", err)
	}
	if out.Header.Status < 0 {
		return nil, fmt.Errorf("saucenao rejected the request: %s", out.Header.Message)
	}

	res := &Result{
		Safety:         model.SafetyUnrated,
		ShortRemaining: out.Header.ShortRemaining,
		LongRemaining:  out.Header.LongRemaining,
	}
	for _, r := range out.Results {
		similarity, err := strconv.ParseFloat(r.Header.Similarity, 64)
		if err != nil || similarity < c.minSimilarity {
			continue
		}
		c.resolveMatch(ctx, r, res)
	}
	res.Tags = sanitizeTags(res.Tags)
	return res, nil
}

func (c *Client) resolveMatch(ctx context.Context, r wireResult, res *Result) {
	var meta *booruMeta
	var err error
	switch {
	case r.Data.DanbooruID != 0:
		meta, err = c.lookupDanbooru(ctx, r.Data.DanbooruID)
	case r.Data.GelbooruID != 0:
		meta, err = c.lookupGelbooru(ctx, r.Data.GelbooruID)
	}
	if err != nil {
		logutil.GetLogger(ctx).Warn("booru lookup failed",
			zap.Int("index_id", r.Header.IndexID), zap.Error(err))
	}
	if meta != nil {
		res.Tags = append(res.Tags, meta.Tags...)
		if res.Safety == model.SafetyUnrated {
			res.Safety = meta.Safety
		}
		res.Sources = res.Sources.Merge(meta.Source)
	}
	res.Sources = res.Sources.Merge(r.Data.Source)
	res.Sources = res.Sources.Merge(r.Data.ExtURLs...)
}

type wireResponse struct {
	Header  wireHeader   `json:"header"`
	Results []wireResult `json:"results"`
}

type wireHeader struct {
	Status         int    `json:"status"`
	Message        string `json:"message"`
	ShortRemaining int    `json:"short_remaining"`
	LongRemaining  int    `json:"long_remaining"`
}

type wireResult struct {
	Header wireResultHeader `json:"header"`
	Data   wireResultData   `json:"data"`
}

type wireResultHeader struct {
	Similarity string `json:"similarity"`
	IndexID    int    `json:"index_id"`
}

type wireResultData struct {
	ExtURLs    []string `json:"ext_urls"`
	Source     string   `json:"source"`
	DanbooruID int      `json:"danbooru_id"`
	GelbooruID int      `json:"gelbooru_id"`
}

// sanitizeTags lowercases and deduplicates tag names and drops entries a
// board would reject: empty names, names with whitespace and search
// metatokens containing a colon.
func sanitizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || strings.ContainsAny(tag, ": \t") {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
