package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/xxxsen/szurutag/internal/model"
)

// Sankaku pages block obvious bot agents, so requests carry a browser one.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

const maxPageBytes = 4 << 20

type SankakuResult struct {
	Tags   []string
	Safety model.Safety
}

type Sankaku struct{}

func NewSankaku() *Sankaku {
	return &Sankaku{}
}

// ScrapePost reads the tag sidebar and the rating off a sankaku post page.
func (s *Sankaku) ScrapePost(ctx context.Context, pageURL string) (*SankakuResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("fetch sankaku page failed: %s", resp.Status)
	}
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("parse sankaku page: %w", err)
	}

	res := &SankakuResult{Safety: model.SafetyUnrated}
	seen := map[string]struct{}{}
	doc.Find(`#tag-sidebar li[class*="tag-type-"] a[href*="tags="]`).Each(func(_ int, sel *goquery.Selection) {
		name := normalizeTagText(sel.Text())
		if name == "" || name == "?" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		res.Tags = append(res.Tags, name)
	})
	doc.Find("#stats li").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if !strings.HasPrefix(text, "Rating:") {
			return
		}
		res.Safety = model.ParseSafety(strings.TrimSpace(strings.TrimPrefix(text, "Rating:")))
	})
	if len(res.Tags) == 0 {
		return nil, fmt.Errorf("no tags found on sankaku page")
	}
	return res, nil
}

func normalizeTagText(text string) string {
	name := strings.ToLower(strings.TrimSpace(text))
	return strings.ReplaceAll(name, " ", "_")
}
