package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/szurutag/internal/model"
)

const sankakuFixture = `<!DOCTYPE html>
<html><body>
<ul id="tag-sidebar">
  <li class="tag-type-artist"><a href="/wiki/some_artist">?</a> <a href="/?tags=some_artist">some artist</a> <span class="post-count">120</span></li>
  <li class="tag-type-character"><a href="/?tags=hatsune_miku">hatsune miku</a></li>
  <li class="tag-type-general"><a href="/?tags=blue_sky">blue sky</a></li>
  <li class="tag-type-general"><a href="/?tags=blue_sky">blue sky</a></li>
</ul>
<div id="stats">
  <ul>
    <li>Posted: 2024-01-01</li>
    <li>Rating: Questionable</li>
  </ul>
</div>
</body></html>`

func TestScrapePost_ReadsSidebarTagsAndRating(t *testing.T) {
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(sankakuFixture))
	}))
	t.Cleanup(srv.Close)

	res, err := NewSankaku().ScrapePost(context.Background(), srv.URL+"/post/show/123")
	require.NoError(t, err)
	require.Equal(t, []string{"some_artist", "hatsune_miku", "blue_sky"}, res.Tags)
	require.Equal(t, model.SafetyQuestionable, res.Safety)
	require.Contains(t, gotAgent, "Mozilla")
}

func TestScrapePost_FailsOnEmptySidebar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>nothing here</p></body></html>"))
	}))
	t.Cleanup(srv.Close)

	_, err := NewSankaku().ScrapePost(context.Background(), srv.URL)
	require.ErrorContains(t, err, "no tags")
}

func TestScrapePost_FailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	_, err := NewSankaku().ScrapePost(context.Background(), srv.URL)
	require.ErrorContains(t, err, "403")
}
