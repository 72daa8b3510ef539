package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/szurutag/internal/history"
	"github.com/xxxsen/szurutag/internal/model"
	"github.com/xxxsen/szurutag/internal/tagger"
)

type fakeTrigger struct {
	result *tagger.Result
	err    error
	opts   []tagger.Options
}

func (f *fakeTrigger) RunWith(ctx context.Context, opts tagger.Options) (*tagger.Result, error) {
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &tagger.Result{}, nil
}

func newTestRouter(t *testing.T, trigger RunTrigger, stats *model.AtomicStats, hist *history.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	RegisterRoutes(engine.Group("/api/v1"), RouterDeps{
		Webhook: NewWebhookHandler(trigger),
		Stats:   NewStatsHandler(stats, hist),
	})
	return engine
}

func postJSON(engine *gin.Engine, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestWebhookNotify_TagsCreatedPost(t *testing.T) {
	trigger := &fakeTrigger{result: &tagger.Result{
		Stats: model.Stats{TaggedClassifier: 1},
		Total: 1,
	}}
	engine := newTestRouter(t, trigger, &model.AtomicStats{}, nil)

	w := postJSON(engine, "/api/v1/webhook", `{"operation":"created","type":"post","id":42}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"accepted":true`)
	require.Contains(t, w.Body.String(), `"tagged_classifier":1`)

	require.Len(t, trigger.opts, 1)
	require.Equal(t, tagger.ModeFromUpload, trigger.opts[0].Mode)
	require.Equal(t, "42", trigger.opts[0].Query)
	require.Empty(t, trigger.opts[0].AddTags)
	require.Empty(t, trigger.opts[0].RemoveTags)
}

func TestWebhookNotify_IgnoresOtherOperations(t *testing.T) {
	trigger := &fakeTrigger{}
	engine := newTestRouter(t, trigger, &model.AtomicStats{}, nil)

	w := postJSON(engine, "/api/v1/webhook", `{"operation":"deleted","type":"post","id":42}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"accepted":false`)
	require.Empty(t, trigger.opts)

	w = postJSON(engine, "/api/v1/webhook", `{"operation":"created","type":"tag","id":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"accepted":false`)
	require.Empty(t, trigger.opts)
}

func TestWebhookNotify_RejectsInvalidBody(t *testing.T) {
	trigger := &fakeTrigger{}
	engine := newTestRouter(t, trigger, &model.AtomicStats{}, nil)

	w := postJSON(engine, "/api/v1/webhook", `not json`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "invalid request")
	require.Empty(t, trigger.opts)
}

func TestWebhookNotify_ReportsRunFailure(t *testing.T) {
	trigger := &fakeTrigger{err: fmt.Errorf("board unreachable")}
	engine := newTestRouter(t, trigger, &model.AtomicStats{}, nil)

	w := postJSON(engine, "/api/v1/webhook", `{"operation":"created","type":"post","id":42}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "internal error")
}

func TestStatsGet_ReturnsTotalsAndRecentRuns(t *testing.T) {
	stats := &model.AtomicStats{}
	stats.Add(model.Stats{Tagged: 3, Untagged: 1})

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	runID, err := store.StartRun(context.Background(), "standalone", "tag-count:0")
	require.NoError(t, err)
	require.NoError(t, store.FinishRun(context.Background(), runID, model.Stats{Tagged: 3, Untagged: 1}))

	engine := newTestRouter(t, &fakeTrigger{}, stats, store)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.Contains(t, body, `"tagged":3`)
	require.Contains(t, body, `"recent_runs"`)
	require.Contains(t, body, runID)
}

func TestHealthz_ReportsOK(t *testing.T) {
	engine := newTestRouter(t, &fakeTrigger{}, &model.AtomicStats{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ok")
}
