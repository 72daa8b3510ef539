package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/szurutag/internal/pkg/errcode"
	"github.com/xxxsen/szurutag/internal/pkg/response"
	"github.com/xxxsen/szurutag/internal/tagger"
)

// RunTrigger starts a tagging run on demand.
type RunTrigger interface {
	RunWith(ctx context.Context, opts tagger.Options) (*tagger.Result, error)
}

// WebhookHandler receives szurubooru snapshot webhooks and tags freshly
// created posts.
type WebhookHandler struct {
	trigger RunTrigger
}

func NewWebhookHandler(trigger RunTrigger) *WebhookHandler {
	return &WebhookHandler{trigger: trigger}
}

type webhookRequest struct {
	Operation string `json:"operation"`
	Type      string `json:"type"`
	ID        int    `json:"id"`
}

// Notify accepts every event the board sends but only acts on post
// creations, for which it runs the tagging pipeline and answers with the
// outcome.
func (h *WebhookHandler) Notify(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.Operation != "created" || req.Type != "post" {
		response.Success(c, gin.H{"accepted": false})
		return
	}
	if req.ID <= 0 {
		response.Error(c, errcode.ErrInvalid, "post id required")
		return
	}
	logutil.GetLogger(c.Request.Context()).Info("webhook post created, tagging",
		zap.Int("post_id", req.ID))
	opts := tagger.Options{Mode: tagger.ModeFromUpload, Query: strconv.Itoa(req.ID)}
	res, err := h.trigger.RunWith(c.Request.Context(), opts)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"accepted": true, "stats": res.Stats})
}
