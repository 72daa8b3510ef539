package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/szurutag/internal/pkg/errcode"
	errs "github.com/xxxsen/szurutag/internal/pkg/errors"
	"github.com/xxxsen/szurutag/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	switch {
	case errs.IsUsage(err) || errors.Is(err, errs.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, err.Error())
	case errs.IsNotFound(err):
		response.Error(c, errcode.ErrNotFound, err.Error())
	case errs.IsConflict(err):
		response.Error(c, errcode.ErrConflict, err.Error())
	case errors.Is(err, errs.ErrUnavailable):
		response.Error(c, errcode.ErrUnavailable, "service unavailable")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
