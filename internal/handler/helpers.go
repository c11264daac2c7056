package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tunebox/internal/pkg/errcode"
	"github.com/xxxsen/tunebox/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	code, _ := response.Classify(err)
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("code", code),
		zap.Error(err),
	)
	if code == errcode.ErrInvalid || code == errcode.ErrNotFound {
		logger.Debug("request rejected")
	} else {
		logger.Error("request failed")
	}
	response.Fail(c, err)
}
