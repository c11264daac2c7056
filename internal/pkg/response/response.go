package response

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"

	"github.com/xxxsen/tunebox/internal/pkg/errcode"
	appErr "github.com/xxxsen/tunebox/internal/pkg/errors"
)

type codeErr struct {
	code uint32
	msg  string
}

func (e codeErr) Error() string {
	return e.msg
}

func (e codeErr) Code() uint32 {
	return e.code
}

func AsCodeErr(code uint32, msg string) error {
	return codeErr{code: code, msg: msg}
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, 200, AsCodeErr(uint32(code), message))
}

// Fail writes the error envelope for err, see Classify.
func Fail(c *gin.Context, err error) {
	code, msg := Classify(err)
	Error(c, code, msg)
}

// Classify maps a service error onto its public code and message. Only
// validation errors expose their own text.
func Classify(err error) (int, string) {
	switch {
	case err == nil:
		return 0, ""
	case errors.Is(err, appErr.ErrInvalid):
		return errcode.ErrInvalid, err.Error()
	case errors.Is(err, appErr.ErrNotFound):
		return errcode.ErrNotFound, "not found"
	case errors.Is(err, appErr.ErrTooMany):
		return errcode.ErrTooMany, "too many requests"
	case errors.Is(err, appErr.ErrUpstreamUnavailable):
		return errcode.ErrUpstreamUnavailable, "upstream unavailable"
	case errors.Is(err, appErr.ErrMalformedUpstreamPayload):
		return errcode.ErrUpstreamPayload, "malformed upstream payload"
	case errors.Is(err, appErr.ErrStorageUnavailable):
		return errcode.ErrStorageUnavailable, "storage unavailable"
	case errors.Is(err, appErr.ErrDimensionMismatch), errors.Is(err, appErr.ErrZeroVector):
		return errcode.ErrEmbeddingUnavailable, "embedding unavailable"
	default:
		return errcode.ErrInternal, "internal error"
	}
}
