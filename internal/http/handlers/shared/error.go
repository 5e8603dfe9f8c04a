package shared

import (
	"errors"

	"github.com/dujiao-next/warehouse/internal/http/response"
	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondErrorWithMsg 返回自定义消息错误响应，并在有原始错误时记录日志。
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// RespondServiceError 按业务错误类别映射响应码；批量操作的逐条错误放在 data.error_details。
func RespondServiceError(c *gin.Context, err error, fallback string) {
	var opErr *service.OperationError
	if errors.As(err, &opErr) {
		code := OperationErrorCode(opErr.Kind)
		if code == response.CodeInternal {
			RequestLog(c).Errorw("handler_storage_error", "message", opErr.Message, "error", opErr.Cause)
		} else {
			RequestLog(c).Warnw("handler_operation_rejected", "code", code, "message", opErr.Message)
		}
		if len(opErr.Details) > 0 {
			response.ErrorWithData(c, code, opErr.Error(), gin.H{"error_details": opErr.Details})
			return
		}
		response.Error(c, code, opErr.Error())
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		RespondErrorWithMsg(c, response.CodeUnauthorized, "用户名或密码错误", nil)
	case errors.Is(err, service.ErrTokenRevoked):
		RespondErrorWithMsg(c, response.CodeUnauthorized, "登录已失效，请重新登录", nil)
	case errors.Is(err, service.ErrNotFound):
		RespondErrorWithMsg(c, response.CodeNotFound, "记录不存在", nil)
	case errors.Is(err, service.ErrInvalidPassword):
		RespondErrorWithMsg(c, response.CodeBadRequest, "原密码错误", nil)
	case errors.Is(err, service.ErrWeakPassword):
		RespondErrorWithMsg(c, response.CodeBadRequest, weakPasswordMessage(err), nil)
	case errors.Is(err, service.ErrOperatorExists):
		RespondErrorWithMsg(c, response.CodeBadRequest, "用户名已存在", nil)
	case errors.Is(err, service.ErrCaptchaRequired):
		RespondErrorWithMsg(c, response.CodeBadRequest, "请输入验证码", nil)
	case errors.Is(err, service.ErrCaptchaInvalid):
		RespondErrorWithMsg(c, response.CodeBadRequest, "验证码错误或已过期", nil)
	case errors.Is(err, service.ErrCaptchaConfigInvalid):
		RespondErrorWithMsg(c, response.CodeBadRequest, "验证码未启用", nil)
	case errors.Is(err, service.ErrImageStoreDisabled):
		RespondErrorWithMsg(c, response.CodeBadRequest, "未配置图片存储", nil)
	case errors.Is(err, service.ErrImageNotFound):
		RespondErrorWithMsg(c, response.CodeNotFound, "图片不存在", nil)
	case errors.Is(err, service.ErrInvalidImage):
		RespondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
	default:
		RespondErrorWithMsg(c, response.CodeInternal, fallback, err)
	}
}

// OperationErrorCode 业务错误类别对应的响应码
func OperationErrorCode(kind error) int {
	switch {
	case errors.Is(kind, service.ErrValidation):
		return response.CodeBadRequest
	case errors.Is(kind, service.ErrNotFound):
		return response.CodeNotFound
	case errors.Is(kind, service.ErrCapacity), errors.Is(kind, service.ErrConsistency):
		return response.CodeConflict
	default:
		return response.CodeInternal
	}
}

func weakPasswordMessage(err error) string {
	if err == nil || errors.Is(service.ErrWeakPassword, err) {
		return "密码强度不足"
	}
	return err.Error()
}
