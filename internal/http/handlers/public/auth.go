package public

import (
	"strings"

	handlershared "github.com/dujiao-next/warehouse/internal/http/handlers/shared"
	"github.com/dujiao-next/warehouse/internal/http/response"

	"github.com/gin-gonic/gin"
)

// LoginRequest 操作员登录请求
type LoginRequest struct {
	Username       string                              `json:"username" binding:"required"`
	Password       string                              `json:"password" binding:"required"`
	CaptchaPayload handlershared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// GetCaptcha 获取登录图片验证码
func (h *Handler) GetCaptcha(c *gin.Context) {
	if !h.CaptchaService.Enabled() {
		response.Success(c, gin.H{"enabled": false})
		return
	}
	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		handlershared.RespondServiceError(c, err, "验证码生成失败")
		return
	}
	response.Success(c, gin.H{
		"enabled":      true,
		"captcha_id":   challenge.CaptchaID,
		"image_base64": challenge.ImageBase64,
	})
}

// Login 操作员登录
func (h *Handler) Login(c *gin.Context) {
	if h.AuthService == nil {
		handlershared.RespondErrorWithMsg(c, response.CodeBadRequest, "未启用操作员鉴权", nil)
		return
	}
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondErrorWithMsg(c, response.CodeBadRequest, "请输入用户名和密码", nil)
		return
	}
	if h.CaptchaService.Enabled() {
		if err := h.CaptchaService.Verify(req.CaptchaPayload.ToServicePayload()); err != nil {
			handlershared.RespondServiceError(c, err, "验证码校验失败")
			return
		}
	}

	username := strings.TrimSpace(req.Username)
	operator, token, expiresAt, err := h.AuthService.Login(username, req.Password)
	if err != nil {
		handlershared.RequestLog(c).Warnw("operator_login_failed", "username", username, "client_ip", c.ClientIP())
		handlershared.RespondServiceError(c, err, "登录失败")
		return
	}

	roles := []string{}
	if h.AuthzService != nil {
		assigned, err := h.AuthzService.GetOperatorRoles(operator.ID)
		if err != nil {
			handlershared.RequestLog(c).Warnw("operator_login_roles_query_failed", "operator_id", operator.ID, "error", err)
		}
		for _, role := range assigned {
			roles = append(roles, strings.TrimPrefix(role, "role:"))
		}
	}
	handlershared.RequestLog(c).Infow("operator_login_succeeded", "operator_id", operator.ID, "username", operator.Username)
	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"operator":   operator,
		"roles":      roles,
	})
}
