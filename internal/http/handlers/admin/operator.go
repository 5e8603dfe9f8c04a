package admin

import (
	"strings"

	handlershared "github.com/dujiao-next/warehouse/internal/http/handlers/shared"
	"github.com/dujiao-next/warehouse/internal/http/response"
	"github.com/dujiao-next/warehouse/internal/repository"
	"github.com/dujiao-next/warehouse/internal/service"

	"github.com/gin-gonic/gin"
)

// ListOperators 操作员列表
func (h *Handler) ListOperators(c *gin.Context) {
	page, pageSize := h.InventoryService.NormalizePage(handlershared.QueryInt(c, "page", 1), handlershared.QueryInt(c, "page_size", 0))
	operators, total, err := h.OperatorService.List(repository.OperatorListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  strings.TrimSpace(c.Query("keyword")),
	})
	if err != nil {
		respondServiceError(c, err, "操作员查询失败")
		return
	}
	response.SuccessWithPage(c, operators, handlershared.BuildPagination(page, pageSize, total))
}

// CreateOperator 创建操作员
func (h *Handler) CreateOperator(c *gin.Context) {
	var req service.CreateOperatorInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "请求参数错误", nil)
		return
	}
	view, err := h.OperatorService.Create(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "操作员创建失败")
		return
	}
	requestLog(c).Infow("operator_create_request_done", "username", view.Username, "by", handlershared.CurrentOperatorName(c))
	response.SuccessWithMsg(c, "操作员创建成功", view)
}

type setOperatorRolesRequest struct {
	Roles []string `json:"roles"`
}

// SetOperatorRoles 覆盖操作员角色
func (h *Handler) SetOperatorRoles(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req setOperatorRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "请求参数错误", nil)
		return
	}
	view, err := h.OperatorService.SetRoles(c.Request.Context(), uint(id), req.Roles)
	if err != nil {
		respondServiceError(c, err, "操作员角色分配失败")
		return
	}
	response.SuccessWithMsg(c, "操作员角色已更新", view)
}

// DeleteOperator 删除操作员
func (h *Handler) DeleteOperator(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if uint(id) == handlershared.CurrentOperatorID(c) {
		respondErrorWithMsg(c, response.CodeBadRequest, "不能删除当前登录的操作员", nil)
		return
	}
	if err := h.OperatorService.Delete(c.Request.Context(), uint(id)); err != nil {
		respondServiceError(c, err, "操作员删除失败")
		return
	}
	response.SuccessWithMsg(c, "操作员已删除", nil)
}

// ListRoles 预置角色及其权限
func (h *Handler) ListRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondErrorWithMsg(c, response.CodeInternal, "角色查询失败", err)
		return
	}
	result := make([]gin.H, 0, len(roles))
	for _, role := range roles {
		policies, err := h.AuthzService.GetRolePolicies(role)
		if err != nil {
			respondErrorWithMsg(c, response.CodeInternal, "角色权限查询失败", err)
			return
		}
		result = append(result, gin.H{"role": role, "policies": policies})
	}
	response.Success(c, result)
}

// GetMe 当前登录操作员
func (h *Handler) GetMe(c *gin.Context) {
	view, err := h.OperatorService.Get(handlershared.CurrentOperatorID(c))
	if err != nil {
		respondServiceError(c, err, "操作员查询失败")
		return
	}
	response.Success(c, view)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePassword 修改当前操作员密码，旧 Token 随之失效
func (h *Handler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "请求参数错误", nil)
		return
	}
	if err := h.AuthService.ChangePassword(handlershared.CurrentOperatorID(c), req.OldPassword, req.NewPassword); err != nil {
		respondServiceError(c, err, "密码修改失败")
		return
	}
	response.SuccessWithMsg(c, "密码修改成功，请重新登录", nil)
}
