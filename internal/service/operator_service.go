package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/dujiao-next/warehouse/internal/authz"
	"github.com/dujiao-next/warehouse/internal/cache"
	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/models"
	"github.com/dujiao-next/warehouse/internal/repository"
)

// 默认超级操作员账号，不允许删除或降级
const protectedOperatorUsername = "admin"

// OperatorService 操作员账号与角色管理
type OperatorService struct {
	repo  repository.OperatorRepository
	authz *authz.Service
	auth  *AuthService
}

// NewOperatorService 创建操作员服务
func NewOperatorService(repo repository.OperatorRepository, authzService *authz.Service, auth *AuthService) *OperatorService {
	return &OperatorService{repo: repo, authz: authzService, auth: auth}
}

// CreateOperatorInput 创建操作员输入
type CreateOperatorInput struct {
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	DisplayName string   `json:"display_name"`
	IsSuper     bool     `json:"is_super"`
	Roles       []string `json:"roles"`
}

// OperatorView 操作员及其角色
type OperatorView struct {
	models.Operator
	Roles []string `json:"roles"`
}

func normalizeOperatorUsername(raw string) (string, error) {
	username := strings.TrimSpace(raw)
	if username == "" {
		return "", validationError("用户名不能为空")
	}
	if utf8.RuneCountInString(username) > 64 {
		return "", validationError("用户名长度不能超过64个字符")
	}
	if strings.ContainsAny(username, " \t\r\n") {
		return "", validationError("用户名不能包含空白字符")
	}
	return username, nil
}

// Create 创建操作员并分配角色
func (s *OperatorService) Create(ctx context.Context, in CreateOperatorInput) (*OperatorView, error) {
	username, err := normalizeOperatorUsername(in.Username)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByUsername(username)
	if err != nil {
		return nil, storageError(err, "操作员查询失败")
	}
	if existing != nil {
		return nil, ErrOperatorExists
	}
	if strings.TrimSpace(in.Password) == "" {
		return nil, ErrWeakPassword
	}
	if err := s.auth.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	roles, err := normalizeOperatorRoles(in.Roles)
	if err != nil {
		return nil, err
	}

	hash, err := s.auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = username
	}
	operator := &models.Operator{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
		IsSuper:      in.IsSuper || strings.EqualFold(username, protectedOperatorUsername),
	}
	if err := s.repo.Create(operator); err != nil {
		return nil, storageError(err, "操作员创建失败")
	}
	if len(roles) > 0 && s.authz != nil {
		if err := s.authz.SetOperatorRoles(operator.ID, roles); err != nil {
			return nil, storageError(err, "操作员角色分配失败")
		}
	}
	_ = cache.SetOperatorAuthState(ctx, cache.BuildOperatorAuthState(operator))

	logger.Infow("operator_created", "operator_id", operator.ID, "username", operator.Username, "roles", roles, "is_super", operator.IsSuper)
	return s.view(*operator)
}

// List 分页列出操作员及角色
func (s *OperatorService) List(filter repository.OperatorListFilter) ([]OperatorView, int64, error) {
	operators, total, err := s.repo.List(filter)
	if err != nil {
		return nil, 0, storageError(err, "操作员查询失败")
	}
	views := make([]OperatorView, 0, len(operators))
	for _, op := range operators {
		v, err := s.view(op)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, *v)
	}
	return views, total, nil
}

// Get 查询单个操作员及角色
func (s *OperatorService) Get(operatorID uint) (*OperatorView, error) {
	operator, err := s.repo.GetByID(operatorID)
	if err != nil {
		return nil, storageError(err, "操作员查询失败")
	}
	if operator == nil {
		return nil, notFoundError("未找到ID为%d的操作员", operatorID)
	}
	return s.view(*operator)
}

// SetRoles 覆盖操作员角色
func (s *OperatorService) SetRoles(ctx context.Context, operatorID uint, roles []string) (*OperatorView, error) {
	operator, err := s.repo.GetByID(operatorID)
	if err != nil {
		return nil, storageError(err, "操作员查询失败")
	}
	if operator == nil {
		return nil, notFoundError("未找到ID为%d的操作员", operatorID)
	}
	normalized, err := normalizeOperatorRoles(roles)
	if err != nil {
		return nil, err
	}
	if s.authz == nil {
		return nil, storageError(nil, "权限服务不可用")
	}
	if err := s.authz.SetOperatorRoles(operatorID, normalized); err != nil {
		return nil, storageError(err, "操作员角色分配失败")
	}
	_ = cache.DelOperatorAuthState(ctx, operatorID)

	logger.Infow("operator_roles_updated", "operator_id", operatorID, "roles", normalized)
	return s.view(*operator)
}

// Delete 删除操作员，已签发的 Token 随之失效
func (s *OperatorService) Delete(ctx context.Context, operatorID uint) error {
	operator, err := s.repo.GetByID(operatorID)
	if err != nil {
		return storageError(err, "操作员查询失败")
	}
	if operator == nil {
		return notFoundError("未找到ID为%d的操作员", operatorID)
	}
	if strings.EqualFold(operator.Username, protectedOperatorUsername) {
		return validationError("默认超级操作员不能删除")
	}
	if s.authz != nil {
		if err := s.authz.SetOperatorRoles(operatorID, nil); err != nil {
			return storageError(err, "操作员角色清理失败")
		}
	}
	if err := s.repo.Delete(operatorID); err != nil {
		return storageError(err, "操作员删除失败")
	}
	_ = cache.DelOperatorAuthState(ctx, operatorID)

	logger.Infow("operator_deleted", "operator_id", operatorID, "username", operator.Username)
	return nil
}

func (s *OperatorService) view(op models.Operator) (*OperatorView, error) {
	roles := []string{}
	if s.authz != nil {
		assigned, err := s.authz.GetOperatorRoles(op.ID)
		if err != nil {
			return nil, storageError(err, "操作员角色查询失败")
		}
		for _, r := range assigned {
			roles = append(roles, strings.TrimPrefix(r, "role:"))
		}
	}
	return &OperatorView{Operator: op, Roles: roles}, nil
}

// normalizeOperatorRoles 只允许分配预置角色
func normalizeOperatorRoles(roles []string) ([]string, error) {
	result := make([]string, 0, len(roles))
	seen := map[string]struct{}{}
	for _, raw := range roles {
		role := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "role:")
		if role == "" {
			continue
		}
		if !authz.IsBuiltinRole(role) {
			return nil, &OperationError{Kind: ErrValidation, Message: "角色无效：" + raw, Cause: ErrInvalidRole}
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		result = append(result, role)
	}
	return result, nil
}
