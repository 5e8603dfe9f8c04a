package authz

import (
	"fmt"

	"github.com/dujiao-next/warehouse/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role      string
	Inherits  []string
	Policies  []Policy
	Immutable bool
}

// 预置角色
const (
	RoleViewer  = constants.RoleViewer
	RoleClerk   = constants.RoleClerk
	RoleManager = constants.RoleManager
)

// BuiltinRoleSeeds 仓库预置角色矩阵：查看 < 库管员 < 主管
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: RoleViewer,
			Policies: []Policy{
				{Object: "/warehouse/*", Action: "GET"},
				{Object: "/warehouse/me/password", Action: "PUT"},
			},
			Immutable: true,
		},
		{
			Role:     RoleClerk,
			Inherits: []string{RoleViewer},
			Policies: []Policy{
				{Object: "/warehouse/stock-in", Action: "POST"},
				{Object: "/warehouse/stock-out", Action: "POST"},
				{Object: "/warehouse/lend", Action: "POST"},
				{Object: "/warehouse/return", Action: "POST"},
				{Object: "/warehouse/status/refresh", Action: "POST"},
				{Object: "/warehouse/images", Action: "POST"},
				{Object: "/warehouse/images/batch-delete", Action: "POST"},
			},
			Immutable: true,
		},
		{
			Role:     RoleManager,
			Inherits: []string{RoleClerk},
			Policies: []Policy{
				{Object: "/warehouse/*", Action: "*"},
			},
			Immutable: true,
		},
	}
}

// IsBuiltinRole 判断是否为预置角色
func IsBuiltinRole(role string) bool {
	normalized, err := NormalizeRole(role)
	if err != nil {
		return false
	}
	for _, seed := range BuiltinRoleSeeds() {
		if rolePrefix+seed.Role == normalized {
			return true
		}
	}
	return false
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	changed := false
	for _, seed := range BuiltinRoleSeeds() {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			return err
		}

		exists, err := s.enforcer.HasNamedGroupingPolicy("g", role, roleAnchor)
		if err != nil {
			return fmt.Errorf("check builtin role failed: %w", err)
		}
		if !exists {
			added, err := s.enforcer.AddNamedGroupingPolicy("g", role, roleAnchor)
			if err != nil {
				return fmt.Errorf("create builtin role failed: %w", err)
			}
			if added {
				changed = true
			}
		}

		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			added, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole)
			if err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
			if added {
				changed = true
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			added, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action)
			if err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
			if added {
				changed = true
			}
		}
	}

	if changed {
		return s.saveAndReload()
	}
	return nil
}
