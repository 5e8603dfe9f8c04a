package admin

import "github.com/dujiao-next/warehouse/internal/provider"

// Handler 仓库管理接口处理器入口
// 说明：开启鉴权时这些接口都经过 JWT 与 RBAC 中间件。
type Handler struct {
	*provider.Container
}

// New 创建仓库管理处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
