package public

import "github.com/dujiao-next/warehouse/internal/provider"

// Handler 免鉴权接口处理器（健康检查、元数据、登录、图片读取）
type Handler struct {
	*provider.Container
}

// New 创建公开接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
