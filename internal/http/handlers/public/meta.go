package public

import (
	"time"

	"github.com/dujiao-next/warehouse/internal/http/response"

	"github.com/gin-gonic/gin"
)

// HealthCheck 健康检查，附带数据表初始化状态
func (h *Handler) HealthCheck(c *gin.Context) {
	status := h.TableRepo.Status()
	state := "ok"
	if !status.Initialized {
		state = "degraded"
	}
	response.Success(c, gin.H{
		"status":          state,
		"timestamp":       time.Now().Format(time.RFC3339),
		"tables":          status,
		"auth_enabled":    h.Config.Auth.Enabled,
		"queue_enabled":   h.QueueClient.Enabled(),
		"storage_enabled": h.ImageService.Enabled(),
	})
}

// ListProductTypes 可选产品类型
func (h *Handler) ListProductTypes(c *gin.Context) {
	response.Success(c, h.Config.Warehouse.ProductTypes)
}

// ListFloors 可选楼层及默认容量
func (h *Handler) ListFloors(c *gin.Context) {
	response.Success(c, gin.H{
		"floors":         h.Config.Warehouse.Floors,
		"floor_capacity": h.Config.Warehouse.FloorCapacity,
	})
}
