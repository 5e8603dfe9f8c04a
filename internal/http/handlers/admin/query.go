package admin

import (
	"strings"

	handlershared "github.com/dujiao-next/warehouse/internal/http/handlers/shared"
	"github.com/dujiao-next/warehouse/internal/http/response"
	"github.com/dujiao-next/warehouse/internal/service"

	"github.com/gin-gonic/gin"
)

func operationRecordFilter(c *gin.Context) service.OperationRecordFilter {
	filter := service.OperationRecordFilter{
		InventoryID: handlershared.QueryInt(c, "inventory_id", 0),
		StartDate:   strings.TrimSpace(c.Query("start_date")),
		EndDate:     strings.TrimSpace(c.Query("end_date")),
	}
	for _, raw := range c.QueryArray("types") {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter.Types = append(filter.Types, t)
			}
		}
	}
	return filter
}

// ListOperationRecords 操作记录查询
func (h *Handler) ListOperationRecords(c *gin.Context) {
	records, err := h.InventoryService.QueryOperationRecords(operationRecordFilter(c))
	if err != nil {
		respondServiceError(c, err, "操作记录查询失败")
		return
	}
	response.Success(c, gin.H{
		"total_count": len(records),
		"operations":  records,
	})
}

// ExportOperationRecords 导出操作记录
func (h *Handler) ExportOperationRecords(c *gin.Context) {
	file, err := h.ExportService.ExportOperationRecords(operationRecordFilter(c), c.Query("format"))
	if err != nil {
		respondServiceError(c, err, "操作记录导出失败")
		return
	}
	writeExportFile(c, file)
}

// GetLastAddress 最近一次入库地址
func (h *Handler) GetLastAddress(c *gin.Context) {
	addr, err := h.InventoryService.LastAddress()
	if err != nil {
		respondServiceError(c, err, "最近地址查询失败")
		return
	}
	response.Success(c, addr)
}

// GetCapacity 各楼层框位容量
func (h *Handler) GetCapacity(c *gin.Context) {
	floors, err := h.InventoryService.Capacity()
	if err != nil {
		respondServiceError(c, err, "容量查询失败")
		return
	}
	response.Success(c, floors)
}
