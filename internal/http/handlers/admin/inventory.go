package admin

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	handlershared "github.com/dujiao-next/warehouse/internal/http/handlers/shared"
	"github.com/dujiao-next/warehouse/internal/http/response"
	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/service"

	"github.com/gin-gonic/gin"
)

func inventoryListFilter(c *gin.Context) service.InventoryListFilter {
	return service.InventoryListFilter{
		Keyword:     strings.TrimSpace(c.Query("keyword")),
		ProductType: strings.TrimSpace(c.Query("product_type")),
		Floor:       handlershared.QueryInt(c, "floor", 0),
		OpStatus:    strings.TrimSpace(c.Query("op_status")),
		Page:        handlershared.QueryInt(c, "page", 1),
		PageSize:    handlershared.QueryInt(c, "page_size", 0),
	}
}

// ListInventory 库存列表
func (h *Handler) ListInventory(c *gin.Context) {
	filter := inventoryListFilter(c)
	lots, total, err := h.InventoryService.ListInventory(filter)
	if err != nil {
		respondServiceError(c, err, "库存列表查询失败")
		return
	}
	page, pageSize := h.InventoryService.NormalizePage(filter.Page, filter.PageSize)
	response.SuccessWithPage(c, lots, handlershared.BuildPagination(page, pageSize, total))
}

// GetInventoryDetail 库存详情及操作记录
func (h *Handler) GetInventoryDetail(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	detail, err := h.InventoryService.GetInventoryDetail(id, handlershared.QueryInt(c, "page", 1), handlershared.QueryInt(c, "page_size", 20))
	if err != nil {
		respondServiceError(c, err, "库存详情查询失败")
		return
	}
	response.SuccessWithPage(c, detail, handlershared.BuildPagination(detail.Page, detail.PageSize, detail.Total))
}

// EditInventory 编辑库存及关联信息
func (h *Handler) EditInventory(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	payload, ok := bindJSONMap(c)
	if !ok {
		return
	}
	input := service.EditInputFromMap(payload)
	if input.Operator == "" {
		input.Operator = handlershared.CurrentOperatorName(c)
	}
	result, err := h.InventoryService.Edit(c.Request.Context(), id, input)
	if err != nil {
		respondServiceError(c, err, "库存编辑失败")
		return
	}
	requestLog(c).Infow("inventory_edit_request_done", "inventory_id", id, "operator", handlershared.CurrentOperatorName(c))
	response.SuccessWithMsg(c, result.Message, result)
}

// DeleteInventory 删除库存（仅允许只有入库记录的库存）
func (h *Handler) DeleteInventory(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.InventoryService.Delete(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "库存删除失败")
		return
	}
	requestLog(c).Infow("inventory_delete_request_done", "inventory_id", id, "operator", handlershared.CurrentOperatorName(c))
	response.SuccessWithMsg(c, result.Message, result)
}

// ExportInventory 导出库存列表
func (h *Handler) ExportInventory(c *gin.Context) {
	filter := inventoryListFilter(c)
	file, err := h.ExportService.ExportInventory(filter, c.Query("format"))
	if err != nil {
		respondServiceError(c, err, "库存导出失败")
		return
	}
	writeExportFile(c, file)
}

// writeExportFile 以附件形式返回导出文件
func writeExportFile(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", file.Name, url.PathEscape(file.Name)))
	c.Header("X-Export-Rows", fmt.Sprint(file.Rows))
	c.Data(http.StatusOK, file.ContentType, file.Data)
	logger.Debugw("export_file_written", "name", file.Name, "rows", file.Rows, "bytes", len(file.Data))
}
