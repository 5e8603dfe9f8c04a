package admin

import (
	"context"
	"strings"

	"github.com/dujiao-next/warehouse/internal/constants"
	handlershared "github.com/dujiao-next/warehouse/internal/http/handlers/shared"
	"github.com/dujiao-next/warehouse/internal/http/response"
	"github.com/dujiao-next/warehouse/internal/service"

	"github.com/gin-gonic/gin"
)

// StockIn 批量入库
func (h *Handler) StockIn(c *gin.Context) {
	payload, ok := bindJSONMap(c)
	if !ok {
		return
	}
	rawItems, ok := payload["stock_in_items"].([]interface{})
	if !ok {
		respondErrorWithMsg(c, response.CodeBadRequest, "缺少入库数据列表：stock_in_items", nil)
		return
	}
	input := service.StockInInput{
		Items:           make([]service.StockInItem, 0, len(rawItems)),
		DefaultOperator: handlershared.CurrentOperatorName(c),
	}
	if t, ok := payload["入库时间"].(string); ok {
		input.Time = t
	}
	for _, raw := range rawItems {
		m, _ := raw.(map[string]interface{})
		input.Items = append(input.Items, service.StockInItemFromMap(m))
	}

	result, err := h.InventoryService.StockIn(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err, "批量入库失败")
		return
	}
	response.SuccessWithMsg(c, result.Message, result)
}

// StockOut 批量出库
func (h *Handler) StockOut(c *gin.Context) {
	h.movement(c, constants.OpOutbound, h.InventoryService.StockOut)
}

// Lend 批量借出
func (h *Handler) Lend(c *gin.Context) {
	h.movement(c, constants.OpLend, h.InventoryService.Lend)
}

// Return 批量归还
func (h *Handler) Return(c *gin.Context) {
	h.movement(c, constants.OpReturn, h.InventoryService.Return)
}

func (h *Handler) movement(c *gin.Context, opType string, run func(context.Context, service.MovementInput) (*service.MovementResult, error)) {
	payload, ok := bindJSONMap(c)
	if !ok {
		return
	}
	input, err := service.NormalizeMovementPayload(opType, payload, handlershared.CurrentOperatorName(c))
	if err != nil {
		respondServiceError(c, err, "请求数据解析失败")
		return
	}
	result, err := run(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err, "操作失败")
		return
	}
	response.SuccessWithMsg(c, result.Message, result)
}

// Undo 撤销最近一次业务写入
func (h *Handler) Undo(c *gin.Context) {
	result, err := h.InventoryService.Undo(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "撤销失败")
		return
	}
	requestLog(c).Infow("inventory_undo_request_done", "operator", handlershared.CurrentOperatorName(c), "restored", result.Restored)
	response.SuccessWithMsg(c, result.Message, result)
}

type statusRefreshRequest struct {
	InventoryIDs []int `json:"inventory_ids"`
}

// RefreshStatus 批量刷新库存数量与状态
func (h *Handler) RefreshStatus(c *gin.Context) {
	var req statusRefreshRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErrorWithMsg(c, response.CodeBadRequest, "库存ID列表格式错误", err)
			return
		}
	}
	dispatch, err := h.StatusDispatcher.Dispatch(c.Request.Context(), req.InventoryIDs, handlershared.CurrentOperatorName(c))
	if err != nil {
		respondServiceError(c, err, "状态刷新失败")
		return
	}
	if dispatch.Queued {
		response.SuccessWithMsg(c, "状态刷新任务已提交", dispatch)
		return
	}
	response.SuccessWithMsg(c, "状态刷新完成", dispatch)
}

// stockCheckTypes 校验接口接受的操作类型别名
var stockCheckTypes = map[string]string{
	"in":                 constants.OpInbound,
	"out":                constants.OpOutbound,
	"lend":               constants.OpLend,
	"return":             constants.OpReturn,
	constants.OpInbound:  constants.OpInbound,
	constants.OpOutbound: constants.OpOutbound,
	constants.OpLend:     constants.OpLend,
	constants.OpReturn:   constants.OpReturn,
}

// CheckStock 校验一次操作能否执行，不写入
func (h *Handler) CheckStock(c *gin.Context) {
	inventoryID := handlershared.QueryInt(c, "inventory_id", 0)
	if inventoryID <= 0 {
		respondErrorWithMsg(c, response.CodeBadRequest, "缺少库存ID", nil)
		return
	}
	opType, ok := stockCheckTypes[strings.ToLower(strings.TrimSpace(c.Query("type")))]
	if !ok {
		respondErrorWithMsg(c, response.CodeBadRequest, "操作类型无效，仅支持 入库/出库/借/还", nil)
		return
	}
	result, err := h.InventoryService.CheckStock(inventoryID, opType, c.Query("quantity"))
	if err != nil {
		respondServiceError(c, err, "库存校验失败")
		return
	}
	response.SuccessWithMsg(c, result.Message, result)
}
