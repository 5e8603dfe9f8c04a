package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dujiao-next/warehouse/internal/constants"
	"github.com/dujiao-next/warehouse/internal/ledger"
	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/models"
)

// MovementDetail 单条出库/借/还成功明细
type MovementDetail struct {
	InventoryID int             `json:"inventory_id"`
	OperationID int             `json:"operation_id"`
	Code        string          `json:"code"`
	Quantity    models.Quantity `json:"quantity"`
	Before      models.Quantity `json:"before"`
	After       models.Quantity `json:"after"`
	Special     bool            `json:"special"`
}

// MovementResult 出库/借/还结果
type MovementResult struct {
	Message        string           `json:"message"`
	SuccessCount   int              `json:"success_count"`
	ErrorCount     int              `json:"error_count"`
	TotalCount     int              `json:"total_count"`
	SuccessDetails []MovementDetail `json:"success_details"`
	ErrorDetails   []string         `json:"error_details"`
	InventoryIDs   []int            `json:"inventory_ids"`
}

// StockOut 批量出库
func (s *InventoryService) StockOut(ctx context.Context, input MovementInput) (*MovementResult, error) {
	return s.move(ctx, constants.OpOutbound, input)
}

// Lend 批量借出
func (s *InventoryService) Lend(ctx context.Context, input MovementInput) (*MovementResult, error) {
	return s.move(ctx, constants.OpLend, input)
}

// Return 批量归还
func (s *InventoryService) Return(ctx context.Context, input MovementInput) (*MovementResult, error) {
	return s.move(ctx, constants.OpReturn, input)
}

func (s *InventoryService) move(ctx context.Context, opType string, input MovementInput) (*MovementResult, error) {
	label := movementLabel(opType)
	if len(input.Items) == 0 {
		return nil, validationError("%s列表不能为空", label)
	}
	operator := strings.TrimSpace(input.Operator)
	if operator == "" {
		if opType == constants.OpOutbound {
			return nil, validationError("缺少必填字段：operator")
		}
		return nil, validationError("缺少操作人员字段")
	}
	opTime := s.now()
	if strings.TrimSpace(input.Time) != "" {
		parsed, err := models.ParseOperationTime(input.Time)
		if err != nil {
			return nil, validationError("时间格式不正确，请使用 YYYY-MM-DD HH:MM:SS 或 YYYY-MM-DD HH")
		}
		opTime = parsed
	}

	ids := make([]int, 0, len(input.Items))
	for _, item := range input.Items {
		ids = append(ids, item.InventoryID)
	}

	result := &MovementResult{
		TotalCount:     len(input.Items),
		SuccessDetails: []MovementDetail{},
		ErrorDetails:   []string{},
		InventoryIDs:   []int{},
	}
	var errorDetails []string

	err := s.write(ctx, "movement_"+label, func(t *models.Tables) error {
		unlock := s.lots.lockAll(ids)
		defer unlock()

		// 批内累计账本：同一批次多条明细依次校验
		grouped := t.OperationsByInventory()
		touched := make([]int, 0, len(input.Items))
		stockRuleFailures := 0

		for _, item := range input.Items {
			lotIdx := t.FindInventory(item.InventoryID)
			if lotIdx < 0 {
				errorDetails = append(errorDetails, fmt.Sprintf("库存ID %d：未找到对应的库存记录", item.InventoryID))
				continue
			}
			code := productCodeOf(t, t.Inventory[lotIdx])
			records := grouped[item.InventoryID]

			verdict, err := ledger.ValidateOperation(item.InventoryID, opType, item.Quantity, records)
			if err == nil && opType == constants.OpReturn {
				err = ledger.CheckReturn(item.InventoryID, verdict.Quantity, records)
			}
			if err != nil {
				var ruleErr *ledger.RuleError
				if errors.As(err, &ruleErr) && isStockRule(ruleErr.Reason) {
					stockRuleFailures++
				}
				errorDetails = append(errorDetails, fmt.Sprintf("库存ID %d（%s）：%s", item.InventoryID, code, err.Error()))
				continue
			}

			rec := models.OperationRecord{
				InventoryID: item.InventoryID,
				Type:        opType,
				Time:        opTime,
				Quantity:    verdict.Quantity,
				Operator:    operator,
				Note:        input.Remark,
			}
			rec.ID = appendOperation(t, rec)
			grouped[item.InventoryID] = append(grouped[item.InventoryID], rec)
			touched = append(touched, item.InventoryID)

			after, special := ledger.ComputeStock(item.InventoryID, grouped[item.InventoryID])
			result.InventoryIDs = append(result.InventoryIDs, item.InventoryID)
			if len(result.SuccessDetails) < s.cfg.MaxSuccessDetails {
				result.SuccessDetails = append(result.SuccessDetails, MovementDetail{
					InventoryID: item.InventoryID,
					OperationID: rec.ID,
					Code:        code,
					Quantity:    verdict.Quantity,
					Before:      verdict.Current,
					After:       after,
					Special:     special,
				})
			}
		}

		if len(touched) == 0 {
			kind := ErrValidation
			if stockRuleFailures == len(errorDetails) {
				kind = ErrConsistency
			}
			return &OperationError{
				Kind:    kind,
				Message: allFailedMessage(opType),
				Details: truncateDetails(errorDetails, s.cfg.MaxErrorDetails),
			}
		}
		refreshLots(t, touched)
		return nil
	})
	if err != nil {
		logger.Warnw("inventory_movement_rejected", "type", opType, "error", err)
		return nil, err
	}

	result.SuccessCount = len(result.InventoryIDs)
	result.ErrorCount = len(errorDetails)
	if len(errorDetails) > 0 {
		result.ErrorDetails = truncateDetails(errorDetails, s.cfg.MaxErrorDetails)
	}
	result.Message = movementSummary(opType, result.SuccessCount, result.ErrorCount)
	logger.Infow("inventory_movement_committed",
		"type", opType,
		"operator", operator,
		"success_count", result.SuccessCount,
		"error_count", result.ErrorCount,
	)
	return result, nil
}

func isStockRule(reason ledger.Reason) bool {
	switch reason {
	case ledger.ReasonInsufficient, ledger.ReasonNoOutstanding, ledger.ReasonExceedsLent:
		return true
	}
	return false
}

func allFailedMessage(opType string) string {
	switch opType {
	case constants.OpLend:
		return "没有有效的借出项目"
	case constants.OpReturn:
		return "没有有效的归还项目"
	default:
		return "所有出库项目均处理失败"
	}
}

func movementSummary(opType string, success, failed int) string {
	switch opType {
	case constants.OpLend:
		return fmt.Sprintf("借出完成！成功: %d 个，失败: %d 个", success, failed)
	case constants.OpReturn:
		return fmt.Sprintf("归还完成！成功: %d 个，失败: %d 个", success, failed)
	default:
		return fmt.Sprintf("批量出库完成！成功: %d 个，失败: %d 个", success, failed)
	}
}

// productCodeOf 库存对应的货号，缺失时返回 未知货号
func productCodeOf(t *models.Tables, lot models.Inventory) string {
	if fi := t.FindFeature(lot.FeatureID); fi >= 0 {
		if pi := t.FindProduct(t.Features[fi].ProductID); pi >= 0 && t.Products[pi].Code != "" {
			return t.Products[pi].Code
		}
	}
	return "未知货号"
}
