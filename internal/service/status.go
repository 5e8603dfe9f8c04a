package service

import (
	"context"
	"errors"

	"github.com/dujiao-next/warehouse/internal/constants"
	"github.com/dujiao-next/warehouse/internal/ledger"
	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/models"
	"github.com/dujiao-next/warehouse/internal/repository"
)

// StatusRefreshResult 状态刷新结果
type StatusRefreshResult struct {
	Requested int   `json:"requested"`
	Updated   int   `json:"updated"`
	Missing   []int `json:"missing"`
}

// RefreshStatus 按操作记录重算库存数量与状态文本，ids 为空时刷新全部
// 派生数据刷新不轮换备份，撤销仍指向上一次业务写入
func (s *InventoryService) RefreshStatus(ctx context.Context, ids []int) (*StatusRefreshResult, error) {
	result := &StatusRefreshResult{Missing: []int{}}
	err := s.write(ctx, "status_refresh", func(t *models.Tables) error {
		targets := ids
		if len(targets) == 0 {
			targets = allLotIDs(t)
		}
		for _, id := range targets {
			if t.FindInventory(id) < 0 {
				result.Missing = append(result.Missing, id)
			}
		}
		result.Requested = len(targets)
		result.Updated = refreshLots(t, targets)
		recomputeCapacity(t, s.cfg)
		return nil
	}, repository.WithoutBackup())
	if err != nil {
		return nil, err
	}
	logger.Infow("inventory_status_refreshed", "requested", result.Requested, "updated", result.Updated)
	return result, nil
}

// StockCheckResult 库存校验结果
type StockCheckResult struct {
	InventoryID int             `json:"inventory_id"`
	Type        string          `json:"type"`
	Passed      bool            `json:"passed"`
	Message     string          `json:"message"`
	Quantity    models.Quantity `json:"quantity"`
	Current     models.Quantity `json:"current"`
	Special     bool            `json:"special"`
}

// CheckStock 只做台账校验，不写入
func (s *InventoryService) CheckStock(inventoryID int, opType string, rawQuantity interface{}) (*StockCheckResult, error) {
	tables, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if opType != constants.OpInbound && tables.FindInventory(inventoryID) < 0 {
		return nil, notFoundError("未找到ID为%d的库存记录", inventoryID)
	}
	records := tables.OperationsByInventory()[inventoryID]
	_, special := ledger.ComputeStock(inventoryID, records)
	result := &StockCheckResult{InventoryID: inventoryID, Type: opType, Special: special}

	verdict, err := ledger.ValidateOperation(inventoryID, opType, rawQuantity, records)
	if err == nil && opType == constants.OpReturn {
		err = ledger.CheckReturn(inventoryID, verdict.Quantity, records)
	}
	if err != nil {
		var ruleErr *ledger.RuleError
		if !errors.As(err, &ruleErr) {
			return nil, asOperationError(err, "库存数量校验异常")
		}
		result.Message = ruleErr.Message
		result.Current = ruleErr.Current
		return result, nil
	}
	result.Passed = true
	result.Message = verdict.Message
	result.Quantity = verdict.Quantity
	result.Current = verdict.Current
	result.Special = special || verdict.Special
	return result, nil
}
