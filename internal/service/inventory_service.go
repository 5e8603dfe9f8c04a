package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dujiao-next/warehouse/internal/config"
	"github.com/dujiao-next/warehouse/internal/ledger"
	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/models"
	"github.com/dujiao-next/warehouse/internal/repository"
)

// InventoryService 库存业务服务
// 所有写操作在全局写锁内完成 读取 → 校验 → 修改副本 → 备份 → 写入
type InventoryService struct {
	repo    repository.TableRepository
	cfg     config.WarehouseConfig
	writeMu sync.Mutex
	lots    *lockTable
	now     func() time.Time
}

// NewInventoryService 创建库存服务
func NewInventoryService(repo repository.TableRepository, cfg config.WarehouseConfig) *InventoryService {
	return &InventoryService{
		repo: repo,
		cfg:  config.NormalizeWarehouse(cfg),
		lots: newLockTable(),
		now:  time.Now,
	}
}

// Config 返回仓库配置
func (s *InventoryService) Config() config.WarehouseConfig {
	return s.cfg
}

// write 在全局写锁内执行一次写事务，fn 只修改传入的副本
func (s *InventoryService) write(ctx context.Context, action string, fn func(t *models.Tables) error, opts ...repository.SaveOption) (err error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("inventory_write_panic", "action", action, "panic", r)
			err = storageError(fmt.Errorf("panic: %v", r), "操作失败：系统内部错误")
		}
	}()

	if ctx != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &OperationError{Kind: ErrStorage, Message: "请求已取消", Cause: ctxErr}
		}
	}

	tables, err := s.repo.LoadFresh()
	if err != nil {
		logger.Errorw("inventory_load_failed", "action", action, "error", err)
		return storageError(err, "读取数据失败")
	}
	work := tables.Clone()

	if err := fn(work); err != nil {
		return asOperationError(err, "操作失败")
	}

	if err := s.repo.Save(work, opts...); err != nil {
		logger.Errorw("inventory_save_failed", "action", action, "error", err)
		if errors.Is(err, repository.ErrRestoreFailed) {
			return storageError(err, "数据保存失败，且从备份恢复失败")
		}
		return storageError(err, "数据保存失败，已从备份恢复")
	}
	logger.Infow("inventory_write_committed", "action", action)
	return nil
}

// snapshot 读取只读快照（走缓存）
func (s *InventoryService) snapshot() (*models.Tables, error) {
	tables, err := s.repo.Load()
	if err != nil {
		logger.Errorw("inventory_snapshot_failed", "error", err)
		return nil, storageError(err, "读取数据失败")
	}
	return tables, nil
}

// refreshLots 按操作记录重算指定库存的库存数量与状态文本
func refreshLots(t *models.Tables, ids []int) int {
	if len(ids) == 0 {
		return 0
	}
	wanted := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	grouped := t.OperationsByInventory()
	updated := 0
	for i := range t.Inventory {
		lot := &t.Inventory[i]
		if _, ok := wanted[lot.ID]; !ok {
			continue
		}
		summary := ledger.Summarize(lot.ID, grouped[lot.ID])
		lot.Quantity = summary.Current
		lot.Status = summary.Status
		updated++
	}
	return updated
}

// allLotIDs 全部库存 ID
func allLotIDs(t *models.Tables) []int {
	ids := make([]int, 0, len(t.Inventory))
	for _, lot := range t.Inventory {
		ids = append(ids, lot.ID)
	}
	return ids
}

// appendOperation 追加一条操作记录并返回其 ID
func appendOperation(t *models.Tables, rec models.OperationRecord) int {
	rec.ID = t.NextOperationID()
	t.Operations = append(t.Operations, rec)
	return rec.ID
}
