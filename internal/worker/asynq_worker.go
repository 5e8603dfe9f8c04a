package worker

import (
	"context"

	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/provider"
	"github.com/dujiao-next/warehouse/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskInventoryStatusRefresh, c.handleInventoryStatusRefresh)
}

func (c *Consumer) handleInventoryStatusRefresh(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_status_refresh_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseInventoryStatusRefreshPayload(task)
	if err != nil {
		logger.Warnw("worker_status_refresh_unmarshal_failed", "error", err)
		// 载荷损坏重试也无法恢复
		return asynq.SkipRetry
	}
	if c.Container == nil || c.InventoryService == nil {
		logger.Warnw("worker_status_refresh_skip_inventory_service_nil")
		return nil
	}
	result, err := c.InventoryService.RefreshStatus(ctx, payload.InventoryIDs)
	if err != nil {
		logger.Warnw("worker_status_refresh_failed",
			"ids", len(payload.InventoryIDs),
			"requested_by", payload.RequestedBy,
			"error", err,
		)
		return err
	}
	if len(result.Missing) > 0 {
		logger.Debugw("worker_status_refresh_missing_lots", "missing", result.Missing)
	}
	return nil
}
