package service

import (
	"context"
	"errors"

	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/queue"

	"github.com/hibiken/asynq"
)

// StatusRefreshDispatch 状态刷新调度结果：入队或已同步执行
type StatusRefreshDispatch struct {
	Queued bool                 `json:"queued"`
	TaskID string               `json:"task_id,omitempty"`
	Result *StatusRefreshResult `json:"result,omitempty"`
}

// StatusRefreshDispatcher 队列可用时异步刷新，否则同步执行
type StatusRefreshDispatcher struct {
	inventory *InventoryService
	queue     *queue.Client
}

// NewStatusRefreshDispatcher 创建状态刷新调度器
func NewStatusRefreshDispatcher(inventory *InventoryService, queueClient *queue.Client) *StatusRefreshDispatcher {
	return &StatusRefreshDispatcher{inventory: inventory, queue: queueClient}
}

// Dispatch 调度一次状态刷新，ids 为空表示全部库存
func (d *StatusRefreshDispatcher) Dispatch(ctx context.Context, ids []int, requestedBy string) (*StatusRefreshDispatch, error) {
	if d.queue.Enabled() {
		taskID, err := d.queue.EnqueueInventoryStatusRefresh(queue.InventoryStatusRefreshPayload{
			InventoryIDs: ids,
			RequestedBy:  requestedBy,
		})
		switch {
		case err == nil:
			logger.Infow("inventory_status_refresh_enqueued", "task_id", taskID, "ids", len(ids), "requested_by", requestedBy)
			return &StatusRefreshDispatch{Queued: true, TaskID: taskID}, nil
		case errors.Is(err, asynq.ErrDuplicateTask):
			return &StatusRefreshDispatch{Queued: true}, nil
		default:
			logger.Warnw("inventory_status_refresh_enqueue_failed", "error", err)
		}
	}
	result, err := d.inventory.RefreshStatus(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &StatusRefreshDispatch{Result: result}, nil
}
