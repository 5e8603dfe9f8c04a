package queue

import (
	"encoding/json"

	"github.com/dujiao-next/warehouse/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskInventoryStatusRefresh 库存状态批量刷新任务
	TaskInventoryStatusRefresh = constants.TaskInventoryStatusRefresh
)

// InventoryStatusRefreshPayload 状态刷新任务载荷，InventoryIDs 为空表示全部
type InventoryStatusRefreshPayload struct {
	InventoryIDs []int  `json:"inventory_ids"`
	RequestedBy  string `json:"requested_by"`
}

// NewInventoryStatusRefreshTask 创建状态刷新任务
func NewInventoryStatusRefreshTask(payload InventoryStatusRefreshPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventoryStatusRefresh, body), nil
}

// ParseInventoryStatusRefreshPayload 解析状态刷新任务载荷
func ParseInventoryStatusRefreshPayload(task *asynq.Task) (InventoryStatusRefreshPayload, error) {
	var payload InventoryStatusRefreshPayload
	if task == nil || len(task.Payload()) == 0 {
		return payload, nil
	}
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}
