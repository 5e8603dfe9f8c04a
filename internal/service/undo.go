package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/store"
)

// UndoResult 撤销结果
type UndoResult struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Restored []string `json:"restored"`
}

// Undo 从备份恢复全部表（撤销最近一次业务写入），备份保留因而可重复执行
func (s *InventoryService) Undo(ctx context.Context) (*UndoResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, &OperationError{Kind: ErrStorage, Message: "请求已取消", Cause: err}
		}
	}

	report, err := s.repo.Restore()
	if err != nil {
		if errors.Is(err, store.ErrNoBackup) {
			return nil, &OperationError{Kind: ErrNotFound, Message: "无可用的备份文件，无法执行撤销操作", Cause: err}
		}
		logger.Errorw("inventory_undo_failed", "error", err, "failed", report.Failed, "restored", report.Restored)
		return nil, &OperationError{
			Kind:    ErrStorage,
			Message: fmt.Sprintf("撤销操作失败：%v", err),
			Cause:   err,
			Details: report.Failed,
		}
	}

	logger.Infow("inventory_undo_committed", "restored", report.Restored)
	return &UndoResult{
		Success:  true,
		Message:  fmt.Sprintf("成功恢复表：%s（共%d个表，校验一致）", strings.Join(report.Restored, ", "), len(report.Restored)),
		Restored: report.Restored,
	}, nil
}
