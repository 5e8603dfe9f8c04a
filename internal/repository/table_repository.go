package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/dujiao-next/warehouse/internal/cache"
	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/models"
	"github.com/dujiao-next/warehouse/internal/store"
)

// ErrRestoreFailed 写入失败后从备份恢复也失败
var ErrRestoreFailed = errors.New("restore after failed write failed")

// SaveOptions 保存选项
type SaveOptions struct {
	SkipBackup bool
}

// SaveOption 保存选项函数
type SaveOption func(*SaveOptions)

// WithoutBackup 保存前不轮换备份（用于派生数据刷新，撤销仍指向上一次业务写入）
func WithoutBackup() SaveOption {
	return func(o *SaveOptions) {
		o.SkipBackup = true
	}
}

func applySaveOptions(opts []SaveOption) SaveOptions {
	var o SaveOptions
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// TableRepository 全表快照数据访问接口
type TableRepository interface {
	// Load 读取缓存快照，调用方只读
	Load() (*models.Tables, error)
	// LoadFresh 绕过缓存读取最新快照，调用方可修改
	LoadFresh() (*models.Tables, error)
	// Save 备份 → 整表写入 → 失效缓存；写入失败时从备份恢复
	Save(tables *models.Tables, opts ...SaveOption) error
	// Restore 从备份恢复全部表并失效缓存
	Restore() (store.RestoreReport, error)
	// Invalidate 失效缓存
	Invalidate()
	// Status 必需表的初始化状态
	Status() store.StoreStatus
}

// FileTableRepository 基于 CSV 文件的实现
type FileTableRepository struct {
	store *store.FileStore
	cache *cache.SnapshotCache[*models.Tables]
}

// NewFileTableRepository 创建文件表仓库
func NewFileTableRepository(fileStore *store.FileStore, ttl time.Duration) *FileTableRepository {
	return &FileTableRepository{
		store: fileStore,
		cache: cache.NewSnapshotCache(ttl, fileStore.LoadAll),
	}
}

// Load 读取缓存快照
func (r *FileTableRepository) Load() (*models.Tables, error) {
	return r.cache.Get()
}

// LoadFresh 绕过缓存读取
func (r *FileTableRepository) LoadFresh() (*models.Tables, error) {
	return r.store.LoadAll()
}

// Save 写入全部表
func (r *FileTableRepository) Save(tables *models.Tables, opts ...SaveOption) error {
	o := applySaveOptions(opts)
	defer r.cache.Invalidate()

	if !o.SkipBackup {
		if err := r.store.BackupAll(); err != nil {
			return fmt.Errorf("backup tables failed: %w", err)
		}
	}
	if err := r.store.SaveAll(tables); err != nil {
		logger.Errorw("table_repository_save_failed", "error", err, "skip_backup", o.SkipBackup)
		if o.SkipBackup {
			return err
		}
		if _, restoreErr := r.store.RestoreAll(); restoreErr != nil {
			logger.Errorw("table_repository_restore_failed", "error", restoreErr)
			return errors.Join(err, fmt.Errorf("%w: %v", ErrRestoreFailed, restoreErr))
		}
		return err
	}
	return nil
}

// Restore 从备份恢复
func (r *FileTableRepository) Restore() (store.RestoreReport, error) {
	defer r.cache.Invalidate()
	return r.store.RestoreAll()
}

// Invalidate 失效缓存
func (r *FileTableRepository) Invalidate() {
	r.cache.Invalidate()
}

// Status 必需表状态
func (r *FileTableRepository) Status() store.StoreStatus {
	return r.store.Status()
}
