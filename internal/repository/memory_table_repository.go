package repository

import (
	"sync"

	"github.com/dujiao-next/warehouse/internal/models"
	"github.com/dujiao-next/warehouse/internal/store"
)

// MemoryTableRepository 内存实现，用于业务层测试
type MemoryTableRepository struct {
	mu      sync.Mutex
	current *models.Tables
	backup  *models.Tables
	saves   int

	// SaveErr 非空时下一次 Save 在写入前返回该错误（随后自动清空）
	SaveErr error
}

// NewMemoryTableRepository 创建内存表仓库
func NewMemoryTableRepository(initial *models.Tables) *MemoryTableRepository {
	if initial == nil {
		initial = models.NewTables()
	}
	return &MemoryTableRepository{current: initial.Clone()}
}

// Load 返回当前快照副本
func (r *MemoryTableRepository) Load() (*models.Tables, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current.Clone(), nil
}

// LoadFresh 返回当前快照副本
func (r *MemoryTableRepository) LoadFresh() (*models.Tables, error) {
	return r.Load()
}

// Save 模拟 备份 → 写入，失败时恢复
func (r *MemoryTableRepository) Save(tables *models.Tables, opts ...SaveOption) error {
	o := applySaveOptions(opts)
	r.mu.Lock()
	defer r.mu.Unlock()

	if !o.SkipBackup {
		r.backup = r.current.Clone()
	}
	if err := r.SaveErr; err != nil {
		r.SaveErr = nil
		if !o.SkipBackup && r.backup != nil {
			r.current = r.backup.Clone()
		}
		return err
	}
	r.current = tables.Clone()
	r.saves++
	return nil
}

// Restore 用备份覆盖当前快照，备份保留
func (r *MemoryTableRepository) Restore() (store.RestoreReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	report := store.RestoreReport{Restored: []string{}, Failed: []string{}}
	if r.backup == nil {
		return report, store.ErrNoBackup
	}
	r.current = r.backup.Clone()
	for _, s := range store.Schemas() {
		report.Restored = append(report.Restored, s.Name)
	}
	return report, nil
}

// Invalidate 内存实现无缓存
func (r *MemoryTableRepository) Invalidate() {}

// Status 内存实现视为已初始化
func (r *MemoryTableRepository) Status() store.StoreStatus {
	return store.StoreStatus{DataDir: ":memory:", Initialized: true, Missing: []string{}}
}

// Snapshot 返回当前快照副本
func (r *MemoryTableRepository) Snapshot() *models.Tables {
	t, _ := r.Load()
	return t
}

// Saves 成功保存次数
func (r *MemoryTableRepository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}
