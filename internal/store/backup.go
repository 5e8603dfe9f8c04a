package store

import (
	"errors"
	"fmt"
	"os"

	"github.com/dujiao-next/warehouse/internal/logger"
)

var (
	// ErrNoBackup 没有任何可用备份
	ErrNoBackup = errors.New("no backup available")
	// ErrRestoreMismatch 恢复后表文件与备份内容哈希不一致
	ErrRestoreMismatch = errors.New("restored table hash mismatch")
)

// RestoreReport 恢复结果
type RestoreReport struct {
	Restored []string `json:"restored"`
	Failed   []string `json:"failed"`
}

// BackupAll 将每张已存在的表复制到唯一的备份文件（覆盖上一代备份）
// 当前不存在的表会移除其旧备份，避免撤销时恢复出更早的数据
func (s *FileStore) BackupAll() error {
	hashes := make(map[string]string, len(schemas))
	for _, schema := range schemas {
		src := s.tablePath(schema)
		dst := s.backupPath(schema)
		if !fileExists(src) {
			if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove stale backup %s failed: %w", schema.Name, err)
			}
			continue
		}
		content, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("read table %s failed: %w", schema.Name, err)
		}
		if err := writeFileAtomic(dst, content); err != nil {
			return fmt.Errorf("backup table %s failed: %w", schema.Name, err)
		}
		hashes[schema.Name] = hashBytes(content)
	}

	s.hashMu.Lock()
	s.backupHashes = hashes
	s.hashMu.Unlock()
	return nil
}

// HasBackup 是否存在至少一个备份文件
func (s *FileStore) HasBackup() bool {
	for _, schema := range schemas {
		if fileExists(s.backupPath(schema)) {
			return true
		}
	}
	return false
}

// RestoreAll 用备份覆盖表文件并校验哈希，备份保留以便重复撤销
func (s *FileStore) RestoreAll() (RestoreReport, error) {
	report := RestoreReport{Restored: []string{}, Failed: []string{}}
	if !s.HasBackup() {
		return report, ErrNoBackup
	}

	s.hashMu.Lock()
	recorded := make(map[string]string, len(s.backupHashes))
	for k, v := range s.backupHashes {
		recorded[k] = v
	}
	s.hashMu.Unlock()

	var errs []error
	for _, schema := range schemas {
		backup := s.backupPath(schema)
		if !fileExists(backup) {
			continue
		}
		content, err := os.ReadFile(backup)
		if err != nil {
			report.Failed = append(report.Failed, schema.Name)
			errs = append(errs, fmt.Errorf("read backup %s failed: %w", schema.Name, err))
			continue
		}
		want := hashBytes(content)
		if expected, ok := recorded[schema.Name]; ok && expected != want {
			logger.Warnw("table_backup_changed_since_recorded", "table", schema.Name)
		}
		target := s.tablePath(schema)
		if err := writeFileAtomic(target, content); err != nil {
			report.Failed = append(report.Failed, schema.Name)
			errs = append(errs, fmt.Errorf("restore table %s failed: %w", schema.Name, err))
			continue
		}
		got, err := hashFile(target)
		if err != nil {
			report.Failed = append(report.Failed, schema.Name)
			errs = append(errs, fmt.Errorf("verify table %s failed: %w", schema.Name, err))
			continue
		}
		if got != want {
			report.Failed = append(report.Failed, schema.Name)
			errs = append(errs, fmt.Errorf("%w: %s", ErrRestoreMismatch, schema.Name))
			continue
		}
		report.Restored = append(report.Restored, schema.Name)
	}
	if len(errs) > 0 {
		return report, errors.Join(errs...)
	}
	logger.Infow("table_store_restored", "tables", report.Restored)
	return report, nil
}
