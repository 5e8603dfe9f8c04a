package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dujiao-next/warehouse/internal/constants"
	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/models"
)

// Options 表存储配置
type Options struct {
	DataDir        string
	Floors         []int
	FloorCapacity  int
	RequiredTables []string
}

// FileStore 基于 CSV 文件的表存储
type FileStore struct {
	opts Options

	hashMu       sync.Mutex
	backupHashes map[string]string
}

// TableStatus 单张表文件状态
type TableStatus struct {
	Name   string `json:"name"`
	Exists bool   `json:"exists"`
	Path   string `json:"path"`
}

// StoreStatus 存储初始化状态
type StoreStatus struct {
	DataDir     string        `json:"data_dir"`
	Initialized bool          `json:"initialized"`
	Tables      []TableStatus `json:"tables"`
	Missing     []string      `json:"missing"`
}

// NewFileStore 创建文件表存储
func NewFileStore(opts Options) *FileStore {
	opts.DataDir = strings.TrimSpace(opts.DataDir)
	if opts.DataDir == "" {
		opts.DataDir = "."
	}
	if len(opts.RequiredTables) == 0 {
		for _, s := range schemas {
			opts.RequiredTables = append(opts.RequiredTables, s.Name)
		}
	}
	return &FileStore{opts: opts, backupHashes: make(map[string]string)}
}

// DataDir 数据目录
func (s *FileStore) DataDir() string {
	return s.opts.DataDir
}

func (s *FileStore) tablePath(schema Schema) string {
	return filepath.Join(s.opts.DataDir, schema.FileName())
}

func (s *FileStore) backupPath(schema Schema) string {
	return filepath.Join(s.opts.DataDir, schema.BackupName())
}

// Init 创建数据目录，并为缺失的表写入仅含表头的文件
func (s *FileStore) Init() error {
	if err := os.MkdirAll(s.opts.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir failed: %w", err)
	}
	for _, schema := range schemas {
		path := s.tablePath(schema)
		if fileExists(path) {
			continue
		}
		var rows [][]string
		if schema.Name == constants.TableCapacity {
			rows = encodeTable(&models.Tables{Capacity: s.defaultCapacity()}, schema.Name)
		}
		content, err := encodeCSV(schema.Columns, rows)
		if err != nil {
			return err
		}
		if err := writeFileAtomic(path, content); err != nil {
			return fmt.Errorf("init table %s failed: %w", schema.Name, err)
		}
		logger.Infow("table_store_table_created", "table", schema.Name, "path", path)
	}
	return nil
}

// Status 报告必需表是否存在
func (s *FileStore) Status() StoreStatus {
	status := StoreStatus{DataDir: s.opts.DataDir, Missing: []string{}}
	for _, name := range s.opts.RequiredTables {
		schema, ok := SchemaByName(name)
		path := filepath.Join(s.opts.DataDir, name+".csv")
		if ok {
			path = s.tablePath(schema)
		}
		exists := fileExists(path)
		status.Tables = append(status.Tables, TableStatus{Name: name, Exists: exists, Path: path})
		if !exists {
			status.Missing = append(status.Missing, name)
		}
	}
	status.Initialized = len(status.Missing) == 0
	return status
}

// LoadAll 读取全部表；缺失返回空表，损坏时依次回退到备份、空表，不会因文件内容报错
func (s *FileStore) LoadAll() (*models.Tables, error) {
	tables := models.NewTables()
	for _, schema := range schemas {
		s.loadTable(tables, schema)
	}
	s.ensureCapacityRows(tables)
	return tables, nil
}

func (s *FileStore) loadTable(tables *models.Tables, schema Schema) {
	path := s.tablePath(schema)
	if !fileExists(path) {
		return
	}
	header, rows, err := readCSVFile(path, schema.IDColumn)
	if err != nil {
		logger.Warnw("table_store_read_failed", "table", schema.Name, "path", path, "error", err)
		backup := s.backupPath(schema)
		if !fileExists(backup) {
			logger.Warnw("table_store_fallback_empty", "table", schema.Name)
			return
		}
		header, rows, err = readCSVFile(backup, schema.IDColumn)
		if err != nil {
			logger.Warnw("table_store_backup_read_failed", "table", schema.Name, "path", backup, "error", err)
			return
		}
		logger.Warnw("table_store_fallback_backup", "table", schema.Name, "path", backup)
	}
	if header == nil {
		return
	}
	result := decodeTable(tables, schema.Name, header, rows)
	if result.Corrupt > 0 {
		logger.Warnw("table_store_rows_corrupt", "table", schema.Name, "corrupt", result.Corrupt)
	}
	if result.Dropped > 0 {
		logger.Warnw("table_store_row_dropped", "table", schema.Name, "dropped", result.Dropped)
	}
}

// SaveAll 整表覆盖写入全部表（临时文件 + 重命名）
func (s *FileStore) SaveAll(tables *models.Tables) error {
	if tables == nil {
		return errors.New("tables is nil")
	}
	if err := os.MkdirAll(s.opts.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir failed: %w", err)
	}
	for _, schema := range schemas {
		content, err := encodeCSV(schema.Columns, encodeTable(tables, schema.Name))
		if err != nil {
			return fmt.Errorf("encode table %s failed: %w", schema.Name, err)
		}
		if err := writeFileAtomic(s.tablePath(schema), content); err != nil {
			return fmt.Errorf("write table %s failed: %w", schema.Name, err)
		}
	}
	return nil
}

func (s *FileStore) defaultCapacity() []models.Capacity {
	floors := append([]int(nil), s.opts.Floors...)
	sort.Ints(floors)
	rows := make([]models.Capacity, 0, len(floors))
	for _, floor := range floors {
		rows = append(rows, models.Capacity{Floor: floor, Capacity: s.opts.FloorCapacity, Remaining: s.opts.FloorCapacity})
	}
	return rows
}

// ensureCapacityRows 为每个配置楼层补齐容量行
func (s *FileStore) ensureCapacityRows(tables *models.Tables) {
	existing := make(map[int]struct{}, len(tables.Capacity))
	for _, row := range tables.Capacity {
		existing[row.Floor] = struct{}{}
	}
	for _, row := range s.defaultCapacity() {
		if _, ok := existing[row.Floor]; ok {
			continue
		}
		tables.Capacity = append(tables.Capacity, row)
	}
	sort.SliceStable(tables.Capacity, func(i, j int) bool {
		return tables.Capacity[i].Floor < tables.Capacity[j].Floor
	})
}
