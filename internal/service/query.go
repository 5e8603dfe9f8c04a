package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dujiao-next/warehouse/internal/constants"
	"github.com/dujiao-next/warehouse/internal/ledger"
	"github.com/dujiao-next/warehouse/internal/models"
)

// 库存列表按操作状态筛选
const (
	LotStatusInStock = "in_stock"
	LotStatusEmpty   = "empty"
	LotStatusLent    = "lent"
	LotStatusSpecial = "special"
)

// LotView 库存批次及其关联信息
type LotView struct {
	Inventory     models.Inventory     `json:"inventory"`
	Product       *models.Product      `json:"product"`
	Feature       *models.Feature      `json:"feature"`
	Location      *models.Location     `json:"location"`
	Manufacturer  *models.Manufacturer `json:"manufacturer"`
	TotalIn       models.Quantity      `json:"total_in"`
	TotalOut      models.Quantity      `json:"total_out"`
	TotalLend     models.Quantity      `json:"total_lend"`
	TotalReturn   models.Quantity      `json:"total_return"`
	Unreturned    models.Quantity      `json:"unreturned"`
	CurrentStock  models.Quantity      `json:"current_stock"`
	Special       bool                 `json:"special"`
	Status        string               `json:"status"`
	LastOperation string               `json:"last_operation_time"`
}

// InventoryListFilter 库存列表筛选条件
type InventoryListFilter struct {
	Keyword     string
	ProductType string
	Floor       int
	OpStatus    string
	Page        int
	PageSize    int
}

// OperationStats 库存详情的操作统计
type OperationStats struct {
	TotalIn         models.Quantity `json:"total_in_quantity"`
	TotalOut        models.Quantity `json:"total_out_quantity"`
	TotalLend       models.Quantity `json:"total_lend_quantity"`
	TotalReturn     models.Quantity `json:"total_return_quantity"`
	CurrentStock    models.Quantity `json:"current_stock"`
	Special         bool            `json:"special"`
	TotalOperations int             `json:"total_operations"`
	OtherOperations map[string]int  `json:"other_operations"`
	LastOperation   string          `json:"last_operation_time"`
	Status          string          `json:"status"`
}

// InventoryDetail 库存详情
type InventoryDetail struct {
	Lot        LotView                  `json:"lot"`
	Operations []models.OperationRecord `json:"operations"`
	Stats      OperationStats           `json:"operation_stats"`
	Warnings   []string                 `json:"warnings"`
	Page       int                      `json:"-"`
	PageSize   int                      `json:"-"`
	Total      int64                    `json:"-"`
}

// OperationRecordFilter 操作记录筛选条件
type OperationRecordFilter struct {
	Types       []string
	InventoryID int
	StartDate   string
	EndDate     string
}

// OperationRecordView 操作记录及关联信息
type OperationRecordView struct {
	Operation    models.OperationRecord `json:"operation"`
	Inventory    *models.Inventory      `json:"inventory_info"`
	Product      *models.Product        `json:"product_info"`
	Feature      *models.Feature        `json:"feature_info"`
	Location     *models.Location       `json:"location_info"`
	Manufacturer *models.Manufacturer   `json:"manufacturer_info"`
}

// LastAddress 最近一次入库的地址
type LastAddress struct {
	AddressType string `json:"地址类型"`
	Floor       string `json:"楼层"`
	ShelfNo     string `json:"架号"`
	BoxNo       string `json:"框号"`
	PackageNo   string `json:"包号"`
}

// tableIndex 快照的主键索引
type tableIndex struct {
	products      map[int]*models.Product
	features      map[int]*models.Feature
	locations     map[int]*models.Location
	manufacturers map[int]*models.Manufacturer
	inventory     map[int]*models.Inventory
}

func buildIndex(t *models.Tables) tableIndex {
	idx := tableIndex{
		products:      make(map[int]*models.Product, len(t.Products)),
		features:      make(map[int]*models.Feature, len(t.Features)),
		locations:     make(map[int]*models.Location, len(t.Locations)),
		manufacturers: make(map[int]*models.Manufacturer, len(t.Manufacturers)),
		inventory:     make(map[int]*models.Inventory, len(t.Inventory)),
	}
	for i := range t.Products {
		idx.products[t.Products[i].ID] = &t.Products[i]
	}
	for i := range t.Features {
		idx.features[t.Features[i].ID] = &t.Features[i]
	}
	for i := range t.Locations {
		idx.locations[t.Locations[i].ID] = &t.Locations[i]
	}
	for i := range t.Manufacturers {
		idx.manufacturers[t.Manufacturers[i].ID] = &t.Manufacturers[i]
	}
	for i := range t.Inventory {
		idx.inventory[t.Inventory[i].ID] = &t.Inventory[i]
	}
	return idx
}

// copyOf 返回副本指针，避免调用方改写共享快照
func copyOf[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func (idx tableIndex) lotView(lot models.Inventory, records []models.OperationRecord) LotView {
	view := LotView{Inventory: lot}
	if f, ok := idx.features[lot.FeatureID]; ok {
		view.Feature = copyOf(f)
		view.Product = copyOf(idx.products[f.ProductID])
	}
	view.Location = copyOf(idx.locations[lot.LocationID])
	view.Manufacturer = copyOf(idx.manufacturers[lot.ManufacturerID])

	s := ledger.Summarize(lot.ID, records)
	view.TotalIn = s.Total(constants.OpInbound).Round2()
	view.TotalOut = s.Total(constants.OpOutbound).Round2()
	view.TotalLend = s.Total(constants.OpLend).Round2()
	view.TotalReturn = s.Total(constants.OpReturn).Round2()
	view.Unreturned = s.Unreturned()
	view.CurrentStock = s.Current.Round2()
	view.Special = s.Special
	view.Status = s.Status
	view.LastOperation = models.FormatOperationTime(s.LastOperation)
	view.Inventory.Quantity = view.CurrentStock
	return view
}

// NormalizePage 按仓库配置归一化分页参数
func (s *InventoryService) NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.cfg.DefaultPageSize
	}
	if pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}
	return page, pageSize
}

func (v LotView) matches(filter InventoryListFilter) bool {
	if filter.ProductType != "" && (v.Product == nil || v.Product.Type != filter.ProductType) {
		return false
	}
	if filter.Floor > 0 && (v.Location == nil || v.Location.Floor != filter.Floor) {
		return false
	}
	switch filter.OpStatus {
	case LotStatusInStock:
		if v.Special || !v.CurrentStock.IsPositive() {
			return false
		}
	case LotStatusEmpty:
		if v.Special || v.CurrentStock.IsPositive() {
			return false
		}
	case LotStatusLent:
		if !v.Unreturned.IsPositive() {
			return false
		}
	case LotStatusSpecial:
		if !v.Special {
			return false
		}
	}
	keyword := strings.ToLower(strings.TrimSpace(filter.Keyword))
	if keyword == "" {
		return true
	}
	fields := []string{fmt.Sprint(v.Inventory.ID)}
	if v.Product != nil {
		fields = append(fields, v.Product.Code, v.Product.Notes, v.Product.Purpose)
	}
	if v.Feature != nil {
		fields = append(fields, v.Feature.Spec, v.Feature.Material, v.Feature.Color, v.Feature.Shape, v.Feature.Style)
	}
	if v.Manufacturer != nil {
		fields = append(fields, v.Manufacturer.Name)
	}
	if v.Location != nil {
		fields = append(fields, v.Location.ShelfNo, v.Location.BoxNo, v.Location.PackageNo)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), keyword) {
			return true
		}
	}
	return false
}

// ListInventory 库存列表（按库存 ID 倒序分页）
func (s *InventoryService) ListInventory(filter InventoryListFilter) ([]LotView, int64, error) {
	tables, err := s.snapshot()
	if err != nil {
		return nil, 0, err
	}
	filter.Page, filter.PageSize = s.NormalizePage(filter.Page, filter.PageSize)
	matched := matchLots(tables, filter)

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.PageSize
	if start >= len(matched) {
		return []LotView{}, total, nil
	}
	end := min(start+filter.PageSize, len(matched))
	return matched[start:end], total, nil
}

// matchLots 按筛选条件匹配库存批次，按库存 ID 倒序
func matchLots(tables *models.Tables, filter InventoryListFilter) []LotView {
	idx := buildIndex(tables)
	grouped := tables.OperationsByInventory()
	matched := make([]LotView, 0, len(tables.Inventory))
	for _, lot := range tables.Inventory {
		view := idx.lotView(lot, grouped[lot.ID])
		if view.matches(filter) {
			matched = append(matched, view)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Inventory.ID > matched[j].Inventory.ID })
	return matched
}

// GetInventoryDetail 库存详情，操作记录按时间倒序分页（每页 10~100）
func (s *InventoryService) GetInventoryDetail(inventoryID, page, pageSize int) (*InventoryDetail, error) {
	tables, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	lotIdx := tables.FindInventory(inventoryID)
	if lotIdx < 0 {
		return nil, notFoundError("未找到ID为%d的库存记录", inventoryID)
	}
	if page < 1 {
		page = 1
	}
	pageSize = max(10, min(pageSize, 100))

	lot := tables.Inventory[lotIdx]
	records := tables.OperationsByInventory()[inventoryID]
	idx := buildIndex(tables)
	view := idx.lotView(lot, records)
	summary := ledger.Summarize(inventoryID, records)

	sorted := append([]models.OperationRecord{}, records...)
	sortRecordsByTimeDesc(sorted)
	start := (page - 1) * pageSize
	paged := []models.OperationRecord{}
	if start < len(sorted) {
		paged = sorted[start:min(start+pageSize, len(sorted))]
	}

	warnings := []string{}
	if lot.FeatureID != models.NoRef && view.Feature == nil {
		warnings = append(warnings, fmt.Sprintf("该库存关联的特征记录（ID:%d）不存在，请确认数据是否正常", lot.FeatureID))
	}
	if view.Feature != nil && view.Feature.ProductID != models.NoRef && view.Product == nil {
		warnings = append(warnings, fmt.Sprintf("该库存关联的商品记录（ID:%d）不存在，请确认数据是否正常", view.Feature.ProductID))
	}
	if lot.LocationID != models.NoRef && view.Location == nil {
		warnings = append(warnings, fmt.Sprintf("该库存关联的位置记录（ID:%d）不存在，请确认数据是否正常", lot.LocationID))
	}
	if lot.ManufacturerID != models.NoRef && view.Manufacturer == nil {
		warnings = append(warnings, fmt.Sprintf("该库存关联的厂家记录（ID:%d）不存在，请确认数据是否正常", lot.ManufacturerID))
	}

	return &InventoryDetail{
		Lot:        view,
		Operations: paged,
		Stats: OperationStats{
			TotalIn:         view.TotalIn,
			TotalOut:        view.TotalOut,
			TotalLend:       view.TotalLend,
			TotalReturn:     view.TotalReturn,
			CurrentStock:    view.CurrentStock,
			Special:         summary.Special,
			TotalOperations: summary.RecordCount,
			OtherOperations: summary.OtherCounts,
			LastOperation:   models.FormatOperationTime(summary.LastOperation),
			Status:          summary.Status,
		},
		Warnings: warnings,
		Page:     page,
		PageSize: pageSize,
		Total:    int64(len(records)),
	}, nil
}

// sortRecordsByTimeDesc 按操作时间倒序，时间缺失的排最后，同时刻按 ID 倒序
func sortRecordsByTimeDesc(records []models.OperationRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Time.IsZero() != b.Time.IsZero() {
			return !a.Time.IsZero()
		}
		if !a.Time.Equal(b.Time) {
			return a.Time.After(b.Time)
		}
		return a.ID > b.ID
	})
}

// parseDateBound 解析日期筛选边界，仅日期的结束边界包含当天
func parseDateBound(raw string, end bool) (time.Time, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return time.Time{}, nil
	}
	t, err := models.ParseOperationTime(text)
	if err != nil {
		return time.Time{}, err
	}
	if end && len(text) == len("2006-01-02") {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t, nil
}

// QueryOperationRecords 操作记录查询（按时间倒序）
func (s *InventoryService) QueryOperationRecords(filter OperationRecordFilter) ([]OperationRecordView, error) {
	tables, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return filterOperationRecords(tables, filter)
}

func filterOperationRecords(tables *models.Tables, filter OperationRecordFilter) ([]OperationRecordView, error) {
	start, err := parseDateBound(filter.StartDate, false)
	if err != nil {
		return nil, validationError("起始时间格式不正确：%s", filter.StartDate)
	}
	end, err := parseDateBound(filter.EndDate, true)
	if err != nil {
		return nil, validationError("结束时间格式不正确：%s", filter.EndDate)
	}
	types := map[string]struct{}{}
	for _, t := range filter.Types {
		if t = strings.TrimSpace(t); t != "" {
			types[t] = struct{}{}
		}
	}

	records := make([]models.OperationRecord, 0, len(tables.Operations))
	for _, op := range tables.Operations {
		if len(types) > 0 {
			if _, ok := types[op.Type]; !ok {
				continue
			}
		}
		if filter.InventoryID > 0 && op.InventoryID != filter.InventoryID {
			continue
		}
		if !start.IsZero() && (op.Time.IsZero() || op.Time.Before(start)) {
			continue
		}
		if !end.IsZero() && (op.Time.IsZero() || op.Time.After(end)) {
			continue
		}
		records = append(records, op)
	}
	sortRecordsByTimeDesc(records)

	idx := buildIndex(tables)
	views := make([]OperationRecordView, 0, len(records))
	for _, op := range records {
		view := OperationRecordView{Operation: op}
		if lot, ok := idx.inventory[op.InventoryID]; ok {
			view.Inventory = copyOf(lot)
			if f, ok := idx.features[lot.FeatureID]; ok {
				view.Feature = copyOf(f)
				view.Product = copyOf(idx.products[f.ProductID])
			}
			view.Location = copyOf(idx.locations[lot.LocationID])
			view.Manufacturer = copyOf(idx.manufacturers[lot.ManufacturerID])
		}
		views = append(views, view)
	}
	return views, nil
}

// LastAddress 库存 ID 最大的批次所在地址，无数据时各字段为空
func (s *InventoryService) LastAddress() (LastAddress, error) {
	tables, err := s.snapshot()
	if err != nil {
		return LastAddress{}, err
	}
	latest := -1
	for i, lot := range tables.Inventory {
		if latest < 0 || lot.ID > tables.Inventory[latest].ID {
			latest = i
		}
	}
	if latest < 0 {
		return LastAddress{}, nil
	}
	li := tables.FindLocation(tables.Inventory[latest].LocationID)
	if li < 0 {
		return LastAddress{}, nil
	}
	loc := tables.Locations[li]
	return LastAddress{
		AddressType: fmt.Sprint(loc.AddressType),
		Floor:       fmt.Sprint(loc.Floor),
		ShelfNo:     loc.ShelfNo,
		BoxNo:       loc.BoxNo,
		PackageNo:   loc.PackageNo,
	}, nil
}
