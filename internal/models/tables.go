package models

import (
	"time"
)

// NoRef 外键“无关联”哨兵值，与任何有效 ID（从 1 开始）都不相同
const NoRef = -1

// Product 商品表
type Product struct {
	ID      int    `json:"id"`      // 商品ID
	Code    string `json:"code"`    // 货号
	Type    string `json:"type"`    // 类型
	Notes   string `json:"notes"`   // 备注
	Purpose string `json:"purpose"` // 用途
}

// Feature 商品特征（规格变体）表
type Feature struct {
	ID        int      `json:"id"`         // 商品特征ID
	ProductID int      `json:"product_id"` // 关联商品ID
	UnitPrice Quantity `json:"unit_price"` // 单价
	Weight    Quantity `json:"weight"`     // 重量
	Spec      string   `json:"spec"`       // 规格
	Material  string   `json:"material"`   // 材质
	Color     string   `json:"color"`      // 颜色
	Shape     string   `json:"shape"`      // 形状
	Style     string   `json:"style"`      // 风格
	ImagePath string   `json:"image_path"` // 图片路径
}

// Location 存放位置表
type Location struct {
	ID          int    `json:"id"`           // 地址ID
	AddressType int    `json:"address_type"` // 地址类型
	Floor       int    `json:"floor"`        // 楼层
	ShelfNo     string `json:"shelf_no"`     // 架号
	BoxNo       string `json:"box_no"`       // 框号
	PackageNo   string `json:"package_no"`   // 包号
}

// Manufacturer 厂家表
type Manufacturer struct {
	ID      int    `json:"id"`      // 厂家ID
	Name    string `json:"name"`    // 厂家
	Address string `json:"address"` // 厂家地址
	Phone   string `json:"phone"`   // 电话
}

// Inventory 库存批次表
// Quantity 与 Status 为派生缓存字段，真实库存以操作记录为准
type Inventory struct {
	ID             int      `json:"id"`              // 库存ID
	FeatureID      int      `json:"feature_id"`      // 关联商品特征ID
	LocationID     int      `json:"location_id"`     // 关联位置ID
	ManufacturerID int      `json:"manufacturer_id"` // 关联厂家ID
	Unit           string   `json:"unit"`            // 单位
	Quantity       Quantity `json:"quantity"`        // 库存数量
	DefectQuantity Quantity `json:"defect_quantity"` // 次品数量
	Batch          int      `json:"batch"`           // 批次
	Status         string   `json:"status"`          // 状态
}

// OperationRecord 操作记录表（只追加）
type OperationRecord struct {
	ID          int       `json:"id"`           // 操作ID
	InventoryID int       `json:"inventory_id"` // 关联库存ID
	Type        string    `json:"type"`         // 操作类型
	Time        time.Time `json:"time"`         // 操作时间
	Quantity    Quantity  `json:"quantity"`     // 操作数量
	Operator    string    `json:"operator"`     // 操作人
	Note        string    `json:"note"`         // 备注

	// RawTime 表格中无法解析的操作时间原文，写回时原样保留
	RawTime string `json:"-"`
}

// TimeText 操作时间文本，无法解析的原文优先原样输出
func (r OperationRecord) TimeText() string {
	if r.Time.IsZero() && r.RawTime != "" {
		return r.RawTime
	}
	return FormatOperationTime(r.Time)
}

// Capacity 楼层容量表（派生数据）
type Capacity struct {
	Floor     int `json:"floor"`     // 楼层
	Capacity  int `json:"capacity"`  // 楼层容量
	Remaining int `json:"remaining"` // 楼层剩余容量
}

// Tables 全部数据表的内存快照
type Tables struct {
	Products      []Product
	Features      []Feature
	Inventory     []Inventory
	Locations     []Location
	Manufacturers []Manufacturer
	Operations    []OperationRecord
	Capacity      []Capacity
}

// NewTables 创建空快照
func NewTables() *Tables {
	return &Tables{
		Products:      []Product{},
		Features:      []Feature{},
		Inventory:     []Inventory{},
		Locations:     []Location{},
		Manufacturers: []Manufacturer{},
		Operations:    []OperationRecord{},
		Capacity:      []Capacity{},
	}
}

// Clone 深拷贝快照，写操作只修改副本
func (t *Tables) Clone() *Tables {
	if t == nil {
		return NewTables()
	}
	return &Tables{
		Products:      append([]Product{}, t.Products...),
		Features:      append([]Feature{}, t.Features...),
		Inventory:     append([]Inventory{}, t.Inventory...),
		Locations:     append([]Location{}, t.Locations...),
		Manufacturers: append([]Manufacturer{}, t.Manufacturers...),
		Operations:    append([]OperationRecord{}, t.Operations...),
		Capacity:      append([]Capacity{}, t.Capacity...),
	}
}

// FindProduct 按 ID 查找商品下标
func (t *Tables) FindProduct(id int) int {
	for i := range t.Products {
		if t.Products[i].ID == id {
			return i
		}
	}
	return -1
}

// FindFeature 按 ID 查找特征下标
func (t *Tables) FindFeature(id int) int {
	for i := range t.Features {
		if t.Features[i].ID == id {
			return i
		}
	}
	return -1
}

// FindInventory 按 ID 查找库存下标
func (t *Tables) FindInventory(id int) int {
	for i := range t.Inventory {
		if t.Inventory[i].ID == id {
			return i
		}
	}
	return -1
}

// FindLocation 按 ID 查找位置下标
func (t *Tables) FindLocation(id int) int {
	for i := range t.Locations {
		if t.Locations[i].ID == id {
			return i
		}
	}
	return -1
}

// FindManufacturer 按 ID 查找厂家下标
func (t *Tables) FindManufacturer(id int) int {
	for i := range t.Manufacturers {
		if t.Manufacturers[i].ID == id {
			return i
		}
	}
	return -1
}

// OperationsByInventory 按库存 ID 分组操作记录
func (t *Tables) OperationsByInventory() map[int][]OperationRecord {
	grouped := make(map[int][]OperationRecord, len(t.Inventory))
	for _, op := range t.Operations {
		grouped[op.InventoryID] = append(grouped[op.InventoryID], op)
	}
	return grouped
}

// NextProductID 计算下一个商品 ID
func (t *Tables) NextProductID() int {
	maxID := 0
	for _, row := range t.Products {
		maxID = max(maxID, row.ID)
	}
	return maxID + 1
}

// NextFeatureID 计算下一个特征 ID
func (t *Tables) NextFeatureID() int {
	maxID := 0
	for _, row := range t.Features {
		maxID = max(maxID, row.ID)
	}
	return maxID + 1
}

// NextInventoryID 计算下一个库存 ID
func (t *Tables) NextInventoryID() int {
	maxID := 0
	for _, row := range t.Inventory {
		maxID = max(maxID, row.ID)
	}
	return maxID + 1
}

// NextLocationID 计算下一个位置 ID
func (t *Tables) NextLocationID() int {
	maxID := 0
	for _, row := range t.Locations {
		maxID = max(maxID, row.ID)
	}
	return maxID + 1
}

// NextManufacturerID 计算下一个厂家 ID
func (t *Tables) NextManufacturerID() int {
	maxID := 0
	for _, row := range t.Manufacturers {
		maxID = max(maxID, row.ID)
	}
	return maxID + 1
}

// NextOperationID 计算下一个操作记录 ID
func (t *Tables) NextOperationID() int {
	maxID := 0
	for _, row := range t.Operations {
		maxID = max(maxID, row.ID)
	}
	return maxID + 1
}
