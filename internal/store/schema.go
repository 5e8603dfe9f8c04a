package store

import (
	"github.com/dujiao-next/warehouse/internal/constants"
)

// 表头列名（沿用表格软件中使用的中文列名）
const (
	colProductID   = "商品ID"
	colProductCode = "货号"
	colProductType = "类型"
	colNotes       = "备注"
	colPurpose     = "用途"

	colFeatureID       = "商品特征ID"
	colFeatureProduct  = "关联商品ID"
	colUnitPrice       = "单价"
	colWeight          = "重量"
	colSpec            = "规格"
	colMaterial        = "材质"
	colColor           = "颜色"
	colShape           = "形状"
	colStyle           = "风格"
	colImagePath       = "图片路径"
	colInventoryID     = "库存ID"
	colInvFeature      = "关联商品特征ID"
	colInvLocation     = "关联位置ID"
	colInvManufacturer = "关联厂家ID"
	colUnit            = "单位"
	colQuantity        = "库存数量"
	colDefectQuantity  = "次品数量"
	colBatch           = "批次"
	colStatus          = "状态"

	colLocationID  = "地址ID"
	colAddressType = "地址类型"
	colFloor       = "楼层"
	colShelfNo     = "架号"
	colBoxNo       = "框号"
	colPackageNo   = "包号"

	colManufacturerID      = "厂家ID"
	colManufacturerName    = "厂家"
	colManufacturerAddress = "厂家地址"
	colPhone               = "电话"

	colOperationID   = "操作ID"
	colOpInventory   = "关联库存ID"
	colOpType        = "操作类型"
	colOpTime        = "操作时间"
	colOpQuantity    = "操作数量"
	colOperator      = "操作人"
	colOpNote        = "备注"
	colCapacityFloor = "楼层"
	colCapacity      = "楼层容量"
	colRemaining     = "楼层剩余容量"
)

// Schema 单张表的结构模板
type Schema struct {
	Name     string   // 逻辑表名
	Columns  []string // 表头
	IDColumn string   // 主键列，无法转为整数的行会被丢弃
}

// FileName 表文件名
func (s Schema) FileName() string {
	return s.Name + ".csv"
}

// BackupName 备份文件名
func (s Schema) BackupName() string {
	return s.FileName() + constants.BackupFileSuffix
}

var schemas = []Schema{
	{
		Name:     constants.TableProduct,
		Columns:  []string{colProductID, colProductCode, colProductType, colNotes, colPurpose},
		IDColumn: colProductID,
	},
	{
		Name: constants.TableFeature,
		Columns: []string{
			colFeatureID, colFeatureProduct, colUnitPrice, colWeight, colSpec,
			colMaterial, colColor, colShape, colStyle, colImagePath,
		},
		IDColumn: colFeatureID,
	},
	{
		Name: constants.TableInventory,
		Columns: []string{
			colInventoryID, colInvFeature, colInvLocation, colInvManufacturer, colUnit,
			colQuantity, colDefectQuantity, colBatch, colStatus,
		},
		IDColumn: colInventoryID,
	},
	{
		Name:     constants.TableLocation,
		Columns:  []string{colLocationID, colAddressType, colFloor, colShelfNo, colBoxNo, colPackageNo},
		IDColumn: colLocationID,
	},
	{
		Name:     constants.TableManufacturer,
		Columns:  []string{colManufacturerID, colManufacturerName, colManufacturerAddress, colPhone},
		IDColumn: colManufacturerID,
	},
	{
		Name:     constants.TableOperationRecord,
		Columns:  []string{colOperationID, colOpInventory, colOpType, colOpTime, colOpQuantity, colOperator, colOpNote},
		IDColumn: colOperationID,
	},
	{
		Name:     constants.TableCapacity,
		Columns:  []string{colCapacityFloor, colCapacity, colRemaining},
		IDColumn: colCapacityFloor,
	},
}

// Schemas 返回全部表结构（按固定顺序）
func Schemas() []Schema {
	return append([]Schema(nil), schemas...)
}

// SchemaByName 按表名查找结构
func SchemaByName(name string) (Schema, bool) {
	for _, s := range schemas {
		if s.Name == name {
			return s, true
		}
	}
	return Schema{}, false
}
