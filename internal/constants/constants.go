package constants

// 操作类型常量
const (
	OpInbound  = "入库"
	OpOutbound = "出库"
	OpLend     = "借"
	OpReturn   = "还"
)

// 数据表名称常量
const (
	TableProduct         = "product"
	TableFeature         = "feature"
	TableInventory       = "inventory"
	TableLocation        = "location"
	TableManufacturer    = "manufacturer"
	TableOperationRecord = "operation_record"
	TableCapacity        = "capacity"
)

// 默认值常量
const (
	DefaultStatus       = "正常"
	DefaultUnit         = "个"
	DefaultOperator     = "系统"
	DefaultBatch        = 1
	NoOperationsStatus  = "无操作记录"
	DedupEmptyToken     = "###EMPTY###"
	BackupFileSuffix    = ".backup"
	SpecialStockMarker  = -1
	StockInNotePrefix   = "批量入库: "
	OperationTimeLayout = "2006-01-02 15:04:05"
)

// 地址类型常量（仅类型 1 按框占用楼层容量）
const (
	AddressTypeMin = 1
	AddressTypeMax = 6
	AddressTypeBox = 1
)

// 队列常量
const (
	QueueDefault               = "default"
	TaskInventoryStatusRefresh = "inventory:status_refresh"
)

// 操作员角色常量
const (
	RoleViewer  = "viewer"
	RoleClerk   = "clerk"
	RoleManager = "manager"
)

// 导出格式常量
const (
	ExportFormatCSV  = "csv"
	ExportFormatXLSX = "xlsx"
)

// 图片存储驱动常量
const (
	StorageDriverLocal = "local"
	StorageDriverMinio = "minio"
)
