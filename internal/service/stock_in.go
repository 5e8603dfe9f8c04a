package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dujiao-next/warehouse/internal/constants"
	"github.com/dujiao-next/warehouse/internal/ledger"
	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/models"
)

// StockInItem 单条入库明细，字段保留原始文本，由服务统一校验
type StockInItem struct {
	Code                string
	Type                string
	AddressType         string
	Floor               string
	ShelfNo             string
	BoxNo               string
	PackageNo           string
	Quantity            interface{}
	UnitPrice           string
	Weight              string
	Manufacturer        string
	ManufacturerAddress string
	Phone               string
	Purpose             string
	Spec                string
	Notes               string
	ImagePath           string
	Material            string
	Color               string
	Shape               string
	Style               string
	Batch               string
	Operator            string
}

// UnmarshalJSON 按表格列名解析入库明细
func (item *StockInItem) UnmarshalJSON(b []byte) error {
	var raw map[string]interface{}
	decoder := json.NewDecoder(bytes.NewReader(b))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return err
	}
	*item = StockInItemFromMap(raw)
	return nil
}

// StockInItemFromMap 从列名键值对构造入库明细
func StockInItemFromMap(raw map[string]interface{}) StockInItem {
	return StockInItem{
		Code:                textOf(raw["货号"]),
		Type:                textOf(raw["类型"]),
		AddressType:         textOf(raw["地址类型"]),
		Floor:               textOf(raw["楼层"]),
		ShelfNo:             textOf(raw["架号"]),
		BoxNo:               textOf(raw["框号"]),
		PackageNo:           textOf(raw["包号"]),
		Quantity:            raw["入库数量"],
		UnitPrice:           textOf(raw["单价"]),
		Weight:              textOf(raw["重量"]),
		Manufacturer:        textOf(raw["厂家"]),
		ManufacturerAddress: textOf(raw["厂家地址"]),
		Phone:               textOf(raw["电话"]),
		Purpose:             textOf(raw["用途"]),
		Spec:                textOf(raw["规格"]),
		Notes:               textOf(raw["备注"]),
		ImagePath:           textOf(raw["图片路径"]),
		Material:            textOf(raw["材质"]),
		Color:               textOf(raw["颜色"]),
		Shape:               textOf(raw["形状"]),
		Style:               textOf(raw["风格"]),
		Batch:               textOf(raw["批次"]),
		Operator:            textOf(raw["操作人"]),
	}
}

// StockInInput 批量入库输入
type StockInInput struct {
	Items []StockInItem `json:"stock_in_items"`
	Time  string        `json:"入库时间"`
	// DefaultOperator 明细未填写操作人时使用（通常为登录操作员）
	DefaultOperator string `json:"-"`
}

// StockInDetail 单条入库成功明细
type StockInDetail struct {
	ProductID      int             `json:"product_id"`
	FeatureID      int             `json:"feature_id"`
	LocationID     int             `json:"location_id"`
	ManufacturerID *int            `json:"manufacturer_id"`
	InventoryID    int             `json:"inventory_id"`
	OperationID    int             `json:"operation_id"`
	Code           string          `json:"code"`
	Quantity       models.Quantity `json:"quantity"`
	ImagePath      string          `json:"image_path"`
	Special        bool            `json:"special"`
}

// StockInResult 批量入库结果
type StockInResult struct {
	Message             string          `json:"message"`
	SuccessCount        int             `json:"success_count"`
	ErrorCount          int             `json:"error_count"`
	TotalCount          int             `json:"total_count"`
	SuccessDetails      []StockInDetail `json:"success_details"`
	ErrorDetails        []string        `json:"error_details"`
	InventoryIDs        []int           `json:"inventory_ids"`
	ProductMapping      map[string]int  `json:"product_mapping"`
	ManufacturerMapping map[string]int  `json:"manufacturer_mapping"`
}

// stockInLine 校验通过的入库明细
type stockInLine struct {
	index       int
	item        StockInItem
	addressType int
	floor       int
	quantity    models.Quantity
	special     bool
	unitPrice   models.Quantity
	weight      models.Quantity
	batch       int
}

// StockIn 批量入库
func (s *InventoryService) StockIn(ctx context.Context, input StockInInput) (*StockInResult, error) {
	if len(input.Items) == 0 {
		return nil, validationError("入库商品列表不能为空")
	}
	opTime := s.now()
	if strings.TrimSpace(input.Time) != "" {
		parsed, err := models.ParseOperationTime(input.Time)
		if err != nil {
			return nil, validationError("时间格式不正确，请使用 YYYY-MM-DD HH:MM:SS 或 YYYY-MM-DD HH")
		}
		opTime = parsed
	}

	lines := make([]stockInLine, 0, len(input.Items))
	var errorDetails []string
	for i, item := range input.Items {
		line, msg := s.validateStockInItem(i+1, item)
		if msg != "" {
			errorDetails = append(errorDetails, msg)
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, &OperationError{
			Kind:    ErrValidation,
			Message: "所有入库记录都处理失败",
			Details: truncateDetails(errorDetails, s.cfg.MaxErrorDetails),
		}
	}

	result := &StockInResult{
		TotalCount:          len(input.Items),
		SuccessDetails:      []StockInDetail{},
		InventoryIDs:        []int{},
		ProductMapping:      map[string]int{},
		ManufacturerMapping: map[string]int{},
	}

	err := s.write(ctx, "stock_in", func(t *models.Tables) error {
		if err := s.checkFloorCapacity(t, lines); err != nil {
			return err
		}

		locations := locationIndex(t)
		manufacturers := manufacturerIndex(t)
		products := productIndex(t)
		touched := make([]int, 0, len(lines))

		for _, line := range lines {
			item := line.item
			productID, created := resolveProduct(t, products, item.Code, item.Type, item.Notes, item.Purpose)
			if created {
				result.ProductMapping[item.Code] = productID
			}

			featureID := t.NextFeatureID()
			t.Features = append(t.Features, models.Feature{
				ID:        featureID,
				ProductID: productID,
				UnitPrice: line.unitPrice,
				Weight:    line.weight,
				Spec:      item.Spec,
				Material:  item.Material,
				Color:     item.Color,
				Shape:     item.Shape,
				Style:     item.Style,
				ImagePath: item.ImagePath,
			})

			locationID := resolveLocation(t, locations, models.Location{
				AddressType: line.addressType,
				Floor:       line.floor,
				ShelfNo:     item.ShelfNo,
				BoxNo:       item.BoxNo,
				PackageNo:   item.PackageNo,
			})

			manufacturerID := models.NoRef
			var manufacturerRef *int
			if item.Manufacturer != "" {
				var createdManufacturer bool
				manufacturerID, createdManufacturer = resolveManufacturer(t, manufacturers, item.Manufacturer, item.ManufacturerAddress, item.Phone)
				if createdManufacturer {
					result.ManufacturerMapping[manufacturerKey(item.Manufacturer, item.ManufacturerAddress, item.Phone)] = manufacturerID
				}
				ref := manufacturerID
				manufacturerRef = &ref
			}

			inventoryID := t.NextInventoryID()
			t.Inventory = append(t.Inventory, models.Inventory{
				ID:             inventoryID,
				FeatureID:      featureID,
				LocationID:     locationID,
				ManufacturerID: manufacturerID,
				Unit:           unitByAddressType(line.addressType),
				Quantity:       line.quantity,
				DefectQuantity: models.QuantityFromInt(0),
				Batch:          line.batch,
				Status:         constants.DefaultStatus,
			})

			operator := item.Operator
			if operator == "" {
				operator = input.DefaultOperator
			}
			if operator == "" {
				operator = constants.DefaultOperator
			}
			operationID := appendOperation(t, models.OperationRecord{
				InventoryID: inventoryID,
				Type:        constants.OpInbound,
				Time:        opTime,
				Quantity:    line.quantity,
				Operator:    operator,
				Note:        constants.StockInNotePrefix + item.Code,
			})
			touched = append(touched, inventoryID)

			result.InventoryIDs = append(result.InventoryIDs, inventoryID)
			if len(result.SuccessDetails) < s.cfg.MaxSuccessDetails {
				result.SuccessDetails = append(result.SuccessDetails, StockInDetail{
					ProductID:      productID,
					FeatureID:      featureID,
					LocationID:     locationID,
					ManufacturerID: manufacturerRef,
					InventoryID:    inventoryID,
					OperationID:    operationID,
					Code:           item.Code,
					Quantity:       line.quantity,
					ImagePath:      item.ImagePath,
					Special:        line.special,
				})
			}
		}

		refreshLots(t, touched)
		recomputeCapacity(t, s.cfg)
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.SuccessCount = len(lines)
	result.ErrorCount = len(errorDetails)
	result.ErrorDetails = truncateDetails(errorDetails, s.cfg.MaxErrorDetails)
	if result.ErrorDetails == nil {
		result.ErrorDetails = []string{}
	}
	result.Message = fmt.Sprintf("批量入库完成！成功: %d 个，失败: %d 个", result.SuccessCount, result.ErrorCount)
	logger.Infow("inventory_stock_in_committed",
		"success_count", result.SuccessCount,
		"error_count", result.ErrorCount,
		"time", opTime.Format(time.DateTime),
	)
	return result, nil
}

// validateStockInItem 校验单条入库明细，失败返回错误文本
func (s *InventoryService) validateStockInItem(index int, item StockInItem) (stockInLine, string) {
	line := stockInLine{index: index, item: item, batch: constants.DefaultBatch}

	missing := make([]string, 0, 5)
	if item.Code == "" {
		missing = append(missing, "货号")
	}
	if item.Type == "" {
		missing = append(missing, "类型")
	}
	if item.AddressType == "" {
		missing = append(missing, "地址类型")
	}
	if item.Floor == "" {
		missing = append(missing, "楼层")
	}
	if textOf(item.Quantity) == "" {
		missing = append(missing, "入库数量")
	}
	if len(missing) > 0 {
		return line, fmt.Sprintf("第%d条记录缺少必填字段: %s", index, strings.Join(missing, ", "))
	}

	if !s.cfg.HasProductType(item.Type) {
		return line, fmt.Sprintf("第%d条记录商品类型无效: %s", index, item.Type)
	}

	floor, err := parseIntText(item.Floor)
	if err != nil {
		return line, fmt.Sprintf("第%d条记录楼层格式错误", index)
	}
	if !s.cfg.HasFloor(floor) {
		return line, fmt.Sprintf("第%d条记录楼层无效: %d", index, floor)
	}
	line.floor = floor

	verdict, err := ledger.ValidateOperation(0, constants.OpInbound, item.Quantity, nil)
	if err != nil {
		var ruleErr *ledger.RuleError
		if errors.As(err, &ruleErr) && ruleErr.Reason == ledger.ReasonNonPositive {
			return line, fmt.Sprintf("第%d条记录入库数量必须大于0", index)
		}
		return line, fmt.Sprintf("第%d条记录数量格式错误", index)
	}
	line.quantity = verdict.Quantity
	line.special = verdict.Special

	addressType, err := parseIntText(item.AddressType)
	if err != nil || addressType < constants.AddressTypeMin || addressType > constants.AddressTypeMax {
		return line, fmt.Sprintf("第%d条记录地址类型无效: %s", index, item.AddressType)
	}
	if missing := missingAddressFields(addressType, item.ShelfNo, item.BoxNo, item.PackageNo); len(missing) > 0 {
		return line, fmt.Sprintf("第%d条记录地址类型 %d 需要以下字段: %s", index, addressType, strings.Join(missing, ", "))
	}
	line.addressType = addressType

	if line.unitPrice, err = models.ParseQuantity(item.UnitPrice); err != nil {
		return line, fmt.Sprintf("第%d条记录单价格式错误", index)
	}
	if line.weight, err = models.ParseQuantity(item.Weight); err != nil {
		return line, fmt.Sprintf("第%d条记录重量格式错误", index)
	}
	if item.Batch != "" {
		if line.batch, err = parseIntText(item.Batch); err != nil {
			return line, fmt.Sprintf("第%d条记录批次格式错误", index)
		}
	}
	return line, ""
}

// missingAddressFields 按地址类型检查必填的 架号/框号/包号
func missingAddressFields(addressType int, shelfNo, boxNo, packageNo string) []string {
	var missing []string
	switch addressType {
	case 1, 3, 5:
		if strings.TrimSpace(shelfNo) == "" {
			missing = append(missing, "架号")
		}
	}
	switch addressType {
	case 2, 3, 4, 5:
		if strings.TrimSpace(boxNo) == "" {
			missing = append(missing, "框号")
		}
	}
	switch addressType {
	case 4, 5, 6:
		if strings.TrimSpace(packageNo) == "" {
			missing = append(missing, "包号")
		}
	}
	return missing
}

// unitByAddressType 按地址类型确定默认单位
func unitByAddressType(addressType int) string {
	switch addressType {
	case 1:
		return "框"
	case 2, 3:
		return "包"
	default:
		return constants.DefaultUnit
	}
}

// checkFloorCapacity 整批检查按框存放的新增框数是否超出楼层剩余容量
func (s *InventoryService) checkFloorCapacity(t *models.Tables, lines []stockInLine) error {
	newBoxes := map[int]map[string]struct{}{}
	for _, line := range lines {
		if line.addressType != constants.AddressTypeBox || !line.quantity.IsPositive() {
			continue
		}
		box := strings.TrimSpace(line.item.BoxNo)
		if box == "" {
			continue
		}
		used := usedBoxes(t, line.floor)
		if _, exists := used[box]; exists {
			continue
		}
		if newBoxes[line.floor] == nil {
			newBoxes[line.floor] = map[string]struct{}{}
		}
		newBoxes[line.floor][box] = struct{}{}
	}

	floors := make([]int, 0, len(newBoxes))
	for floor := range newBoxes {
		floors = append(floors, floor)
	}
	sort.Ints(floors)
	for _, floor := range floors {
		need := len(newBoxes[floor])
		capacity := floorCapacity(t, floor, s.cfg.FloorCapacity)
		used := len(usedBoxes(t, floor))
		remaining := max(0, capacity-used)
		if remaining < need {
			return opError(ErrCapacity,
				"警告：%d楼库存容量不足！需要%d框，但只有%d框可用。当前%d楼库存状态：已用%d框 / 总容量%d框",
				floor, need, remaining, floor, used, capacity)
		}
	}
	return nil
}
