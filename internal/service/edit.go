package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dujiao-next/warehouse/internal/constants"
	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/models"
)

// EditInput 库存编辑输入，nil 字段表示不修改
type EditInput struct {
	// 商品
	Code    *string
	Type    *string
	Purpose *string
	Notes   *string
	// 特征
	UnitPrice *string
	Weight    *string
	Spec      *string
	Material  *string
	Color     *string
	Shape     *string
	Style     *string
	ImagePath *string
	// 位置
	AddressType *string
	Floor       *string
	ShelfNo     *string
	BoxNo       *string
	PackageNo   *string
	// 厂家
	Manufacturer        *string
	ManufacturerAddress *string
	Phone               *string
	// 库存
	Batch          *string
	Status         *string
	DefectQuantity *string

	Operator string
}

// fieldRefs 表格列名到编辑字段的映射
func (in *EditInput) fieldRefs() map[string]**string {
	return map[string]**string{
		"货号": &in.Code, "类型": &in.Type, "用途": &in.Purpose, "备注": &in.Notes,
		"单价": &in.UnitPrice, "重量": &in.Weight, "规格": &in.Spec, "材质": &in.Material,
		"颜色": &in.Color, "形状": &in.Shape, "风格": &in.Style, "图片路径": &in.ImagePath,
		"地址类型": &in.AddressType, "楼层": &in.Floor, "架号": &in.ShelfNo, "框号": &in.BoxNo, "包号": &in.PackageNo,
		"厂家": &in.Manufacturer, "厂家地址": &in.ManufacturerAddress, "电话": &in.Phone,
		"批次": &in.Batch, "状态": &in.Status, "次品数量": &in.DefectQuantity,
	}
}

// UnmarshalJSON 按表格列名解析编辑字段
func (in *EditInput) UnmarshalJSON(b []byte) error {
	var raw map[string]interface{}
	decoder := json.NewDecoder(bytes.NewReader(b))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return err
	}
	*in = EditInputFromMap(raw)
	return nil
}

// EditInputFromMap 从列名键值对构造编辑输入
func EditInputFromMap(raw map[string]interface{}) EditInput {
	var in EditInput
	for key, ref := range in.fieldRefs() {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		text := textOf(v)
		*ref = &text
	}
	in.Operator = textOf(raw["操作人"])
	return in
}

// Empty 没有任何待修改字段
func (in EditInput) Empty() bool {
	for _, ref := range in.fieldRefs() {
		if *ref != nil {
			return false
		}
	}
	return true
}

// EditResult 库存编辑结果
type EditResult struct {
	Message     string           `json:"message"`
	InventoryID int              `json:"inventory_id"`
	Changes     []string         `json:"updated_fields"`
	ChangeNote  string           `json:"change_note"`
	EditTime    string           `json:"edit_time"`
	Operator    string           `json:"operator"`
	Inventory   models.Inventory `json:"inventory"`
}

// changeLog 变更日志
type changeLog struct {
	entries []string
}

func (c *changeLog) track(label string, old string, next *string) {
	if next == nil {
		return
	}
	if strings.TrimSpace(old) != strings.TrimSpace(*next) {
		c.entries = append(c.entries, fmt.Sprintf("%s：%s → %s", label, old, *next))
	}
}

func (c *changeLog) note() string {
	if len(c.entries) == 0 {
		return "未修改具体字段"
	}
	return strings.Join(c.entries, "；")
}

func pick(old string, next *string) string {
	if next == nil {
		return old
	}
	return strings.TrimSpace(*next)
}

// Edit 编辑库存的非台账字段，不写操作记录
func (s *InventoryService) Edit(ctx context.Context, inventoryID int, input EditInput) (*EditResult, error) {
	if input.Empty() {
		return nil, validationError("编辑数据不能为空且必须为JSON格式")
	}
	if input.Floor != nil && strings.TrimSpace(*input.Floor) != "" {
		floor, err := parseIntText(*input.Floor)
		if err != nil {
			return nil, validationError("楼层必须为数字")
		}
		if !s.cfg.HasFloor(floor) {
			return nil, validationError("楼层无效，可选楼层：%s", joinInts(s.cfg.Floors))
		}
	}
	if input.Type != nil && strings.TrimSpace(*input.Type) != "" && !s.cfg.HasProductType(*input.Type) {
		return nil, validationError("商品类型无效，可选类型：%s", strings.Join(s.cfg.ProductTypes, ", "))
	}

	operator := strings.TrimSpace(input.Operator)
	if operator == "" {
		operator = constants.DefaultOperator
	}
	result := &EditResult{InventoryID: inventoryID, Operator: operator}

	err := s.write(ctx, "edit", func(t *models.Tables) error {
		unlock := s.lots.lockAll([]int{inventoryID})
		defer unlock()

		lotIdx := t.FindInventory(inventoryID)
		if lotIdx < 0 {
			return notFoundError("未找到ID为%d的库存记录", inventoryID)
		}
		log := &changeLog{}

		if err := s.editInventoryFields(t, lotIdx, input, log); err != nil {
			return err
		}
		if err := s.editProductAndFeature(t, lotIdx, input, log); err != nil {
			return err
		}
		if err := s.editLocation(t, lotIdx, input, log); err != nil {
			return err
		}
		s.editManufacturer(t, lotIdx, input, log)

		recomputeCapacity(t, s.cfg)
		result.Changes = append([]string{}, log.entries...)
		result.ChangeNote = log.note()
		result.Inventory = t.Inventory[t.FindInventory(inventoryID)]
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.EditTime = models.FormatOperationTime(s.now())
	result.Message = fmt.Sprintf("库存ID %d 编辑成功", inventoryID)
	logger.Infow("inventory_edit_committed",
		"inventory_id", inventoryID,
		"operator", operator,
		"changes", result.ChangeNote,
	)
	return result, nil
}

func (s *InventoryService) editInventoryFields(t *models.Tables, lotIdx int, input EditInput, log *changeLog) error {
	lot := &t.Inventory[lotIdx]
	if input.Batch != nil {
		batch, err := parseIntText(*input.Batch)
		if err != nil {
			return validationError("批次格式错误，请检查")
		}
		log.track("批次", strconv.Itoa(lot.Batch), input.Batch)
		lot.Batch = batch
	}
	if input.Status != nil {
		log.track("状态", lot.Status, input.Status)
		lot.Status = strings.TrimSpace(*input.Status)
	}
	if input.DefectQuantity != nil {
		q, err := models.ParseQuantity(*input.DefectQuantity)
		if err != nil {
			return validationError("次品数量格式错误，请检查")
		}
		log.track("次品数量", lot.DefectQuantity.Text(), input.DefectQuantity)
		lot.DefectQuantity = q
	}
	return nil
}

func (s *InventoryService) editProductAndFeature(t *models.Tables, lotIdx int, input EditInput, log *changeLog) error {
	lot := &t.Inventory[lotIdx]

	featureIdx := t.FindFeature(lot.FeatureID)
	if featureIdx < 0 {
		featureID := lot.FeatureID
		if featureID == models.NoRef {
			featureID = t.NextFeatureID()
		}
		t.Features = append(t.Features, models.Feature{ID: featureID, ProductID: models.NoRef})
		lot.FeatureID = featureID
		featureIdx = len(t.Features) - 1
	}
	feature := &t.Features[featureIdx]

	if input.UnitPrice != nil {
		q, err := models.ParseQuantity(*input.UnitPrice)
		if err != nil {
			return validationError("单价格式错误，请检查")
		}
		log.track("特征单价", feature.UnitPrice.Text(), input.UnitPrice)
		feature.UnitPrice = q
	}
	if input.Weight != nil {
		q, err := models.ParseQuantity(*input.Weight)
		if err != nil {
			return validationError("重量格式错误，请检查")
		}
		log.track("特征重量", feature.Weight.Text(), input.Weight)
		feature.Weight = q
	}
	log.track("特征规格", feature.Spec, input.Spec)
	log.track("特征材质", feature.Material, input.Material)
	log.track("特征颜色", feature.Color, input.Color)
	log.track("特征形状", feature.Shape, input.Shape)
	log.track("特征风格", feature.Style, input.Style)
	log.track("特征图片路径", feature.ImagePath, input.ImagePath)
	feature.Spec = pick(feature.Spec, input.Spec)
	feature.Material = pick(feature.Material, input.Material)
	feature.Color = pick(feature.Color, input.Color)
	feature.Shape = pick(feature.Shape, input.Shape)
	feature.Style = pick(feature.Style, input.Style)
	feature.ImagePath = pick(feature.ImagePath, input.ImagePath)

	productIdx := t.FindProduct(feature.ProductID)
	if productIdx < 0 {
		code := pick("", input.Code)
		if code == "" {
			return nil
		}
		productID, _ := resolveProduct(t, productIndex(t), code, pick("", input.Type), pick("", input.Notes), pick("", input.Purpose))
		log.track("商品货号", "", input.Code)
		t.Features[featureIdx].ProductID = productID
		return nil
	}

	product := &t.Products[productIdx]
	if input.Code != nil {
		code := strings.TrimSpace(*input.Code)
		if code == "" {
			return validationError("货号不能为空")
		}
		if other, ok := productIndex(t)[code]; ok && other != product.ID {
			return validationError("货号 %s 已被商品ID %d 使用", code, other)
		}
	}
	log.track("商品货号", product.Code, input.Code)
	log.track("商品类型", product.Type, input.Type)
	log.track("商品用途", product.Purpose, input.Purpose)
	log.track("商品备注", product.Notes, input.Notes)
	product.Code = pick(product.Code, input.Code)
	product.Type = pick(product.Type, input.Type)
	product.Purpose = pick(product.Purpose, input.Purpose)
	product.Notes = pick(product.Notes, input.Notes)
	return nil
}

// editLocation 位置按去重键重新解析，原位置不再被引用时删除
func (s *InventoryService) editLocation(t *models.Tables, lotIdx int, input EditInput, log *changeLog) error {
	if input.AddressType == nil && input.Floor == nil && input.ShelfNo == nil && input.BoxNo == nil && input.PackageNo == nil {
		return nil
	}
	lot := &t.Inventory[lotIdx]
	var old models.Location
	oldID := lot.LocationID
	if li := t.FindLocation(oldID); li >= 0 {
		old = t.Locations[li]
	}

	next := models.Location{
		AddressType: old.AddressType,
		Floor:       old.Floor,
		ShelfNo:     pick(old.ShelfNo, input.ShelfNo),
		BoxNo:       pick(old.BoxNo, input.BoxNo),
		PackageNo:   pick(old.PackageNo, input.PackageNo),
	}
	if input.AddressType != nil {
		addressType, err := parseIntText(*input.AddressType)
		if err != nil || addressType < constants.AddressTypeMin || addressType > constants.AddressTypeMax {
			return validationError("地址类型无效: %s", *input.AddressType)
		}
		next.AddressType = addressType
	}
	if input.Floor != nil && strings.TrimSpace(*input.Floor) != "" {
		next.Floor, _ = parseIntText(*input.Floor)
	}
	if missing := missingAddressFields(next.AddressType, next.ShelfNo, next.BoxNo, next.PackageNo); len(missing) > 0 {
		return validationError("地址类型 %d 需要以下字段: %s", next.AddressType, strings.Join(missing, ", "))
	}

	if next.AddressType == constants.AddressTypeBox && next.BoxNo != "" {
		if _, used := usedBoxes(t, next.Floor)[next.BoxNo]; !used {
			capacity := floorCapacity(t, next.Floor, s.cfg.FloorCapacity)
			usedCount := len(usedBoxes(t, next.Floor))
			if capacity-usedCount < 1 {
				return opError(ErrCapacity,
					"警告：%d楼库存容量不足！需要1框，但只有%d框可用。当前%d楼库存状态：已用%d框 / 总容量%d框",
					next.Floor, max(0, capacity-usedCount), next.Floor, usedCount, capacity)
			}
		}
	}

	log.track("地址地址类型", strconv.Itoa(old.AddressType), input.AddressType)
	log.track("地址楼层", strconv.Itoa(old.Floor), input.Floor)
	log.track("地址架号", old.ShelfNo, input.ShelfNo)
	log.track("地址框号", old.BoxNo, input.BoxNo)
	log.track("地址包号", old.PackageNo, input.PackageNo)

	newID := resolveLocation(t, locationIndex(t), next)
	t.Inventory[lotIdx].LocationID = newID
	if oldID != newID {
		removeUnreferencedLocation(t, oldID)
	}
	return nil
}

// editManufacturer 厂家按去重键重新解析，名称置空表示解除关联
func (s *InventoryService) editManufacturer(t *models.Tables, lotIdx int, input EditInput, log *changeLog) {
	if input.Manufacturer == nil && input.ManufacturerAddress == nil && input.Phone == nil {
		return
	}
	lot := &t.Inventory[lotIdx]
	var old models.Manufacturer
	oldID := lot.ManufacturerID
	if mi := t.FindManufacturer(oldID); mi >= 0 {
		old = t.Manufacturers[mi]
	}
	name := pick(old.Name, input.Manufacturer)
	address := pick(old.Address, input.ManufacturerAddress)
	phone := pick(old.Phone, input.Phone)

	log.track("厂家厂家", old.Name, input.Manufacturer)
	log.track("厂家厂家地址", old.Address, input.ManufacturerAddress)
	log.track("厂家电话", old.Phone, input.Phone)

	newID := models.NoRef
	if name != "" {
		newID, _ = resolveManufacturer(t, manufacturerIndex(t), name, address, phone)
	}
	t.Inventory[lotIdx].ManufacturerID = newID
	if oldID != newID {
		removeUnreferencedManufacturer(t, oldID)
	}
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ", ")
}
