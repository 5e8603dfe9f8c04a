package store

import (
	"math"
	"strconv"
	"strings"

	"github.com/dujiao-next/warehouse/internal/constants"
	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/models"
)

// record 按表头名访问一行数据
type record struct {
	index  map[string]int
	values []string
}

func newHeaderIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, col := range header {
		name := strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if _, exists := index[name]; !exists {
			index[name] = i
		}
	}
	return index
}

func (r record) str(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[i])
}

func (r record) strOr(col, fallback string) string {
	if v := r.str(col); v != "" {
		return v
	}
	return fallback
}

// id 读取主键列，无法转换返回 false
func (r record) id(col string) (int, bool) {
	return coerceInt(r.str(col))
}

// fk 读取外键列，空值或无法转换时返回 NoRef
func (r record) fk(col string) int {
	v, ok := coerceInt(r.str(col))
	if !ok {
		return models.NoRef
	}
	return v
}

func (r record) intOr(col string, fallback int) int {
	v, ok := coerceInt(r.str(col))
	if !ok {
		return fallback
	}
	return v
}

// qty 读取数量列，无法解析时保留原文，不按 0 写回
func (r record) qty(col string) models.Quantity {
	text := r.str(col)
	q, err := models.ParseQuantity(text)
	if err != nil {
		logger.Warnw("table_quantity_unparsed", "column", col, "value", text, "error", err)
		return models.UnparsedQuantity(text)
	}
	return q
}

// coerceInt 接受 "3"、" 3 "、"3.0" 形式的整数
func coerceInt(raw string) (int, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(text); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// decodeResult 解码结果，Dropped 为主键损坏被丢弃的行数，Corrupt 为数量无法解析、台账跳过的操作记录数
type decodeResult struct {
	Dropped int
	Corrupt int
}

func decodeTable(tables *models.Tables, name string, header []string, rows [][]string) decodeResult {
	schema, _ := SchemaByName(name)
	index := newHeaderIndex(header)
	result := decodeResult{}
	for _, values := range rows {
		if isBlankRow(values) {
			continue
		}
		r := record{index: index, values: values}
		id, ok := r.id(schema.IDColumn)
		if !ok {
			result.Dropped++
			continue
		}
		switch name {
		case constants.TableProduct:
			tables.Products = append(tables.Products, models.Product{
				ID:      id,
				Code:    r.str(colProductCode),
				Type:    r.str(colProductType),
				Notes:   r.str(colNotes),
				Purpose: r.str(colPurpose),
			})
		case constants.TableFeature:
			tables.Features = append(tables.Features, models.Feature{
				ID:        id,
				ProductID: r.fk(colFeatureProduct),
				UnitPrice: r.qty(colUnitPrice),
				Weight:    r.qty(colWeight),
				Spec:      r.str(colSpec),
				Material:  r.str(colMaterial),
				Color:     r.str(colColor),
				Shape:     r.str(colShape),
				Style:     r.str(colStyle),
				ImagePath: r.str(colImagePath),
			})
		case constants.TableInventory:
			tables.Inventory = append(tables.Inventory, models.Inventory{
				ID:             id,
				FeatureID:      r.fk(colInvFeature),
				LocationID:     r.fk(colInvLocation),
				ManufacturerID: r.fk(colInvManufacturer),
				Unit:           r.strOr(colUnit, constants.DefaultUnit),
				Quantity:       r.qty(colQuantity),
				DefectQuantity: r.qty(colDefectQuantity),
				Batch:          r.intOr(colBatch, constants.DefaultBatch),
				Status:         r.strOr(colStatus, constants.DefaultStatus),
			})
		case constants.TableLocation:
			tables.Locations = append(tables.Locations, models.Location{
				ID:          id,
				AddressType: r.intOr(colAddressType, 0),
				Floor:       r.intOr(colFloor, 0),
				ShelfNo:     r.str(colShelfNo),
				BoxNo:       r.str(colBoxNo),
				PackageNo:   r.str(colPackageNo),
			})
		case constants.TableManufacturer:
			tables.Manufacturers = append(tables.Manufacturers, models.Manufacturer{
				ID:      id,
				Name:    r.str(colManufacturerName),
				Address: r.str(colManufacturerAddress),
				Phone:   r.str(colPhone),
			})
		case constants.TableOperationRecord:
			op := models.OperationRecord{
				ID:          id,
				InventoryID: r.fk(colOpInventory),
				Type:        r.str(colOpType),
				Quantity:    r.qty(colOpQuantity),
				Operator:    r.str(colOperator),
				Note:        r.str(colOpNote),
			}
			rawTime := r.str(colOpTime)
			opTime, err := models.ParseOperationTime(rawTime)
			if err != nil {
				logger.Warnw("operation_time_unparsed", "operation_id", id, "value", rawTime)
				op.RawTime = rawTime
			}
			op.Time = opTime
			if !op.Quantity.Valid() {
				result.Corrupt++
				logger.Warnw("operation_record_skipped_by_ledger", "operation_id", id, "inventory_id", op.InventoryID)
			}
			tables.Operations = append(tables.Operations, op)
		case constants.TableCapacity:
			tables.Capacity = append(tables.Capacity, models.Capacity{
				Floor:     id,
				Capacity:  r.intOr(colCapacity, 0),
				Remaining: r.intOr(colRemaining, 0),
			})
		}
	}
	return result
}

func encodeTable(tables *models.Tables, name string) [][]string {
	itoa := strconv.Itoa
	var rows [][]string
	switch name {
	case constants.TableProduct:
		for _, p := range tables.Products {
			rows = append(rows, []string{itoa(p.ID), p.Code, p.Type, p.Notes, p.Purpose})
		}
	case constants.TableFeature:
		for _, f := range tables.Features {
			rows = append(rows, []string{
				itoa(f.ID), itoa(f.ProductID), f.UnitPrice.Text(), f.Weight.Text(), f.Spec,
				f.Material, f.Color, f.Shape, f.Style, f.ImagePath,
			})
		}
	case constants.TableInventory:
		for _, inv := range tables.Inventory {
			rows = append(rows, []string{
				itoa(inv.ID), itoa(inv.FeatureID), itoa(inv.LocationID), itoa(inv.ManufacturerID), inv.Unit,
				inv.Quantity.Text(), inv.DefectQuantity.Text(), itoa(inv.Batch), inv.Status,
			})
		}
	case constants.TableLocation:
		for _, loc := range tables.Locations {
			rows = append(rows, []string{
				itoa(loc.ID), itoa(loc.AddressType), itoa(loc.Floor), loc.ShelfNo, loc.BoxNo, loc.PackageNo,
			})
		}
	case constants.TableManufacturer:
		for _, m := range tables.Manufacturers {
			rows = append(rows, []string{itoa(m.ID), m.Name, m.Address, m.Phone})
		}
	case constants.TableOperationRecord:
		for _, op := range tables.Operations {
			rows = append(rows, []string{
				itoa(op.ID), itoa(op.InventoryID), op.Type, op.TimeText(),
				op.Quantity.Text(), op.Operator, op.Note,
			})
		}
	case constants.TableCapacity:
		for _, c := range tables.Capacity {
			rows = append(rows, []string{itoa(c.Floor), itoa(c.Capacity), itoa(c.Remaining)})
		}
	}
	return rows
}

func isBlankRow(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
