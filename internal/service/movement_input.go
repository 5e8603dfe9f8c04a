package service

import (
	"github.com/dujiao-next/warehouse/internal/constants"
	"github.com/dujiao-next/warehouse/internal/models"
)

// MovementItem 单条出库/借/还明细
type MovementItem struct {
	InventoryID int         `json:"inventory_id"`
	Quantity    interface{} `json:"quantity"`
}

// MovementInput 出库/借/还统一输入
type MovementInput struct {
	Items    []MovementItem `json:"items"`
	Operator string         `json:"operator"`
	Remark   string         `json:"remark"`
	Time     string         `json:"time"`
}

// movementKeys 各操作类型兼容的历史字段名
type movementKeys struct {
	items        []string
	uniformQty   []string
	itemQty      []string
	noModeMsg    string
	emptyListMsg string
}

var movementKeySets = map[string]movementKeys{
	constants.OpOutbound: {
		items:        []string{"stock_out_items", "items"},
		uniformQty:   []string{"out_quantity", "quantity"},
		itemQty:      []string{"out_quantity", "quantity"},
		noModeMsg:    "请选择一种出库模式：1. 传递inventory_ids+out_quantity（统一数量） 2. 传递stock_out_items（差异化数量）",
		emptyListMsg: "差异化出库列表不能为空",
	},
	constants.OpLend: {
		items:        []string{"lend_items", "lendItems", "items"},
		uniformQty:   []string{"quantity", "lend_quantity", "out_quantity"},
		itemQty:      []string{"quantity", "lend_quantity", "out_quantity"},
		noModeMsg:    "借出列表不能为空",
		emptyListMsg: "借出列表不能为空",
	},
	constants.OpReturn: {
		items:        []string{"return_items", "returnItems", "items"},
		uniformQty:   []string{"quantity", "return_quantity", "returnQuantity"},
		itemQty:      []string{"return_quantity", "returnQuantity", "quantity"},
		noModeMsg:    "归还列表不能为空",
		emptyListMsg: "归还列表不能为空",
	},
}

var (
	inventoryIDListKeys = []string{"inventory_ids", "inventoryIds"}
	inventoryIDKeys     = []string{"inventory_id", "inventoryId", "库存ID"}
	operatorKeys        = []string{"operator", "Operator"}
	remarkKeys          = []string{"remark", "remarkText", "Remark"}
	timeKeys            = []string{"out_time", "outTime", "time", "lend_time", "returnTime", "return_time"}
)

// NormalizeMovementPayload 将各种历史请求格式归一为 MovementInput
// 支持统一数量（inventory_ids + 数量）与差异化数量（明细列表）两种模式
func NormalizeMovementPayload(opType string, payload map[string]interface{}, defaultOperator string) (MovementInput, error) {
	keys, ok := movementKeySets[opType]
	if !ok {
		return MovementInput{}, validationError("不支持的操作类型：%s", opType)
	}
	if len(payload) == 0 {
		return MovementInput{}, validationError("请求数据不能为空")
	}

	input := MovementInput{
		Operator: firstText(payload, operatorKeys...),
		Remark:   firstText(payload, remarkKeys...),
		Time:     firstText(payload, timeKeys...),
	}
	if input.Operator == "" {
		input.Operator = defaultOperator
	}

	rawIDs, hasIDs := firstPresent(payload, inventoryIDListKeys...)
	rawQty, hasQty := firstPresent(payload, keys.uniformQty...)
	rawItems, hasItems := firstPresent(payload, keys.items...)

	switch {
	case hasIDs && hasQty:
		items, err := uniformItems(opType, rawIDs, rawQty)
		if err != nil {
			return MovementInput{}, err
		}
		input.Items = items
	case hasItems:
		items, err := listItems(keys, rawItems)
		if err != nil {
			return MovementInput{}, err
		}
		input.Items = items
	default:
		return MovementInput{}, validationError("%s", keys.noModeMsg)
	}
	return input, nil
}

func uniformItems(opType string, rawIDs, rawQty interface{}) ([]MovementItem, error) {
	ids, ok := rawIDs.([]interface{})
	if !ok || len(ids) == 0 {
		return nil, validationError("库存ID列表不能为空")
	}
	if _, err := models.ParseQuantityValue(rawQty); err != nil {
		return nil, validationError("%s数量必须是数字", opType)
	}
	items := make([]MovementItem, 0, len(ids))
	for _, rawID := range ids {
		id, err := intOf(rawID)
		if err != nil {
			return nil, validationError("库存ID格式错误: %v，必须为整数", rawID)
		}
		items = append(items, MovementItem{InventoryID: id, Quantity: rawQty})
	}
	return items, nil
}

func listItems(keys movementKeys, rawItems interface{}) ([]MovementItem, error) {
	list, ok := rawItems.([]interface{})
	if !ok || len(list) == 0 {
		return nil, validationError("%s", keys.emptyListMsg)
	}
	items := make([]MovementItem, 0, len(list))
	for i, raw := range list {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return nil, validationError("第%d项数据格式错误，必须为对象", i+1)
		}
		rawID, hasID := firstPresent(obj, inventoryIDKeys...)
		qty, hasQty := firstPresent(obj, keys.itemQty...)
		if !hasID || !hasQty {
			return nil, validationError("第%d项缺少inventory_id或%s字段", i+1, keys.itemQty[0])
		}
		id, err := intOf(rawID)
		if err != nil {
			return nil, validationError("第%d项数据格式错误: inventory_id必须是整数", i+1)
		}
		items = append(items, MovementItem{InventoryID: id, Quantity: qty})
	}
	return items, nil
}

// movementLabel 操作类型在提示文本中的名称
func movementLabel(opType string) string {
	switch opType {
	case constants.OpOutbound:
		return "出库"
	case constants.OpLend:
		return "借出"
	case constants.OpReturn:
		return "归还"
	default:
		return opType
	}
}
