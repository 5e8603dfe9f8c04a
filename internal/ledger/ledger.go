package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dujiao-next/warehouse/internal/constants"
	"github.com/dujiao-next/warehouse/internal/models"

	"github.com/shopspring/decimal"
)

// SpecialStock 特殊库存的当前数量哨兵值（未知）
var SpecialStock = models.QuantityFromInt(constants.SpecialStockMarker)

// OperationTypes 支持的操作类型（按状态文本顺序）
var OperationTypes = []string{constants.OpInbound, constants.OpOutbound, constants.OpLend, constants.OpReturn}

// statusLabels 状态文本中各操作类型的简称
var statusLabels = map[string]string{
	constants.OpInbound:  "入",
	constants.OpOutbound: "出",
	constants.OpLend:     "借",
	constants.OpReturn:   "还",
}

// IsOperationType 判断是否为支持的操作类型
func IsOperationType(opType string) bool {
	for _, t := range OperationTypes {
		if t == opType {
			return true
		}
	}
	return false
}

// Summary 单个库存批次的台账汇总
type Summary struct {
	InventoryID   int                        `json:"inventory_id"`
	Totals        map[string]models.Quantity `json:"totals"`
	Counts        map[string]int             `json:"counts"`
	OtherCounts   map[string]int             `json:"other_counts"`
	RecordCount   int                        `json:"record_count"`
	LastOperation time.Time                  `json:"last_operation"`
	NetLent       models.Quantity            `json:"net_lent"`
	Current       models.Quantity            `json:"current"`
	Special       bool                       `json:"special"`
	Status        string                     `json:"status"`
}

// Total 某操作类型累计数量
func (s Summary) Total(opType string) models.Quantity {
	return s.Totals[opType]
}

// Unreturned 未归还数量（保留两位小数，不小于 0）
func (s Summary) Unreturned() models.Quantity {
	u := s.NetLent.Round2()
	if u.IsNegative() {
		return models.QuantityFromInt(0)
	}
	return u
}

// lotRecords 过滤出指定批次的记录并按操作 ID 升序，数量无法解析的损坏记录不参与计算
func lotRecords(lotID int, records []models.OperationRecord) []models.OperationRecord {
	out := make([]models.OperationRecord, 0, len(records))
	for _, r := range records {
		if r.InventoryID == lotID && r.Quantity.Valid() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// isSpecial 首条记录为数量恰好 -1 的入库即特殊库存
func isSpecial(sorted []models.OperationRecord) bool {
	if len(sorted) == 0 {
		return false
	}
	first := sorted[0]
	return first.Type == constants.OpInbound && first.Quantity.Equal(SpecialStock.Decimal)
}

// ComputeStock 扫描批次全部记录计算当前库存：入 − 出 − 借 + 还，特殊库存返回 -1
func ComputeStock(lotID int, records []models.OperationRecord) (models.Quantity, bool) {
	sorted := lotRecords(lotID, records)
	if isSpecial(sorted) {
		return SpecialStock, true
	}
	return sumCurrent(sorted), false
}

func sumCurrent(sorted []models.OperationRecord) models.Quantity {
	current := decimal.Zero
	for _, r := range sorted {
		switch r.Type {
		case constants.OpInbound, constants.OpReturn:
			current = current.Add(r.Quantity.Decimal)
		case constants.OpOutbound, constants.OpLend:
			current = current.Sub(r.Quantity.Decimal)
		}
	}
	return models.NewQuantity(current)
}

// Summarize 汇总批次的累计数量、次数与状态文本
func Summarize(lotID int, records []models.OperationRecord) Summary {
	sorted := lotRecords(lotID, records)
	s := Summary{
		InventoryID: lotID,
		Totals:      make(map[string]models.Quantity, len(OperationTypes)),
		Counts:      make(map[string]int, len(OperationTypes)),
		OtherCounts: map[string]int{},
		RecordCount: len(sorted),
	}
	for _, t := range OperationTypes {
		s.Totals[t] = models.QuantityFromInt(0)
		s.Counts[t] = 0
	}
	for _, r := range sorted {
		if r.Time.After(s.LastOperation) {
			s.LastOperation = r.Time
		}
		if !IsOperationType(r.Type) {
			s.OtherCounts[r.Type]++
			continue
		}
		s.Totals[r.Type] = s.Totals[r.Type].Add(r.Quantity)
		s.Counts[r.Type]++
	}
	s.NetLent = s.Totals[constants.OpLend].Sub(s.Totals[constants.OpReturn])
	s.Special = isSpecial(sorted)
	if s.Special {
		s.Current = SpecialStock
	} else {
		s.Current = sumCurrent(sorted)
	}
	s.Status = statusText(s)
	return s
}

// statusText 生成形如 "入:2次(150个) 出:1次(30个) (5个未还)" 的状态文本
func statusText(s Summary) string {
	parts := make([]string, 0, len(OperationTypes)+1)
	for _, t := range OperationTypes {
		if s.Counts[t] == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%d次(%s个)", statusLabels[t], s.Counts[t], s.Totals[t].Text()))
	}
	if u := s.Unreturned(); u.IsPositive() {
		parts = append(parts, fmt.Sprintf("(%s个未还)", u.Text()))
	}
	if len(parts) == 0 {
		return constants.NoOperationsStatus
	}
	return strings.Join(parts, " ")
}
