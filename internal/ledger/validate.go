package ledger

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/warehouse/internal/constants"
	"github.com/dujiao-next/warehouse/internal/models"
)

// Reason 校验失败原因
type Reason string

const (
	ReasonInvalidType     Reason = "invalid_type"
	ReasonInvalidQuantity Reason = "invalid_quantity"
	ReasonNonPositive     Reason = "non_positive"
	ReasonInsufficient    Reason = "insufficient"
	ReasonNoOutstanding   Reason = "no_outstanding_lend"
	ReasonExceedsLent     Reason = "exceeds_lent"
)

// RuleError 台账规则校验失败
type RuleError struct {
	Reason  Reason
	Message string
	Current models.Quantity
}

func (e *RuleError) Error() string {
	return e.Message
}

// Verdict 校验通过时的结果
type Verdict struct {
	Quantity models.Quantity `json:"quantity"`
	Current  models.Quantity `json:"current"`
	Special  bool            `json:"special"`
	Message  string          `json:"message"`
}

func reject(reason Reason, current models.Quantity, format string, args ...interface{}) (Verdict, error) {
	return Verdict{Current: current}, &RuleError{Reason: reason, Message: fmt.Sprintf(format, args...), Current: current}
}

// ValidateOperation 按顺序应用台账规则校验一次操作
//  1. 类型必须为 入库/出库/借/还
//  2. 数量必须可解析为数字
//  3. 特殊库存的 出库/借/还 只要求数量 > 0，跳过充足性校验
//  4. 无记录批次的首次入库允许为 -1，并标记为特殊库存
//  5. 其余入库要求数量 > 0
//  6. 出库/借 要求数量 > 0 且当前库存 >= 数量
//  7. 还 要求数量 > 0，无库存上限
func ValidateOperation(lotID int, opType string, rawQuantity interface{}, records []models.OperationRecord) (Verdict, error) {
	zero := models.QuantityFromInt(0)
	opType = strings.TrimSpace(opType)
	if !IsOperationType(opType) {
		return reject(ReasonInvalidType, zero, "操作类型错误，仅支持：%s", strings.Join(OperationTypes, "、"))
	}

	q, err := models.ParseQuantityValue(rawQuantity)
	if err != nil {
		return reject(ReasonInvalidQuantity, zero, "%s数量格式错误，必须为数字（当前值：%v）", opType, displayRaw(rawQuantity))
	}

	sorted := lotRecords(lotID, records)
	special := isSpecial(sorted)

	if special && opType != constants.OpInbound {
		if !q.IsPositive() {
			return reject(ReasonNonPositive, SpecialStock, "%s数量必须大于0（当前值：%s）", opType, q.Text())
		}
		return Verdict{
			Quantity: q,
			Current:  SpecialStock,
			Special:  true,
			Message:  fmt.Sprintf("库存ID %d 为特殊库存（第一条入库=-1），%s跳过充足性校验", lotID, opType),
		}, nil
	}

	if opType == constants.OpInbound && len(sorted) == 0 && q.Equal(SpecialStock.Decimal) {
		return Verdict{
			Quantity: q,
			Current:  SpecialStock,
			Special:  true,
			Message:  fmt.Sprintf("库存ID %d 第一条入库数量=-1，跳过校验", lotID),
		}, nil
	}

	current := SpecialStock
	if !special {
		current = sumCurrent(sorted)
	}
	if !q.IsPositive() {
		return reject(ReasonNonPositive, current, "%s数量必须大于0（当前值：%s）", opType, q.Text())
	}

	switch opType {
	case constants.OpInbound:
		return Verdict{Quantity: q, Current: current, Special: special, Message: "入库数量校验通过"}, nil
	case constants.OpOutbound, constants.OpLend:
		if current.LessThan(q.Decimal) {
			return reject(ReasonInsufficient, current, "%s失败：库存ID %d 当前库存%s，需%s，库存不足", opType, lotID, current.Text(), q.Text())
		}
	}
	return Verdict{
		Quantity: q,
		Current:  current,
		Message:  fmt.Sprintf("%s数量校验通过，库存ID %d 当前库存：%s", opType, lotID, current.Text()),
	}, nil
}

// CheckReturn 校验归还数量不超过未归还的借出数量（累计还 + 本次 <= 累计借）
func CheckReturn(lotID int, q models.Quantity, records []models.OperationRecord) error {
	s := Summarize(lotID, records)
	if !s.NetLent.IsPositive() {
		return &RuleError{
			Reason:  ReasonNoOutstanding,
			Message: fmt.Sprintf("库存ID %d 没有未归还的借出记录", lotID),
			Current: s.Current,
		}
	}
	if s.NetLent.LessThan(q.Decimal) {
		return &RuleError{
			Reason:  ReasonExceedsLent,
			Message: fmt.Sprintf("归还失败：库存ID %d 归还数量%s超过未归还数量%s", lotID, q.Text(), s.NetLent.Text()),
			Current: s.Current,
		}
	}
	return nil
}

func displayRaw(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
