package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// 数量取值范围：绝对值不超过 1e12，指数限定在 ±16 以内
const (
	quantityMinExponent = -16
	quantityMaxExponent = 16
)

var quantityLimit = decimal.New(1, 12)

// Quantity 数量/单价/重量统一数值类型，基于 decimal 保证累加精度
// raw 非空表示表格中无法解析的原始文本，写回时原样保留
type Quantity struct {
	decimal.Decimal
	raw string
}

// NewQuantity 从 decimal 创建数量
func NewQuantity(d decimal.Decimal) Quantity {
	return Quantity{Decimal: d}
}

// QuantityFromInt 从整数创建数量
func QuantityFromInt(v int64) Quantity {
	return Quantity{Decimal: decimal.NewFromInt(v)}
}

// QuantityFromFloat 从浮点数创建数量
func QuantityFromFloat(v float64) Quantity {
	return Quantity{Decimal: decimal.NewFromFloat(v)}
}

// ParseQuantity 解析数量文本，空串视为 0
func ParseQuantity(raw string) (Quantity, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Quantity{Decimal: decimal.Zero}, nil
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity %q: %w", raw, err)
	}
	if err := checkQuantityRange(d); err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity %q: %w", raw, err)
	}
	return Quantity{Decimal: d}, nil
}

// checkQuantityRange 先比较指数再比较绝对值，避免对极端指数做大数运算
func checkQuantityRange(d decimal.Decimal) error {
	if exp := d.Exponent(); exp < quantityMinExponent || exp > quantityMaxExponent {
		return fmt.Errorf("exponent %d out of range", exp)
	}
	if d.Abs().GreaterThan(quantityLimit) {
		return fmt.Errorf("exceeds %s", quantityLimit.String())
	}
	return nil
}

// UnparsedQuantity 保留无法解析的原始文本，数值按 0 处理且 Valid 返回 false
func UnparsedQuantity(raw string) Quantity {
	return Quantity{Decimal: decimal.Zero, raw: raw}
}

// Valid 是否为可参与计算的数量
func (q Quantity) Valid() bool {
	return q.raw == ""
}

// ParseQuantityValue 解析 JSON 解码后的任意数量值（数字或数字字符串）
func ParseQuantityValue(value interface{}) (Quantity, error) {
	switch v := value.(type) {
	case nil:
		return Quantity{}, fmt.Errorf("quantity is required")
	case Quantity:
		if !v.Valid() {
			return Quantity{}, fmt.Errorf("invalid quantity %q", v.raw)
		}
		return boundedQuantity(v)
	case decimal.Decimal:
		return boundedQuantity(Quantity{Decimal: v})
	case float64:
		return boundedQuantity(QuantityFromFloat(v))
	case float32:
		return boundedQuantity(QuantityFromFloat(float64(v)))
	case int:
		return boundedQuantity(QuantityFromInt(int64(v)))
	case int64:
		return boundedQuantity(QuantityFromInt(v))
	case json.Number:
		return ParseQuantity(v.String())
	case string:
		if strings.TrimSpace(v) == "" {
			return Quantity{}, fmt.Errorf("quantity is required")
		}
		return ParseQuantity(v)
	default:
		return Quantity{}, fmt.Errorf("unsupported quantity type %T", value)
	}
}

func boundedQuantity(q Quantity) (Quantity, error) {
	if err := checkQuantityRange(q.Decimal); err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity %s: %w", q.Decimal.String(), err)
	}
	return q, nil
}

// Add 数量相加
func (q Quantity) Add(other Quantity) Quantity {
	return Quantity{Decimal: q.Decimal.Add(other.Decimal)}
}

// Sub 数量相减
func (q Quantity) Sub(other Quantity) Quantity {
	return Quantity{Decimal: q.Decimal.Sub(other.Decimal)}
}

// Text 输出去除多余小数位的文本（100.50 -> 100.5，100.0 -> 100）
func (q Quantity) Text() string {
	if q.raw != "" {
		return q.raw
	}
	return q.Decimal.String()
}

// String 实现 fmt.Stringer
func (q Quantity) String() string {
	return q.Text()
}

// Round2 保留两位小数
func (q Quantity) Round2() Quantity {
	return Quantity{Decimal: q.Decimal.Round(2)}
}

// MarshalJSON 输出 JSON 数字
func (q Quantity) MarshalJSON() ([]byte, error) {
	if q.raw != "" {
		return json.Marshal(q.raw)
	}
	return []byte(q.Decimal.String()), nil
}

// UnmarshalJSON 解析数量（字符串或数字）
func (q *Quantity) UnmarshalJSON(b []byte) error {
	text := strings.TrimSpace(string(b))
	if text == "" || text == "null" {
		q.Decimal = decimal.Zero
		return nil
	}
	if strings.HasPrefix(text, `"`) {
		unquoted, err := strconv.Unquote(text)
		if err != nil {
			return err
		}
		text = unquoted
	}
	parsed, err := ParseQuantity(text)
	if err != nil {
		return err
	}
	q.Decimal = parsed.Decimal
	return nil
}
