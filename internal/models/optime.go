package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/warehouse/internal/constants"
)

// operationTimeLayouts 操作时间可接受的输入格式
var operationTimeLayouts = []string{
	constants.OperationTimeLayout,
	"2006-01-02 15:04",
	"2006-01-02 15",
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
}

// ParseOperationTime 解析操作时间（本地时区），空串返回零值
func ParseOperationTime(raw string) (time.Time, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t.In(time.Local), nil
	}
	for _, layout := range operationTimeLayouts {
		if t, err := time.ParseInLocation(layout, text, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid operation time %q", raw)
}

// FormatOperationTime 格式化操作时间，零值输出空串
func FormatOperationTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(constants.OperationTimeLayout)
}
