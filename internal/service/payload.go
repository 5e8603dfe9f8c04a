package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// textOf 将 JSON 解码后的任意值转为去空白文本
func textOf(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// parseIntText 解析整数文本，兼容 "3.0"
func parseIntText(raw string) (int, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0, fmt.Errorf("empty integer")
	}
	if n, err := strconv.Atoi(text); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid integer %q", raw)
	}
	return int(f), nil
}

// intOf 将任意值解析为整数
func intOf(v interface{}) (int, error) {
	return parseIntText(textOf(v))
}

// firstPresent 按顺序返回第一个存在的键对应的值
func firstPresent(m map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// firstText 按顺序返回第一个非空文本
func firstText(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if text := textOf(m[k]); text != "" {
			return text
		}
	}
	return ""
}
