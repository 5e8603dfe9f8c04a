package shared

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// 鉴权中间件写入的上下文键
const (
	OperatorIDKey      = "operator_id"
	OperatorNameKey    = "operator_username"
	OperatorIsSuperKey = "operator_is_super"
)

// CurrentOperatorID 当前登录操作员 ID，未登录返回 0
func CurrentOperatorID(c *gin.Context) uint {
	value, ok := c.Get(OperatorIDKey)
	if !ok {
		return 0
	}
	switch v := value.(type) {
	case uint:
		return v
	case int:
		if v > 0 {
			return uint(v)
		}
	case float64:
		if v > 0 {
			return uint(v)
		}
	}
	return 0
}

// CurrentOperatorName 当前登录操作员用户名，未启用鉴权时为空
func CurrentOperatorName(c *gin.Context) string {
	value, ok := c.Get(OperatorNameKey)
	if !ok {
		return ""
	}
	name, _ := value.(string)
	return strings.TrimSpace(name)
}

// CurrentOperatorIsSuper 当前操作员是否为超级操作员
func CurrentOperatorIsSuper(c *gin.Context) bool {
	value, ok := c.Get(OperatorIsSuperKey)
	if !ok {
		return false
	}
	isSuper, _ := value.(bool)
	return isSuper
}

// CurrentRequestID 当前请求 ID
func CurrentRequestID(c *gin.Context) string {
	value, ok := c.Get("request_id")
	if !ok {
		return ""
	}
	id, _ := value.(string)
	return id
}
