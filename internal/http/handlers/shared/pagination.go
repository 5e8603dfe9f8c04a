package shared

import (
	"strconv"
	"strings"

	"github.com/dujiao-next/warehouse/internal/http/response"

	"github.com/gin-gonic/gin"
)

// BuildPagination 生成分页信息。
func BuildPagination(page, pageSize int, total int64) response.Pagination {
	totalPage := int64(0)
	if pageSize > 0 {
		totalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	}
}

// QueryInt 读取整数查询参数，缺失或非法时返回默认值。
func QueryInt(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// ParseIDParam 解析路径中的正整数 ID。
func ParseIDParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(c.Param(name)))
	if err != nil || id <= 0 {
		RespondErrorWithMsg(c, response.CodeBadRequest, "ID 参数无效", nil)
		return 0, false
	}
	return id, true
}
