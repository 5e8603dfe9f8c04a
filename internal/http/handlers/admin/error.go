package admin

import (
	"bytes"
	"encoding/json"
	"io"

	handlershared "github.com/dujiao-next/warehouse/internal/http/handlers/shared"
	"github.com/dujiao-next/warehouse/internal/http/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondErrorWithMsg(c, code, msg, err)
}

func respondServiceError(c *gin.Context, err error, fallback string) {
	handlershared.RespondServiceError(c, err, fallback)
}

// bindJSONMap 读取 JSON 对象请求体，数字保留原文
func bindJSONMap(c *gin.Context) (map[string]interface{}, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "请求体读取失败", err)
		return nil, false
	}
	payload := map[string]interface{}{}
	if len(bytes.TrimSpace(body)) == 0 {
		return payload, true
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "请求数据格式错误，需要 JSON 对象", nil)
		return nil, false
	}
	return payload, true
}
