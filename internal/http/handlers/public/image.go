package public

import (
	"errors"
	"net/http"

	handlershared "github.com/dujiao-next/warehouse/internal/http/handlers/shared"
	"github.com/dujiao-next/warehouse/internal/http/response"
	"github.com/dujiao-next/warehouse/internal/service"

	"github.com/gin-gonic/gin"
)

// ServeImage 读取商品特征图片
func (h *Handler) ServeImage(c *gin.Context) {
	reader, obj, err := h.ImageService.Open(c.Request.Context(), c.Param("path"))
	if err != nil {
		if errors.Is(err, service.ErrImageNotFound) || errors.Is(err, service.ErrInvalidImage) {
			response.NotFound(c, "图片不存在")
			return
		}
		handlershared.RespondServiceError(c, err, "图片读取失败")
		return
	}
	defer reader.Close()

	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, reader, nil)
}
