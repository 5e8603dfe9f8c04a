package admin

import (
	"io"
	"strconv"
	"strings"

	handlershared "github.com/dujiao-next/warehouse/internal/http/handlers/shared"
	"github.com/dujiao-next/warehouse/internal/http/response"
	"github.com/dujiao-next/warehouse/internal/service"

	"github.com/gin-gonic/gin"
)

// UploadImage 上传商品特征图片
func (h *Handler) UploadImage(c *gin.Context) {
	if !h.ImageService.Enabled() {
		respondErrorWithMsg(c, response.CodeBadRequest, "未配置图片存储", nil)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "请选择要上传的图片", nil)
		return
	}
	maxSize := h.Config.Upload.MaxSize
	if maxSize > 0 && fileHeader.Size > maxSize {
		respondErrorWithMsg(c, response.CodeBadRequest, "文件大小超过限制", nil)
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		respondErrorWithMsg(c, response.CodeInternal, "图片读取失败", err)
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		respondErrorWithMsg(c, response.CodeInternal, "图片读取失败", err)
		return
	}

	input := service.ImageUploadInput{
		InventoryID: formInt(c, "inventory_id"),
		FeatureID:   formInt(c, "feature_id"),
		Filename:    fileHeader.Filename,
		Data:        data,
	}
	result, err := h.ImageService.Upload(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err, "图片上传失败")
		return
	}
	requestLog(c).Infow("image_upload_request_done", "feature_id", result.FeatureID, "path", result.ImagePath, "operator", handlershared.CurrentOperatorName(c))
	response.SuccessWithMsg(c, "图片上传成功", result)
}

type batchDeleteImagesRequest struct {
	Paths []string `json:"paths" binding:"required"`
}

// BatchDeleteImages 批量删除图片
func (h *Handler) BatchDeleteImages(c *gin.Context) {
	var req batchDeleteImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "图片路径列表不能为空", nil)
		return
	}
	result, err := h.ImageService.DeleteImages(c.Request.Context(), req.Paths)
	if err != nil {
		respondServiceError(c, err, "图片删除失败")
		return
	}
	response.SuccessWithMsg(c, "图片删除完成", result)
}

func formInt(c *gin.Context, key string) int {
	value, err := strconv.Atoi(strings.TrimSpace(c.PostForm(key)))
	if err != nil {
		return 0
	}
	return value
}
