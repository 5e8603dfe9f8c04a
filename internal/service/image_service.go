package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/dujiao-next/warehouse/internal/config"
	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/models"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ImageService 商品特征图片上传、读取与批量删除
type ImageService struct {
	store     ImageStore
	inventory *InventoryService
	upload    config.UploadConfig
}

// NewImageService 创建图片服务，store 为 nil 表示未配置图片存储
func NewImageService(store ImageStore, inventory *InventoryService, upload config.UploadConfig) *ImageService {
	return &ImageService{store: store, inventory: inventory, upload: upload}
}

// Enabled 是否配置了图片存储
func (s *ImageService) Enabled() bool {
	return s != nil && s.store != nil
}

// ImageUploadInput 图片上传输入，InventoryID 与 FeatureID 二选一
type ImageUploadInput struct {
	InventoryID int
	FeatureID   int
	Filename    string
	Data        []byte
}

// ImageUploadResult 图片上传结果
type ImageUploadResult struct {
	FeatureID   int    `json:"feature_id"`
	Code        string `json:"code"`
	ImagePath   string `json:"image_path"`
	ContentType string `json:"content_type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Replaced    string `json:"replaced,omitempty"`
}

// ImageDeleteResult 批量删除结果
type ImageDeleteResult struct {
	Deleted         []string `json:"deleted"`
	Failed          []string `json:"failed"`
	ClearedFeatures []int    `json:"cleared_features"`
}

// Upload 保存图片并写入商品特征的图片路径，旧图片在写入成功后删除
func (s *ImageService) Upload(ctx context.Context, in ImageUploadInput) (*ImageUploadResult, error) {
	if !s.Enabled() {
		return nil, ErrImageStoreDisabled
	}
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("%w: 文件内容为空", ErrInvalidImage)
	}
	if s.upload.MaxSize > 0 && int64(len(in.Data)) > s.upload.MaxSize {
		return nil, fmt.Errorf("%w: 文件大小超过限制（最大 %d MB）", ErrInvalidImage, s.upload.MaxSize/1024/1024)
	}

	ext := strings.ToLower(filepath.Ext(in.Filename))
	if len(s.upload.AllowedExtensions) > 0 && (ext == "" || !isAllowedExtension(ext, s.upload.AllowedExtensions)) {
		return nil, fmt.Errorf("%w: 文件扩展名不被允许: %s", ErrInvalidImage, ext)
	}
	mt := mimetype.Detect(in.Data)
	contentType := mt.String()
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	if !strings.HasPrefix(contentType, "image/") || !isAllowedType(contentType, s.upload.AllowedTypes) {
		return nil, fmt.Errorf("%w: 文件类型不被允许: %s", ErrInvalidImage, contentType)
	}
	width, height, err := decodeImageDimensions(bytes.NewReader(in.Data), contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if ext == "" {
		ext = mt.Extension()
	}

	tables, err := s.inventory.snapshot()
	if err != nil {
		return nil, err
	}
	featureID, code, err := imageTarget(tables, in)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%d_%s%s", imageKeySegment(code), featureID, uuid.New().String(), ext)
	if err := s.store.Put(ctx, key, in.Data, contentType); err != nil {
		logger.Errorw("image_store_put_failed", "key", key, "error", err)
		return nil, storageError(err, "图片保存失败")
	}

	result := &ImageUploadResult{
		FeatureID:   featureID,
		Code:        code,
		ImagePath:   ImagePathPrefix + key,
		ContentType: contentType,
		Width:       width,
		Height:      height,
	}
	err = s.inventory.write(ctx, "image_upload", func(t *models.Tables) error {
		idx := t.FindFeature(featureID)
		if idx < 0 {
			return notFoundError("未找到ID为%d的商品特征记录", featureID)
		}
		result.Replaced = t.Features[idx].ImagePath
		t.Features[idx].ImagePath = result.ImagePath
		return nil
	})
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			logger.Warnw("image_orphan_cleanup_failed", "key", key, "error", delErr)
		}
		return nil, err
	}

	if strings.HasPrefix(result.Replaced, ImagePathPrefix) && result.Replaced != result.ImagePath {
		if err := s.store.Delete(ctx, result.Replaced); err != nil {
			logger.Warnw("image_replaced_delete_failed", "path", result.Replaced, "error", err)
		}
	}
	logger.Infow("image_uploaded", "feature_id", featureID, "path", result.ImagePath, "content_type", contentType)
	return result, nil
}

// Open 读取图片，调用方负责关闭
func (s *ImageService) Open(ctx context.Context, imagePath string) (io.ReadCloser, ImageObject, error) {
	if !s.Enabled() {
		return nil, ImageObject{}, ErrImageStoreDisabled
	}
	return s.store.Get(ctx, imagePath)
}

// DeleteImages 批量删除图片，并清空引用这些图片的商品特征路径
func (s *ImageService) DeleteImages(ctx context.Context, paths []string) (*ImageDeleteResult, error) {
	if !s.Enabled() {
		return nil, ErrImageStoreDisabled
	}
	result := &ImageDeleteResult{Deleted: []string{}, Failed: []string{}, ClearedFeatures: []int{}}
	wanted := map[string]struct{}{}
	for _, p := range paths {
		key, err := cleanImageKey(p)
		if err != nil {
			result.Failed = append(result.Failed, p)
			continue
		}
		wanted[ImagePathPrefix+key] = struct{}{}
	}
	if len(wanted) == 0 {
		return nil, validationError("图片路径列表不能为空")
	}

	ordered := make([]string, 0, len(wanted))
	for p := range wanted {
		ordered = append(ordered, p)
	}
	sort.Strings(ordered)
	for _, p := range ordered {
		if err := s.store.Delete(ctx, p); err != nil && !errors.Is(err, ErrImageNotFound) {
			logger.Warnw("image_delete_failed", "path", p, "error", err)
			result.Failed = append(result.Failed, p)
			delete(wanted, p)
			continue
		}
		result.Deleted = append(result.Deleted, p)
	}

	if len(wanted) > 0 {
		err := s.inventory.write(ctx, "image_delete", func(t *models.Tables) error {
			for i := range t.Features {
				if _, ok := wanted[t.Features[i].ImagePath]; ok {
					t.Features[i].ImagePath = ""
					result.ClearedFeatures = append(result.ClearedFeatures, t.Features[i].ID)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	logger.Infow("images_deleted", "deleted", len(result.Deleted), "failed", len(result.Failed), "cleared", len(result.ClearedFeatures))
	return result, nil
}

// imageTarget 解析上传目标特征及其货号
func imageTarget(t *models.Tables, in ImageUploadInput) (int, string, error) {
	featureID := in.FeatureID
	if in.InventoryID > 0 {
		lotIdx := t.FindInventory(in.InventoryID)
		if lotIdx < 0 {
			return 0, "", notFoundError("未找到ID为%d的库存记录", in.InventoryID)
		}
		featureID = t.Inventory[lotIdx].FeatureID
	}
	if featureID <= 0 {
		return 0, "", validationError("缺少库存ID或商品特征ID")
	}
	idx := t.FindFeature(featureID)
	if idx < 0 {
		return 0, "", notFoundError("未找到ID为%d的商品特征记录", featureID)
	}
	code := ""
	if pi := t.FindProduct(t.Features[idx].ProductID); pi >= 0 {
		code = t.Products[pi].Code
	}
	return featureID, code, nil
}

// imageKeySegment 货号转为安全的目录名
func imageKeySegment(code string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(code) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}

func isAllowedType(contentType string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, t := range allowed {
		if strings.EqualFold(contentType, strings.TrimSpace(t)) {
			return true
		}
	}
	return false
}

func isAllowedExtension(ext string, allowed []string) bool {
	for _, allowedExt := range allowed {
		normalized := strings.ToLower(strings.TrimSpace(allowedExt))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if strings.EqualFold(ext, normalized) {
			return true
		}
	}
	return false
}

func decodeImageDimensions(src io.ReadSeeker, contentType string) (int, int, error) {
	if strings.EqualFold(contentType, "image/webp") {
		width, height, err := decodeWebPDimensions(src)
		if err != nil {
			return 0, 0, fmt.Errorf("无法解析 WebP 图片: %w", err)
		}
		return width, height, nil
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(src)
	if err != nil {
		return 0, 0, fmt.Errorf("无法解析图片: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// decodeWebPDimensions 只读 RIFF 头部块获取宽高
func decodeWebPDimensions(src io.ReadSeeker) (int, int, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}
	header := make([]byte, 12)
	if _, err := io.ReadFull(src, header); err != nil {
		return 0, 0, err
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WEBP" {
		return 0, 0, fmt.Errorf("无效的 WebP 文件头")
	}

	for {
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(src, chunkHeader); err != nil {
			return 0, 0, err
		}
		chunkType := string(chunkHeader[0:4])
		chunkSize := int(binary.LittleEndian.Uint32(chunkHeader[4:8]))
		data := make([]byte, chunkSize)
		if _, err := io.ReadFull(src, data); err != nil {
			return 0, 0, err
		}

		switch chunkType {
		case "VP8X":
			if len(data) < 10 {
				return 0, 0, fmt.Errorf("VP8X chunk 长度不足")
			}
			width := 1 + int(data[4]) + int(data[5])<<8 + int(data[6])<<16
			height := 1 + int(data[7]) + int(data[8])<<8 + int(data[9])<<16
			return width, height, nil
		case "VP8 ":
			if len(data) < 10 {
				return 0, 0, fmt.Errorf("VP8 chunk 长度不足")
			}
			width := int(binary.LittleEndian.Uint16(data[6:8]) & 0x3FFF)
			height := int(binary.LittleEndian.Uint16(data[8:10]) & 0x3FFF)
			return width, height, nil
		case "VP8L":
			if len(data) < 5 || data[0] != 0x2f {
				return 0, 0, fmt.Errorf("VP8L 签名无效")
			}
			bits := binary.LittleEndian.Uint32(data[1:5])
			return int(bits&0x3FFF) + 1, int((bits>>14)&0x3FFF) + 1, nil
		}

		if chunkSize%2 == 1 {
			if _, err := src.Seek(1, io.SeekCurrent); err != nil {
				return 0, 0, err
			}
		}
	}
}
