package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dujiao-next/warehouse/internal/config"
	"github.com/dujiao-next/warehouse/internal/constants"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrImageNotFound 图片对象不存在
var ErrImageNotFound = errors.New("image not found")

// ImagePathPrefix 商品特征中图片路径的前缀，对应 /images 路由
const ImagePathPrefix = "/images/"

// ImageObject 图片对象元信息
type ImageObject struct {
	Key         string
	Size        int64
	ContentType string
}

// ImageStore 图片对象存储
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, ImageObject, error)
	Delete(ctx context.Context, key string) error
}

// NewImageStore 按配置创建图片存储，driver 为空时返回 nil（图片功能关闭）
func NewImageStore(ctx context.Context, cfg config.StorageConfig) (ImageStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none":
		return nil, nil
	case constants.StorageDriverLocal:
		return NewLocalImageStore(cfg.LocalDir)
	case constants.StorageDriverMinio:
		return NewMinioImageStore(ctx, cfg.Minio)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// LocalImageStore 本地目录存储
type LocalImageStore struct {
	root string
}

// NewLocalImageStore 创建本地图片存储
func NewLocalImageStore(root string) (*LocalImageStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage.local_dir is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir failed: %w", err)
	}
	return &LocalImageStore{root: root}, nil
}

func (s *LocalImageStore) resolve(key string) (string, error) {
	clean, err := cleanImageKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Put 写入图片（先写临时文件再改名）
func (s *LocalImageStore) Put(_ context.Context, key string, data []byte, _ string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, full)
}

// Get 打开图片
func (s *LocalImageStore) Get(_ context.Context, key string) (io.ReadCloser, ImageObject, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, ImageObject{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ImageObject{}, ErrImageNotFound
		}
		return nil, ImageObject{}, err
	}
	if info.IsDir() {
		return nil, ImageObject{}, ErrImageNotFound
	}
	mt, err := mimetype.DetectFile(full)
	if err != nil {
		return nil, ImageObject{}, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, ImageObject{}, err
	}
	return f, ImageObject{Key: key, Size: info.Size(), ContentType: mt.String()}, nil
}

// Delete 删除图片
func (s *LocalImageStore) Delete(_ context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return ErrImageNotFound
		}
		return err
	}
	return nil
}

// MinioImageStore MinIO 对象存储
type MinioImageStore struct {
	client *minio.Client
	bucket string
}

// NewMinioImageStore 创建 MinIO 图片存储，桶不存在时自动创建
func NewMinioImageStore(ctx context.Context, cfg config.MinioConfig) (*MinioImageStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("storage.minio.endpoint and storage.minio.bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client failed: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check minio bucket failed: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create minio bucket failed: %w", err)
		}
	}
	return &MinioImageStore{client: client, bucket: cfg.Bucket}, nil
}

// Put 上传对象
func (s *MinioImageStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	clean, err := cleanImageKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, clean, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload image: %w", err)
	}
	return nil
}

// Get 读取对象
func (s *MinioImageStore) Get(ctx context.Context, key string) (io.ReadCloser, ImageObject, error) {
	clean, err := cleanImageKey(key)
	if err != nil {
		return nil, ImageObject{}, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, clean, minio.GetObjectOptions{})
	if err != nil {
		return nil, ImageObject{}, fmt.Errorf("get object: %w", err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ImageObject{}, ErrImageNotFound
		}
		return nil, ImageObject{}, fmt.Errorf("stat object: %w", err)
	}
	return obj, ImageObject{Key: clean, Size: info.Size, ContentType: info.ContentType}, nil
}

// Delete 删除对象
func (s *MinioImageStore) Delete(ctx context.Context, key string) error {
	clean, err := cleanImageKey(key)
	if err != nil {
		return err
	}
	if _, err := s.client.StatObject(ctx, s.bucket, clean, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return ErrImageNotFound
		}
		return fmt.Errorf("stat object: %w", err)
	}
	return s.client.RemoveObject(ctx, s.bucket, clean, minio.RemoveObjectOptions{})
}

// cleanImageKey 规范化对象键，拒绝越出存储根目录的路径
func cleanImageKey(key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), ImagePathPrefix)
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", fmt.Errorf("%w: empty image path", ErrInvalidImage)
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(clean, "\\") {
		return "", fmt.Errorf("%w: %s", ErrInvalidImage, key)
	}
	return clean, nil
}
