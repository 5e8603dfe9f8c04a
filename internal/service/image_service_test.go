package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dujiao-next/warehouse/internal/config"
	"github.com/dujiao-next/warehouse/internal/repository"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png failed: %v", err)
	}
	return buf.Bytes()
}

func newTestImageService(t *testing.T) (*ImageService, *repository.MemoryTableRepository, string) {
	t.Helper()
	svc, repo := newTestInventoryService(t)
	mustStockIn(t, svc, boxItem("P/1", 1, "B1", 10))
	root := t.TempDir()
	store, err := NewLocalImageStore(root)
	if err != nil {
		t.Fatalf("create store failed: %v", err)
	}
	upload := config.UploadConfig{
		MaxSize:           1 << 20,
		AllowedTypes:      []string{"image/png", "image/jpeg"},
		AllowedExtensions: []string{".png", ".jpg"},
	}
	return NewImageService(store, svc, upload), repo, root
}

func TestImageUploadUpdatesFeature(t *testing.T) {
	images, repo, root := newTestImageService(t)
	ctx := context.Background()

	first, err := images.Upload(ctx, ImageUploadInput{InventoryID: 1, Filename: "a.png", Data: testPNG(t, 4, 3)})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if !strings.HasPrefix(first.ImagePath, "/images/P_1/1_") || first.Width != 4 || first.Height != 3 {
		t.Fatalf("unexpected result %+v", first)
	}
	if got := repo.Snapshot().Features[0].ImagePath; got != first.ImagePath {
		t.Fatalf("feature image path not updated: %q", got)
	}

	rc, obj, err := images.Open(ctx, first.ImagePath)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if obj.ContentType != "image/png" || len(data) == 0 {
		t.Fatalf("unexpected object %+v", obj)
	}

	second, err := images.Upload(ctx, ImageUploadInput{FeatureID: 1, Filename: "b.png", Data: testPNG(t, 2, 2)})
	if err != nil {
		t.Fatalf("second upload failed: %v", err)
	}
	if second.Replaced != first.ImagePath {
		t.Fatalf("expected replaced path %q, got %q", first.ImagePath, second.Replaced)
	}
	oldFile := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(first.ImagePath, ImagePathPrefix)))
	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Fatalf("replaced image should be removed, stat err=%v", err)
	}
}

func TestImageUploadValidation(t *testing.T) {
	images, _, _ := newTestImageService(t)
	cases := []struct {
		name string
		in   ImageUploadInput
		want error
	}{
		{name: "empty", in: ImageUploadInput{InventoryID: 1, Filename: "a.png"}, want: ErrInvalidImage},
		{name: "bad extension", in: ImageUploadInput{InventoryID: 1, Filename: "a.gif", Data: testPNG(t, 1, 1)}, want: ErrInvalidImage},
		{name: "not image", in: ImageUploadInput{InventoryID: 1, Filename: "a.png", Data: []byte("hello world")}, want: ErrInvalidImage},
		{name: "missing lot", in: ImageUploadInput{InventoryID: 9, Filename: "a.png", Data: testPNG(t, 1, 1)}, want: ErrNotFound},
		{name: "no target", in: ImageUploadInput{Filename: "a.png", Data: testPNG(t, 1, 1)}, want: ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := images.Upload(context.Background(), tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("want %v got %v", tc.want, err)
			}
		})
	}

	var disabled *ImageService
	if _, err := disabled.Upload(context.Background(), ImageUploadInput{}); !errors.Is(err, ErrImageStoreDisabled) {
		t.Fatalf("expected disabled error, got %v", err)
	}
}

func TestImageBatchDeleteClearsFeature(t *testing.T) {
	images, repo, _ := newTestImageService(t)
	ctx := context.Background()
	up, err := images.Upload(ctx, ImageUploadInput{InventoryID: 1, Filename: "a.png", Data: testPNG(t, 1, 1)})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	res, err := images.DeleteImages(ctx, []string{up.ImagePath, "../etc/passwd"})
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(res.Deleted) != 1 || len(res.Failed) != 1 || len(res.ClearedFeatures) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := repo.Snapshot().Features[0].ImagePath; got != "" {
		t.Fatalf("feature image path should be cleared, got %q", got)
	}
	if _, _, err := images.Open(ctx, up.ImagePath); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCleanImageKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "/images/a/b.png", want: "a/b.png", ok: true},
		{in: "a/./b.png", want: "a/b.png", ok: true},
		{in: "../x.png"},
		{in: "/images/"},
		{in: `a\b.png`},
	}
	for _, tc := range cases {
		got, err := cleanImageKey(tc.in)
		if tc.ok != (err == nil) || got != tc.want {
			t.Fatalf("cleanImageKey(%q) = %q, %v", tc.in, got, err)
		}
	}
}
