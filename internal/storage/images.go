// internal/storage/images.go
//
// 商品圖片存放於 images/image{N}.png（N 由 1 起算）。
// 只接受 PNG；縮放與顯示由畫面端負責。
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"pointsale/internal/register"
)

// maxImageBytes 限制單張圖片大小。
const maxImageBytes = 8 << 20

func (s *Store) imagePath(index int) string {
	return filepath.Join(s.dir, DirImages, fmt.Sprintf("image%d.png", index+1))
}

// SaveImage 驗證 r 為 PNG 後寫入第 index 項商品的圖片檔。
func (s *Store) SaveImage(index int, r io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(r, maxImageBytes+1))
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return &register.ValidationError{Field: "image", Reason: "file is too large"}
	}
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return &register.ValidationError{Field: "image", Reason: "not a PNG image"}
	}
	if err := os.MkdirAll(filepath.Join(s.dir, DirImages), 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	if err := writeFileAtomic(s.imagePath(index), data); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	s.log.Info("item image saved", zap.Int("item", index+1), zap.Int("bytes", len(data)))
	return nil
}

// OpenImage 開啟第 index 項商品的圖片；不存在時回傳 register.ErrNoImage。
func (s *Store) OpenImage(index int) (io.ReadCloser, error) {
	f, err := os.Open(s.imagePath(index))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, register.ErrNoImage
	}
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	return f, nil
}
