package qr

import (
	"errors"
	"fmt"

	"github.com/skip2/go-qrcode"
)

const (
	DefaultSize = 256
	MinSize     = 64
	MaxSize     = 1024
)

var ErrEmptyContent = errors.New("qr content is empty")

// Render encodes a ticket hash as a square PNG of size pixels. Sizes outside
// [MinSize, MaxSize] are clamped.
func Render(hash string, size int) ([]byte, error) {
	if hash == "" {
		return nil, ErrEmptyContent
	}
	switch {
	case size <= 0:
		size = DefaultSize
	case size < MinSize:
		size = MinSize
	case size > MaxSize:
		size = MaxSize
	}
	png, err := qrcode.Encode(hash, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr: %w", err)
	}
	return png, nil
}
