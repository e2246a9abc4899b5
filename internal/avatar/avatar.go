// Package avatar resizes uploaded profile images and stores them under a
// per-account name.
package avatar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

const Size = 250

var (
	ErrProcess = errors.New("failed to process image")
	ErrStore   = errors.New("failed to move file")
)

// Storage persists an encoded avatar and returns the URL it is served from.
type Storage interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

type Service struct {
	storage Storage
}

func NewService(storage Storage) *Service {
	return &Service{storage: storage}
}

// Save cover-crops src to Size x Size and stores it as <accountID><ext>, where
// ext comes from the uploaded filename. Storing again replaces the previous avatar.
func (s *Service) Save(ctx context.Context, accountID, filename string, src io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrProcess, ext, err)
	}

	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrProcess, err)
	}
	img = imaging.Fill(img, Size, Size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return "", fmt.Errorf("%w: encode: %v", ErrProcess, err)
	}

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := s.storage.Put(ctx, accountID+ext, contentType, buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStore, err)
	}
	return url, nil
}
